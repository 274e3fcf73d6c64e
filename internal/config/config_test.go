package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test-bot\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.App.Name != "test-bot" {
		t.Errorf("app.name = %q", cfg.App.Name)
	}
	if got := strings.Join(cfg.Trading.Symbols, ","); got != "BTC-BRL,USDT-BRL,ETH-BRL" {
		t.Errorf("symbols = %s", got)
	}
	if !cfg.Trading.AmountDecimal().Equal(decimal.NewFromInt(5)) {
		t.Errorf("amount = %s, want 5", cfg.Trading.AmountDecimal())
	}
	if !cfg.Trading.MinProfitDecimal().Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("min profit = %s, want 0.05", cfg.Trading.MinProfitDecimal())
	}
	if !cfg.Venues.Bitpreco.FeeDecimal().Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("bitpreco fee = %s", cfg.Venues.Bitpreco.FeeDecimal())
	}
	if !cfg.Venues.Binance.FeeDecimal().Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("binance fee = %s", cfg.Venues.Binance.FeeDecimal())
	}
	if cfg.Trading.CycleFloor != 5*time.Second {
		t.Errorf("cycle floor = %v", cfg.Trading.CycleFloor)
	}
	if cfg.Venues.Binance.RateLimit.Window != time.Minute {
		t.Errorf("binance window = %v", cfg.Venues.Binance.RateLimit.Window)
	}
	if cfg.Trading.Selection != "best" {
		t.Errorf("selection = %q", cfg.Trading.Selection)
	}

	balances := cfg.Trading.InitialBalancesDecimal()
	for _, asset := range []string{"BTC", "USDT", "ETH", "BRL"} {
		if !balances[asset].Equal(decimal.NewFromInt(1000)) {
			t.Errorf("initial %s = %s, want 1000", asset, balances[asset])
		}
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("ARB_AMOUNT", "10")

	path := writeConfig(t, `
trading:
  symbols: [ETH-BRL]
  selection: first_match
venues:
  binance:
    stream_enabled: true
    stale_timeout: 2s
execution:
  sell_retry:
    max_attempts: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Trading.Amount != 10 {
		t.Errorf("amount = %v, want env override 10", cfg.Trading.Amount)
	}
	if len(cfg.Trading.Symbols) != 1 || cfg.Trading.Symbols[0] != "ETH-BRL" {
		t.Errorf("symbols = %v", cfg.Trading.Symbols)
	}
	if cfg.Trading.Selection != "first_match" {
		t.Errorf("selection = %q", cfg.Trading.Selection)
	}
	if !cfg.Venues.Binance.StreamEnabled || cfg.Venues.Binance.StaleTimeout != 2*time.Second {
		t.Errorf("binance stream = %v / %v", cfg.Venues.Binance.StreamEnabled, cfg.Venues.Binance.StaleTimeout)
	}
	if cfg.Execution.SellRetry.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Execution.SellRetry.MaxAttempts)
	}
}

func validConfig() Config {
	venue := VenueConfig{
		BaseURL:    "https://example.test",
		FeePercent: 0.02,
		RateLimit:  RateLimitConfig{MaxRequests: 20, Window: 100 * time.Millisecond},
	}
	return Config{
		Venues: VenuesConfig{
			Bitpreco: venue,
			Binance:  BinanceVenueConfig{VenueConfig: venue},
		},
		Trading: TradingConfig{
			Amount:           5,
			MinProfitPercent: 0.05,
			Symbols:          []string{"BTC-BRL"},
			Selection:        "best",
			FetchTimeout:     time.Second,
		},
		Execution: ExecutionConfig{
			SellRetry: RetryConfig{MaxAttempts: 3, Multiplier: 2},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no_symbols", func(c *Config) { c.Trading.Symbols = nil }, "trading.symbols"},
		{"zero_amount", func(c *Config) { c.Trading.Amount = 0 }, "trading.amount"},
		{"bad_selection", func(c *Config) { c.Trading.Selection = "random" }, "trading.selection"},
		{"fee_of_one", func(c *Config) { c.Venues.Bitpreco.FeePercent = 1 }, "venues.bitpreco.fee_percent"},
		{"negative_fee", func(c *Config) { c.Venues.Binance.FeePercent = -0.1 }, "venues.binance.fee_percent"},
		{"zero_quota", func(c *Config) { c.Venues.Binance.RateLimit.MaxRequests = 0 }, "venues.binance.rate_limit"},
		{"stream_without_url", func(c *Config) { c.Venues.Binance.StreamEnabled = true }, "stream_url"},
		{"no_retries", func(c *Config) { c.Execution.SellRetry.MaxAttempts = 0 }, "max_attempts"},
		{"negative_balance", func(c *Config) {
			c.Trading.InitialBalances = map[string]float64{"brl": -1}
		}, "initial_balances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}
