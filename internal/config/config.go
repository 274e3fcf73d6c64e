// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// VenuesConfig holds one record per supported venue.
type VenuesConfig struct {
	Bitpreco VenueConfig        `mapstructure:"bitpreco"`
	Binance  BinanceVenueConfig `mapstructure:"binance"`
}

// RateLimitConfig is a venue request quota.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// VenueConfig holds the settings every venue has.
type VenueConfig struct {
	BaseURL    string          `mapstructure:"base_url"`
	FeePercent float64         `mapstructure:"fee_percent"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Timeout    time.Duration   `mapstructure:"timeout"`
}

// FeeDecimal returns the fee as a fraction.
func (c VenueConfig) FeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeePercent)
}

// BinanceVenueConfig adds the optional bookTicker stream.
type BinanceVenueConfig struct {
	VenueConfig   `mapstructure:",squash"`
	StreamEnabled bool          `mapstructure:"stream_enabled"`
	StreamURL     string        `mapstructure:"stream_url"` // wss://stream.binance.com:9443 or wss://stream.binance.us:9443 for US
	StaleTimeout  time.Duration `mapstructure:"stale_timeout"`
}

// TradingConfig holds detection and sizing settings.
type TradingConfig struct {
	Amount           float64            `mapstructure:"amount"`
	MinProfitPercent float64            `mapstructure:"min_profit_percent"`
	Symbols          []string           `mapstructure:"symbols"`
	Selection        string             `mapstructure:"selection"`
	CycleFloor       time.Duration      `mapstructure:"cycle_floor"`
	FetchTimeout     time.Duration      `mapstructure:"fetch_timeout"`
	InitialBalances  map[string]float64 `mapstructure:"initial_balances"`
	Enabled          bool               `mapstructure:"enabled"`
}

// AmountDecimal returns the per-trade amount in the quote asset.
func (c *TradingConfig) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Amount)
}

// MinProfitDecimal returns the profit threshold as a fraction.
func (c *TradingConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPercent)
}

// InitialBalancesDecimal returns the per-venue starting balances keyed by
// upper-cased asset.
func (c *TradingConfig) InitialBalancesDecimal() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.InitialBalances))
	for asset, amount := range c.InitialBalances {
		out[strings.ToUpper(asset)] = decimal.NewFromFloat(amount)
	}
	return out
}

// ExecutionConfig holds execution engine settings.
type ExecutionConfig struct {
	SellRetry RetryConfig `mapstructure:"sell_retry"`
}

// RetryConfig is an exponential backoff budget.
type RetryConfig struct {
	MaxAttempts     uint          `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// NotifyConfig holds operator alert channels.
type NotifyConfig struct {
	DiscordWebhookURL string   `mapstructure:"discord_webhook_url"`
	TelegramToken     string   `mapstructure:"telegram_token"`
	TelegramChatID    string   `mapstructure:"telegram_chat_id"`
	Events            []string `mapstructure:"events"`
}

// RedisConfig holds the trade event bus settings.
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	Prefix       string `mapstructure:"prefix"`
	StreamMaxLen int64  `mapstructure:"stream_max_len"`
}

// HealthConfig holds the health and admin server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Venues
	v.BindEnv("venues.bitpreco.base_url", "ARB_BITPRECO_URL", "BITPRECO_URL")
	v.BindEnv("venues.binance.base_url", "ARB_BINANCE_URL", "BINANCE_URL")
	v.BindEnv("venues.binance.stream_url", "ARB_BINANCE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("venues.binance.stream_enabled", "ARB_BINANCE_STREAM")

	// Trading
	v.BindEnv("trading.symbols", "ARB_SYMBOLS")
	v.BindEnv("trading.amount", "ARB_AMOUNT")
	v.BindEnv("trading.min_profit_percent", "ARB_MIN_PROFIT")
	v.BindEnv("trading.selection", "ARB_SELECTION")

	// Notify
	v.BindEnv("notify.discord_webhook_url", "ARB_DISCORD_WEBHOOK", "DISCORD_WEBHOOK_URL")
	v.BindEnv("notify.telegram_token", "ARB_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Redis
	v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "brl-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Venue defaults
	v.SetDefault("venues.bitpreco.base_url", "https://api.bitpreco.com")
	v.SetDefault("venues.bitpreco.fee_percent", 0.02)
	v.SetDefault("venues.bitpreco.rate_limit.max_requests", 60)
	v.SetDefault("venues.bitpreco.rate_limit.window", "1m")
	v.SetDefault("venues.bitpreco.timeout", "5s")

	v.SetDefault("venues.binance.base_url", "https://api.binance.com")
	v.SetDefault("venues.binance.fee_percent", 0.03)
	v.SetDefault("venues.binance.rate_limit.max_requests", 1200)
	v.SetDefault("venues.binance.rate_limit.window", "1m")
	v.SetDefault("venues.binance.timeout", "5s")
	v.SetDefault("venues.binance.stream_enabled", false)
	v.SetDefault("venues.binance.stream_url", "wss://stream.binance.com:9443")
	v.SetDefault("venues.binance.stale_timeout", "5s")

	// Trading defaults
	v.SetDefault("trading.amount", 5)
	v.SetDefault("trading.min_profit_percent", 0.05)
	v.SetDefault("trading.symbols", []string{"BTC-BRL", "USDT-BRL", "ETH-BRL"})
	v.SetDefault("trading.selection", "best")
	v.SetDefault("trading.cycle_floor", "5s")
	v.SetDefault("trading.fetch_timeout", "3s")
	v.SetDefault("trading.enabled", true)
	v.SetDefault("trading.initial_balances", map[string]float64{
		"BTC": 1000, "USDT": 1000, "ETH": 1000, "BRL": 1000,
	})

	// Execution defaults
	v.SetDefault("execution.sell_retry.max_attempts", 3)
	v.SetDefault("execution.sell_retry.initial_interval", "200ms")
	v.SetDefault("execution.sell_retry.max_interval", "2s")
	v.SetDefault("execution.sell_retry.multiplier", 2.0)

	// Notify defaults
	v.SetDefault("notify.events", []string{"stuck", "partial_execution"})

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "arb")
	v.SetDefault("redis.stream_max_len", 10000)

	// Health defaults
	v.SetDefault("health.port", 8080)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "brl-arbitrage-bot")
	v.SetDefault("telemetry.trace_provider", "console")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("trading.symbols cannot be empty")
	}
	if c.Trading.Amount <= 0 {
		return fmt.Errorf("trading.amount must be positive, got %v", c.Trading.Amount)
	}
	if c.Trading.MinProfitPercent < 0 {
		return fmt.Errorf("trading.min_profit_percent must not be negative, got %v", c.Trading.MinProfitPercent)
	}
	switch c.Trading.Selection {
	case "best", "first_match":
	default:
		return fmt.Errorf("trading.selection must be best or first_match, got %q", c.Trading.Selection)
	}
	if c.Trading.CycleFloor < 0 {
		return fmt.Errorf("trading.cycle_floor must not be negative")
	}
	if c.Trading.FetchTimeout <= 0 {
		return fmt.Errorf("trading.fetch_timeout must be positive")
	}
	for asset, amount := range c.Trading.InitialBalances {
		if amount < 0 {
			return fmt.Errorf("trading.initial_balances.%s must not be negative", asset)
		}
	}

	venues := map[string]VenueConfig{
		"bitpreco": c.Venues.Bitpreco,
		"binance":  c.Venues.Binance.VenueConfig,
	}
	for name, vc := range venues {
		if vc.BaseURL == "" {
			return fmt.Errorf("venues.%s.base_url is required", name)
		}
		if vc.FeePercent < 0 || vc.FeePercent >= 1 {
			return fmt.Errorf("venues.%s.fee_percent must be in [0, 1), got %v", name, vc.FeePercent)
		}
		if vc.RateLimit.MaxRequests <= 0 || vc.RateLimit.Window <= 0 {
			return fmt.Errorf("venues.%s.rate_limit needs positive max_requests and window", name)
		}
	}
	if c.Venues.Binance.StreamEnabled && c.Venues.Binance.StreamURL == "" {
		return fmt.Errorf("venues.binance.stream_url is required when streaming is enabled")
	}

	if c.Execution.SellRetry.MaxAttempts == 0 {
		return fmt.Errorf("execution.sell_retry.max_attempts must be at least 1")
	}
	if c.Execution.SellRetry.Multiplier < 1 {
		return fmt.Errorf("execution.sell_retry.multiplier must be >= 1")
	}
	return nil
}
