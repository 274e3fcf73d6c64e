package bitpreco

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/circuitbreaker"
)

type mockLogger struct{}

func (mockLogger) Debug(context.Context, string, ...any)       {}
func (mockLogger) Info(context.Context, string, ...any)        {}
func (mockLogger) Warn(context.Context, string, ...any)        {}
func (mockLogger) Error(context.Context, string, ...any)       {}
func (mockLogger) Debugc(context.Context, int, string, ...any) {}
func (mockLogger) Infoc(context.Context, int, string, ...any)  {}
func (mockLogger) Warnc(context.Context, int, string, ...any)  {}
func (mockLogger) Errorc(context.Context, int, string, ...any) {}

var btcBRL = domain.MustParseSymbol("BTC-BRL")

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	breaker := circuitbreaker.DefaultConfig("bitpreco")
	breaker.ConsecutiveFailures = 2
	breaker.Timeout = time.Hour

	p, err := NewProvider(Config{BaseURL: srv.URL, Timeout: time.Second, Breaker: breaker}, mockLogger{})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	return p
}

func TestGetQuote_PicksBestLevels(t *testing.T) {
	var path string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{
			"success": true,
			"bids": [{"price": 349000.5, "amount": 0.1}, {"price": "350100", "amount": "0.02"}],
			"asks": [{"price": 351200, "amount": 0.3}, {"price": 350900.25, "amount": 0.01}]
		}`))
	})

	q, err := p.GetQuote(context.Background(), btcBRL)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}

	if path != "/btc-brl/orderbook" {
		t.Errorf("path = %q", path)
	}
	if q.Venue != domain.VenueBitpreco || q.Symbol != btcBRL {
		t.Errorf("quote identity = %s %s", q.Venue, q.Symbol)
	}
	if !q.BestBid.Equal(decimal.RequireFromString("350100")) {
		t.Errorf("bid = %s, want max bid 350100", q.BestBid)
	}
	if !q.BestAsk.Equal(decimal.RequireFromString("350900.25")) {
		t.Errorf("ask = %s, want min ask 350900.25", q.BestAsk)
	}
}

func TestGetQuote_FailuresAreFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server_error", http.StatusInternalServerError, `oops`},
		{"not_json", http.StatusOK, `<html>maintenance</html>`},
		{"empty_bids", http.StatusOK, `{"bids":[],"asks":[{"price":1,"amount":1}]}`},
		{"missing_asks", http.StatusOK, `{"bids":[{"price":1,"amount":1}]}`},
		{"api_failure", http.StatusOK, `{"success":false,"message":"market not found"}`},
		{"zero_price", http.StatusOK, `{"bids":[{"price":0,"amount":1}],"asks":[{"price":1,"amount":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := p.GetQuote(context.Background(), btcBRL)
			if !errors.Is(err, domain.ErrFetch) {
				t.Fatalf("err = %v, want FETCH_FAILED", err)
			}
		})
	}
}

func TestGetQuote_OpenBreakerIsReportedAsFetchError(t *testing.T) {
	var hits int
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		if _, err := p.GetQuote(context.Background(), btcBRL); !errors.Is(err, domain.ErrFetch) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	if hits != 2 {
		t.Errorf("server hits = %d, want 2 before the breaker opened", hits)
	}
	if healthy, state := p.Healthy(); healthy || state != "open" {
		t.Errorf("Healthy() = %v %q, want false open", healthy, state)
	}
}

func TestMarketID(t *testing.T) {
	if got := MarketID(domain.MustParseSymbol("usdt/brl")); got != "usdt-brl" {
		t.Errorf("MarketID = %q", got)
	}
}
