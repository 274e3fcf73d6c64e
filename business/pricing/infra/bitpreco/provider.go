// Package bitpreco implements the MarketDataProvider for the BitPreço exchange.
package bitpreco

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
	"github.com/fd1az/brl-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/brl-arbitrage-bot/internal/httpclient"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

var (
	_ app.MarketDataProvider = (*Provider)(nil)
	_ app.HealthReporter     = (*Provider)(nil)
)

const (
	tracerName = "bitpreco"

	BaseAPIURL  = "https://api.bitpreco.com"
	httpTimeout = 5 * time.Second
)

// Config holds configuration for the BitPreço provider.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit ratelimit.Quota
	Breaker   circuitbreaker.Config
}

// orderbookResponse is the /{market}/orderbook payload. Prices and amounts
// arrive as JSON numbers or strings; decimal accepts both.
type orderbookResponse struct {
	Success *bool   `json:"success,omitempty"`
	Message string  `json:"message,omitempty"`
	Bids    []level `json:"bids"`
	Asks    []level `json:"asks"`
}

type level struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// Provider fetches top of book from the BitPreço REST API.
type Provider struct {
	client  httpclient.Client
	breaker *circuitbreaker.CircuitBreaker[domain.Quote]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewProvider creates a BitPreço provider.
func NewProvider(cfg Config, log logger.LoggerInterface) (*Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultConfig(string(domain.VenueBitpreco))
	}

	tracer := otel.Tracer(tracerName)

	opts := []httpclient.ClientOption{
		httpclient.WithProviderName(string(domain.VenueBitpreco)),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	}
	if cfg.RateLimit.MaxRequests > 0 {
		opts = append(opts, httpclient.WithRateLimiter(ratelimit.NewFromQuota(cfg.RateLimit)))
	}

	client, err := httpclient.NewInstrumentedClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Provider{
		client:  client,
		breaker: circuitbreaker.New[domain.Quote](cfg.Breaker),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// Venue returns bitpreco.
func (p *Provider) Venue() domain.Venue {
	return domain.VenueBitpreco
}

// GetQuote fetches the order book and reduces it to best bid and ask.
func (p *Provider) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "bitpreco.get_quote",
		trace.WithAttributes(attribute.String("symbol", symbol.String())),
	)
	defer span.End()

	quote, err := p.breaker.Execute(func() (domain.Quote, error) {
		return p.fetch(ctx, symbol)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Quote{}, domain.NewFetchError(domain.VenueBitpreco, symbol, err)
	}

	span.SetAttributes(
		attribute.String("bid", quote.BestBid.String()),
		attribute.String("ask", quote.BestAsk.String()),
	)
	return quote, nil
}

func (p *Provider) fetch(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	var book orderbookResponse
	_, err := p.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "orderbook"),
			httpclient.NewLabel("symbol", symbol.String()),
		),
	).
		SetResult(&book).
		Get(ctx, "/"+MarketID(symbol)+"/orderbook")
	if err != nil {
		return domain.Quote{}, err
	}

	if book.Success != nil && !*book.Success {
		return domain.Quote{}, apperror.New(apperror.CodeVenueAPIError,
			apperror.WithContextf("bitpreco: %s", book.Message))
	}

	quote, err := domain.NewQuoteFromLevels(domain.VenueBitpreco, symbol, toLevels(book.Bids), toLevels(book.Asks))
	if err != nil {
		return domain.Quote{}, err
	}

	p.logger.Debug(ctx, "bitpreco quote",
		"symbol", symbol.String(),
		"bid", quote.BestBid.String(),
		"ask", quote.BestAsk.String())
	return quote, nil
}

// Healthy reports the breaker state.
func (p *Provider) Healthy() (bool, string) {
	state := p.breaker.State()
	return state != gobreaker.StateOpen, state.String()
}

// MarketID converts BTC-BRL into the btc-brl path segment.
func MarketID(symbol domain.Symbol) string {
	return strings.ToLower(symbol.Base + "-" + symbol.Quote)
}

func toLevels(in []level) []domain.Level {
	out := make([]domain.Level, len(in))
	for i, l := range in {
		out[i] = domain.Level{Price: l.Price, Amount: l.Amount}
	}
	return out
}
