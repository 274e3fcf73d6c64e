package binance

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

var (
	_ app.MarketDataProvider = (*Provider)(nil)
	_ app.HealthReporter     = (*Provider)(nil)
)

// ProviderConfig holds configuration for the Binance provider.
type ProviderConfig struct {
	HTTPURL   string // REST API base URL (empty = default)
	Timeout   time.Duration
	RateLimit ratelimit.Quota
	Depth     int
	Breaker   circuitbreaker.Config

	StreamEnabled bool
	WebSocketURL  string // WebSocket base URL (empty = default)
	Symbols       []domain.Symbol
	StaleTimeout  time.Duration // How long a streamed quote may be served
}

// Provider serves quotes from the bookTicker stream cache while it is fresh
// and from the REST depth endpoint otherwise.
type Provider struct {
	config     ProviderConfig
	logger     logger.LoggerInterface
	httpClient *HTTPClient
	client     *Client // nil unless streaming is enabled
	breaker    *circuitbreaker.CircuitBreaker[domain.Quote]

	// Latest streamed quote per SymbolID
	tickers   map[string]domain.Quote
	tickersMu sync.RWMutex
	symbols   map[string]domain.Symbol

	tracer trace.Tracer
}

// NewProvider creates a new Binance provider.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	if cfg.Breaker.Name == "" {
		cfg.Breaker = circuitbreaker.DefaultConfig(string(domain.VenueBinance))
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	httpClient, err := NewHTTPClient(HTTPClientConfig{
		BaseURL:   cfg.HTTPURL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
	}, log)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:     cfg,
		logger:     log,
		httpClient: httpClient,
		breaker:    circuitbreaker.New[domain.Quote](cfg.Breaker),
		tickers:    make(map[string]domain.Quote),
		symbols:    make(map[string]domain.Symbol, len(cfg.Symbols)),
		tracer:     otel.Tracer(tracerName),
	}
	for _, sym := range cfg.Symbols {
		p.symbols[SymbolID(sym)] = sym
	}

	if cfg.StreamEnabled {
		client, err := NewClient(cfg.WebSocketURL, cfg.Symbols, log)
		if err != nil {
			return nil, err
		}
		client.OnBookTicker(p.handleBookTicker)
		p.client = client
	}

	return p, nil
}

// Venue returns binance.
func (p *Provider) Venue() domain.Venue {
	return domain.VenueBinance
}

// Streaming reports whether the bookTicker stream is configured.
func (p *Provider) Streaming() bool {
	return p.client != nil
}

// Connect opens the bookTicker stream. It is a no-op in REST-only mode.
func (p *Provider) Connect(ctx context.Context) error {
	if p.client == nil {
		return nil
	}
	return p.client.Connect(ctx)
}

// Close closes the stream.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// GetQuote returns the top of book for symbol.
func (p *Provider) GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	ctx, span := p.tracer.Start(ctx, "binance.get_quote",
		trace.WithAttributes(attribute.String("symbol", symbol.String())),
	)
	defer span.End()

	if q, ok := p.cachedQuote(symbol); ok {
		span.SetAttributes(attribute.String("source", "websocket"))
		return q, nil
	}

	quote, err := p.breaker.Execute(func() (domain.Quote, error) {
		return p.fetchDepth(ctx, symbol)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Quote{}, domain.NewFetchError(domain.VenueBinance, symbol, err)
	}

	span.SetAttributes(
		attribute.String("source", "http"),
		attribute.String("bid", quote.BestBid.String()),
		attribute.String("ask", quote.BestAsk.String()),
	)
	return quote, nil
}

func (p *Provider) fetchDepth(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	depth, err := p.httpClient.GetDepth(ctx, SymbolID(symbol), p.config.Depth)
	if err != nil {
		return domain.Quote{}, err
	}

	bids, err := ParseLevels(depth.Bids)
	if err != nil {
		return domain.Quote{}, err
	}
	asks, err := ParseLevels(depth.Asks)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.NewQuoteFromLevels(domain.VenueBinance, symbol, bids, asks)
}

// cachedQuote returns the streamed quote when it is younger than StaleTimeout.
func (p *Provider) cachedQuote(symbol domain.Symbol) (domain.Quote, bool) {
	if p.client == nil {
		return domain.Quote{}, false
	}

	p.tickersMu.RLock()
	q, ok := p.tickers[SymbolID(symbol)]
	p.tickersMu.RUnlock()

	if !ok || q.Age() > p.config.StaleTimeout {
		return domain.Quote{}, false
	}
	return q, true
}

// handleBookTicker processes book ticker updates (best bid/ask).
func (p *Provider) handleBookTicker(event *BookTickerEvent) {
	ctx := context.Background()

	symbol, ok := p.symbols[event.Symbol]
	if !ok {
		p.logger.Debug(ctx, "book ticker for unknown symbol", "symbol", event.Symbol)
		return
	}

	bids, asks, err := event.Levels()
	if err != nil {
		p.logger.Debug(ctx, "failed to parse book ticker", "symbol", event.Symbol, "error", err)
		return
	}
	q, err := domain.NewQuoteFromLevels(domain.VenueBinance, symbol, bids, asks)
	if err != nil {
		p.logger.Debug(ctx, "unusable book ticker", "symbol", event.Symbol, "error", err)
		return
	}

	p.tickersMu.Lock()
	p.tickers[event.Symbol] = q
	p.tickersMu.Unlock()
}

// Healthy reports the breaker state and, when streaming, the stream state.
func (p *Provider) Healthy() (bool, string) {
	state := p.breaker.State()
	msg := state.String()
	if p.client != nil {
		if p.client.IsConnected() {
			msg += ", stream connected"
		} else {
			msg += ", stream down (rest fallback)"
		}
	}
	return state != gobreaker.StateOpen, msg
}
