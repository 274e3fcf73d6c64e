package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/wsconn"
)

const (
	tracerName = "binance"
	meterName  = "binance"

	// Binance WebSocket endpoints
	BaseWSURL   = "wss://stream.binance.com:9443"
	BaseWSURLUS = "wss://stream.binance.us:9443"
)

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	messagesReceived metric.Int64Counter
	tickerUpdates    metric.Int64Counter
	parseErrors      metric.Int64Counter
}

// Client is a Binance combined-stream WebSocket client for bookTicker events.
type Client struct {
	baseURL string
	symbols []domain.Symbol
	logger  logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	onBookTicker func(*BookTickerEvent)
	handlersMu   sync.RWMutex

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a new Binance WebSocket client.
func NewClient(baseURL string, symbols []domain.Symbol, log logger.LoggerInterface) (*Client, error) {
	if baseURL == "" {
		baseURL = BaseWSURL
	}
	if len(symbols) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbols configured"))
	}

	c := &Client{
		baseURL: baseURL,
		symbols: symbols,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.messagesReceived, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total messages received"),
	)
	if err != nil {
		return err
	}

	c.metrics.tickerUpdates, err = meter.Int64Counter(
		"binance_book_ticker_updates_total",
		metric.WithDescription("Total bookTicker updates received"),
	)
	if err != nil {
		return err
	}

	c.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Message parse errors"),
	)
	return err
}

// OnBookTicker registers a handler for book ticker events.
func (c *Client) OnBookTicker(handler func(*BookTickerEvent)) {
	c.handlersMu.Lock()
	c.onBookTicker = handler
	c.handlersMu.Unlock()
}

// Connect dials the combined stream. The subscription is encoded in the URL,
// so wsconn reconnects resubscribe on their own.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "binance.connect")
	defer span.End()

	wsURL, err := c.buildStreamURL()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("url", wsURL))

	conn, err := wsconn.New(wsconn.DefaultConfig(wsURL, "binance"))
	if err != nil {
		return err
	}
	conn.OnMessage(c.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			c.logger.Warn(context.Background(), "binance stream state changed", "state", string(state), "error", err)
			return
		}
		c.logger.Info(context.Background(), "binance stream state changed", "state", string(state))
	})

	if err := conn.Connect(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	c.connMu.Lock()
	old := c.conn
	c.conn = conn
	c.connMu.Unlock()
	if old != nil {
		old.Close()
	}

	c.logger.Info(ctx, "binance stream connected", "url", wsURL)
	return nil
}

// buildStreamURL constructs /stream?streams=btcbrl@bookTicker/ethbrl@bookTicker.
func (c *Client) buildStreamURL() (string, error) {
	streams := make([]string, 0, len(c.symbols))
	for _, sym := range c.symbols {
		streams = append(streams, BookTickerStream(sym))
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContextf("stream url %q", c.baseURL), apperror.WithCause(err))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	c.metrics.messagesReceived.Add(ctx, 1)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		// Subscription acks carry only an id.
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil && resp.ID != 0 {
			return
		}
		c.metrics.parseErrors.Add(ctx, 1)
		c.logger.Debug(ctx, "failed to parse message", "data", string(data[:min(len(data), 200)]))
		return
	}

	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var ticker BookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		c.metrics.parseErrors.Add(ctx, 1)
		return
	}
	c.metrics.tickerUpdates.Add(ctx, 1)

	c.handlersMu.RLock()
	handler := c.onBookTicker
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(&ticker)
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn != nil && c.conn.IsConnected()
}
