package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbDomain "github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apm"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
)

const (
	tracerName = "trading"
	meterName  = "trading"
)

// RetryPolicy is the exponential backoff budget for the sell leg.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy returns 3 attempts starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		eb.Multiplier = p.Multiplier
	}
	return eb
}

// EngineConfig holds the engine settings.
type EngineConfig struct {
	Amount    decimal.Decimal // quote asset spent per trade
	SellRetry RetryPolicy
}

type engineMetrics struct {
	trades      metric.Int64Counter
	sellRetries metric.Int64Counter
}

// Engine executes opportunities against the Ledger one at a time. A sell leg
// that keeps failing after the buy leg committed leaves the trade Stuck and
// blocks the affected (venue, base asset) until an operator clears it.
type Engine struct {
	ledger   Ledger
	config   EngineConfig
	stuck    *domain.StuckRegistry
	alerters []Alerter
	sinks    []TradeSink
	log      logger.LoggerInterface

	mu sync.Mutex // serializes Execute

	tracer  apm.Tracer
	metrics *engineMetrics
}

// NewEngine creates an Engine.
func NewEngine(ledger Ledger, cfg EngineConfig, alerters []Alerter, sinks []TradeSink, log logger.LoggerInterface) (*Engine, error) {
	if !cfg.Amount.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContextf("trade amount must be positive, got %s", cfg.Amount))
	}
	if cfg.SellRetry.MaxAttempts == 0 {
		cfg.SellRetry.MaxAttempts = 1
	}

	e := &Engine{
		ledger:   ledger,
		config:   cfg,
		stuck:    domain.NewStuckRegistry(),
		alerters: alerters,
		sinks:    sinks,
		log:      log,
		tracer:   apm.NewTracer(tracerName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.trades, err = meter.Int64Counter(
		"arb_trades_total",
		metric.WithDescription("Trades that reached a terminal state"),
	)
	if err != nil {
		return err
	}

	e.metrics.sellRetries, err = meter.Int64Counter(
		"arb_sell_retries_total",
		metric.WithDescription("Sell leg retries after a failed attempt"),
	)
	if err != nil {
		return err
	}

	_, err = meter.Int64ObservableGauge(
		"arb_stuck_positions",
		metric.WithDescription("Positions waiting for an operator"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(e.stuck.Len()))
			return nil
		}),
	)
	if err != nil {
		return err
	}

	_, err = meter.Float64ObservableGauge(
		"arb_pnl_quote",
		metric.WithDescription("Running PnL in the quote asset"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(e.ledger.PnL().InexactFloat64())
			return nil
		}),
	)
	return err
}

// Amount returns the quote amount spent per trade.
func (e *Engine) Amount() decimal.Decimal {
	return e.config.Amount
}

// Execute runs one buy/sell pair for opp. The returned trade is always
// non-nil and reflects how far the attempt got.
func (e *Engine) Execute(ctx context.Context, opp *arbDomain.Opportunity) (*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.StartSpanFromContext(ctx, "trading.execute", trace.WithAttributes(
		attribute.String("symbol", opp.Symbol.String()),
		attribute.String("direction", opp.Direction().ShortString()),
	))
	defer span.End()

	trade := domain.NewTrade(opp, e.config.Amount)
	span.SetAttributes(attribute.String("trade_id", trade.ID))

	if e.Blocked(opp.Symbol, opp.Direction()) {
		return trade, apperror.New(apperror.CodePairStuck,
			apperror.WithContextf("symbol=%s direction=%s touches a stuck position", opp.Symbol, opp.Direction()))
	}
	if err := e.precheck(opp); err != nil {
		e.log.Info(ctx, "trade skipped", "trade_id", trade.ID, "symbol", opp.Symbol.String(), "error", err)
		return trade, err
	}

	// Once the buy leg starts, run to a terminal state even if ctx is cancelled.
	legCtx := context.WithoutCancel(ctx)

	if err := e.buy(trade); err != nil {
		trade.Err = err
		e.finish(legCtx, trade)
		span.NoticeError(err)
		return trade, err
	}

	if err := e.sell(legCtx, trade); err != nil {
		trade.Err = e.escalate(legCtx, trade, err)
		e.finish(legCtx, trade)
		span.NoticeError(trade.Err)
		return trade, trade.Err
	}

	e.finish(legCtx, trade)
	return trade, nil
}

// precheck verifies both legs can be funded before anything moves.
func (e *Engine) precheck(opp *arbDomain.Opportunity) error {
	amount := e.config.Amount
	quote := opp.Symbol.Quote
	base := opp.Symbol.Base

	if !e.ledger.CanDebit(opp.BuyVenue, quote, amount) {
		return domain.NewInsufficientBalanceError(opp.BuyVenue, quote, e.ledger.Balance(opp.BuyVenue, quote), amount)
	}
	if !opp.BuyPrice.IsPositive() {
		return apperror.New(apperror.CodeLegApplicationFailed,
			apperror.WithContextf("buy price %s on %s", opp.BuyPrice, opp.BuyVenue))
	}

	projected := amount.Div(opp.BuyPrice)
	if !e.ledger.CanDebit(opp.SellVenue, base, projected) {
		return domain.NewInsufficientBalanceError(opp.SellVenue, base, e.ledger.Balance(opp.SellVenue, base), projected)
	}
	return nil
}

func (e *Engine) buy(trade *domain.Trade) error {
	opp := trade.Opportunity
	if err := trade.TransitionTo(domain.StateBuyPending); err != nil {
		return err
	}

	base, err := e.ledger.ApplyBuyLeg(opp.BuyVenue, opp.Symbol, trade.Amount, opp.BuyPrice)
	if err != nil {
		if terr := trade.TransitionTo(domain.StateFailed); terr != nil {
			return errors.Join(err, terr)
		}
		return err
	}

	trade.BaseQuantity = base
	return trade.TransitionTo(domain.StateBought)
}

func (e *Engine) sell(ctx context.Context, trade *domain.Trade) error {
	opp := trade.Opportunity
	if err := trade.TransitionTo(domain.StateSellPending); err != nil {
		return err
	}

	retry := e.config.SellRetry
	proceeds, err := backoff.Retry(ctx,
		func() (decimal.Decimal, error) {
			trade.SellAttempts++
			p, err := e.ledger.ApplySellLeg(opp.SellVenue, opp.Symbol, trade.BaseQuantity, opp.SellPrice)
			if errors.Is(err, domain.ErrLegApplication) {
				return decimal.Zero, backoff.Permanent(err)
			}
			return p, err
		},
		backoff.WithBackOff(retry.backOff()),
		backoff.WithMaxTries(retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.metrics.sellRetries.Add(ctx, 1)
			e.log.Warn(ctx, "sell leg failed, retrying",
				"trade_id", trade.ID,
				"attempt", trade.SellAttempts,
				"next", next.String(),
				"error", err,
			)
		}),
	)
	if err != nil {
		return err
	}

	trade.Proceeds = proceeds
	return trade.TransitionTo(domain.StateCompleted)
}

// escalate parks the bought base asset as a stuck position and alerts the
// operator. The returned error is PAIR_STUCK wrapping PARTIAL_EXECUTION.
func (e *Engine) escalate(ctx context.Context, trade *domain.Trade, cause error) error {
	opp := trade.Opportunity

	partial := apperror.New(apperror.CodePartialExecution,
		apperror.WithContextf("trade=%s bought %s %s on %s, sell on %s failed after %d attempts",
			trade.ID, trade.BaseQuantity, opp.Symbol.Base, opp.BuyVenue, opp.SellVenue, trade.SellAttempts),
		apperror.WithCause(cause))

	if err := trade.TransitionTo(domain.StateStuck); err != nil {
		return errors.Join(partial, err)
	}

	pos := domain.StuckPosition{
		Venue:        opp.SellVenue,
		HeldOn:       opp.BuyVenue,
		Asset:        opp.Symbol.Base,
		Symbol:       opp.Symbol,
		TradeID:      trade.ID,
		BaseQuantity: trade.BaseQuantity,
		Reason:       cause.Error(),
		Since:        time.Now(),
	}
	e.stuck.Add(pos)

	e.log.Error(ctx, "position stuck, operator action required",
		"trade_id", trade.ID,
		"venue", string(pos.Venue),
		"held_on", string(pos.HeldOn),
		"asset", pos.Asset,
		"base_quantity", pos.BaseQuantity.String(),
		"error", cause,
	)
	for _, a := range e.alerters {
		if err := a.Alert(ctx, pos, trade); err != nil {
			e.log.Error(ctx, "stuck alert failed", "trade_id", trade.ID, "error", err)
		}
	}

	return apperror.New(apperror.CodePairStuck,
		apperror.WithContextf("%s:%s", pos.Venue, pos.Asset),
		apperror.WithCause(partial))
}

func (e *Engine) finish(ctx context.Context, trade *domain.Trade) {
	e.metrics.trades.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(trade.State))))

	if trade.State == domain.StateCompleted {
		e.log.Info(ctx, "trade completed",
			"trade_id", trade.ID,
			"symbol", trade.Opportunity.Symbol.String(),
			"direction", trade.Opportunity.Direction().ShortString(),
			"profit", trade.Profit().String(),
			"pnl", e.ledger.PnL().String(),
		)
	}

	for _, s := range e.sinks {
		if err := s.Publish(ctx, trade); err != nil {
			e.log.Warn(ctx, "trade publish failed", "trade_id", trade.ID, "error", err)
		}
	}
}

// Blocked reports whether trading symbol in direction would touch a stuck
// position on either venue.
func (e *Engine) Blocked(symbol pricingDomain.Symbol, dir arbDomain.Direction) bool {
	return e.stuck.Has(dir.BuyVenue, symbol.Base) || e.stuck.Has(dir.SellVenue, symbol.Base)
}

// Stuck lists the positions waiting for an operator.
func (e *Engine) Stuck() []domain.StuckPosition {
	return e.stuck.List()
}

// ClearStuck releases (venue, asset) after the operator resolved it.
func (e *Engine) ClearStuck(ctx context.Context, venue pricingDomain.Venue, asset string) (domain.StuckPosition, bool) {
	pos, ok := e.stuck.Remove(venue, asset)
	if ok {
		e.log.Info(ctx, "stuck position cleared", "venue", string(venue), "asset", asset, "trade_id", pos.TradeID)
	}
	return pos, ok
}

// Snapshot returns the current balances and PnL.
func (e *Engine) Snapshot() domain.Snapshot {
	return e.ledger.Snapshot()
}
