package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingDomain "github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apm"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"
)

// Check results, used as the result label of arb_symbol_checks_total.
const (
	ResultFetchError          = "fetch_error"
	ResultNoOpportunity       = "no_opportunity"
	ResultDetected            = "detected"
	ResultExecuted            = "executed"
	ResultInsufficientBalance = "insufficient_balance"
	ResultLegFailed           = "leg_failed"
	ResultStuck               = "stuck"
	ResultError               = "error"
)

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	Symbols        []pricingDomain.Symbol // checked in this order every cycle
	TradingEnabled bool
}

type schedulerMetrics struct {
	checks        metric.Int64Counter
	opportunities metric.Int64Counter
	duration      metric.Float64Histogram
}

// Scheduler runs the fetch, detect, execute cycle over the configured
// symbols, pacing each check so neither venue's rate limit is exceeded.
type Scheduler struct {
	quotes   QuoteSource
	detector *domain.Detector
	executor Executor
	reporter Reporter
	pacer    *ratelimit.Pacer
	config   SchedulerConfig
	log      logger.LoggerInterface

	trading atomic.Bool
	cycles  atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	tracer  apm.Tracer
	metrics *schedulerMetrics
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	quotes QuoteSource,
	detector *domain.Detector,
	executor Executor,
	reporter Reporter,
	pacer *ratelimit.Pacer,
	cfg SchedulerConfig,
	log logger.LoggerInterface,
) (*Scheduler, error) {
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("scheduler needs at least one symbol")
	}

	s := &Scheduler{
		quotes:   quotes,
		detector: detector,
		executor: executor,
		reporter: reporter,
		pacer:    pacer,
		config:   cfg,
		log:      log,
		tracer:   apm.NewTracer(tracerName),
	}
	s.trading.Store(cfg.TradingEnabled)

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Scheduler) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &schedulerMetrics{}

	s.metrics.checks, err = meter.Int64Counter(
		"arb_symbol_checks_total",
		metric.WithDescription("Symbol checks by result"),
	)
	if err != nil {
		return err
	}

	s.metrics.opportunities, err = meter.Int64Counter(
		"arb_opportunities_total",
		metric.WithDescription("Opportunities selected by the detector"),
	)
	if err != nil {
		return err
	}

	s.metrics.duration, err = meter.Float64Histogram(
		"arb_check_duration_ms",
		metric.WithDescription("Duration of one symbol check"),
		metric.WithUnit("ms"),
	)
	return err
}

// SetTradingEnabled switches between executing and detection-only mode.
func (s *Scheduler) SetTradingEnabled(enabled bool) {
	s.trading.Store(enabled)
	s.log.Info(context.Background(), "trading toggled", "enabled", enabled)
}

// TradingEnabled reports whether opportunities are executed.
func (s *Scheduler) TradingEnabled() bool {
	return s.trading.Load()
}

// Cycles returns the number of completed passes over the symbols.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles.Load()
}

// Start starts the reporter and runs the loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}

	if err := s.reporter.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error(ctx, "scheduler stopped", "error", err)
		}
	}()

	s.log.Info(ctx, "scheduler started",
		"symbols", len(s.config.Symbols),
		"interval", s.pacer.Floor().String(),
		"policy", string(s.detector.Policy()),
		"trading", s.TradingEnabled(),
	)
	return nil
}

// Stop cancels the loop, waits for it to finish and stops the reporter.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	s.log.Info(context.Background(), "scheduler stopped", "cycles", s.Cycles())
	return s.reporter.Stop()
}

// Run repeats cycles until ctx is cancelled and returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			return err
		}
	}
}

// RunCycle checks every symbol once. Only cancellation stops it early, and
// only between symbols.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	for _, symbol := range s.config.Symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		s.checkSymbol(ctx, symbol)

		if err := s.pacer.Wait(ctx, started); err != nil {
			return err
		}
	}
	s.cycles.Add(1)
	return nil
}

func (s *Scheduler) checkSymbol(ctx context.Context, symbol pricingDomain.Symbol) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "arbitrage.check_symbol",
		trace.WithAttributes(attribute.String("symbol", symbol.String())),
	)
	defer span.End()

	start := time.Now()
	result := s.check(ctx, symbol)

	span.SetAttributes(attribute.String("result", result))
	attrs := metric.WithAttributes(attribute.String("result", result))
	s.metrics.checks.Add(ctx, 1, attrs)
	s.metrics.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}

func (s *Scheduler) check(ctx context.Context, symbol pricingDomain.Symbol) string {
	quotes, err := s.quotes.GetQuotes(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return ResultFetchError
		}
		s.log.Warn(ctx, "quote fetch failed", "symbol", symbol.String(), "error", err)
		s.reporter.ReportError(symbol, err)
		return ResultFetchError
	}

	opp, evals := s.detector.Detect(symbol, quotes, s.allow)
	s.reporter.ReportQuotes(symbol, quotes, evals)
	if opp == nil {
		return ResultNoOpportunity
	}

	s.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol.String()),
		attribute.String("direction", opp.Direction().ShortString()),
	))
	s.reporter.ReportOpportunity(opp)
	s.log.Info(ctx, "opportunity detected",
		"symbol", symbol.String(),
		"direction", opp.Direction().String(),
		"buy_price", opp.BuyPrice.String(),
		"sell_price", opp.SellPrice.String(),
		"profit_percent", opp.ProfitPercent.StringFixed(6),
	)

	if !s.TradingEnabled() {
		return ResultDetected
	}

	trade, err := s.executor.Execute(ctx, opp)
	s.reporter.ReportTrade(trade, err)
	s.reporter.ReportBalances(s.executor.Snapshot(), s.executor.Stuck())

	result := classify(err)
	switch result {
	case ResultExecuted:
	case ResultStuck:
		s.log.Error(ctx, "trade escalated to stuck", "symbol", symbol.String(), "error", err)
	default:
		s.log.Warn(ctx, "trade not executed", "symbol", symbol.String(), "result", result, "error", err)
	}
	if err != nil {
		s.reporter.ReportError(symbol, err)
	}
	return result
}

// allow vetoes directions that touch a stuck position.
func (s *Scheduler) allow(symbol pricingDomain.Symbol, dir domain.Direction) bool {
	return !s.executor.Blocked(symbol, dir)
}

func classify(err error) string {
	switch {
	case err == nil:
		return ResultExecuted
	case errors.Is(err, tradingDomain.ErrPairStuck):
		return ResultStuck
	case errors.Is(err, tradingDomain.ErrInsufficientBalance):
		return ResultInsufficientBalance
	case errors.Is(err, tradingDomain.ErrLegApplication):
		return ResultLegFailed
	default:
		return ResultError
	}
}
