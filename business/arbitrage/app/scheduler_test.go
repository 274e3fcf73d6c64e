package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingApp "github.com/fd1az/brl-arbitrage-bot/business/trading/app"
	tradingDomain "github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// infoLogger records Info messages.
type infoLogger struct {
	mockLogger
	mu   sync.Mutex
	info []string
}

func (l *infoLogger) Info(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	l.info = append(l.info, msg)
	l.mu.Unlock()
}

var (
	btcBRL  = pricingDomain.MustParseSymbol("BTC-BRL")
	usdtBRL = pricingDomain.MustParseSymbol("USDT-BRL")
	ethBRL  = pricingDomain.MustParseSymbol("ETH-BRL")

	errVenueDown = errors.New("venue down")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quote(venue pricingDomain.Venue, symbol pricingDomain.Symbol, bid, ask string) pricingDomain.Quote {
	return pricingDomain.Quote{Venue: venue, Symbol: symbol, BestBid: d(bid), BestAsk: d(ask), FetchedAt: time.Now()}
}

// profitable yields the 900/1000 example: buy binance at 927, sell bitpreco at 980.
func profitable(symbol pricingDomain.Symbol) pricingDomain.Quotes {
	return pricingDomain.Quotes{
		pricingDomain.VenueBinance:  quote(pricingDomain.VenueBinance, symbol, "890", "900"),
		pricingDomain.VenueBitpreco: quote(pricingDomain.VenueBitpreco, symbol, "1000", "1010"),
	}
}

func flat(symbol pricingDomain.Symbol) pricingDomain.Quotes {
	return pricingDomain.Quotes{
		pricingDomain.VenueBinance:  quote(pricingDomain.VenueBinance, symbol, "999", "1000"),
		pricingDomain.VenueBitpreco: quote(pricingDomain.VenueBitpreco, symbol, "999", "1000"),
	}
}

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]pricingDomain.Quotes
	errs   map[string]error
	calls  []string
}

func (f *fakeQuotes) GetQuotes(_ context.Context, symbol pricingDomain.Symbol) (pricingDomain.Quotes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol.String())
	if err := f.errs[symbol.String()]; err != nil {
		return nil, err
	}
	return f.quotes[symbol.String()], nil
}

type fakeExecutor struct {
	executed []*domain.Opportunity
	blocked  func(pricingDomain.Symbol, domain.Direction) bool
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, opp *domain.Opportunity) (*tradingDomain.Trade, error) {
	f.executed = append(f.executed, opp)
	return tradingDomain.NewTrade(opp, d("5")), f.err
}

func (f *fakeExecutor) Blocked(symbol pricingDomain.Symbol, dir domain.Direction) bool {
	return f.blocked != nil && f.blocked(symbol, dir)
}

func (f *fakeExecutor) Snapshot() tradingDomain.Snapshot     { return tradingDomain.Snapshot{} }
func (f *fakeExecutor) Stuck() []tradingDomain.StuckPosition { return nil }

type recordingReporter struct {
	mu            sync.Mutex
	quotes        []string
	opportunities []*domain.Opportunity
	trades        []*tradingDomain.Trade
	errors        []error
	balances      int
	started       bool
	stopped       bool
}

func (r *recordingReporter) Start(context.Context) error { r.started = true; return nil }
func (r *recordingReporter) Stop() error                 { r.stopped = true; return nil }

func (r *recordingReporter) ReportQuotes(symbol pricingDomain.Symbol, _ pricingDomain.Quotes, _ []domain.Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, symbol.String())
}

func (r *recordingReporter) ReportOpportunity(opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opportunities = append(r.opportunities, opp)
}

func (r *recordingReporter) ReportTrade(trade *tradingDomain.Trade, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades = append(r.trades, trade)
}

func (r *recordingReporter) ReportBalances(tradingDomain.Snapshot, []tradingDomain.StuckPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances++
}

func (r *recordingReporter) ReportError(_ pricingDomain.Symbol, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func detector(t *testing.T) *domain.Detector {
	t.Helper()
	fees, err := domain.NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{
		pricingDomain.VenueBitpreco: d("0.02"),
		pricingDomain.VenueBinance:  d("0.03"),
	})
	if err != nil {
		t.Fatalf("NewFeeModel: %v", err)
	}
	det, err := domain.NewDetector(fees, d("0.05"), domain.SelectBest)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return det
}

func newScheduler(t *testing.T, q QuoteSource, ex Executor, rep Reporter, trading bool) *Scheduler {
	t.Helper()
	s, err := NewScheduler(q, detector(t), ex, rep,
		ratelimit.NewPacer(time.Millisecond, 2),
		SchedulerConfig{Symbols: []pricingDomain.Symbol{btcBRL, usdtBRL, ethBRL}, TradingEnabled: trading},
		&mockLogger{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestScheduler_RunCycleExecutesQualifyingSymbol(t *testing.T) {
	q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
		"BTC-BRL":  profitable(btcBRL),
		"USDT-BRL": flat(usdtBRL),
		"ETH-BRL":  flat(ethBRL),
	}}
	ex := &fakeExecutor{}
	rep := &recordingReporter{}
	s := newScheduler(t, q, ex, rep, true)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if got := len(q.calls); got != 3 || q.calls[0] != "BTC-BRL" || q.calls[2] != "ETH-BRL" {
		t.Errorf("fetch order = %v", q.calls)
	}
	if len(ex.executed) != 1 {
		t.Fatalf("executed = %d, want 1", len(ex.executed))
	}
	opp := ex.executed[0]
	if opp.BuyVenue != pricingDomain.VenueBinance || !opp.BuyPrice.Equal(d("927")) || !opp.SellPrice.Equal(d("980")) {
		t.Errorf("opportunity = %+v", opp)
	}
	if len(rep.quotes) != 3 || len(rep.opportunities) != 1 || len(rep.trades) != 1 || rep.balances != 1 {
		t.Errorf("reports: quotes=%d opps=%d trades=%d balances=%d",
			len(rep.quotes), len(rep.opportunities), len(rep.trades), rep.balances)
	}
	if s.Cycles() != 1 {
		t.Errorf("cycles = %d", s.Cycles())
	}
}

func TestScheduler_FetchErrorDoesNotStopCycle(t *testing.T) {
	q := &fakeQuotes{
		quotes: map[string]pricingDomain.Quotes{"USDT-BRL": profitable(usdtBRL), "ETH-BRL": flat(ethBRL)},
		errs:   map[string]error{"BTC-BRL": pricingDomain.NewFetchError(pricingDomain.VenueBitpreco, btcBRL, errVenueDown)},
	}
	ex := &fakeExecutor{}
	rep := &recordingReporter{}
	s := newScheduler(t, q, ex, rep, true)

	if err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rep.errors) != 1 || !errors.Is(rep.errors[0], pricingDomain.ErrFetch) {
		t.Errorf("errors = %v", rep.errors)
	}
	if len(ex.executed) != 1 || ex.executed[0].Symbol != usdtBRL {
		t.Errorf("the symbol after the failed fetch was not executed")
	}
}

func TestScheduler_ExecutionErrorsAreReported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"insufficient", tradingDomain.ErrInsufficientBalance, ResultInsufficientBalance},
		{"leg", tradingDomain.ErrLegApplication, ResultLegFailed},
		{"stuck", tradingDomain.ErrPairStuck, ResultStuck},
		{"other", errVenueDown, ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify = %s, want %s", got, tt.want)
			}

			q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
				"BTC-BRL": profitable(btcBRL), "USDT-BRL": profitable(usdtBRL), "ETH-BRL": flat(ethBRL),
			}}
			ex := &fakeExecutor{err: tt.err}
			rep := &recordingReporter{}
			s := newScheduler(t, q, ex, rep, true)

			if err := s.RunCycle(context.Background()); err != nil {
				t.Fatalf("RunCycle: %v", err)
			}
			if len(ex.executed) != 2 || len(rep.errors) != 2 {
				t.Errorf("executed=%d errors=%d, want 2/2", len(ex.executed), len(rep.errors))
			}
		})
	}
}

func TestScheduler_DetectionOnlyMode(t *testing.T) {
	q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
		"BTC-BRL": profitable(btcBRL), "USDT-BRL": flat(usdtBRL), "ETH-BRL": flat(ethBRL),
	}}
	ex := &fakeExecutor{}
	rep := &recordingReporter{}
	s := newScheduler(t, q, ex, rep, false)

	s.RunCycle(context.Background())
	if len(ex.executed) != 0 || len(rep.opportunities) != 1 {
		t.Fatalf("executed=%d opportunities=%d", len(ex.executed), len(rep.opportunities))
	}

	s.SetTradingEnabled(true)
	s.RunCycle(context.Background())
	if len(ex.executed) != 1 {
		t.Errorf("executed after enabling = %d", len(ex.executed))
	}
}

func TestScheduler_BlockedDirectionIsSkipped(t *testing.T) {
	q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
		"BTC-BRL": profitable(btcBRL), "USDT-BRL": flat(usdtBRL), "ETH-BRL": flat(ethBRL),
	}}
	ex := &fakeExecutor{blocked: func(symbol pricingDomain.Symbol, _ domain.Direction) bool {
		return symbol.Base == "BTC"
	}}
	rep := &recordingReporter{}
	s := newScheduler(t, q, ex, rep, true)

	s.RunCycle(context.Background())
	if len(ex.executed) != 0 || len(rep.opportunities) != 0 {
		t.Errorf("blocked symbol traded: executed=%d", len(ex.executed))
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
		"BTC-BRL": flat(btcBRL), "USDT-BRL": flat(usdtBRL), "ETH-BRL": flat(ethBRL),
	}}
	rep := &recordingReporter{}
	s := newScheduler(t, q, &fakeExecutor{}, rep, true)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start succeeded")
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Cycles() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Cycles() < 2 {
		t.Fatalf("cycles = %d", s.Cycles())
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !rep.started || !rep.stopped {
		t.Errorf("reporter started=%v stopped=%v", rep.started, rep.stopped)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on cancelled ctx = %v", err)
	}
}

// flakyLedger fails every sell leg while failing is set.
type flakyLedger struct {
	*tradingDomain.Ledger
	mu      sync.Mutex
	failing bool
}

func (f *flakyLedger) ApplySellLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, qty, bid decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return decimal.Zero, errVenueDown
	}
	return f.Ledger.ApplySellLeg(venue, symbol, qty, bid)
}

func TestScheduler_StuckPairIsExcludedUntilCleared(t *testing.T) {
	ledger, err := tradingDomain.NewLedger(map[string]decimal.Decimal{"BRL": d("1000"), "BTC": d("1000"), "USDT": d("1000"), "ETH": d("1000")})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	fl := &flakyLedger{Ledger: ledger, failing: true}
	engine, err := tradingApp.NewEngine(fl, tradingApp.EngineConfig{
		Amount:    d("5"),
		SellRetry: tradingApp.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
	}, nil, nil, &mockLogger{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	q := &fakeQuotes{quotes: map[string]pricingDomain.Quotes{
		"BTC-BRL": profitable(btcBRL), "USDT-BRL": flat(usdtBRL), "ETH-BRL": flat(ethBRL),
	}}
	rep := &recordingReporter{}
	s := newScheduler(t, q, engine, rep, true)
	ctx := context.Background()

	if err := s.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(rep.trades) != 1 || rep.trades[0].State != tradingDomain.StateStuck {
		t.Fatalf("first cycle trades = %+v", rep.trades)
	}
	if len(engine.Stuck()) != 1 {
		t.Fatalf("stuck = %+v", engine.Stuck())
	}

	// The sell venue recovers, but BTC stays excluded until cleared.
	fl.mu.Lock()
	fl.failing = false
	fl.mu.Unlock()

	s.RunCycle(ctx)
	if len(rep.trades) != 1 {
		t.Fatalf("stuck pair traded again: %d trades", len(rep.trades))
	}

	engine.ClearStuck(ctx, pricingDomain.VenueBitpreco, "BTC")
	s.RunCycle(ctx)
	if len(rep.trades) != 2 || rep.trades[1].State != tradingDomain.StateCompleted {
		t.Fatalf("after clear: %d trades", len(rep.trades))
	}
	if !ledger.PnL().IsNegative() {
		// One stuck buy (-5) and one profitable round trip (+0.28) leave PnL negative.
		t.Errorf("PnL = %s", ledger.PnL())
	}
}

func TestScheduler_SetTradingEnabledLogsOnce(t *testing.T) {
	log := &infoLogger{}
	s, err := NewScheduler(&fakeQuotes{}, detector(t), &fakeExecutor{}, &recordingReporter{},
		ratelimit.NewPacer(time.Millisecond, 2),
		SchedulerConfig{Symbols: []pricingDomain.Symbol{btcBRL}},
		log)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.SetTradingEnabled(true)

	if !s.TradingEnabled() {
		t.Error("trading not enabled")
	}
	toggles := 0
	for _, msg := range log.info {
		if msg == "trading toggled" {
			toggles++
		}
	}
	if toggles != 1 {
		t.Errorf("trading toggled logged %d times, want 1", toggles)
	}
}
