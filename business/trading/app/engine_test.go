package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
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

var (
	btcBRL   = pricingDomain.MustParseSymbol("BTC-BRL")
	binance  = pricingDomain.VenueBinance
	bitpreco = pricingDomain.VenueBitpreco

	errVenueDown = errors.New("venue down")
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// flakyLedger fails the first sellFailures sell legs before delegating.
type flakyLedger struct {
	*domain.Ledger
	mu           sync.Mutex
	sellFailures int
	sellCalls    int
}

func (f *flakyLedger) ApplySellLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, qty, bid decimal.Decimal) (decimal.Decimal, error) {
	f.mu.Lock()
	f.sellCalls++
	fail := f.sellCalls <= f.sellFailures
	f.mu.Unlock()
	if fail {
		return decimal.Zero, errVenueDown
	}
	return f.Ledger.ApplySellLeg(venue, symbol, qty, bid)
}

type recordingAlerter struct {
	positions []domain.StuckPosition
}

func (r *recordingAlerter) Alert(_ context.Context, pos domain.StuckPosition, _ *domain.Trade) error {
	r.positions = append(r.positions, pos)
	return nil
}

type recordingSink struct {
	trades []*domain.Trade
}

func (r *recordingSink) Publish(_ context.Context, trade *domain.Trade) error {
	r.trades = append(r.trades, trade)
	return nil
}

type fixture struct {
	ledger  *flakyLedger
	engine  *Engine
	alerter *recordingAlerter
	sink    *recordingSink
}

func newFixture(t *testing.T, balance string, sellFailures int) *fixture {
	t.Helper()
	l, err := domain.NewLedger(map[string]decimal.Decimal{"BRL": d(balance), "BTC": d(balance)})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	f := &fixture{
		ledger:  &flakyLedger{Ledger: l, sellFailures: sellFailures},
		alerter: &recordingAlerter{},
		sink:    &recordingSink{},
	}
	f.engine, err = NewEngine(f.ledger, EngineConfig{
		Amount: d("5"),
		SellRetry: RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2,
		},
	}, []Alerter{f.alerter}, []TradeSink{f.sink}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return f
}

// opportunity buys on binance at 927 and sells on bitpreco at 980.
func opportunity() *arbDomain.Opportunity {
	return &arbDomain.Opportunity{
		Symbol:        btcBRL,
		BuyVenue:      binance,
		SellVenue:     bitpreco,
		BuyPrice:      d("927"),
		SellPrice:     d("980"),
		ProfitPercent: d("980").Div(d("927")).Sub(decimal.NewFromInt(1)),
		DetectedAt:    time.Now(),
	}
}

func TestEngine_CompletesTrade(t *testing.T) {
	f := newFixture(t, "1000", 0)

	trade, err := f.engine.Execute(context.Background(), opportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade.State != domain.StateCompleted {
		t.Fatalf("state = %s", trade.State)
	}

	wantBase := d("5").Div(d("927"))
	if !trade.BaseQuantity.Equal(wantBase) {
		t.Errorf("base = %s, want %s", trade.BaseQuantity, wantBase)
	}
	if !trade.Proceeds.Equal(wantBase.Mul(d("980"))) {
		t.Errorf("proceeds = %s", trade.Proceeds)
	}
	if got := f.ledger.PnL(); !got.Equal(trade.Profit()) || !got.IsPositive() {
		t.Errorf("PnL = %s, trade profit = %s", got, trade.Profit())
	}
	if got := f.ledger.Balance(binance, "BRL"); !got.Equal(d("995")) {
		t.Errorf("binance BRL = %s, want 995", got)
	}
	if len(f.sink.trades) != 1 || f.sink.trades[0] != trade {
		t.Errorf("sink saw %d trades", len(f.sink.trades))
	}
	if trade.SellAttempts != 1 {
		t.Errorf("sell attempts = %d, want 1", trade.SellAttempts)
	}
}

func TestEngine_SellRetrySucceeds(t *testing.T) {
	f := newFixture(t, "1000", 2)

	trade, err := f.engine.Execute(context.Background(), opportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade.State != domain.StateCompleted || trade.SellAttempts != 3 {
		t.Errorf("state = %s after %d attempts", trade.State, trade.SellAttempts)
	}
	if len(f.engine.Stuck()) != 0 {
		t.Error("recovered trade left a stuck position")
	}
}

func TestEngine_InsufficientBalanceMutatesNothing(t *testing.T) {
	f := newFixture(t, "4", 0)
	before := f.ledger.Snapshot()

	trade, err := f.engine.Execute(context.Background(), opportunity())
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}
	if trade.State != domain.StateIdle {
		t.Errorf("state = %s, want idle", trade.State)
	}

	after := f.ledger.Snapshot()
	for i := range before.Balances {
		if !before.Balances[i].Amount.Equal(after.Balances[i].Amount) {
			t.Errorf("%s changed", before.Balances[i].Key)
		}
	}
	if len(f.sink.trades) != 0 {
		t.Error("skipped trade was published")
	}
}

func TestEngine_BaseGuardOnSellVenue(t *testing.T) {
	l, _ := domain.NewLedger(map[string]decimal.Decimal{"BRL": d("1000"), "BTC": d("0.001")})
	e, err := NewEngine(l, EngineConfig{Amount: d("5"), SellRetry: DefaultRetryPolicy()}, nil, nil, &mockLogger{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// 5/927 ≈ 0.0054 BTC is more than the 0.001 held on the sell venue.
	_, err = e.Execute(context.Background(), opportunity())
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}
	if !l.PnL().IsZero() {
		t.Errorf("PnL = %s", l.PnL())
	}
}

func TestEngine_PartialFailureEscalatesToStuck(t *testing.T) {
	f := newFixture(t, "1000", 100)
	ctx := context.Background()

	trade, err := f.engine.Execute(ctx, opportunity())
	if !errors.Is(err, domain.ErrPairStuck) {
		t.Fatalf("err = %v, want PAIR_STUCK", err)
	}
	if !apperror.HasCode(err, apperror.CodePartialExecution) {
		t.Errorf("PARTIAL_EXECUTION missing from %v", err)
	}
	if !errors.Is(err, errVenueDown) {
		t.Errorf("sell cause missing from %v", err)
	}
	if trade.State != domain.StateStuck || trade.SellAttempts != 3 {
		t.Fatalf("state = %s after %d attempts", trade.State, trade.SellAttempts)
	}

	// The buy leg stays committed.
	if got := f.ledger.Balance(binance, "BRL"); !got.Equal(d("995")) {
		t.Errorf("binance BRL = %s, want 995", got)
	}
	if got := f.ledger.PnL(); !got.Equal(d("-5")) {
		t.Errorf("PnL = %s, want -5", got)
	}

	if len(f.alerter.positions) != 1 {
		t.Fatalf("alerts = %d, want 1", len(f.alerter.positions))
	}
	pos := f.alerter.positions[0]
	if pos.Venue != bitpreco || pos.Asset != "BTC" || pos.TradeID != trade.ID {
		t.Errorf("stuck position = %+v", pos)
	}
	// The unsold base sits on the buy venue.
	if pos.HeldOn != binance {
		t.Errorf("held on = %s, want binance", pos.HeldOn)
	}
	if got := f.ledger.Balance(binance, "BTC"); !got.Equal(d("1000").Add(pos.BaseQuantity)) {
		t.Errorf("binance BTC = %s, want 1000 + %s", got, pos.BaseQuantity)
	}
	if got := f.ledger.Balance(bitpreco, "BTC"); !got.Equal(d("1000")) {
		t.Errorf("bitpreco BTC = %s, want 1000", got)
	}
	if len(f.sink.trades) != 1 || f.sink.trades[0].State != domain.StateStuck {
		t.Error("stuck trade was not published")
	}

	// Both directions touch bitpreco:BTC.
	for _, dir := range arbDomain.CheckOrder {
		if !f.engine.Blocked(btcBRL, dir) {
			t.Errorf("%s not blocked", dir)
		}
	}
	if f.engine.Blocked(pricingDomain.MustParseSymbol("ETH-BRL"), arbDomain.CheckOrder[0]) {
		t.Error("unrelated symbol blocked")
	}

	// Further legs are refused until cleared.
	f.ledger.mu.Lock()
	f.ledger.sellFailures = 0
	f.ledger.mu.Unlock()

	if _, err := f.engine.Execute(ctx, opportunity()); !errors.Is(err, domain.ErrPairStuck) {
		t.Fatalf("blocked execute err = %v", err)
	}
	if got := f.ledger.Balance(binance, "BRL"); !got.Equal(d("995")) {
		t.Errorf("blocked trade moved funds: binance BRL = %s", got)
	}

	if _, ok := f.engine.ClearStuck(ctx, bitpreco, "BTC"); !ok {
		t.Fatal("ClearStuck found nothing")
	}
	trade, err = f.engine.Execute(ctx, opportunity())
	if err != nil || trade.State != domain.StateCompleted {
		t.Fatalf("after clear: %v, state %s", err, trade.State)
	}
}

func TestEngine_CancelledContextStillFinishesLegs(t *testing.T) {
	f := newFixture(t, "1000", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trade, err := f.engine.Execute(ctx, opportunity())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if trade.State != domain.StateCompleted {
		t.Errorf("state = %s, want completed", trade.State)
	}
}

func TestNewEngine_RejectsNonPositiveAmount(t *testing.T) {
	l, _ := domain.NewLedger(nil)
	if _, err := NewEngine(l, EngineConfig{Amount: decimal.Zero}, nil, nil, &mockLogger{}); err == nil {
		t.Fatal("zero amount accepted")
	}
}
