package domain

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
)

var (
	btcBRL   = pricingDomain.MustParseSymbol("BTC-BRL")
	binance  = pricingDomain.VenueBinance
	bitpreco = pricingDomain.VenueBitpreco
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(map[string]decimal.Decimal{"brl": d("1000"), "btc": d("1000")})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	return l
}

func TestNewLedger_SeedsEveryVenue(t *testing.T) {
	l := newLedger(t)
	for _, v := range pricingDomain.Venues {
		for _, asset := range []string{"BRL", "BTC"} {
			if got := l.Balance(v, asset); !got.Equal(d("1000")) {
				t.Errorf("%s:%s = %s, want 1000", v, asset, got)
			}
		}
	}
	if !l.PnL().IsZero() {
		t.Errorf("PnL = %s, want 0", l.PnL())
	}

	if _, err := NewLedger(map[string]decimal.Decimal{"BRL": d("-1")}); err == nil {
		t.Error("negative initial balance accepted")
	}
}

func TestLedger_RoundTrip(t *testing.T) {
	l := newLedger(t)

	// Buy 5 BRL of BTC on binance at 927, sell on bitpreco at 980.
	base, err := l.ApplyBuyLeg(binance, btcBRL, d("5"), d("927"))
	if err != nil {
		t.Fatalf("ApplyBuyLeg: %v", err)
	}
	if !base.Equal(d("5").Div(d("927"))) {
		t.Errorf("base = %s", base)
	}
	if got := l.Balance(binance, "BRL"); !got.Equal(d("995")) {
		t.Errorf("binance BRL = %s, want 995", got)
	}
	if got := l.Balance(binance, "BTC"); !got.Equal(d("1000").Add(base)) {
		t.Errorf("binance BTC = %s", got)
	}
	if got := l.PnL(); !got.Equal(d("-5")) {
		t.Errorf("PnL after buy = %s, want -5", got)
	}

	proceeds, err := l.ApplySellLeg(bitpreco, btcBRL, base, d("980"))
	if err != nil {
		t.Fatalf("ApplySellLeg: %v", err)
	}
	if got := l.Balance(bitpreco, "BTC"); !got.Equal(d("1000").Sub(base)) {
		t.Errorf("bitpreco BTC = %s", got)
	}
	if got := l.Balance(bitpreco, "BRL"); !got.Equal(d("1000").Add(proceeds)) {
		t.Errorf("bitpreco BRL = %s", got)
	}
	if got := l.PnL(); !got.Equal(proceeds.Sub(d("5"))) {
		t.Errorf("PnL = %s, want %s", got, proceeds.Sub(d("5")))
	}
	if !l.PnL().IsPositive() {
		t.Errorf("profitable round trip left PnL at %s", l.PnL())
	}
}

func TestLedger_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	l := newLedger(t)
	before := l.Snapshot()

	_, err := l.ApplyBuyLeg(binance, btcBRL, d("1000.01"), d("927"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}
	_, err = l.ApplySellLeg(bitpreco, btcBRL, d("1000.01"), d("980"))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}

	after := l.Snapshot()
	if !after.PnL.Equal(before.PnL) || len(after.Balances) != len(before.Balances) {
		t.Fatalf("snapshot changed: %+v -> %+v", before, after)
	}
	for i := range before.Balances {
		if !before.Balances[i].Amount.Equal(after.Balances[i].Amount) {
			t.Errorf("%s changed: %s -> %s", before.Balances[i].Key, before.Balances[i].Amount, after.Balances[i].Amount)
		}
	}
}

func TestLedger_RejectsNonPositiveLegs(t *testing.T) {
	l := newLedger(t)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"buy_zero_amount", func() error { _, err := l.ApplyBuyLeg(binance, btcBRL, decimal.Zero, d("927")); return err }},
		{"buy_zero_price", func() error { _, err := l.ApplyBuyLeg(binance, btcBRL, d("5"), decimal.Zero); return err }},
		{"sell_negative_qty", func() error { _, err := l.ApplySellLeg(bitpreco, btcBRL, d("-1"), d("980")); return err }},
		{"sell_zero_price", func() error { _, err := l.ApplySellLeg(bitpreco, btcBRL, d("1"), decimal.Zero); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrLegApplication) {
				t.Fatalf("err = %v, want LEG_APPLICATION_FAILED", err)
			}
		})
	}
	if !l.PnL().IsZero() {
		t.Errorf("PnL = %s after rejected legs", l.PnL())
	}
}

func TestLedger_CanDebit(t *testing.T) {
	l := newLedger(t)
	if !l.CanDebit(binance, "BRL", d("1000")) {
		t.Error("exact balance should be debitable")
	}
	if l.CanDebit(binance, "BRL", d("1000.0001")) {
		t.Error("overdraft reported as debitable")
	}
	if l.CanDebit(binance, "ETH", d("0.1")) {
		t.Error("unknown asset reported as debitable")
	}
}

func TestLedger_SnapshotIsSorted(t *testing.T) {
	l := newLedger(t)
	snap := l.Snapshot()
	want := []string{"binance:BRL", "binance:BTC", "bitpreco:BRL", "bitpreco:BTC"}
	if len(snap.Balances) != len(want) {
		t.Fatalf("entries = %d, want %d", len(snap.Balances), len(want))
	}
	for i, w := range want {
		if got := snap.Balances[i].Key.String(); got != w {
			t.Errorf("entry %d = %s, want %s", i, got, w)
		}
	}
}

func TestLedger_ConcurrentLegsNeverOverdraw(t *testing.T) {
	l, _ := NewLedger(map[string]decimal.Decimal{"BRL": d("100"), "BTC": d("0")})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ApplyBuyLeg(binance, btcBRL, d("5"), d("100")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 20 {
		t.Errorf("successful buys = %d, want 20", ok)
	}
	if got := l.Balance(binance, "BRL"); !got.IsZero() {
		t.Errorf("BRL = %s, want 0", got)
	}
}
