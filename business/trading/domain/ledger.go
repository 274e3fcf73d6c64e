package domain

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// AssetKey addresses one balance.
type AssetKey struct {
	Venue pricingDomain.Venue
	Asset string
}

func (k AssetKey) String() string {
	return string(k.Venue) + ":" + k.Asset
}

// Ledger owns every simulated balance and the running P&L in the quote
// asset. Each leg is validated in full before anything is written, so a
// rejected leg leaves no trace. Balances never go negative.
type Ledger struct {
	mu       sync.Mutex
	balances map[AssetKey]decimal.Decimal
	pnl      decimal.Decimal
}

// NewLedger seeds every venue with the same initial balance per asset.
func NewLedger(initial map[string]decimal.Decimal) (*Ledger, error) {
	l := &Ledger{balances: make(map[AssetKey]decimal.Decimal, len(initial)*len(pricingDomain.Venues))}
	for asset, amount := range initial {
		if amount.IsNegative() {
			return nil, apperror.New(apperror.CodeInvalidInput,
				apperror.WithContextf("initial balance %s=%s", asset, amount))
		}
		for _, v := range pricingDomain.Venues {
			l.balances[AssetKey{Venue: v, Asset: strings.ToUpper(asset)}] = amount
		}
	}
	return l, nil
}

// ApplyBuyLeg spends amount of the quote asset on venue at the fee-adjusted
// ask and returns the base quantity credited. PnL is debited by amount.
func (l *Ledger) ApplyBuyLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, amount, effectiveAsk decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !effectiveAsk.IsPositive() {
		return decimal.Zero, legApplication("buy venue=%s symbol=%s amount=%s ask=%s", venue, symbol, amount, effectiveAsk)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	quoteKey := AssetKey{Venue: venue, Asset: symbol.Quote}
	baseKey := AssetKey{Venue: venue, Asset: symbol.Base}

	have := l.balances[quoteKey]
	if have.LessThan(amount) {
		return decimal.Zero, NewInsufficientBalanceError(venue, symbol.Quote, have, amount)
	}

	base := amount.Div(effectiveAsk)
	l.balances[quoteKey] = have.Sub(amount)
	l.balances[baseKey] = l.balances[baseKey].Add(base)
	l.pnl = l.pnl.Sub(amount)
	return base, nil
}

// ApplySellLeg sells baseQuantity on venue at the fee-adjusted bid and
// returns the quote proceeds. PnL is credited by the proceeds.
func (l *Ledger) ApplySellLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, baseQuantity, effectiveBid decimal.Decimal) (decimal.Decimal, error) {
	if !baseQuantity.IsPositive() || !effectiveBid.IsPositive() {
		return decimal.Zero, legApplication("sell venue=%s symbol=%s quantity=%s bid=%s", venue, symbol, baseQuantity, effectiveBid)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	baseKey := AssetKey{Venue: venue, Asset: symbol.Base}
	quoteKey := AssetKey{Venue: venue, Asset: symbol.Quote}

	have := l.balances[baseKey]
	if have.LessThan(baseQuantity) {
		return decimal.Zero, NewInsufficientBalanceError(venue, symbol.Base, have, baseQuantity)
	}

	proceeds := baseQuantity.Mul(effectiveBid)
	l.balances[baseKey] = have.Sub(baseQuantity)
	l.balances[quoteKey] = l.balances[quoteKey].Add(proceeds)
	l.pnl = l.pnl.Add(proceeds)
	return proceeds, nil
}

// CanDebit reports whether venue holds at least amount of asset.
func (l *Ledger) CanDebit(venue pricingDomain.Venue, asset string, amount decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[AssetKey{Venue: venue, Asset: asset}].GreaterThanOrEqual(amount)
}

// Balance returns one balance, zero when the asset was never seen.
func (l *Ledger) Balance(venue pricingDomain.Venue, asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[AssetKey{Venue: venue, Asset: asset}]
}

// PnL returns the running profit and loss in the quote asset.
func (l *Ledger) PnL() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pnl
}

// BalanceEntry is one row of a Snapshot.
type BalanceEntry struct {
	Key    AssetKey
	Amount decimal.Decimal
}

// Snapshot is a point-in-time copy of the ledger.
type Snapshot struct {
	Balances []BalanceEntry // sorted by venue, then asset
	PnL      decimal.Decimal
}

// Snapshot copies every balance and the PnL under one lock.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	entries := make([]BalanceEntry, 0, len(l.balances))
	for k, v := range l.balances {
		entries = append(entries, BalanceEntry{Key: k, Amount: v})
	}
	pnl := l.pnl
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key.Venue != entries[j].Key.Venue {
			return entries[i].Key.Venue < entries[j].Key.Venue
		}
		return entries[i].Key.Asset < entries[j].Key.Asset
	})
	return Snapshot{Balances: entries, PnL: pnl}
}
