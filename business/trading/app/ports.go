// Package app contains the execution engine and its ports.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
)

// Ledger is the balance book the engine applies legs to. *domain.Ledger
// implements it.
type Ledger interface {
	ApplyBuyLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, amount, effectiveAsk decimal.Decimal) (decimal.Decimal, error)
	ApplySellLeg(venue pricingDomain.Venue, symbol pricingDomain.Symbol, baseQuantity, effectiveBid decimal.Decimal) (decimal.Decimal, error)
	CanDebit(venue pricingDomain.Venue, asset string, amount decimal.Decimal) bool
	Balance(venue pricingDomain.Venue, asset string) decimal.Decimal
	PnL() decimal.Decimal
	Snapshot() domain.Snapshot
}

// Alerter tells an operator about a stuck position.
type Alerter interface {
	Alert(ctx context.Context, pos domain.StuckPosition, trade *domain.Trade) error
}

// TradeSink receives every trade that reached a terminal state.
type TradeSink interface {
	Publish(ctx context.Context, trade *domain.Trade) error
}
