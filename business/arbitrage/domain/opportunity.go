package domain

import (
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
)

// Evaluation is the fee-adjusted outcome of one direction for one symbol.
type Evaluation struct {
	Direction     Direction
	BuyPrice      decimal.Decimal // ask on the buy venue, fee added
	SellPrice     decimal.Decimal // bid on the sell venue, fee removed
	ProfitPercent decimal.Decimal // SellPrice/BuyPrice - 1
	Qualifies     bool
}

// Opportunity represents a detected arbitrage opportunity.
type Opportunity struct {
	Symbol        pricingDomain.Symbol
	BuyVenue      pricingDomain.Venue
	SellVenue     pricingDomain.Venue
	BuyQuote      pricingDomain.Quote
	SellQuote     pricingDomain.Quote
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	ProfitPercent decimal.Decimal
	DetectedAt    time.Time
}

// Direction returns the buy and sell venues.
func (o *Opportunity) Direction() Direction {
	return Direction{BuyVenue: o.BuyVenue, SellVenue: o.SellVenue}
}

// RawSpread is the pre-fee spread between the sell venue bid and the buy venue ask.
func (o *Opportunity) RawSpread() pricingDomain.Spread {
	return pricingDomain.CalculateSpread(o.BuyQuote, o.SellQuote)
}
