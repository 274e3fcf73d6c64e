package domain

import "github.com/shopspring/decimal"

var tenThousand = decimal.NewFromInt(10000)

// Spread is the raw, pre-fee edge of buying on one venue and selling on the
// other.
type Spread struct {
	BuyVenue    Venue
	SellVenue   Venue
	Absolute    decimal.Decimal // sell bid - buy ask
	BasisPoints decimal.Decimal // Absolute / buy ask * 10000
}

// CalculateSpread computes the spread of buying at buy.BestAsk and selling at
// sell.BestBid.
func CalculateSpread(buy, sell Quote) Spread {
	absolute := sell.BestBid.Sub(buy.BestAsk)
	bps := decimal.Zero
	if !buy.BestAsk.IsZero() {
		bps = absolute.Div(buy.BestAsk).Mul(tenThousand)
	}

	return Spread{
		BuyVenue:    buy.Venue,
		SellVenue:   sell.Venue,
		Absolute:    absolute,
		BasisPoints: bps,
	}
}

// BestSpread returns the better of the two directions between a and b.
func BestSpread(a, b Quote) Spread {
	ab := CalculateSpread(a, b)
	ba := CalculateSpread(b, a)
	if ba.BasisPoints.GreaterThan(ab.BasisPoints) {
		return ba
	}
	return ab
}
