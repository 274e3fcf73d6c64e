// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

var one = decimal.NewFromInt(1)

// AdjustForBuy is the cost of buying one unit at ask after the taker fee.
func AdjustForBuy(ask, feePercent decimal.Decimal) decimal.Decimal {
	return ask.Mul(one.Add(feePercent))
}

// AdjustForSell is the proceeds of selling one unit at bid after the taker fee.
func AdjustForSell(bid, feePercent decimal.Decimal) decimal.Decimal {
	return bid.Mul(one.Sub(feePercent))
}

// FeeModel holds the taker fee of every venue as a fraction (0.02 = 2%).
type FeeModel struct {
	fees map[pricingDomain.Venue]decimal.Decimal
}

// NewFeeModel validates that every venue has a fee in [0, 1).
func NewFeeModel(fees map[pricingDomain.Venue]decimal.Decimal) (*FeeModel, error) {
	m := &FeeModel{fees: make(map[pricingDomain.Venue]decimal.Decimal, len(pricingDomain.Venues))}
	for _, v := range pricingDomain.Venues {
		fee, ok := fees[v]
		if !ok {
			return nil, apperror.New(apperror.CodeInvalidFee, apperror.WithContextf("venue=%s: no fee configured", v))
		}
		if fee.IsNegative() || fee.GreaterThanOrEqual(one) {
			return nil, apperror.New(apperror.CodeInvalidFee, apperror.WithContextf("venue=%s fee=%s", v, fee))
		}
		m.fees[v] = fee
	}
	return m, nil
}

// Fee returns the venue fee.
func (m *FeeModel) Fee(venue pricingDomain.Venue) decimal.Decimal {
	return m.fees[venue]
}

// BuyPrice is the effective price of buying on venue at ask.
func (m *FeeModel) BuyPrice(venue pricingDomain.Venue, ask decimal.Decimal) decimal.Decimal {
	return AdjustForBuy(ask, m.fees[venue])
}

// SellPrice is the effective price of selling on venue at bid.
func (m *FeeModel) SellPrice(venue pricingDomain.Venue, bid decimal.Decimal) decimal.Decimal {
	return AdjustForSell(bid, m.fees[venue])
}
