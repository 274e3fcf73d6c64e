package domain

import (
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// AllowFunc lets the caller veto a direction, e.g. one touching a stuck
// position. A nil AllowFunc allows everything.
type AllowFunc func(symbol pricingDomain.Symbol, d Direction) bool

// Detector compares fee-adjusted prices across the venue pair.
type Detector struct {
	fees      *FeeModel
	minProfit decimal.Decimal
	policy    SelectionPolicy
	now       func() time.Time
}

// NewDetector creates a Detector. minProfit is a fraction and qualification
// is inclusive: a profit equal to minProfit qualifies.
func NewDetector(fees *FeeModel, minProfit decimal.Decimal, policy SelectionPolicy) (*Detector, error) {
	if fees == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("detector needs a fee model"))
	}
	if minProfit.IsNegative() {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContextf("min profit %s", minProfit))
	}
	if policy == "" {
		policy = SelectBest
	}
	return &Detector{fees: fees, minProfit: minProfit, policy: policy, now: time.Now}, nil
}

// Policy returns the configured selection policy.
func (d *Detector) Policy() SelectionPolicy {
	return d.policy
}

// MinProfit returns the qualification threshold.
func (d *Detector) MinProfit() decimal.Decimal {
	return d.minProfit
}

// Fees returns the fee model.
func (d *Detector) Fees() *FeeModel {
	return d.fees
}

// Evaluate scores every direction in CheckOrder whose two quotes are present.
func (d *Detector) Evaluate(quotes pricingDomain.Quotes) []Evaluation {
	evals := make([]Evaluation, 0, len(CheckOrder))
	for _, dir := range CheckOrder {
		buy, okBuy := quotes[dir.BuyVenue]
		sell, okSell := quotes[dir.SellVenue]
		if !okBuy || !okSell {
			continue
		}

		buyPrice := d.fees.BuyPrice(dir.BuyVenue, buy.BestAsk)
		sellPrice := d.fees.SellPrice(dir.SellVenue, sell.BestBid)
		profit := decimal.Zero
		if buyPrice.IsPositive() {
			profit = sellPrice.Div(buyPrice).Sub(one)
		}

		evals = append(evals, Evaluation{
			Direction:     dir,
			BuyPrice:      buyPrice,
			SellPrice:     sellPrice,
			ProfitPercent: profit,
			Qualifies:     buyPrice.IsPositive() && profit.GreaterThanOrEqual(d.minProfit),
		})
	}
	return evals
}

// Detect evaluates both directions and selects at most one opportunity
// according to the policy. Directions rejected by allow are never selected.
func (d *Detector) Detect(symbol pricingDomain.Symbol, quotes pricingDomain.Quotes, allow AllowFunc) (*Opportunity, []Evaluation) {
	evals := d.Evaluate(quotes)

	var chosen *Evaluation
	for i := range evals {
		e := &evals[i]
		if !e.Qualifies || (allow != nil && !allow(symbol, e.Direction)) {
			continue
		}
		if chosen == nil {
			chosen = e
			if d.policy == SelectFirstMatch {
				break
			}
			continue
		}
		// Strictly greater keeps the earlier direction on ties.
		if e.ProfitPercent.GreaterThan(chosen.ProfitPercent) {
			chosen = e
		}
	}

	if chosen == nil {
		return nil, evals
	}

	return &Opportunity{
		Symbol:        symbol,
		BuyVenue:      chosen.Direction.BuyVenue,
		SellVenue:     chosen.Direction.SellVenue,
		BuyQuote:      quotes[chosen.Direction.BuyVenue],
		SellQuote:     quotes[chosen.Direction.SellVenue],
		BuyPrice:      chosen.BuyPrice,
		SellPrice:     chosen.SellPrice,
		ProfitPercent: chosen.ProfitPercent,
		DetectedAt:    d.now(),
	}, evals
}
