package domain

import (
	"fmt"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// Direction represents the arbitrage trade direction.
type Direction struct {
	BuyVenue  pricingDomain.Venue
	SellVenue pricingDomain.Venue
}

// CheckOrder is the fixed order directions are evaluated in. Ties and
// first_match selection resolve to the earlier entry.
var CheckOrder = []Direction{
	{BuyVenue: pricingDomain.VenueBinance, SellVenue: pricingDomain.VenueBitpreco},
	{BuyVenue: pricingDomain.VenueBitpreco, SellVenue: pricingDomain.VenueBinance},
}

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	return fmt.Sprintf("buy %s → sell %s", d.BuyVenue, d.SellVenue)
}

// ShortString returns a compact form for tables.
func (d Direction) ShortString() string {
	return venueAbbrev(d.BuyVenue) + "→" + venueAbbrev(d.SellVenue)
}

func venueAbbrev(v pricingDomain.Venue) string {
	switch v {
	case pricingDomain.VenueBinance:
		return "BN"
	case pricingDomain.VenueBitpreco:
		return "BP"
	default:
		return string(v)
	}
}

// SelectionPolicy decides which qualifying direction is executed.
type SelectionPolicy string

const (
	// SelectBest executes the most profitable qualifying direction.
	SelectBest SelectionPolicy = "best"
	// SelectFirstMatch executes the first qualifying direction in CheckOrder.
	SelectFirstMatch SelectionPolicy = "first_match"
)

// ParseSelectionPolicy accepts best or first_match. Empty means best.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch p := SelectionPolicy(s); p {
	case "":
		return SelectBest, nil
	case SelectBest, SelectFirstMatch:
		return p, nil
	default:
		return "", apperror.New(apperror.CodeInvalidInput, apperror.WithContextf("selection policy %q", s))
	}
}
