// Package domain contains the core domain types for the pricing context.
package domain

import (
	"strings"

	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// Venue is one of the two exchanges whose books are compared.
type Venue string

const (
	VenueBitpreco Venue = "bitpreco"
	VenueBinance  Venue = "binance"
)

// Venues lists the closed venue set in a stable order.
var Venues = []Venue{VenueBitpreco, VenueBinance}

// ParseVenue accepts a venue name in any case.
func ParseVenue(s string) (Venue, error) {
	switch v := Venue(strings.ToLower(strings.TrimSpace(s))); v {
	case VenueBitpreco, VenueBinance:
		return v, nil
	default:
		return "", apperror.New(apperror.CodeUnknownVenue, apperror.WithContextf("venue %q", s))
	}
}

// String returns the venue name.
func (v Venue) String() string {
	return string(v)
}
