// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
)

// MarketDataProvider returns the top of book for one venue. Every failure is
// reported as a FETCH_FAILED error.
type MarketDataProvider interface {
	Venue() domain.Venue
	GetQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error)
}

// HealthReporter is implemented by providers that can report transport health.
type HealthReporter interface {
	Healthy() (bool, string)
}
