// Package app contains the scheduler loop and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingDomain "github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
)

// QuoteSource returns one quote per venue for a symbol.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbol pricingDomain.Symbol) (pricingDomain.Quotes, error)
}

// Executor runs opportunities against the ledger.
type Executor interface {
	Execute(ctx context.Context, opp *domain.Opportunity) (*tradingDomain.Trade, error)
	Blocked(symbol pricingDomain.Symbol, dir domain.Direction) bool
	Snapshot() tradingDomain.Snapshot
	Stuck() []tradingDomain.StuckPosition
}

// Reporter displays what the scheduler sees and does.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// ReportQuotes shows both venue quotes and their fee-adjusted evaluations.
	ReportQuotes(symbol pricingDomain.Symbol, quotes pricingDomain.Quotes, evals []domain.Evaluation)

	// ReportOpportunity shows the selected opportunity.
	ReportOpportunity(opp *domain.Opportunity)

	// ReportTrade shows the outcome of an execution attempt.
	ReportTrade(trade *tradingDomain.Trade, err error)

	// ReportBalances shows the ledger and any stuck positions.
	ReportBalances(snap tradingDomain.Snapshot, stuck []tradingDomain.StuckPosition)

	// ReportError shows a failed check.
	ReportError(symbol pricingDomain.Symbol, err error)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
