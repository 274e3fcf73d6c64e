package ui

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/pkg/ui/components"
)

// Message types for TUI updates. Every value is pre-computed by the domain;
// the UI only formats.

// QuotesMsg is sent after each symbol check with both venue quotes.
type QuotesMsg struct {
	Quotes    components.SymbolQuotes
	Latencies map[string]time.Duration // per venue fetch latency
}

// OpportunityMsg is sent when the detector selects an opportunity.
type OpportunityMsg struct {
	Symbol        string
	Direction     string
	ProfitPercent decimal.Decimal
	DetectedAt    time.Time
}

// TradeMsg is sent after an execution attempt.
type TradeMsg struct {
	ID        string
	Symbol    string
	Direction string
	State     string // idle, completed, failed, stuck
	Profit    decimal.Decimal
	Err       error
}

// BalancesMsg carries the ledger after a trade.
type BalancesMsg struct {
	Balances []components.Balance
	PnL      decimal.Decimal
	Stuck    []components.StuckRow
}

// VenueStatusMsg is sent when a venue's transport health changes.
type VenueStatusMsg struct {
	Status components.VenueStatus
}

// TradingStateMsg reports whether opportunities are executed.
type TradingStateMsg struct {
	Enabled bool
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "done", "failed"
	Message string // Optional message
}
