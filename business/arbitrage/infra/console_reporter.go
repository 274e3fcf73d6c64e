// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingDomain "github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

var hundred = decimal.NewFromInt(100)

const rule = "================================================================================"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout when out is nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "BRL Arbitrage Bot Started")
	fmt.Fprintln(r.out, "=========================")
	return nil
}

func stamp() string {
	return time.Now().Format("15:04:05")
}

func pct(fraction decimal.Decimal) string {
	return fraction.Mul(hundred).StringFixed(3) + "%"
}

// ReportQuotes prints one line per check: both books, then each direction.
func (r *ConsoleReporter) ReportQuotes(symbol pricingDomain.Symbol, quotes pricingDomain.Quotes, evals []domain.Evaluation) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %-8s", stamp(), symbol)
	for _, v := range pricingDomain.Venues {
		q, ok := quotes[v]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " %s %s/%s", v, q.BestBid.StringFixed(2), q.BestAsk.StringFixed(2))
	}
	if bp, ok := quotes[pricingDomain.VenueBitpreco]; ok {
		if bn, ok := quotes[pricingDomain.VenueBinance]; ok {
			raw := pricingDomain.BestSpread(bp, bn)
			fmt.Fprintf(&sb, " | raw %s bps buy %s", raw.BasisPoints.StringFixed(1), raw.BuyVenue)
		}
	}
	for _, e := range evals {
		mark := ""
		if e.Qualifies {
			mark = "*"
		}
		fmt.Fprintf(&sb, " | %s %s%s", e.Direction.ShortString(), pct(e.ProfitPercent), mark)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, sb.String())
}

// ReportOpportunity prints the selected opportunity.
func (r *ConsoleReporter) ReportOpportunity(opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	spread := opp.RawSpread()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Symbol:         %s\n", opp.Symbol)
	fmt.Fprintf(r.out, "Direction:      %s\n", opp.Direction())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Ask (%s):  %s -> %s with fee\n", opp.BuyVenue, opp.BuyQuote.BestAsk.StringFixed(2), opp.BuyPrice.StringFixed(2))
	fmt.Fprintf(r.out, "  Bid (%s):  %s -> %s with fee\n", opp.SellVenue, opp.SellQuote.BestBid.StringFixed(2), opp.SellPrice.StringFixed(2))
	fmt.Fprintf(r.out, "  Raw spread:     %s bps\n", spread.BasisPoints.StringFixed(2))
	fmt.Fprintf(r.out, "  Net profit:     %s\n", pct(opp.ProfitPercent))
	fmt.Fprintln(r.out, rule)
}

// ReportTrade prints the outcome of an execution attempt.
func (r *ConsoleReporter) ReportTrade(trade *tradingDomain.Trade, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if trade == nil {
		fmt.Fprintf(r.out, "[%s] trade rejected: %v\n", stamp(), err)
		return
	}
	switch trade.State {
	case tradingDomain.StateCompleted:
		fmt.Fprintf(r.out, "[%s] trade %s completed: spent %s, received %s, profit %s\n",
			stamp(), trade.ID, trade.Amount.StringFixed(2), trade.Proceeds.StringFixed(2), trade.Profit().StringFixed(2))
	case tradingDomain.StateStuck:
		fmt.Fprintf(r.out, "[%s] trade %s STUCK after %d sell attempts: %v\n", stamp(), trade.ID, trade.SellAttempts, err)
	default:
		fmt.Fprintf(r.out, "[%s] trade %s %s: %v\n", stamp(), trade.ID, trade.State, err)
	}
}

// ReportBalances prints the ledger and any stuck positions.
func (r *ConsoleReporter) ReportBalances(snap tradingDomain.Snapshot, stuck []tradingDomain.StuckPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "BALANCES")
	for _, b := range snap.Balances {
		fmt.Fprintf(r.out, "  %-9s %-5s %s\n", b.Key.Venue, b.Key.Asset, b.Amount.StringFixed(8))
	}
	fmt.Fprintf(r.out, "  PnL: %s\n", snap.PnL.StringFixed(2))
	for _, s := range stuck {
		fmt.Fprintf(r.out, "  STUCK %s %s qty %s held on %s since %s (trade %s)\n",
			s.Venue, s.Asset, s.BaseQuantity.String(), s.HeldOn, s.Since.Format(time.RFC3339), s.TradeID)
	}
}

// ReportError prints a failed check.
func (r *ConsoleReporter) ReportError(symbol pricingDomain.Symbol, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s error: %v\n", stamp(), symbol, err)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "BRL Arbitrage Bot Stopped")
	return nil
}
