package infra

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/brl-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	tradingDomain "github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
	"github.com/fd1az/brl-arbitrage-bot/pkg/ui"
	"github.com/fd1az/brl-arbitrage-bot/pkg/ui/components"
)

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter implements Reporter by sending messages to the Bubble Tea program.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a TUIReporter. A nil send uses ui.Send.
func NewTUIReporter(send func(tea.Msg)) *TUIReporter {
	if send == nil {
		send = ui.Send
	}
	return &TUIReporter{send: send}
}

// Start marks the scheduler step as done on the startup screen.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.StartupMsg{Step: "scheduler", Status: "done"})
	return nil
}

// ReportQuotes sends both books and the evaluated directions.
func (r *TUIReporter) ReportQuotes(symbol pricingDomain.Symbol, quotes pricingDomain.Quotes, evals []domain.Evaluation) {
	r.send(QuotesMessage(symbol, quotes, evals))
}

// ReportOpportunity sends the selected opportunity.
func (r *TUIReporter) ReportOpportunity(opp *domain.Opportunity) {
	r.send(ui.OpportunityMsg{
		Symbol:        opp.Symbol.String(),
		Direction:     opp.Direction().ShortString(),
		ProfitPercent: opp.ProfitPercent,
		DetectedAt:    opp.DetectedAt,
	})
}

// ReportTrade sends the trade outcome, and the error when there is one.
func (r *TUIReporter) ReportTrade(trade *tradingDomain.Trade, err error) {
	if trade != nil {
		r.send(TradeMessage(trade, err))
	}
	if err != nil {
		r.send(ui.ErrorMsg{Error: err})
	}
}

// ReportBalances sends the ledger and stuck positions.
func (r *TUIReporter) ReportBalances(snap tradingDomain.Snapshot, stuck []tradingDomain.StuckPosition) {
	r.send(BalancesMessage(snap, stuck))
}

// ReportError sends a failed check.
func (r *TUIReporter) ReportError(symbol pricingDomain.Symbol, err error) {
	r.send(ui.ErrorMsg{Error: err})
}

// Stop is a no-op; the program is owned by main.
func (r *TUIReporter) Stop() error {
	return nil
}

// QuotesMessage converts one check into a ui.QuotesMsg. Venues follow
// pricingDomain.Venues order.
func QuotesMessage(symbol pricingDomain.Symbol, quotes pricingDomain.Quotes, evals []domain.Evaluation) ui.QuotesMsg {
	sq := components.SymbolQuotes{Symbol: symbol.String()}
	latencies := make(map[string]time.Duration, len(quotes))
	for _, v := range pricingDomain.Venues {
		q, ok := quotes[v]
		if !ok {
			continue
		}
		sq.Venues = append(sq.Venues, components.VenueQuote{Venue: v.String(), Bid: q.BestBid, Ask: q.BestAsk})
		latencies[v.String()] = q.Latency
	}
	for _, e := range evals {
		sq.Directions = append(sq.Directions, components.DirectionQuote{
			Label:         e.Direction.ShortString(),
			BuyPrice:      e.BuyPrice,
			SellPrice:     e.SellPrice,
			ProfitPercent: e.ProfitPercent,
			Qualifies:     e.Qualifies,
		})
	}
	return ui.QuotesMsg{Quotes: sq, Latencies: latencies}
}

// TradeMessage converts a trade into a ui.TradeMsg.
func TradeMessage(trade *tradingDomain.Trade, err error) ui.TradeMsg {
	msg := ui.TradeMsg{
		ID:     trade.ID,
		State:  string(trade.State),
		Profit: trade.Profit(),
		Err:    err,
	}
	if opp := trade.Opportunity; opp != nil {
		msg.Symbol = opp.Symbol.String()
		msg.Direction = opp.Direction().ShortString()
	}
	return msg
}

// BalancesMessage converts a ledger snapshot into a ui.BalancesMsg.
func BalancesMessage(snap tradingDomain.Snapshot, stuck []tradingDomain.StuckPosition) ui.BalancesMsg {
	msg := ui.BalancesMsg{
		Balances: make([]components.Balance, 0, len(snap.Balances)),
		PnL:      snap.PnL,
		Stuck:    make([]components.StuckRow, 0, len(stuck)),
	}
	for _, b := range snap.Balances {
		msg.Balances = append(msg.Balances, components.Balance{
			Venue:  b.Key.Venue.String(),
			Asset:  b.Key.Asset,
			Amount: b.Amount,
		})
	}
	for _, s := range stuck {
		msg.Stuck = append(msg.Stuck, components.StuckRow{
			Venue:    s.Venue.String(),
			HeldOn:   s.HeldOn.String(),
			Asset:    s.Asset,
			TradeID:  s.TradeID,
			Quantity: s.BaseQuantity,
			Since:    s.Since,
		})
	}
	return msg
}
