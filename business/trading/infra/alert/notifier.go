// Package alert forwards trading events to the operator notify channels.
package alert

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/trading/app"
	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
)

// Notify event names. Operators subscribe to them with notify.events.
const (
	EventStuck          = "stuck"
	EventTradeCompleted = "trade_completed"
	EventTradeFailed    = "trade_failed"
)

var hundred = decimal.NewFromInt(100)

var (
	_ app.Alerter   = (*Notifier)(nil)
	_ app.TradeSink = (*Notifier)(nil)
)

// Dispatcher is the subset of notify.Notifier used here.
type Dispatcher interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Notifier adapts a Dispatcher to the engine's Alerter and TradeSink ports.
type Notifier struct {
	d Dispatcher
}

// NewNotifier wraps d.
func NewNotifier(d Dispatcher) *Notifier {
	return &Notifier{d: d}
}

// Alert sends the stuck position to every channel subscribed to "stuck".
func (n *Notifier) Alert(ctx context.Context, pos domain.StuckPosition, trade *domain.Trade) error {
	title := fmt.Sprintf("STUCK %s on %s", pos.Asset, pos.Venue)
	msg := fmt.Sprintf("trade %s bought %s %s on %s and could not sell it on %s after %d attempts.\nreason: %s\nclear with DELETE /stuck?venue=%s&asset=%s",
		pos.TradeID, pos.BaseQuantity, pos.Asset, pos.HeldOn, pos.Venue, trade.SellAttempts, pos.Reason, pos.Venue, pos.Asset)
	return n.d.Notify(ctx, EventStuck, title, msg)
}

// Publish reports completed and failed trades. Stuck trades are covered by
// Alert; Idle ones never reach a sink.
func (n *Notifier) Publish(ctx context.Context, trade *domain.Trade) error {
	opp := trade.Opportunity
	switch trade.State {
	case domain.StateCompleted:
		return n.d.Notify(ctx, EventTradeCompleted,
			fmt.Sprintf("%s %s", opp.Symbol, opp.Direction().ShortString()),
			fmt.Sprintf("spent %s, received %s, profit %s (%s%%)",
				trade.Amount, trade.Proceeds.StringFixed(2), trade.Profit().StringFixed(4),
				opp.ProfitPercent.Mul(hundred).StringFixed(2)))
	case domain.StateFailed:
		return n.d.Notify(ctx, EventTradeFailed,
			fmt.Sprintf("%s %s failed", opp.Symbol, opp.Direction().ShortString()),
			fmt.Sprintf("buy leg rejected: %v", trade.Err))
	}
	return nil
}
