package redisbus

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/trading/domain"
)

// TradeEvent is the JSON shape published for a trade.
type TradeEvent struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	BuyVenue      string          `json:"buy_venue"`
	SellVenue     string          `json:"sell_venue"`
	State         string          `json:"state"`
	Amount        decimal.Decimal `json:"amount"`
	BuyPrice      decimal.Decimal `json:"buy_price"`
	SellPrice     decimal.Decimal `json:"sell_price"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	BaseQuantity  decimal.Decimal `json:"base_quantity"`
	Proceeds      decimal.Decimal `json:"proceeds"`
	Profit        decimal.Decimal `json:"profit"`
	SellAttempts  int             `json:"sell_attempts"`
	Error         string          `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// NewTradeEvent flattens a trade.
func NewTradeEvent(t *domain.Trade) TradeEvent {
	ev := TradeEvent{
		ID:           t.ID,
		State:        string(t.State),
		Amount:       t.Amount,
		BaseQuantity: t.BaseQuantity,
		Proceeds:     t.Proceeds,
		Profit:       t.Profit(),
		SellAttempts: t.SellAttempts,
		StartedAt:    t.StartedAt,
		FinishedAt:   t.FinishedAt,
	}
	if opp := t.Opportunity; opp != nil {
		ev.Symbol = opp.Symbol.String()
		ev.BuyVenue = string(opp.BuyVenue)
		ev.SellVenue = string(opp.SellVenue)
		ev.BuyPrice = opp.BuyPrice
		ev.SellPrice = opp.SellPrice
		ev.ProfitPercent = opp.ProfitPercent
	}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	return ev
}

// StuckEvent is the JSON shape published for a stuck position.
type StuckEvent struct {
	domain.StuckPosition
	Symbol string     `json:"symbol"`
	Trade  TradeEvent `json:"trade"`
}
