// Package binance implements the MarketDataProvider for Binance, over REST
// with an optional bookTicker stream.
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
)

// WSRequest is a WebSocket control request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket control response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the combined-stream wrapper.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerEvent represents best bid/ask update (real-time).
// Stream: <symbol>@bookTicker
type BookTickerEvent struct {
	UpdateID int64  `json:"u"` // Order book updateId
	Symbol   string `json:"s"` // Symbol
	BidPrice string `json:"b"` // Best bid price
	BidQty   string `json:"B"` // Best bid qty
	AskPrice string `json:"a"` // Best ask price
	AskQty   string `json:"A"` // Best ask qty
}

// Levels converts the event into one bid and one ask level.
func (e *BookTickerEvent) Levels() (bids, asks []domain.Level, err error) {
	bid, err := parseLevel(e.BidPrice, e.BidQty)
	if err != nil {
		return nil, nil, err
	}
	ask, err := parseLevel(e.AskPrice, e.AskQty)
	if err != nil {
		return nil, nil, err
	}
	return []domain.Level{bid}, []domain.Level{ask}, nil
}

// DepthResponse is the REST API response for orderbook depth.
type DepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // [[price, qty], ...]
	Asks         [][]string `json:"asks"` // [[price, qty], ...]
}

// ParseLevels parses raw [price, qty] pairs. Zero-quantity levels are
// skipped; a short or non-numeric entry is an error.
func ParseLevels(raw [][]string) ([]domain.Level, error) {
	levels := make([]domain.Level, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			return nil, fmt.Errorf("malformed level %q", r)
		}
		l, err := parseLevel(r[0], r[1])
		if err != nil {
			return nil, err
		}
		if l.Amount.IsZero() {
			continue
		}
		levels = append(levels, l)
	}
	return levels, nil
}

func parseLevel(price, qty string) (domain.Level, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Level{}, err
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return domain.Level{}, err
	}
	return domain.Level{Price: p, Amount: q}, nil
}

// SymbolID converts BTC-BRL into BTCBRL.
func SymbolID(symbol domain.Symbol) string {
	return symbol.Base + symbol.Quote
}

// BookTickerStream returns the bookTicker stream name for a symbol.
func BookTickerStream(symbol domain.Symbol) string {
	return strings.ToLower(SymbolID(symbol)) + "@bookTicker"
}
