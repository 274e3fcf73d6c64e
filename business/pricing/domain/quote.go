package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// ErrFetch is the sentinel every market data failure matches with errors.Is.
var ErrFetch = apperror.New(apperror.CodeFetchFailed)

// NewFetchError builds a FETCH_FAILED error for venue and symbol.
func NewFetchError(venue Venue, symbol Symbol, cause error) error {
	return apperror.New(apperror.CodeFetchFailed,
		apperror.WithContextf("venue=%s symbol=%s", venue, symbol),
		apperror.WithCause(cause))
}

// Level is one order-book price level.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Quote is the top of one venue's book for one symbol.
type Quote struct {
	Venue     Venue
	Symbol    Symbol
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	FetchedAt time.Time
	Latency   time.Duration
}

// NewQuoteFromLevels picks the highest bid and the lowest ask. Venue ordering
// is not trusted. An empty side or a non-positive best price is an
// INVALID_ORDERBOOK error.
func NewQuoteFromLevels(venue Venue, symbol Symbol, bids, asks []Level) (Quote, error) {
	if len(bids) == 0 || len(asks) == 0 {
		return Quote{}, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithContextf("venue=%s symbol=%s bids=%d asks=%d", venue, symbol, len(bids), len(asks)))
	}

	bestBid := bids[0].Price
	for _, l := range bids[1:] {
		if l.Price.GreaterThan(bestBid) {
			bestBid = l.Price
		}
	}

	bestAsk := asks[0].Price
	for _, l := range asks[1:] {
		if l.Price.LessThan(bestAsk) {
			bestAsk = l.Price
		}
	}

	if !bestBid.IsPositive() || !bestAsk.IsPositive() {
		return Quote{}, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithContextf("venue=%s symbol=%s bid=%s ask=%s", venue, symbol, bestBid, bestAsk))
	}

	return Quote{
		Venue:     venue,
		Symbol:    symbol,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		FetchedAt: time.Now(),
	}, nil
}

// Age is how long ago the quote was fetched.
func (q Quote) Age() time.Duration {
	return time.Since(q.FetchedAt)
}

// Quotes holds one quote per venue for a symbol.
type Quotes map[Venue]Quote
