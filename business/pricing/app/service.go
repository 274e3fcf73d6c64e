package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/logger"
)

// QuoteService fetches the same symbol from every venue concurrently.
type QuoteService struct {
	providers []MarketDataProvider
	timeout   time.Duration
	log       logger.LoggerInterface
}

// NewQuoteService creates a QuoteService. Providers must cover distinct venues.
func NewQuoteService(providers []MarketDataProvider, timeout time.Duration, log logger.LoggerInterface) (*QuoteService, error) {
	seen := make(map[domain.Venue]bool, len(providers))
	for _, p := range providers {
		if seen[p.Venue()] {
			return nil, fmt.Errorf("duplicate provider for venue %s", p.Venue())
		}
		seen[p.Venue()] = true
	}

	sorted := append([]MarketDataProvider(nil), providers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Venue() < sorted[j].Venue() })

	return &QuoteService{providers: sorted, timeout: timeout, log: log}, nil
}

// Providers returns the registered providers ordered by venue name.
func (s *QuoteService) Providers() []MarketDataProvider {
	return s.providers
}

// GetQuotes returns one quote per venue, or the first fetch error. Both
// fetches share one deadline and are joined before returning.
func (s *QuoteService) GetQuotes(ctx context.Context, symbol domain.Symbol) (domain.Quotes, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	results := make([]domain.Quote, len(s.providers))
	g, gctx := errgroup.WithContext(ctx)

	for i, p := range s.providers {
		g.Go(func() error {
			start := time.Now()
			q, err := p.GetQuote(gctx, symbol)
			if err != nil {
				return err
			}
			q.Latency = time.Since(start)
			results[i] = q
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Debug(ctx, "quote fetch failed", "symbol", symbol.String(), "error", err)
		return nil, err
	}

	quotes := make(domain.Quotes, len(results))
	for _, q := range results {
		quotes[q.Venue] = q
	}
	return quotes, nil
}
