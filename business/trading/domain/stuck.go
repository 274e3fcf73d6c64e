package domain

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
)

// StuckPosition is base asset bought on HeldOn that could not be sold on
// Venue. It is keyed by the failed sell venue; trades touching the asset on
// either venue are refused until an operator clears it.
type StuckPosition struct {
	Venue        pricingDomain.Venue  `json:"venue"`
	HeldOn       pricingDomain.Venue  `json:"held_on"`
	Asset        string               `json:"asset"`
	Symbol       pricingDomain.Symbol `json:"-"`
	TradeID      string               `json:"trade_id"`
	BaseQuantity decimal.Decimal      `json:"base_quantity"`
	Reason       string               `json:"reason"`
	Since        time.Time            `json:"since"`
}

// Key returns the (venue, asset) pair the position blocks.
func (p StuckPosition) Key() AssetKey {
	return AssetKey{Venue: p.Venue, Asset: p.Asset}
}

// StuckRegistry holds stuck positions in memory.
type StuckRegistry struct {
	mu        sync.RWMutex
	positions map[AssetKey]StuckPosition
}

// NewStuckRegistry returns an empty registry.
func NewStuckRegistry() *StuckRegistry {
	return &StuckRegistry{positions: make(map[AssetKey]StuckPosition)}
}

// Add records p, replacing any position with the same key.
func (r *StuckRegistry) Add(p StuckPosition) {
	r.mu.Lock()
	r.positions[p.Key()] = p
	r.mu.Unlock()
}

// Has reports whether (venue, asset) is stuck.
func (r *StuckRegistry) Has(venue pricingDomain.Venue, asset string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.positions[AssetKey{Venue: venue, Asset: asset}]
	return ok
}

// Remove clears (venue, asset) and reports whether it was stuck.
func (r *StuckRegistry) Remove(venue pricingDomain.Venue, asset string) (StuckPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := AssetKey{Venue: venue, Asset: asset}
	p, ok := r.positions[key]
	delete(r.positions, key)
	return p, ok
}

// List returns the stuck positions, oldest first.
func (r *StuckRegistry) List() []StuckPosition {
	r.mu.RLock()
	out := make([]StuckPosition, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// Len returns the number of stuck positions.
func (r *StuckRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
