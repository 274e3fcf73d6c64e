package domain

import (
	"testing"
	"time"
)

func TestStuckRegistry(t *testing.T) {
	r := NewStuckRegistry()
	now := time.Now()

	r.Add(StuckPosition{Venue: bitpreco, Asset: "BTC", TradeID: "b", Since: now})
	r.Add(StuckPosition{Venue: binance, Asset: "ETH", TradeID: "a", Since: now.Add(-time.Minute)})

	if !r.Has(bitpreco, "BTC") || r.Has(binance, "BTC") {
		t.Fatal("Has does not match the recorded keys")
	}
	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}

	list := r.List()
	if list[0].TradeID != "a" || list[1].TradeID != "b" {
		t.Errorf("List not oldest first: %+v", list)
	}

	// Same key replaces.
	r.Add(StuckPosition{Venue: bitpreco, Asset: "BTC", TradeID: "c", Since: now})
	if r.Len() != 2 {
		t.Errorf("Len after replace = %d", r.Len())
	}

	p, ok := r.Remove(bitpreco, "BTC")
	if !ok || p.TradeID != "c" {
		t.Errorf("Remove = %+v, %v", p, ok)
	}
	if _, ok := r.Remove(bitpreco, "BTC"); ok {
		t.Error("second Remove reported a position")
	}
	if r.Has(bitpreco, "BTC") {
		t.Error("cleared key still stuck")
	}
}
