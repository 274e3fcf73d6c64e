package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pricingDomain "github.com/fd1az/brl-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

var (
	btcBRL   = pricingDomain.MustParseSymbol("BTC-BRL")
	binance  = pricingDomain.VenueBinance
	bitpreco = pricingDomain.VenueBitpreco
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultFees(t testing.TB) *FeeModel {
	t.Helper()
	fees, err := NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{
		bitpreco: d("0.02"),
		binance:  d("0.03"),
	})
	if err != nil {
		t.Fatalf("NewFeeModel: %v", err)
	}
	return fees
}

func quote(venue pricingDomain.Venue, bid, ask string) pricingDomain.Quote {
	return pricingDomain.Quote{Venue: venue, Symbol: btcBRL, BestBid: d(bid), BestAsk: d(ask), FetchedAt: time.Now()}
}

func quotes(qs ...pricingDomain.Quote) pricingDomain.Quotes {
	out := make(pricingDomain.Quotes, len(qs))
	for _, q := range qs {
		out[q.Venue] = q
	}
	return out
}

func TestFeeAdjustment(t *testing.T) {
	tests := []struct {
		name string
		fn   func(price, fee decimal.Decimal) decimal.Decimal
		in   string
		fee  string
		want string
	}{
		{"buy_900_at_3pct", AdjustForBuy, "900", "0.03", "927"},
		{"sell_1000_at_2pct", AdjustForSell, "1000", "0.02", "980"},
		{"buy_1000_at_3pct", AdjustForBuy, "1000", "0.03", "1030"},
		{"sell_950_at_2pct", AdjustForSell, "950", "0.02", "931"},
		{"zero_fee_is_identity", AdjustForBuy, "123.45", "0", "123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(d(tt.in), d(tt.fee)); !got.Equal(d(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewFeeModel_Validation(t *testing.T) {
	tests := []struct {
		name string
		fees map[pricingDomain.Venue]decimal.Decimal
	}{
		{"missing_venue", map[pricingDomain.Venue]decimal.Decimal{bitpreco: d("0.02")}},
		{"negative", map[pricingDomain.Venue]decimal.Decimal{bitpreco: d("-0.01"), binance: d("0.03")}},
		{"one_hundred_percent", map[pricingDomain.Venue]decimal.Decimal{bitpreco: d("0.02"), binance: d("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeeModel(tt.fees)
			if apperror.GetCode(err) != apperror.CodeInvalidFee {
				t.Fatalf("err = %v, want INVALID_FEE", err)
			}
		})
	}
}

func TestDetector_Evaluate(t *testing.T) {
	det, err := NewDetector(defaultFees(t), d("0.05"), SelectBest)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	tests := []struct {
		name       string
		quotes     pricingDomain.Quotes
		direction  Direction
		wantBuy    string
		wantSell   string
		wantQualif bool
	}{
		{
			// 900*1.03 = 927, 1000*0.98 = 980, 980/927-1 ≈ 0.0572
			name:       "binance_cheap_qualifies",
			quotes:     quotes(quote(binance, "890", "900"), quote(bitpreco, "1000", "1010")),
			direction:  CheckOrder[0],
			wantBuy:    "927",
			wantSell:   "980",
			wantQualif: true,
		},
		{
			// 1000*1.03 = 1030, 950*0.98 = 931
			name:       "negative_spread_rejected",
			quotes:     quotes(quote(binance, "990", "1000"), quote(bitpreco, "950", "960")),
			direction:  CheckOrder[0],
			wantBuy:    "1030",
			wantSell:   "931",
			wantQualif: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evals := det.Evaluate(tt.quotes)
			if len(evals) != 2 {
				t.Fatalf("evaluations = %d, want 2", len(evals))
			}
			e := evals[0]
			if e.Direction != tt.direction {
				t.Fatalf("first evaluated direction = %s", e.Direction)
			}
			if !e.BuyPrice.Equal(d(tt.wantBuy)) || !e.SellPrice.Equal(d(tt.wantSell)) {
				t.Errorf("prices = %s/%s, want %s/%s", e.BuyPrice, e.SellPrice, tt.wantBuy, tt.wantSell)
			}
			if e.Qualifies != tt.wantQualif {
				t.Errorf("qualifies = %v (profit %s)", e.Qualifies, e.ProfitPercent)
			}
		})
	}
}

func TestDetector_InclusiveBoundary(t *testing.T) {
	fees, err := NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{bitpreco: decimal.Zero, binance: decimal.Zero})
	if err != nil {
		t.Fatalf("NewFeeModel: %v", err)
	}
	// 105/100 - 1 is exactly 0.05.
	det, _ := NewDetector(fees, d("0.05"), SelectBest)

	opp, _ := det.Detect(btcBRL, quotes(quote(binance, "99", "100"), quote(bitpreco, "105", "106")), nil)
	if opp == nil {
		t.Fatal("profit equal to the threshold must qualify")
	}
	if !opp.ProfitPercent.Equal(d("0.05")) {
		t.Errorf("profit = %s", opp.ProfitPercent)
	}

	det, _ = NewDetector(fees, d("0.0500001"), SelectBest)
	if opp, _ := det.Detect(btcBRL, quotes(quote(binance, "99", "100"), quote(bitpreco, "105", "106")), nil); opp != nil {
		t.Fatalf("profit below the threshold selected: %+v", opp)
	}
}

func TestDetector_SelectionPolicy(t *testing.T) {
	fees, _ := NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{bitpreco: decimal.Zero, binance: decimal.Zero})

	// Crossed books: both directions profit. Buying on bitpreco earns 20%,
	// buying on binance earns 10%.
	crossed := quotes(quote(binance, "120", "100"), quote(bitpreco, "110", "100"))

	tests := []struct {
		name   string
		policy SelectionPolicy
		allow  AllowFunc
		want   *Direction
	}{
		{"best_picks_higher_profit", SelectBest, nil, &CheckOrder[1]},
		{"first_match_keeps_check_order", SelectFirstMatch, nil, &CheckOrder[0]},
		{"allow_vetoes_best", SelectBest, func(_ pricingDomain.Symbol, dir Direction) bool {
			return dir.BuyVenue != bitpreco
		}, &CheckOrder[0]},
		{"allow_vetoes_all", SelectBest, func(pricingDomain.Symbol, Direction) bool { return false }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det, err := NewDetector(fees, d("0.05"), tt.policy)
			if err != nil {
				t.Fatalf("NewDetector: %v", err)
			}
			opp, evals := det.Detect(btcBRL, crossed, tt.allow)
			if len(evals) != 2 {
				t.Fatalf("evaluations = %d", len(evals))
			}
			if tt.want == nil {
				if opp != nil {
					t.Fatalf("expected no opportunity, got %s", opp.Direction())
				}
				return
			}
			if opp == nil || opp.Direction() != *tt.want {
				t.Fatalf("opportunity = %+v, want %s", opp, tt.want)
			}
		})
	}
}

func TestDetector_TieGoesToCheckOrder(t *testing.T) {
	fees, _ := NewFeeModel(map[pricingDomain.Venue]decimal.Decimal{bitpreco: decimal.Zero, binance: decimal.Zero})
	det, _ := NewDetector(fees, d("0.05"), SelectBest)

	// Both directions earn exactly 10%.
	opp, _ := det.Detect(btcBRL, quotes(quote(binance, "110", "100"), quote(bitpreco, "110", "100")), nil)
	if opp == nil || opp.Direction() != CheckOrder[0] {
		t.Fatalf("tie resolved to %+v, want %s", opp, CheckOrder[0])
	}
}

func TestDetector_MissingQuoteYieldsNothing(t *testing.T) {
	det, _ := NewDetector(defaultFees(t), d("0.05"), SelectBest)
	opp, evals := det.Detect(btcBRL, quotes(quote(binance, "890", "900")), nil)
	if opp != nil || len(evals) != 0 {
		t.Fatalf("got %+v / %d evaluations", opp, len(evals))
	}
}

func TestParseSelectionPolicy(t *testing.T) {
	if p, err := ParseSelectionPolicy(""); err != nil || p != SelectBest {
		t.Errorf("empty -> %q, %v", p, err)
	}
	if p, err := ParseSelectionPolicy("first_match"); err != nil || p != SelectFirstMatch {
		t.Errorf("first_match -> %q, %v", p, err)
	}
	if _, err := ParseSelectionPolicy("random"); !errors.Is(err, apperror.New(apperror.CodeInvalidInput)) {
		t.Errorf("random -> %v", err)
	}
}

func BenchmarkDetector_Detect(b *testing.B) {
	det, _ := NewDetector(defaultFees(b), d("0.05"), SelectBest)
	qs := quotes(quote(binance, "349000", "350000"), quote(bitpreco, "371000", "372000"))

	b.ReportAllocs()
	for b.Loop() {
		det.Detect(btcBRL, qs, nil)
	}
}
