package domain

import (
	"strings"

	"github.com/fd1az/brl-arbitrage-bot/internal/apperror"
)

// Symbol is a base/quote asset pair such as BTC/BRL.
type Symbol struct {
	Base  string
	Quote string
}

// ParseSymbol parses "BTC-BRL", "btc/brl" or "BTC_BRL".
func ParseSymbol(s string) (Symbol, error) {
	sep := strings.IndexAny(s, "-/_")
	if sep <= 0 || sep == len(s)-1 {
		return Symbol{}, apperror.New(apperror.CodeInvalidSymbol, apperror.WithContextf("symbol %q", s))
	}

	base := strings.ToUpper(strings.TrimSpace(s[:sep]))
	quote := strings.ToUpper(strings.TrimSpace(s[sep+1:]))
	if base == "" || quote == "" || base == quote || strings.ContainsAny(quote, "-/_") {
		return Symbol{}, apperror.New(apperror.CodeInvalidSymbol, apperror.WithContextf("symbol %q", s))
	}
	return Symbol{Base: base, Quote: quote}, nil
}

// MustParseSymbol is ParseSymbol for literals.
func MustParseSymbol(s string) Symbol {
	sym, err := ParseSymbol(s)
	if err != nil {
		panic(err)
	}
	return sym
}

// ParseSymbols parses a configured symbol list, keeping order.
func ParseSymbols(raw []string) ([]Symbol, error) {
	out := make([]Symbol, 0, len(raw))
	for _, s := range raw {
		sym, err := ParseSymbol(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// String returns the canonical "BASE-QUOTE" form.
func (s Symbol) String() string {
	return s.Base + "-" + s.Quote
}
