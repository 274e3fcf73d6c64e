// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// VenueQuote is one venue's top of book.
type VenueQuote struct {
	Venue string
	Bid   decimal.Decimal
	Ask   decimal.Decimal
}

// DirectionQuote is one fee-adjusted direction, pre-computed by the detector.
type DirectionQuote struct {
	Label         string // e.g. BN→BP
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	ProfitPercent decimal.Decimal // fraction
	Qualifies     bool
}

// SymbolQuotes is the latest view of one symbol.
type SymbolQuotes struct {
	Symbol     string
	Venues     []VenueQuote
	Directions []DirectionQuote
}

// QuotesComponent renders the per-symbol quote table.
type QuotesComponent struct {
	order   []string
	symbols map[string]SymbolQuotes
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{symbols: make(map[string]SymbolQuotes)}
}

// Update replaces the row for q.Symbol. Symbols keep first-seen order.
func (c *QuotesComponent) Update(q SymbolQuotes) {
	if _, ok := c.symbols[q.Symbol]; !ok {
		c.order = append(c.order, q.Symbol)
	}
	c.symbols[q.Symbol] = q
}

// Len returns how many symbols have been seen.
func (c *QuotesComponent) Len() int {
	return len(c.order)
}

var hundred = decimal.NewFromInt(100)

// View renders the quotes component.
func (c *QuotesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(c.order) == 0 {
		return headerStyle.Render("QUOTES") + "\n\n" + dimStyle.Render("  Waiting for quotes...")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("QUOTES"))
	sb.WriteString("\n\n")

	for _, sym := range c.order {
		q := c.symbols[sym]
		sb.WriteString(fmt.Sprintf("  %s\n", lipgloss.NewStyle().Bold(true).Render(sym)))

		for _, v := range q.Venues {
			sb.WriteString(fmt.Sprintf("    %-9s bid %14s  ask %14s\n",
				v.Venue, v.Bid.StringFixed(2), v.Ask.StringFixed(2)))
		}
		for _, d := range q.Directions {
			style := negativeStyle
			mark := "✗"
			if d.Qualifies {
				style = positiveStyle
				mark = "✓"
			}
			sb.WriteString(fmt.Sprintf("    %s %-6s %s → %s  %s\n",
				style.Render(mark),
				d.Label,
				dimStyle.Render(d.BuyPrice.StringFixed(2)),
				dimStyle.Render(d.SellPrice.StringFixed(2)),
				style.Render(fmt.Sprintf("%+.3f%%", d.ProfitPercent.Mul(hundred).InexactFloat64())),
			))
		}
		sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 50)))
		sb.WriteString("\n")
	}
	return sb.String()
}
