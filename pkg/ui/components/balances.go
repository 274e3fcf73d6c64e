package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Balance is one venue/asset balance.
type Balance struct {
	Venue  string
	Asset  string
	Amount decimal.Decimal
}

// StuckRow is one position waiting for an operator.
type StuckRow struct {
	Venue    string
	HeldOn   string
	Asset    string
	TradeID  string
	Quantity decimal.Decimal
	Since    time.Time
}

// BalancesComponent renders the ledger and stuck positions.
type BalancesComponent struct {
	balances []Balance
	pnl      decimal.Decimal
	stuck    []StuckRow
}

// NewBalancesComponent creates a new balances component.
func NewBalancesComponent() *BalancesComponent {
	return &BalancesComponent{}
}

// Update replaces the displayed ledger.
func (b *BalancesComponent) Update(balances []Balance, pnl decimal.Decimal, stuck []StuckRow) {
	b.balances = balances
	b.pnl = pnl
	b.stuck = stuck
}

// View renders the balances component.
func (b *BalancesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("BALANCES"))
	sb.WriteString("\n\n")

	if len(b.balances) == 0 {
		sb.WriteString(dimStyle.Render("  No trades yet"))
		sb.WriteString("\n")
	}
	venue := ""
	for _, bal := range b.balances {
		if bal.Venue != venue {
			venue = bal.Venue
			sb.WriteString(fmt.Sprintf("  %s\n", lipgloss.NewStyle().Bold(true).Render(venue)))
		}
		sb.WriteString(fmt.Sprintf("    %-5s %18s\n", bal.Asset, bal.Amount.StringFixed(8)))
	}

	pnlStyle := positiveStyle
	if b.pnl.IsNegative() {
		pnlStyle = negativeStyle
	}
	sb.WriteString("\n  PnL ")
	sb.WriteString(pnlStyle.Render(b.pnl.StringFixed(4)))
	sb.WriteString("\n")

	if len(b.stuck) > 0 {
		sb.WriteString("\n")
		sb.WriteString(negativeStyle.Render(fmt.Sprintf("STUCK (%d)", len(b.stuck))))
		sb.WriteString("\n")
		for _, s := range b.stuck {
			sb.WriteString(fmt.Sprintf("  %s:%s %s held on %s %s\n",
				s.Venue, s.Asset, s.Quantity.StringFixed(8), s.HeldOn,
				dimStyle.Render(fmt.Sprintf("(%s ago)", time.Since(s.Since).Round(time.Second)))))
		}
		sb.WriteString(dimStyle.Render("  clear with DELETE /stuck?venue=&asset="))
		sb.WriteString("\n")
	}
	return sb.String()
}
