package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Row statuses.
const (
	StatusDetected  = "detected"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStuck     = "stuck"
	StatusSkipped   = "skipped"
)

// OpportunityRow is one detected opportunity and, once executed, its trade.
type OpportunityRow struct {
	Time          string
	Symbol        string
	Direction     string
	ProfitPercent decimal.Decimal
	Profit        decimal.Decimal // realized, completed trades only
	Status        string
}

// OpportunitiesComponent renders the opportunities list.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: 10,
	}
}

// Add adds a new opportunity to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Resolve sets the status of the newest detected row for symbol and
// direction. It reports whether a row matched.
func (o *OpportunitiesComponent) Resolve(symbol, direction, status string, profit decimal.Decimal) bool {
	for i := range o.rows {
		r := &o.rows[i]
		if r.Symbol == symbol && r.Direction == direction && r.Status == StatusDetected {
			r.Status = status
			r.Profit = profit
			return true
		}
	}
	return false
}

// Rows returns the rows, newest first.
func (o *OpportunitiesComponent) Rows() []OpportunityRow {
	return o.rows
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	if len(o.rows) == 0 {
		return headerStyle.Render("OPPORTUNITIES") + "\n\n" + dimStyle.Render("  No opportunities detected yet...")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-8s  %-8s  %-6s  %8s  %9s  %s\n", "Time", "Symbol", "Dir", "Profit%", "Realized", "Status"))
	sb.WriteString(dimStyle.Render("  " + strings.Repeat("─", 58)))
	sb.WriteString("\n")

	end := min(o.offset+o.visible, len(o.rows))
	for _, row := range o.rows[o.offset:end] {
		realized := "-"
		if row.Status == StatusCompleted {
			realized = row.Profit.StringFixed(4)
		}
		sb.WriteString(fmt.Sprintf("  %-8s  %-8s  %-6s  %8s  %9s  %s\n",
			row.Time,
			row.Symbol,
			row.Direction,
			fmt.Sprintf("%.3f", row.ProfitPercent.Mul(hundred).InexactFloat64()),
			realized,
			statusStyle(row.Status).Render(row.Status),
		))
	}
	if len(o.rows) > o.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d (↑↓)", o.offset+1, end, len(o.rows))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case StatusCompleted:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	case StatusStuck:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	case StatusFailed, StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	}
}
