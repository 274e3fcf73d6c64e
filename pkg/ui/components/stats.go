package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds statistics for display.
type Stats struct {
	Checks        int64
	Opportunities int64
	Completed     int64
	Failed        int64
	Stuck         int64
	Errors        int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	hitRate := float64(0)
	if s.stats.Opportunities > 0 {
		hitRate = float64(s.stats.Completed) / float64(s.stats.Opportunities) * 100
	}

	count := func(n int64, alarm bool) string {
		if alarm && n > 0 {
			return errorStyle.Render(fmt.Sprintf("%d", n))
		}
		return valueStyle.Render(fmt.Sprintf("%d", n))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Checks: %s  │  Opportunities: %s  │  Completed: %s (%.1f%%)\n",
			count(s.stats.Checks, false),
			count(s.stats.Opportunities, false),
			count(s.stats.Completed, false),
			hitRate,
		) +
		fmt.Sprintf("Failed: %s  │  Stuck: %s  │  Errors: %s",
			count(s.stats.Failed, true),
			count(s.stats.Stuck, true),
			count(s.stats.Errors, true),
		)
}
