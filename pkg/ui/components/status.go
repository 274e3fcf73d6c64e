package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// VenueStatus is one venue's transport health.
type VenueStatus struct {
	Name       string
	Healthy    bool
	Detail     string // e.g. breaker state
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders venue health.
type StatusComponent struct {
	venues []VenueStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{venues: make([]VenueStatus, 0)}
}

// Update updates a venue's status, keeping first-seen order.
func (s *StatusComponent) Update(status VenueStatus) {
	for i, v := range s.venues {
		if v.Name == status.Name {
			s.venues[i] = status
			return
		}
	}
	s.venues = append(s.venues, status)
}

// Get returns the status for name.
func (s *StatusComponent) Get(name string) (VenueStatus, bool) {
	for _, v := range s.venues {
		if v.Name == name {
			return v, true
		}
	}
	return VenueStatus{}, false
}

// View renders one status item per venue.
func (s *StatusComponent) View() string {
	if len(s.venues) == 0 {
		return ""
	}

	up := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	down := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	parts := make([]string, 0, len(s.venues))
	for _, v := range s.venues {
		label := v.Name
		if v.Latency > 0 {
			label += " (" + v.Latency.Round(time.Millisecond).String() + ")"
		}
		if v.Healthy {
			parts = append(parts, up.Render("● "+label))
			continue
		}
		if v.Detail != "" {
			label += " " + v.Detail
		}
		parts = append(parts, down.Render("○ "+label))
	}
	return strings.Join(parts, "  │  ")
}
