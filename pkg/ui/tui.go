package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/brl-arbitrage-bot/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "bitpreco", "binance", "scheduler"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	quotes        *components.QuotesComponent
	opportunities *components.OpportunitiesComponent
	balances      *components.BalancesComponent
	stats         *components.StatsComponent
	venues        *components.StatusComponent

	keys KeyMap
	help help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready          bool
	quitting       bool
	tradingEnabled bool
	width          int
	height         int
	lastUpdate     time.Time
	errors         []ErrorEntry // Persistent error panel (last 3)
	activityFeed   []string     // Recent activity messages
	lastCheckTime  time.Time

	// Startup state
	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		quotes:         components.NewQuotesComponent(),
		opportunities:  components.NewOpportunitiesComponent(50), // Store more for scrolling
		balances:       components.NewBalancesComponent(),
		stats:          components.NewStatsComponent(),
		venues:         components.NewStatusComponent(),
		keys:           DefaultKeyMap(),
		help:           newHelp(),
		phase:          PhaseWelcome,
		welcomeStart:   now,
		tradingEnabled: true,
		errors:         make([]ErrorEntry, 0, 3),
		activityFeed:   make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"bitpreco":  {Name: "Checking BitPreço", Status: "pending"},
			"binance":   {Name: "Connecting to Binance", Status: "pending"},
			"scheduler": {Name: "Starting scheduler", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) enterStartup() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.enterStartup()
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.tradingEnabled = !m.tradingEnabled
			if OnToggleTrading != nil {
				go OnToggleTrading(m.tradingEnabled)
			}
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		// Check if welcome timeout has elapsed
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterStartup()
		}
		return m, tickCmd()

	case QuotesMsg:
		m.quotes.Update(msg.Quotes)
		for venue, latency := range msg.Latencies {
			st, _ := m.venues.Get(venue)
			st.Name = venue
			st.Latency = latency
			if st.LastUpdate.IsZero() {
				st.Healthy = true
			}
			st.LastUpdate = time.Now()
			m.venues.Update(st)
		}
		stats := m.stats.Stats()
		stats.Checks++
		m.stats.Update(stats)
		m.lastCheckTime = time.Now()
		m.lastUpdate = time.Now()
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}

	case OpportunityMsg:
		m.opportunities.Add(components.OpportunityRow{
			Time:          msg.DetectedAt.Format("15:04:05"),
			Symbol:        msg.Symbol,
			Direction:     msg.Direction,
			ProfitPercent: msg.ProfitPercent,
			Status:        components.StatusDetected,
		})
		stats := m.stats.Stats()
		stats.Opportunities++
		m.stats.Update(stats)
		m.activityFeed = addActivity(m.activityFeed,
			fmt.Sprintf("%s %s %+.3f%%", msg.Symbol, msg.Direction, msg.ProfitPercent.InexactFloat64()*100))
		m.lastUpdate = time.Now()

	case TradeMsg:
		status := tradeStatus(msg.State)
		m.opportunities.Resolve(msg.Symbol, msg.Direction, status, msg.Profit)
		stats := m.stats.Stats()
		switch status {
		case components.StatusCompleted:
			stats.Completed++
		case components.StatusFailed:
			stats.Failed++
		case components.StatusStuck:
			stats.Stuck++
		}
		m.stats.Update(stats)
		line := fmt.Sprintf("trade %s %s %s", shortID(msg.ID), msg.Symbol, status)
		if status == components.StatusCompleted {
			line += " profit " + msg.Profit.StringFixed(4)
		}
		m.activityFeed = addActivity(m.activityFeed, line)
		m.lastUpdate = time.Now()

	case BalancesMsg:
		m.balances.Update(msg.Balances, msg.PnL, msg.Stuck)
		m.lastUpdate = time.Now()

	case VenueStatusMsg:
		msg.Status.LastUpdate = time.Now()
		m.venues.Update(msg.Status)

	case TradingStateMsg:
		m.tradingEnabled = msg.Enabled

	case ErrorMsg:
		stats := m.stats.Stats()
		stats.Errors++
		m.stats.Update(stats)
		// Add to persistent errors (keep last 3)
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.activityFeed = addActivity(m.activityFeed, msg.Level+": "+msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		// Check if all steps are complete
		allDone := true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				allDone = false
				break
			}
		}
		if allDone {
			m.startupComplete = true
			if m.phase == PhaseStartup {
				m.phase = PhaseDashboard
			}
		}
	}

	return m, nil
}

// tradeStatus maps a trade state onto a row status. Idle means the engine
// refused the trade before any leg ran.
func tradeStatus(state string) string {
	switch state {
	case "completed":
		return components.StatusCompleted
	case "failed":
		return components.StatusFailed
	case "stuck":
		return components.StatusStuck
	default:
		return components.StatusSkipped
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	// Title
	b.WriteString(TitleStyle.Render(" BRL Arbitrage Bot "))
	b.WriteString("\n\n")

	// Status bar
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Quotes on the left; activity, opportunities and balances on the right
	leftCol := m.quotes.View()

	var rightContent strings.Builder
	rightContent.WriteString(m.renderActivityFeed())
	rightContent.WriteString("\n\n")
	rightContent.WriteString(m.opportunities.View())
	rightContent.WriteString("\n")
	rightContent.WriteString(m.balances.View())
	rightCol := rightContent.String()

	// Side by side if enough width
	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}

	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if !m.tradingEnabled {
		pauseStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
		b.WriteString(pauseStyle.Render("⏸ TRADING PAUSED (detection only)"))
		b.WriteString(" • ")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderActivityFeed renders the recent activity feed.
func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	tradeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(MutedValue.Render("  Waiting for opportunities..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "trade ") {
			sb.WriteString(tradeStyle.Render("  " + activity))
		} else {
			sb.WriteString(MutedValue.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
	greenStyle := lipgloss.NewStyle().Foreground(ColorSecondary)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
   ██████╗ ██████╗ ██╗          █████╗ ██████╗ ██████╗
   ██╔══██╗██╔══██╗██║         ██╔══██╗██╔══██╗██╔══██╗
   ██████╔╝██████╔╝██║         ███████║██████╔╝██████╔╝
   ██╔══██╗██╔══██╗██║         ██╔══██║██╔══██╗██╔══██╗
   ██████╔╝██║  ██║███████╗    ██║  ██║██║  ██║██████╔╝
   ╚═════╝ ╚═╝  ╚═╝╚══════╝    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedValue.Render("            B I T P R E C O   ⇄   B I N A N C E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("              buy low on one, sell high on the other"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  BRL Arbitrage Bot"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon, statusText, style = spinners[idx], "Connecting...", connectingStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", failedStyle
		default:
			icon, statusText, style = "○", "Pending", MutedValue
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedValue.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedValue.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("  Waiting for the first quotes..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	// Checking indicator (animated when recently checked)
	if time.Since(m.lastCheckTime) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		scanningStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
		parts = append(parts, scanningStyle.Render(spinners[idx]+" Checking"))
	}

	if m.tradingEnabled {
		parts = append(parts, StatusConnected.Render("Trading ON"))
	} else {
		parts = append(parts, StatusReconnecting.Render("Trading PAUSED"))
	}

	if v := m.venues.View(); v != "" {
		parts = append(parts, v)
	}

	// Last update with activity indicator
	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// OnToggleTrading is called when the operator pauses or resumes trading.
var OnToggleTrading func(enabled bool)

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
