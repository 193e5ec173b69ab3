// Package tui provides the terminal user interface for the openswarm
// status watch view.
//
// The view is read-only: it polls a snapshot function on an interval and
// renders swarm progress, session state, and optimizer metrics. Users can
// only quit with 'q' or Ctrl+C.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yte121/openswarm/internal/optimizer"
	"github.com/yte121/openswarm/internal/session"
	"github.com/yte121/openswarm/internal/store"
)

// Snapshot carries everything the watch view renders in one frame.
type Snapshot struct {
	SwarmName     string
	SessionID     string
	SessionStatus store.SessionStatus
	Stats         session.Stats
	Metrics       optimizer.Metrics
}

// FetchFunc produces the next snapshot. It is called on every poll tick,
// off the UI goroutine.
type FetchFunc func() (Snapshot, error)

// SnapshotMsg delivers a freshly fetched snapshot to the view.
type SnapshotMsg struct {
	Snapshot Snapshot
	Err      error
}

type tickMsg time.Time

// StatusApp is the bubbletea model for `openswarm status --watch`.
type StatusApp struct {
	fetch    FetchFunc
	interval time.Duration

	snap    Snapshot
	err     error
	loaded  bool
	width   int
	spinner spinner.Model

	quitting bool

	titleStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	valueStyle   lipgloss.Style
	activeStyle  lipgloss.Style
	pausedStyle  lipgloss.Style
	stoppedStyle lipgloss.Style
	barFull      lipgloss.Style
	barEmpty     lipgloss.Style
	sectionStyle lipgloss.Style
	footerStyle  lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewStatusApp creates the watch model. interval controls the poll cadence
// and defaults to one second.
func NewStatusApp(fetch FetchFunc, interval time.Duration) *StatusApp {
	if interval <= 0 {
		interval = time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &StatusApp{
		fetch:    fetch,
		interval: interval,
		width:    80,
		spinner:  sp,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		activeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		pausedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		stoppedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		barFull:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		barEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		sectionStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginTop(1),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginTop(1),

		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Init implements tea.Model.
func (a *StatusApp) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.fetchCmd())
}

// Update implements tea.Model.
func (a *StatusApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case SnapshotMsg:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.snap = msg.Snapshot
			a.err = nil
			a.loaded = true
		}
		return a, a.scheduleTick()

	case tickMsg:
		return a, a.fetchCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// View implements tea.Model.
func (a *StatusApp) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	title := "openswarm"
	if a.snap.SwarmName != "" {
		title = "openswarm: " + a.snap.SwarmName
	}
	b.WriteString(a.titleStyle.Render(title))
	b.WriteString("\n")

	if a.err != nil {
		b.WriteString(a.errorStyle.Render("error: " + a.err.Error()))
		b.WriteString("\n")
		b.WriteString(a.footerStyle.Render("q to quit"))
		return b.String()
	}

	if !a.loaded {
		b.WriteString(a.spinner.View())
		b.WriteString(" loading swarm state...")
		b.WriteString("\n")
		b.WriteString(a.footerStyle.Render("q to quit"))
		return b.String()
	}

	b.WriteString(a.renderSwarm())
	b.WriteString(a.renderOptimizer())
	b.WriteString(a.footerStyle.Render("q to quit"))
	return b.String()
}

// renderSwarm renders the session and task progress block.
func (a *StatusApp) renderSwarm() string {
	var b strings.Builder
	stats := a.snap.Stats

	b.WriteString(a.renderRow("Session:", a.valueStyle.Render(shortID(a.snap.SessionID))))
	b.WriteString("\n")
	b.WriteString(a.renderRow("Status:", a.statusStyle(a.snap.SessionStatus).Render(string(a.snap.SessionStatus))))
	b.WriteString("\n")

	agentStr := fmt.Sprintf("%d active / %d total", stats.ActiveAgents, stats.TotalAgents)
	b.WriteString(a.renderRow("Agents:", a.valueStyle.Render(agentStr)))
	b.WriteString("\n")

	taskStr := fmt.Sprintf("%d done, %d running, %d pending, %d failed",
		stats.Tasks.Completed, stats.Tasks.InProgress, stats.Tasks.Pending, stats.Tasks.Failed)
	b.WriteString(a.renderRow("Tasks:", a.valueStyle.Render(taskStr)))
	b.WriteString("\n")

	b.WriteString(a.renderRow("Progress:", fmt.Sprintf("%.1f%%", stats.CompletionPercent)))
	b.WriteString("\n")
	b.WriteString(a.renderProgressBar(stats.CompletionPercent, 30))
	b.WriteString("\n")

	b.WriteString(a.renderRow("Memory:", a.valueStyle.Render(fmt.Sprintf("%d entries", stats.MemoryEntries))))
	b.WriteString("\n")
	b.WriteString(a.renderRow("Decisions:", a.valueStyle.Render(fmt.Sprintf("%d", stats.Decisions))))
	b.WriteString("\n")
	return b.String()
}

// renderOptimizer renders queue, batch, and cache metrics.
func (a *StatusApp) renderOptimizer() string {
	var b strings.Builder
	m := a.snap.Metrics

	b.WriteString(a.sectionStyle.Render("Optimizer"))
	b.WriteString("\n")

	queueStr := fmt.Sprintf("%d running / %d queued (cap %d)",
		m.Queue.Running, m.Queue.Queued, m.Queue.MaxConcurrency)
	b.WriteString(a.renderRow("Queue:", a.valueStyle.Render(queueStr)))
	b.WriteString("\n")

	b.WriteString(a.renderRow("Utilization:", fmt.Sprintf("%.0f%%", m.Queue.Utilization*100)))
	b.WriteString("\n")
	b.WriteString(a.renderProgressBar(m.Queue.Utilization*100, 30))
	b.WriteString("\n")

	opsStr := fmt.Sprintf("%d ok / %d failed, avg %.0fms",
		m.Queue.Processed, m.Queue.Failed, m.Queue.AvgProcessingMs)
	b.WriteString(a.renderRow("Operations:", a.valueStyle.Render(opsStr)))
	b.WriteString("\n")

	batchStr := fmt.Sprintf("%d flushed, avg size %.1f",
		m.Batch.BatchesProcessed, m.Batch.AvgBatchSize)
	b.WriteString(a.renderRow("Batches:", a.valueStyle.Render(batchStr)))
	b.WriteString("\n")

	cacheStr := fmt.Sprintf("%d entries, %d hits / %d misses",
		m.Cache.Size, m.Cache.Hits, m.Cache.Misses)
	b.WriteString(a.renderRow("Cache:", a.valueStyle.Render(cacheStr)))
	b.WriteString("\n")
	return b.String()
}

// renderRow renders a label-value pair.
func (a *StatusApp) renderRow(label, value string) string {
	return a.labelStyle.Render(label) + " " + value
}

// renderProgressBar renders a fixed-width progress bar.
func (a *StatusApp) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := a.barFull.Render(strings.Repeat("█", filled)) +
		a.barEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  [%s]", bar)
}

// statusStyle picks the style for a session status.
func (a *StatusApp) statusStyle(status store.SessionStatus) lipgloss.Style {
	switch status {
	case store.SessionActive:
		return a.activeStyle
	case store.SessionPaused:
		return a.pausedStyle
	default:
		return a.stoppedStyle
	}
}

// fetchCmd fetches a snapshot off the UI goroutine.
func (a *StatusApp) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.fetch()
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

// scheduleTick arms the next poll.
func (a *StatusApp) scheduleTick() tea.Cmd {
	return tea.Tick(a.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// shortID truncates an ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Run starts the watch view and blocks until the user quits.
func Run(fetch FetchFunc, interval time.Duration) error {
	p := tea.NewProgram(NewStatusApp(fetch, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
