package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/rollcall/internal/events"
)

// studentInfo holds information about the student being graded.
type studentInfo struct {
	ID        string
	Name      string
	Index     int
	Total     int
	StartTime time.Time
}

// modelStats holds display statistics.
type modelStats struct {
	Graded    int
	Skipped   int
	Total     int
	SessionID int64
}

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// callbacks bundles the run-control hooks wired in from the CLI.
type callbacks struct {
	onPause   func()
	onResume  func()
	onStop    func()
	onQuit    func()
	onConfirm func(accepted bool)
}

// model is the bubbletea model for the TUI.
type model struct {
	// Event source
	eventChan <-chan events.Event

	// State
	status         string
	currentStudent *studentInfo
	stats          modelStats

	// Pending yes/no question. While set, 'y' and 'n' answer it and
	// most other keys are ignored.
	pendingPrompt string

	// Event log
	eventLines []eventLine

	// UI state
	width      int
	height     int
	scrollPos  int
	autoScroll bool

	spin spinner.Model

	cb          callbacks
	statsGetter StatsGetter
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// newModel creates a new model with the given configuration.
func newModel(eventChan <-chan events.Event, cb callbacks, statsGetter StatsGetter) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		eventChan:   eventChan,
		status:      "idle",
		autoScroll:  true,
		spin:        sp,
		cb:          cb,
		statsGetter: statsGetter,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.eventChan),
		doTick(),
		m.spin.Tick,
		tea.EnterAltScreen,
	)
}

// Update, handleKey, handleEvent, handleTick are implemented in update.go
// View is implemented in view.go

// visibleLines returns the number of event lines that fit in the viewport.
func (m model) visibleLines() int {
	// Height minus: border (2), header (3), dividers (2), footer (1) = 8
	return max(1, m.height-8)
}

// confirmActive reports whether a question is waiting for the operator.
func (m model) confirmActive() bool {
	return m.pendingPrompt != ""
}

// spinnerVisible reports whether the header spinner should be shown.
func (m model) spinnerVisible() bool {
	switch m.status {
	case "preparing", "running", "pausing...", "resuming...", "stopping":
		return true
	}
	return false
}
