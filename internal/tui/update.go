package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/rollcall/internal/events"
)

const (
	// maxEventLines is the maximum number of event lines to keep in the buffer.
	maxEventLines = 1000
	// trimEventLines is the number of lines to remove when buffer exceeds max.
	trimEventLines = 100
	// tickInterval is the interval for periodic stats sync.
	tickInterval = 2 * time.Second
)

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// tickMsg signals a periodic tick for stats synchronization.
type tickMsg time.Time

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// doTick creates a command that waits for the tick interval and sends a tickMsg.
func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		// Event channel closed - clean exit
		slog.Info("event channel closed, exiting TUI")
		return m, tea.Quit

	case tickMsg:
		m.handleTick()
		return m, doTick()

	case spinner.TickMsg:
		// Keep the spinner ticking even while idle; visibility is
		// decided at render time.
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if m.cb.onQuit != nil {
			m.cb.onQuit()
		}
		return m, tea.Quit
	}

	// A pending question takes over the keyboard: only y/n (and the
	// emergency stop) do anything.
	if m.confirmActive() {
		switch key {
		case "y", "Y":
			if m.cb.onConfirm != nil {
				m.cb.onConfirm(true)
			}
			m.pendingPrompt = ""
			return m, nil
		case "n", "N":
			if m.cb.onConfirm != nil {
				m.cb.onConfirm(false)
			}
			m.pendingPrompt = ""
			return m, nil
		case "s":
			if m.cb.onStop != nil {
				m.cb.onStop()
			}
			m.status = "stopping"
			return m, nil
		default:
			return m, nil
		}
	}

	switch key {
	case "q":
		if m.cb.onQuit != nil {
			m.cb.onQuit()
		}
		return m, tea.Quit

	case "p":
		if m.status != "running" && m.status != "preparing" {
			return m, nil
		}
		if m.cb.onPause != nil {
			m.cb.onPause()
		}
		m.status = "pausing..."
		return m, nil

	case "r":
		if m.status != "paused" {
			return m, nil
		}
		if m.cb.onResume != nil {
			m.cb.onResume()
		}
		m.status = "resuming..."
		return m, nil

	case "s":
		if m.cb.onStop != nil {
			m.cb.onStop()
		}
		m.status = "stopping"
		return m, nil

	case "up", "k":
		m.autoScroll = false
		if m.scrollPos > 0 {
			m.scrollPos--
		}
		return m, nil

	case "down", "j":
		maxScroll := len(m.eventLines) - m.visibleLines()
		if m.scrollPos < maxScroll {
			m.scrollPos++
		}
		if m.scrollPos >= maxScroll {
			m.autoScroll = true
		}
		return m, nil

	case "home", "g":
		m.autoScroll = false
		m.scrollPos = 0
		return m, nil

	case "end", "G":
		m.autoScroll = true
		m.scrollPos = max(0, len(m.eventLines)-m.visibleLines())
		return m, nil

	default:
		return m, nil
	}
}

// handleEvent processes an event and updates model state.
func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case *events.RunStartEvent:
		m.status = "running"
		m.stats.SessionID = e.SessionID
		m.stats.Total = e.ItemCount

	case *events.RunStateChangedEvent:
		m.status = e.To

	case *events.ItemStartEvent:
		m.currentStudent = &studentInfo{
			ID:        e.ItemID,
			Name:      e.Name,
			Index:     e.Index,
			Total:     e.Total,
			StartTime: event.Timestamp(),
		}

	case *events.ItemEndEvent:
		m.currentStudent = nil
		if e.Success {
			m.stats.Graded++
		} else {
			m.stats.Skipped++
		}

	case *events.ConfirmRequestEvent:
		m.pendingPrompt = e.Prompt

	case *events.ConfirmResolvedEvent:
		// Resolved elsewhere (emergency stop, or a second TUI answer
		// path); clear the bar either way.
		m.pendingPrompt = ""

	case *events.RunCompleteEvent:
		m.currentStudent = nil
		if e.Stopped {
			m.status = "stopped"
		} else {
			m.status = "completed"
		}
	}

	// Add to event log with formatting
	text := Format(event)
	if text != "" {
		el := eventLine{
			Time:  event.Timestamp(),
			Text:  text,
			Style: StyleForEvent(event),
		}
		m.eventLines = append(m.eventLines, el)

		// Trim buffer if over max lines
		if len(m.eventLines) > maxEventLines {
			m.eventLines = m.eventLines[trimEventLines:]
			// Adjust scroll position after trimming
			m.scrollPos = max(0, m.scrollPos-trimEventLines)
		}

		// Auto-scroll to bottom if enabled
		if m.autoScroll {
			maxScroll := len(m.eventLines) - m.visibleLines()
			if maxScroll > 0 {
				m.scrollPos = maxScroll
			}
		}
	}
}

// handleTick syncs display stats from the orchestrator. Events are the
// primary source; the tick catches drift after dropped events.
func (m *model) handleTick() {
	if m.statsGetter == nil {
		return
	}

	graded := m.statsGetter.Graded()
	skipped := m.statsGetter.Skipped()

	if graded != m.stats.Graded {
		slog.Warn("stats drift detected",
			"field", "graded",
			"tui", m.stats.Graded,
			"orchestrator", graded)
		m.stats.Graded = graded
	}
	if skipped != m.stats.Skipped {
		slog.Warn("stats drift detected",
			"field", "skipped",
			"tui", m.stats.Skipped,
			"orchestrator", skipped)
		m.stats.Skipped = skipped
	}

	current := m.statsGetter.CurrentItem()
	if current == "" && m.currentStudent != nil {
		slog.Warn("current student drift detected",
			"tui", m.currentStudent.ID,
			"orchestrator", "none")
		m.currentStudent = nil
	}
}
