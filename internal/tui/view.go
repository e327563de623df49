package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth  = 60
	minHeight = 15
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Handle too small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	// Build the view
	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderEvents())
	sections = append(sections, m.renderDivider())
	sections = append(sections, m.renderFooter())

	content := strings.Join(sections, "\n")

	// Render content in container without setting Height
	// Height() can cause clipping issues; let content determine size
	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(content)

	// Place container at top-left of terminal
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderTooSmall renders a minimal message for terminals that are too small.
func (m model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
	return msg
}

// renderHeader renders the status header with state, session, student, and stats.
func (m model) renderHeader() string {
	w := safeWidth(m.width - 4) // Account for container borders

	// Line 1: Status and session
	status := m.renderStatus()
	var session string
	if m.stats.SessionID != 0 {
		session = styles.Meta.Render(fmt.Sprintf("session %d", m.stats.SessionID))
	} else {
		session = styles.Meta.Render("no session")
	}

	statusLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		status,
		strings.Repeat(" ", max(1, w-lipgloss.Width(status)-lipgloss.Width(session))),
		session,
	)

	// Line 2: Current student (or idle message)
	var studentLine string
	if m.currentStudent != nil {
		studentText := fmt.Sprintf("student: %s (%d/%d)",
			m.currentStudent.Name, m.currentStudent.Index, m.currentStudent.Total)
		if len(studentText) > w {
			studentText = studentText[:w-3] + "..."
		}
		studentLine = styles.Student.Render(studentText)
	} else {
		studentLine = styles.Student.Render("no active student")
	}

	// Line 3: Progress stats
	statsText := fmt.Sprintf("graded: %d  skipped: %d  total: %d",
		m.stats.Graded, m.stats.Skipped, m.stats.Total)
	statsLine := styles.Meta.Render(statsText)

	return strings.Join([]string{statusLine, studentLine, statsLine}, "\n")
}

// renderStatus renders the status indicator with appropriate styling.
func (m model) renderStatus() string {
	status := strings.ToUpper(m.status)
	var style lipgloss.Style

	switch m.status {
	case "idle":
		style = styles.StatusIdle
	case "running", "preparing", "resuming...":
		style = styles.StatusRunning
	case "paused", "pausing...":
		style = styles.StatusPaused
	case "stopping", "stopped":
		style = styles.StatusStopped
	default:
		style = styles.StatusIdle
	}

	if m.spinnerVisible() {
		return m.spin.View() + " " + style.Render(status)
	}
	return style.Render(status)
}

// renderDivider renders a horizontal divider line.
func (m model) renderDivider() string {
	w := safeWidth(m.width - 4) // Account for container borders
	return styles.Divider.Render(strings.Repeat("─", w))
}

// renderEvents renders the scrollable event feed.
func (m model) renderEvents() string {
	visible := m.visibleLines()
	w := safeWidth(m.width - 4) // Account for container borders

	if len(m.eventLines) == 0 {
		// Center a placeholder message
		placeholder := "Waiting for events..."
		padding := strings.Repeat("\n", visible/2)
		return padding + lipgloss.PlaceHorizontal(w, lipgloss.Center, placeholder)
	}

	// Calculate scroll bounds
	scrollPos := safeScroll(m.scrollPos, len(m.eventLines), visible)

	// Get visible slice of events
	endPos := min(scrollPos+visible, len(m.eventLines))
	visibleEvents := m.eventLines[scrollPos:endPos]

	// Render each event line
	var lines []string
	for _, el := range visibleEvents {
		line := m.renderEventLine(el, w)
		lines = append(lines, line)
	}

	// Pad with empty lines if needed
	for len(lines) < visible {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// renderEventLine renders a single event with timestamp and styling.
func (m model) renderEventLine(el eventLine, maxWidth int) string {
	// Format timestamp as HH:MM:SS
	timestamp := el.Time.Format("15:04:05")
	prefix := timestamp + " "

	// Calculate available width for text
	textWidth := maxWidth - len(prefix)
	if textWidth < 10 {
		textWidth = 10
	}

	// Truncate text if needed
	text := el.Text
	if len(text) > textWidth {
		text = text[:textWidth-3] + "..."
	}

	// Apply style and combine
	styledText := el.Style.Render(text)
	return styles.Meta.Render(prefix) + styledText
}

// renderFooter renders the confirmation bar when a question is pending,
// otherwise keyboard shortcuts help text.
func (m model) renderFooter() string {
	if m.confirmActive() {
		w := safeWidth(m.width - 4)
		bar := fmt.Sprintf("%s  [y: yes  n: no]", m.pendingPrompt)
		if len(bar) > w {
			bar = bar[:w-3] + "..."
		}
		return styles.Confirm.Render(bar)
	}

	var help string
	switch m.status {
	case "paused", "pausing...":
		help = "r: resume  s: stop  q: quit  ↑/↓: scroll  g/G: top/bottom"
	case "stopped", "completed":
		help = "q: quit  ↑/↓: scroll  g/G: top/bottom"
	default:
		help = "p: pause  s: stop  q: quit  ↑/↓: scroll  g/G: top/bottom"
	}
	return styles.Footer.Render(help)
}

// safeWidth returns a width that is at least 1 to prevent negative values.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}

// safeScroll clamps scroll position to valid bounds.
func safeScroll(pos, totalLines, visibleLines int) int {
	if pos < 0 {
		return 0
	}
	maxScroll := totalLines - visibleLines
	if maxScroll < 0 {
		return 0
	}
	if pos > maxScroll {
		return maxScroll
	}
	return pos
}
