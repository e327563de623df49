package tui

import (
	"strings"
	"testing"
	"time"
)

func TestSafeWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"positive", 100, 100},
		{"zero", 0, 1},
		{"negative", -10, 1},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeWidth(tt.input)
			if result != tt.expected {
				t.Errorf("safeWidth(%d) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSafeScroll(t *testing.T) {
	tests := []struct {
		name         string
		pos          int
		totalLines   int
		visibleLines int
		expected     int
	}{
		{"normal position", 5, 20, 10, 5},
		{"negative position", -5, 20, 10, 0},
		{"at max", 10, 20, 10, 10},
		{"past max", 15, 20, 10, 10},
		{"more visible than total", 5, 5, 10, 0},
		{"zero total", 0, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := safeScroll(tt.pos, tt.totalLines, tt.visibleLines)
			if result != tt.expected {
				t.Errorf("safeScroll(%d, %d, %d) = %d, want %d",
					tt.pos, tt.totalLines, tt.visibleLines, result, tt.expected)
			}
		})
	}
}

func TestVisibleLines(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		expected int
	}{
		{"normal height", 20, 12}, // 20 - 8 = 12
		{"minimum height", 15, 7}, // 15 - 8 = 7
		{"small height", 9, 1},    // max(1, 9-8) = 1
		{"zero height", 0, 1},     // max(1, 0-8) = 1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model{height: tt.height}
			result := m.visibleLines()
			if result != tt.expected {
				t.Errorf("visibleLines() with height %d = %d, want %d",
					tt.height, result, tt.expected)
			}
		})
	}
}

func TestViewTooSmall(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		height      int
		shouldBeToo bool
	}{
		{"too narrow", 50, 20, true},
		{"too short", 80, 10, true},
		{"minimum size", 60, 15, false},
		{"larger", 100, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model{width: tt.width, height: tt.height, status: "idle"}
			result := m.View()

			hasTooSmall := strings.Contains(result, "Terminal too small")
			if hasTooSmall != tt.shouldBeToo {
				t.Errorf("View() with %dx%d: hasTooSmall=%v, want %v",
					tt.width, tt.height, hasTooSmall, tt.shouldBeToo)
			}
		})
	}
}

func TestViewLoading(t *testing.T) {
	m := model{width: 0, height: 0}
	result := m.View()

	if result != "Loading..." {
		t.Errorf("View() with zero dimensions = %q, want %q", result, "Loading...")
	}
}

func TestRenderHeader(t *testing.T) {
	t.Run("idle with no student", func(t *testing.T) {
		m := model{
			width:  80,
			height: 25,
			status: "idle",
			stats: modelStats{
				Graded:  5,
				Skipped: 2,
				Total:   14,
			},
		}

		result := m.renderHeader()

		if !strings.Contains(result, "IDLE") {
			t.Error("header should contain status IDLE")
		}
		if !strings.Contains(result, "no active student") {
			t.Error("header should show no active student")
		}
		if !strings.Contains(result, "graded: 5") {
			t.Error("header should show graded count")
		}
		if !strings.Contains(result, "skipped: 2") {
			t.Error("header should show skipped count")
		}
		if !strings.Contains(result, "total: 14") {
			t.Error("header should show total count")
		}
	})

	t.Run("running with student", func(t *testing.T) {
		m := model{
			width:  80,
			height: 25,
			status: "running",
			currentStudent: &studentInfo{
				ID:    "42",
				Name:  "alice",
				Index: 3,
				Total: 10,
			},
			stats: modelStats{SessionID: 7},
		}

		result := m.renderHeader()

		if !strings.Contains(result, "RUNNING") {
			t.Error("header should contain status RUNNING")
		}
		if !strings.Contains(result, "alice") {
			t.Error("header should contain student name")
		}
		if !strings.Contains(result, "(3/10)") {
			t.Error("header should contain progress")
		}
		if !strings.Contains(result, "session 7") {
			t.Error("header should contain session id")
		}
	})

	t.Run("paused status", func(t *testing.T) {
		m := model{
			width:  80,
			height: 25,
			status: "paused",
		}

		result := m.renderHeader()

		if !strings.Contains(result, "PAUSED") {
			t.Error("header should contain status PAUSED")
		}
	})
}

func TestRenderEvents(t *testing.T) {
	t.Run("no events", func(t *testing.T) {
		m := model{
			width:  80,
			height: 25,
		}

		result := m.renderEvents()

		if !strings.Contains(result, "Waiting for events") {
			t.Error("should show waiting message when no events")
		}
	})

	t.Run("with events", func(t *testing.T) {
		now := time.Now()
		m := model{
			width:  80,
			height: 25,
			eventLines: []eventLine{
				{Time: now, Text: "alice graded", Style: styles.Success},
				{Time: now, Text: "bob skipped", Style: styles.Warning},
			},
		}

		result := m.renderEvents()

		if !strings.Contains(result, "alice graded") {
			t.Error("should show first event")
		}
		if !strings.Contains(result, "bob skipped") {
			t.Error("should show second event")
		}
	})

	t.Run("scroll position", func(t *testing.T) {
		now := time.Now()
		eventLines := make([]eventLine, 30)
		for i := range eventLines {
			eventLines[i] = eventLine{
				Time:  now,
				Text:  "event " + string(rune('A'+i)),
				Style: styles.Info,
			}
		}

		m := model{
			width:      80,
			height:     15, // visibleLines = 7
			scrollPos:  10,
			eventLines: eventLines,
		}

		result := m.renderEvents()

		if !strings.Contains(result, "event K") { // index 10 = 'A' + 10 = 'K'
			t.Error("should show event at scroll position")
		}
	})
}

func TestRenderEventLine(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 30, 45, 0, time.UTC)

	t.Run("normal line", func(t *testing.T) {
		m := model{width: 80}
		el := eventLine{
			Time:  now,
			Text:  "alice graded with 5 points",
			Style: styles.Success,
		}

		result := m.renderEventLine(el, 60)

		if !strings.Contains(result, "14:30:45") {
			t.Error("should contain timestamp in HH:MM:SS format")
		}
		if !strings.Contains(result, "alice graded with 5 points") {
			t.Error("should contain event text")
		}
	})

	t.Run("truncated line", func(t *testing.T) {
		m := model{width: 80}
		el := eventLine{
			Time:  now,
			Text:  "this is a very long event message that should be truncated",
			Style: styles.Info,
		}

		result := m.renderEventLine(el, 30)

		if !strings.Contains(result, "...") {
			t.Error("long text should be truncated with ...")
		}
	})
}

func TestRenderFooter(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		shouldContain []string
		shouldNotHave []string
	}{
		{
			name:          "running",
			status:        "running",
			shouldContain: []string{"p: pause", "s: stop", "q: quit"},
		},
		{
			name:          "paused",
			status:        "paused",
			shouldContain: []string{"r: resume", "q: quit"},
			shouldNotHave: []string{"p: pause"},
		},
		{
			name:          "stopped",
			status:        "stopped",
			shouldContain: []string{"q: quit"},
			shouldNotHave: []string{"p: pause", "r: resume"},
		},
		{
			name:          "completed",
			status:        "completed",
			shouldContain: []string{"q: quit"},
			shouldNotHave: []string{"p: pause", "s: stop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model{width: 80, status: tt.status}
			result := m.renderFooter()

			for _, s := range tt.shouldContain {
				if !strings.Contains(result, s) {
					t.Errorf("footer for %s should contain %q, got: %s", tt.status, s, result)
				}
			}
			for _, s := range tt.shouldNotHave {
				if strings.Contains(result, s) {
					t.Errorf("footer for %s should not contain %q, got: %s", tt.status, s, result)
				}
			}
		})
	}
}

func TestRenderFooter_ConfirmBar(t *testing.T) {
	m := model{
		width:         80,
		status:        "running",
		pendingPrompt: "enter grades for hw3?",
	}

	result := m.renderFooter()

	if !strings.Contains(result, "enter grades for hw3?") {
		t.Errorf("footer should show pending prompt, got: %s", result)
	}
	if !strings.Contains(result, "y: yes") || !strings.Contains(result, "n: no") {
		t.Errorf("footer should show y/n hint, got: %s", result)
	}
	if strings.Contains(result, "p: pause") {
		t.Errorf("footer should hide normal help while question pending, got: %s", result)
	}
}

func TestView_ConfirmBarVisible(t *testing.T) {
	m := model{
		width:         80,
		height:        25,
		status:        "running",
		pendingPrompt: "enter grades for hw3?",
	}

	result := m.View()

	if !strings.Contains(result, "enter grades for hw3?") {
		t.Error("View should surface the pending question")
	}
}
