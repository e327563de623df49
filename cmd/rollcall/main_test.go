package main

import (
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Run("explicit date", func(t *testing.T) {
		date, err := parseDate("2026-03-04")
		if err != nil {
			t.Fatalf("parseDate failed: %v", err)
		}
		if date.Year() != 2026 || date.Month() != time.March || date.Day() != 4 {
			t.Errorf("parsed %v, want 2026-03-04", date)
		}
	})

	t.Run("empty means today", func(t *testing.T) {
		date, err := parseDate("")
		if err != nil {
			t.Fatalf("parseDate failed: %v", err)
		}
		now := time.Now()
		if date.Year() != now.Year() || date.YearDay() != now.YearDay() {
			t.Errorf("parsed %v, want today", date)
		}
	})

	t.Run("bad format rejected", func(t *testing.T) {
		if _, err := parseDate("04.03.2026"); err == nil {
			t.Error("expected error for non-ISO date")
		}
	})
}

func TestFormatEventLine(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		shouldContain []string
	}{
		{
			name:          "log message",
			line:          `{"type":"log.message","timestamp":"2026-03-04T14:30:45.1Z","source":"grader","text":"alice graded with 5 points","tone":"success"}`,
			shouldContain: []string{"14:30:45", "log.message", "alice graded with 5 points"},
		},
		{
			name:          "item start",
			line:          `{"type":"item.start","timestamp":"2026-03-04T14:30:45.1Z","source":"grader","item_id":"7","name":"bob","index":2,"total":10}`,
			shouldContain: []string{"item.start", "bob"},
		},
		{
			name:          "confirm request",
			line:          `{"type":"confirm.request","timestamp":"2026-03-04T14:30:45.1Z","source":"grader","prompt":"enter grades?"}`,
			shouldContain: []string{"confirm.request", "enter grades?"},
		},
		{
			name:          "error",
			line:          `{"type":"error","timestamp":"2026-03-04T14:30:45.1Z","source":"rollcall","message":"persist failed","severity":"error"}`,
			shouldContain: []string{"error", "persist failed"},
		},
		{
			name:          "run complete",
			line:          `{"type":"run.complete","timestamp":"2026-03-04T14:30:45.1Z","source":"rollcall","stopped":false,"graded":9,"skipped":1,"duration_ms":8000,"reason":"completed"}`,
			shouldContain: []string{"run.complete", "completed"},
		},
		{
			name:          "type without detail",
			line:          `{"type":"run.state_changed","timestamp":"2026-03-04T14:30:45.1Z","source":"rollcall","from":"running","to":"paused"}`,
			shouldContain: []string{"run.state_changed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatEventLine(tt.line)
			for _, s := range tt.shouldContain {
				if !strings.Contains(result, s) {
					t.Errorf("formatEventLine should contain %q, got: %s", s, result)
				}
			}
		})
	}
}

func TestFormatEventLine_NonJSON(t *testing.T) {
	line := "not json at all"
	if result := formatEventLine(line); result != line {
		t.Errorf("non-JSON line should pass through unchanged, got %q", result)
	}
}
