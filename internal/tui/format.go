package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/rollcall/internal/events"
)

// Format renders an event as a single log line. Returns "" for events
// that have no place in the log (state changes show in the header).
func Format(event events.Event) string {
	switch e := event.(type) {
	case *events.RunStartEvent:
		return fmt.Sprintf("run started: session %d, %d students", e.SessionID, e.ItemCount)

	case *events.RunCompleteEvent:
		verb := "completed"
		if e.Stopped {
			verb = "stopped"
		}
		return fmt.Sprintf("run %s (%s): %d graded, %d skipped", verb, e.Reason, e.Graded, e.Skipped)

	case *events.RunStateChangedEvent:
		return ""

	case *events.ItemStartEvent:
		return fmt.Sprintf("[%d/%d] grading %s", e.Index, e.Total, e.Name)

	case *events.ItemEndEvent:
		if e.Success {
			return ""
		}
		if e.Error != "" {
			return fmt.Sprintf("failed: %s", e.Error)
		}
		return "failed"

	case *events.ItemStatusEvent:
		return ""

	case *events.ConfirmRequestEvent:
		return fmt.Sprintf("waiting for confirmation: %s", e.Prompt)

	case *events.ConfirmResolvedEvent:
		if e.Accepted {
			return "confirmed"
		}
		return "declined"

	case *events.LogMessageEvent:
		return e.Text

	case *events.ErrorEvent:
		return fmt.Sprintf("error: %s", e.Message)

	default:
		return ""
	}
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	switch e := event.(type) {
	case *events.LogMessageEvent:
		return styleForTone(e.Tone)
	case *events.ErrorEvent:
		return styles.Error
	case *events.ItemEndEvent:
		if e.Success {
			return styles.Success
		}
		return styles.Warning
	case *events.ConfirmRequestEvent, *events.ConfirmResolvedEvent:
		return styles.Warning
	case *events.RunStartEvent, *events.RunCompleteEvent:
		return styles.Info
	default:
		return styles.Info
	}
}

// styleForTone maps grading message tones to styles.
func styleForTone(tone string) lipgloss.Style {
	switch tone {
	case "success":
		return styles.Success
	case "warning":
		return styles.Warning
	default:
		return styles.Info
	}
}
