// Package grader implements the sequential auto-grading run: the item
// queue, the per-run context handed to the grading routine, the yes/no
// confirmation handshake, and the orchestrator that drives them.
package grader

import (
	"fmt"
	"strings"
)

// Tone classifies a message line for display purposes.
type Tone string

// Message tones.
const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
)

// Message is a single human-readable line produced while grading a student.
type Message struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// Result is the outcome of grading a single student.
type Result struct {
	// Success means the student's record may be persisted as graded.
	Success bool
	// Messages are surfaced to the operator in order.
	Messages []Message
	// ShouldStop asks the orchestrator to end the run after this item.
	ShouldStop bool
}

// Successf builds a successful result with a single success-toned message.
func Successf(format string, args ...any) *Result {
	return &Result{
		Success:  true,
		Messages: []Message{{Text: fmt.Sprintf(format, args...), Tone: ToneSuccess}},
	}
}

// Failuref builds a failed result with a single warning-toned message.
func Failuref(format string, args ...any) *Result {
	return &Result{
		Success:  false,
		Messages: []Message{{Text: fmt.Sprintf(format, args...), Tone: ToneWarning}},
	}
}

// Append adds a message line and returns the result for chaining.
func (r *Result) Append(tone Tone, format string, args ...any) *Result {
	r.Messages = append(r.Messages, Message{Text: fmt.Sprintf(format, args...), Tone: tone})
	return r
}

// EnsureResult normalizes a routine's return value into a usable result.
// A nil result is a failure with no messages; a routine has to say so
// explicitly before a student counts as graded. An error always produces
// a failed result carrying the error text.
func EnsureResult(res *Result, err error) *Result {
	if err != nil {
		return Failuref("%v", err)
	}
	if res == nil {
		return &Result{}
	}
	return res
}

// DominantTone picks the tone that best summarizes the result.
// Any warning wins, then success, then info. A result with no messages
// falls back to its success flag.
func (r *Result) DominantTone() Tone {
	if len(r.Messages) == 0 {
		if r.Success {
			return ToneSuccess
		}
		return ToneWarning
	}
	tone := ToneInfo
	for _, m := range r.Messages {
		switch m.Tone {
		case ToneWarning:
			return ToneWarning
		case ToneSuccess:
			tone = ToneSuccess
		}
	}
	return tone
}

// MergedText joins all message lines into one block.
func (r *Result) MergedText() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}
