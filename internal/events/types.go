// Package events defines the event taxonomy and base structures for the
// rollcall event system. Events are the only channel through which the
// background grading run reports state to the foreground surface.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

// Event types emitted during an auto-grading run.
const (
	// Run lifecycle events
	EventRunStart        EventType = "run.start"
	EventRunComplete     EventType = "run.complete"
	EventRunStateChanged EventType = "run.state_changed"

	// Per-student item events
	EventItemStart  EventType = "item.start"
	EventItemEnd    EventType = "item.end"
	EventItemStatus EventType = "item.status"

	// Confirmation handshake events
	EventConfirmRequest  EventType = "confirm.request"
	EventConfirmResolved EventType = "confirm.resolved"

	// Log messages from the grading routine
	EventLogMessage EventType = "log.message"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceGrader   = "grader"
	SourceBrowser  = "browser"
	SourceInternal = "rollcall"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// RunStartEvent is emitted when an auto-grading run begins.
type RunStartEvent struct {
	BaseEvent
	SessionID int64 `json:"session_id"`
	ItemCount int   `json:"item_count"`
}

// RunCompleteEvent is emitted when the run exits, naturally or not.
type RunCompleteEvent struct {
	BaseEvent
	Stopped    bool   `json:"stopped"`
	Graded     int    `json:"graded"`
	Skipped    int    `json:"skipped"`
	DurationMs int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// RunStateChangedEvent is emitted when the orchestrator state changes.
// This enables the TUI and other observers to track state transitions.
type RunStateChangedEvent struct {
	BaseEvent
	From string `json:"from"`
	To   string `json:"to"`
}

// ItemStartEvent is emitted when grading begins for a student.
type ItemStartEvent struct {
	BaseEvent
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

// ItemEndEvent is emitted when grading for a student completes.
type ItemEndEvent struct {
	BaseEvent
	ItemID     string `json:"item_id"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ItemStatusEvent is emitted whenever a student's stored status changes.
type ItemStatusEvent struct {
	BaseEvent
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

// ConfirmRequestEvent is emitted when the grading routine needs a yes/no
// answer from the operator before it can continue.
type ConfirmRequestEvent struct {
	BaseEvent
	Prompt string `json:"prompt"`
}

// ConfirmResolvedEvent is emitted once the pending confirmation is answered.
type ConfirmResolvedEvent struct {
	BaseEvent
	Accepted bool `json:"accepted"`
}

// LogMessageEvent carries a human-readable message from the grading routine.
type LogMessageEvent struct {
	BaseEvent
	Text string `json:"text"`
	Tone string `json:"tone"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeverityFatal   = "fatal"
)

// ErrorEvent is emitted for any error condition.
type ErrorEvent struct {
	BaseEvent
	Message  string `json:"message"`
	Severity string `json:"severity"`
	ItemID   string `json:"item_id,omitempty"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewGraderEvent creates a BaseEvent with the grader as the source.
func NewGraderEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceGrader)
}

// NewBrowserEvent creates a BaseEvent with the browser as the source.
func NewBrowserEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceBrowser)
}

// NewInternalEvent creates a BaseEvent with rollcall itself as the source.
func NewInternalEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceInternal)
}
