package grader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/npratt/rollcall/internal/events"
)

// ErrAssignmentMismatch is returned when the grading routine reports an
// assignment id that differs from the one the run is already bound to.
var ErrAssignmentMismatch = errors.New("assignment id mismatch")

// RunContext carries per-run state for the grading routine: the lazily
// bound assignment id, the cached confirmation answer, and the channels
// back to the foreground. One RunContext lives exactly as long as its run.
type RunContext struct {
	orc *Orchestrator

	mu           sync.Mutex
	assignmentID string
	confirmed    *bool
}

// EnsureAssignmentID binds the run to an assignment on first call and
// rejects any later id that differs. Grading two assignments in one run
// is always a bug in the routine, never something to paper over.
func (rc *RunContext) EnsureAssignmentID(id string) error {
	if id == "" {
		return errors.New("empty assignment id")
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.assignmentID == "" {
		rc.assignmentID = id
		return nil
	}
	if rc.assignmentID != id {
		return fmt.Errorf("%w: bound to %q, got %q", ErrAssignmentMismatch, rc.assignmentID, id)
	}
	return nil
}

// AssignmentID returns the bound assignment id, or "" before binding.
func (rc *RunContext) AssignmentID() string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.assignmentID
}

// Confirm asks the operator a yes/no question and blocks until answered.
// The first answer is cached for the rest of the run; later calls return
// it without asking again. An emergency stop resolves the question as
// declined.
func (rc *RunContext) Confirm(prompt string) (bool, error) {
	rc.mu.Lock()
	if rc.confirmed != nil {
		v := *rc.confirmed
		rc.mu.Unlock()
		return v, nil
	}
	rc.mu.Unlock()

	rc.orc.emit(&events.ConfirmRequestEvent{
		BaseEvent: events.NewGraderEvent(events.EventConfirmRequest),
		Prompt:    prompt,
	})

	accepted, err := rc.orc.confirm.request(prompt, rc.orc.stopped)
	if err != nil {
		return false, err
	}

	rc.orc.emit(&events.ConfirmResolvedEvent{
		BaseEvent: events.NewGraderEvent(events.EventConfirmResolved),
		Accepted:  accepted,
	})

	rc.mu.Lock()
	rc.confirmed = &accepted
	rc.mu.Unlock()
	return accepted, nil
}

// Log sends a message line to the foreground.
func (rc *RunContext) Log(tone Tone, format string, args ...any) {
	rc.orc.emit(&events.LogMessageEvent{
		BaseEvent: events.NewGraderEvent(events.EventLogMessage),
		Text:      fmt.Sprintf(format, args...),
		Tone:      string(tone),
	})
}

// Stopped reports whether an emergency stop has been requested. Routines
// should check this between browser steps and bail out early.
func (rc *RunContext) Stopped() bool {
	select {
	case <-rc.orc.stopped:
		return true
	default:
		return false
	}
}
