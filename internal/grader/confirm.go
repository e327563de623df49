package grader

import (
	"errors"
	"sync"
)

// Confirmation errors.
var (
	// ErrConfirmationPending is returned when a second question is asked
	// while the first is still unanswered.
	ErrConfirmationPending = errors.New("a confirmation is already pending")
	// ErrNoPendingConfirmation is returned when an answer arrives with no
	// outstanding question.
	ErrNoPendingConfirmation = errors.New("no confirmation is pending")
)

// confirmBroker serializes the yes/no handshake between the background
// grading routine and the operator. At most one question may be
// outstanding at a time.
type confirmBroker struct {
	mu      sync.Mutex
	pending chan bool
	prompt  string
}

// request blocks until the operator answers or cancel fires.
// Cancellation resolves the question as declined.
func (b *confirmBroker) request(prompt string, cancel <-chan struct{}) (bool, error) {
	b.mu.Lock()
	if b.pending != nil {
		b.mu.Unlock()
		return false, ErrConfirmationPending
	}
	reply := make(chan bool, 1)
	b.pending = reply
	b.prompt = prompt
	b.mu.Unlock()

	select {
	case accepted := <-reply:
		return accepted, nil
	case <-cancel:
		b.clear(reply)
		return false, nil
	}
}

// answer resolves the outstanding question.
func (b *confirmBroker) answer(accepted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return ErrNoPendingConfirmation
	}
	b.pending <- accepted
	b.pending = nil
	b.prompt = ""
	return nil
}

// clear removes the given request if it is still the pending one.
// The identity check guards against an answer racing the cancellation.
func (b *confirmBroker) clear(reply chan bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == reply {
		b.pending = nil
		b.prompt = ""
	}
}

// pendingPrompt reports the outstanding question, if any.
func (b *confirmBroker) pendingPrompt() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prompt, b.pending != nil
}
