package tui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/npratt/rollcall/internal/events"
)

// TestLifecycleSmoke verifies the full bubbletea program lifecycle:
// start, receive events, handle keyboard input, and quit cleanly.
// Uses teatest to run the TUI headlessly without a real TTY.
func TestLifecycleSmoke(t *testing.T) {
	eventChan := make(chan events.Event, 10)

	eventChan <- &events.RunStartEvent{
		BaseEvent: events.NewInternalEvent(events.EventRunStart),
		SessionID: 1,
		ItemCount: 3,
	}

	var quitCalled bool
	m := newModel(eventChan, callbacks{
		onQuit: func() { quitCalled = true },
	}, nil)

	tm := teatest.NewTestModel(
		t,
		m,
		teatest.WithInitialTermSize(80, 24),
	)

	// Let Init run and the initial event drain
	time.Sleep(50 * time.Millisecond)

	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(tea.KeyMsg{Type: tea.KeyUp})
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	if fm == nil {
		t.Fatal("FinalModel returned nil")
	}

	if !quitCalled {
		t.Error("quit callback was not invoked")
	}

	out := tm.FinalOutput(t, teatest.WithFinalTimeout(5*time.Second))
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(out)
	if buf.Len() == 0 {
		t.Error("expected non-empty output from TUI")
	}

	close(eventChan)
}

// TestLifecycleChannelClose verifies that closing the event channel
// causes the TUI to exit gracefully.
func TestLifecycleChannelClose(t *testing.T) {
	eventChan := make(chan events.Event, 10)

	m := newModel(eventChan, callbacks{}, nil)

	tm := teatest.NewTestModel(
		t,
		m,
		teatest.WithInitialTermSize(80, 24),
	)

	time.Sleep(50 * time.Millisecond)

	close(eventChan)

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	if fm == nil {
		t.Fatal("FinalModel returned nil after channel close")
	}

	finalModel, ok := fm.(model)
	if !ok {
		t.Fatalf("FinalModel is not of type model: %T", fm)
	}

	if finalModel.status != "idle" {
		t.Errorf("expected status idle, got %q", finalModel.status)
	}
}

// TestLifecycleConfirmFlow drives a confirmation request through the
// real program loop and answers it with 'y'.
func TestLifecycleConfirmFlow(t *testing.T) {
	eventChan := make(chan events.Event, 10)

	answered := make(chan bool, 1)
	m := newModel(eventChan, callbacks{
		onConfirm: func(accepted bool) { answered <- accepted },
	}, nil)

	tm := teatest.NewTestModel(
		t,
		m,
		teatest.WithInitialTermSize(80, 24),
	)

	eventChan <- &events.ConfirmRequestEvent{
		BaseEvent: events.NewGraderEvent(events.EventConfirmRequest),
		Prompt:    "enter grades for hw3?",
	}

	// Give the program loop time to pick up the event
	time.Sleep(100 * time.Millisecond)

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	select {
	case accepted := <-answered:
		if !accepted {
			t.Error("y should answer the confirmation with true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for confirmation answer")
	}

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	close(eventChan)
}
