// Package tui provides the terminal UI for watching and steering a
// grading run using bubbletea.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/rollcall/internal/events"
)

// StatsGetter provides access to orchestrator statistics.
type StatsGetter interface {
	State() string
	Graded() int
	Skipped() int
	Total() int
	CurrentItem() string
}

// TUI is the terminal UI for a grading run.
type TUI struct {
	eventChan   <-chan events.Event
	onPause     func()
	onResume    func()
	onStop      func()
	onQuit      func()
	onConfirm   func(accepted bool)
	statsGetter StatsGetter
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI with the given event channel and options.
func New(eventChan <-chan events.Event, opts ...Option) *TUI {
	t := &TUI{
		eventChan: eventChan,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithOnPause sets the callback invoked when the user presses 'p'.
func WithOnPause(fn func()) Option {
	return func(t *TUI) {
		t.onPause = fn
	}
}

// WithOnResume sets the callback invoked when the user presses 'r'.
func WithOnResume(fn func()) Option {
	return func(t *TUI) {
		t.onResume = fn
	}
}

// WithOnStop sets the callback invoked when the user presses 's'
// (emergency stop).
func WithOnStop(fn func()) Option {
	return func(t *TUI) {
		t.onStop = fn
	}
}

// WithOnQuit sets the callback invoked when the user presses 'q'.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithOnConfirm sets the callback invoked when the user answers a
// pending question with 'y' or 'n'.
func WithOnConfirm(fn func(accepted bool)) Option {
	return func(t *TUI) {
		t.onConfirm = fn
	}
}

// WithStatsGetter sets the stats provider for header display.
func WithStatsGetter(sg StatsGetter) Option {
	return func(t *TUI) {
		t.statsGetter = sg
	}
}

// Run starts the TUI and blocks until it exits.
func (t *TUI) Run() error {
	m := newModel(t.eventChan, callbacks{
		onPause:   t.onPause,
		onResume:  t.onResume,
		onStop:    t.onStop,
		onQuit:    t.onQuit,
		onConfirm: t.onConfirm,
	}, t.statsGetter)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
