package grader

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/rollcall/internal/config"
	"github.com/npratt/rollcall/internal/events"
)

// State represents the orchestrator's current state.
type State string

// Orchestrator states.
const (
	StateIdle      State = "idle"
	StatePreparing State = "preparing"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopping  State = "stopping"
	StateCompleted State = "completed"
)

// Start errors.
var (
	ErrAlreadyRunning = errors.New("a grading run is already in progress")
	ErrNoRoutine      = errors.New("no grading routine configured")
	ErrEmptyQueue     = errors.New("no students to grade")
)

// RoutineFunc grades a single student. It runs on the orchestrator's
// goroutine and may block on rc.Confirm. Returning a result with
// ShouldStop set ends the run after this item.
type RoutineFunc func(rc *RunContext, item *Item) (*Result, error)

// StatusStore persists per-student grading status. Persistence happens
// only for graded items; transient statuses stay in memory.
type StatusStore interface {
	UpdateRecordStatus(recordID string, status string) error
}

// Browser is the subset of browser control the orchestrator needs: an
// emergency stop tears the browser down along with the run.
type Browser interface {
	Shutdown() error
}

// Orchestrator drives one sequential auto-grading run over a snapshot of
// the student queue. Construct a fresh Orchestrator per run; a completed
// or stopped run cannot be restarted.
type Orchestrator struct {
	config  *config.Config
	router  *events.Router
	store   StatusStore
	browser Browser
	routine RoutineFunc
	logger  *slog.Logger

	state   State
	stateMu sync.RWMutex

	items     []Item
	itemsMu   sync.RWMutex
	sessionID int64

	confirm confirmBroker
	runCtx  *RunContext

	// Control signals for pause/resume. Emergency stop closes stopped
	// instead, so every waiter observes it.
	pauseSignal  chan struct{}
	resumeSignal chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	done chan struct{}

	// Statistics
	graded  int
	skipped int
	current string
	statsMu sync.RWMutex
}

// New creates an Orchestrator with the given dependencies. The store and
// browser may be nil; persistence and emergency browser teardown are then
// skipped.
func New(cfg *config.Config, router *events.Router, store StatusStore, browser Browser, routine RoutineFunc, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		config:       cfg,
		router:       router,
		store:        store,
		browser:      browser,
		routine:      routine,
		logger:       logger,
		state:        StateIdle,
		pauseSignal:  make(chan struct{}, 1),
		resumeSignal: make(chan struct{}, 1),
		stopped:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	o.runCtx = &RunContext{orc: o}
	return o
}

// Start snapshots the queue and launches the run in the background.
// It returns immediately; use Done or Wait to observe completion.
func (o *Orchestrator) Start(sessionID int64, items []Item) error {
	o.stateMu.Lock()
	if o.state != StateIdle {
		o.stateMu.Unlock()
		return ErrAlreadyRunning
	}
	if o.routine == nil {
		o.stateMu.Unlock()
		return ErrNoRoutine
	}
	if len(items) == 0 {
		o.stateMu.Unlock()
		return ErrEmptyQueue
	}
	o.state = StatePreparing
	o.stateMu.Unlock()

	o.itemsMu.Lock()
	o.items = snapshotItems(items)
	o.sessionID = sessionID
	o.itemsMu.Unlock()

	o.emit(&events.RunStateChangedEvent{
		BaseEvent: events.NewGraderEvent(events.EventRunStateChanged),
		From:      string(StateIdle),
		To:        string(StatePreparing),
	})

	go o.run()
	return nil
}

// run is the main grading loop. It owns all state transitions.
func (o *Orchestrator) run() {
	defer close(o.done)

	start := time.Now()

	o.itemsMu.RLock()
	total := len(o.items)
	sessionID := o.sessionID
	o.itemsMu.RUnlock()

	o.emit(&events.RunStartEvent{
		BaseEvent: events.NewGraderEvent(events.EventRunStart),
		SessionID: sessionID,
		ItemCount: total,
	})
	o.logger.Info("grading run started", "session_id", sessionID, "items", total)

	o.transition(StateRunning)

	reason := "completed"
	stoppedEarly := false

	for i := 0; i < total; i++ {
		if o.isStopped() {
			reason = "emergency stop"
			stoppedEarly = true
			break
		}
		if !o.waitWhilePaused() {
			reason = "emergency stop"
			stoppedEarly = true
			break
		}

		item := o.itemAt(i)
		if item.Status == StatusGraded {
			o.logger.Debug("already graded, skipping", "record_id", item.ID)
			o.bumpSkipped()
			continue
		}

		stop, why := o.gradeItem(i, item, total)
		if stop {
			reason = why
			stoppedEarly = true
			break
		}

		if d := o.config.Grader.ItemDelay; d > 0 {
			o.sleep(d)
		}
	}

	o.setCurrent("")
	o.transition(StateStopping)
	o.transition(StateCompleted)

	graded, skipped := o.counts()
	o.emit(&events.RunCompleteEvent{
		BaseEvent:  events.NewGraderEvent(events.EventRunComplete),
		Stopped:    stoppedEarly,
		Graded:     graded,
		Skipped:    skipped,
		DurationMs: time.Since(start).Milliseconds(),
		Reason:     reason,
	})
	o.logger.Info("grading run finished",
		"reason", reason,
		"graded", graded,
		"skipped", skipped,
		"duration", time.Since(start),
	)
	if o.router != nil {
		if d := o.router.Dropped(); d > 0 {
			o.logger.Warn("some events were dropped during the run, counters may have drifted", "dropped", d)
		}
	}
}

// gradeItem runs the routine for one student and applies the outcome.
// It returns true when the run must end, with the reason.
func (o *Orchestrator) gradeItem(index int, item *Item, total int) (bool, string) {
	o.setCurrent(item.ID)
	o.setItemStatus(index, StatusInProgress)

	o.emit(&events.ItemStartEvent{
		BaseEvent: events.NewGraderEvent(events.EventItemStart),
		ItemID:    item.ID,
		Name:      item.Name,
		Points:    int(item.Points),
		Index:     index + 1,
		Total:     total,
	})
	o.logger.Info("grading student", "record_id", item.ID, "name", item.Name)

	itemStart := time.Now()
	res, err, panicked := o.invoke(item)
	res = EnsureResult(res, err)

	for _, m := range res.Messages {
		o.emit(&events.LogMessageEvent{
			BaseEvent: events.NewGraderEvent(events.EventLogMessage),
			Text:      m.Text,
			Tone:      string(m.Tone),
		})
	}

	var itemErr string
	if err != nil {
		itemErr = err.Error()
	}

	if res.Success {
		if perr := o.persistGraded(index); perr != nil {
			o.logger.Error("failed to persist graded status", "record_id", item.ID, "error", perr)
			o.emit(&events.ErrorEvent{
				BaseEvent: events.NewGraderEvent(events.EventError),
				Message:   fmt.Sprintf("persist graded status for %s: %v", item.ID, perr),
				Severity:  events.SeverityError,
				ItemID:    item.ID,
			})
			o.setItemStatus(index, StatusSkipped)
			o.bumpSkipped()
			o.emitItemEnd(item.ID, false, itemStart, perr.Error())
			if o.config.Grader.StopOnPersistError {
				return true, "persist failure"
			}
			return false, ""
		}
		o.bumpGraded()
	} else {
		o.setItemStatus(index, StatusSkipped)
		o.bumpSkipped()
	}

	o.emitItemEnd(item.ID, res.Success, itemStart, itemErr)

	if errors.Is(err, ErrAssignmentMismatch) {
		// The grading page moved to a different assignment mid-run;
		// every remaining student would be graded against the wrong one.
		o.logger.Error("assignment changed mid-run", "record_id", item.ID, "error", err)
		o.emit(&events.ErrorEvent{
			BaseEvent: events.NewGraderEvent(events.EventError),
			Message:   err.Error(),
			Severity:  events.SeverityError,
			ItemID:    item.ID,
		})
		return true, "assignment mismatch"
	}
	if panicked && o.config.Grader.StopOnPanic {
		return true, "routine panic"
	}
	if res.ShouldStop {
		return true, "routine requested stop"
	}
	return false, ""
}

// invoke calls the grading routine with a panic guard. A panicking
// routine fails the current item; whether it ends the run is a config
// decision applied by the caller.
func (o *Orchestrator) invoke(item *Item) (res *Result, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("grading routine panicked", "record_id", item.ID, "panic", r)
			res = nil
			err = fmt.Errorf("grading routine panicked: %v", r)
			panicked = true
		}
	}()
	res, err = o.routine(o.runCtx, item)
	return res, err, false
}

func (o *Orchestrator) emitItemEnd(itemID string, success bool, start time.Time, errText string) {
	o.emit(&events.ItemEndEvent{
		BaseEvent:  events.NewGraderEvent(events.EventItemEnd),
		ItemID:     itemID,
		Success:    success,
		DurationMs: time.Since(start).Milliseconds(),
		Error:      errText,
	})
}

// persistGraded writes the graded status through the store before the
// in-memory status changes. A failed write leaves the item ungraded.
func (o *Orchestrator) persistGraded(index int) error {
	item := o.itemAt(index)
	if o.store != nil {
		if err := o.store.UpdateRecordStatus(item.ID, string(StatusGraded)); err != nil {
			return err
		}
	}
	o.setItemStatus(index, StatusGraded)
	return nil
}

// setItemStatus updates the snapshot and notifies subscribers.
func (o *Orchestrator) setItemStatus(index int, status Status) {
	o.itemsMu.Lock()
	o.items[index].Status = status
	id := o.items[index].ID
	o.itemsMu.Unlock()

	o.emit(&events.ItemStatusEvent{
		BaseEvent: events.NewGraderEvent(events.EventItemStatus),
		ItemID:    id,
		Status:    string(status),
	})
}

// itemAt returns a copy of the item at index.
func (o *Orchestrator) itemAt(index int) *Item {
	o.itemsMu.RLock()
	defer o.itemsMu.RUnlock()
	item := o.items[index]
	return &item
}

// waitWhilePaused honors a pending pause request. It returns false when
// an emergency stop arrives while paused or pending.
func (o *Orchestrator) waitWhilePaused() bool {
	select {
	case <-o.pauseSignal:
	case <-o.stopped:
		return false
	default:
		return true
	}

	// Drop a stale resume that slipped in while the run was active.
	select {
	case <-o.resumeSignal:
	default:
	}

	o.transition(StatePaused)
	o.logger.Info("paused")

	select {
	case <-o.resumeSignal:
		o.transition(StateRunning)
		o.logger.Info("resumed")
		return true
	case <-o.stopped:
		return false
	}
}

// Pause requests a pause before the next student. The current student
// finishes first; nothing is interrupted mid-item.
func (o *Orchestrator) Pause() {
	select {
	case o.pauseSignal <- struct{}{}:
		o.logger.Info("pause requested")
	default:
		// Signal already pending
	}
}

// Resume requests the run to continue from paused state. A resume while
// nothing is paused is dropped, so it can never cancel a pause requested
// later.
func (o *Orchestrator) Resume() {
	if o.State() != StatePaused {
		return
	}
	select {
	case o.resumeSignal <- struct{}{}:
		o.logger.Info("resume requested")
	default:
		// Signal already pending
	}
}

// EmergencyStop aborts the run as soon as possible: any pending
// confirmation resolves as declined, the routine's Stopped flag trips,
// and the browser is torn down. Safe to call multiple times.
func (o *Orchestrator) EmergencyStop() {
	o.stopOnce.Do(func() {
		o.logger.Warn("emergency stop requested")
		close(o.stopped)

		if o.browser != nil {
			if err := o.browser.Shutdown(); err != nil {
				o.logger.Error("browser shutdown failed", "error", err)
			}
		}
	})
}

// AnswerConfirmation resolves the pending yes/no question.
// Returns ErrNoPendingConfirmation when no question is outstanding.
func (o *Orchestrator) AnswerConfirmation(accepted bool) error {
	return o.confirm.answer(accepted)
}

// PendingConfirmation reports the outstanding question, if any.
func (o *Orchestrator) PendingConfirmation() (string, bool) {
	return o.confirm.pendingPrompt()
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// Done returns a channel closed when the run finishes.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the run finishes.
func (o *Orchestrator) Wait() {
	<-o.done
}

// Stats summarizes run progress.
type Stats struct {
	State   State
	Total   int
	Graded  int
	Skipped int
	Current string
}

// Stats returns a consistent snapshot of run progress.
func (o *Orchestrator) Stats() Stats {
	o.itemsMu.RLock()
	total := len(o.items)
	o.itemsMu.RUnlock()

	o.statsMu.RLock()
	defer o.statsMu.RUnlock()
	return Stats{
		State:   o.State(),
		Total:   total,
		Graded:  o.graded,
		Skipped: o.skipped,
		Current: o.current,
	}
}

// Items returns a copy of the run's queue snapshot.
func (o *Orchestrator) Items() []Item {
	o.itemsMu.RLock()
	defer o.itemsMu.RUnlock()
	return snapshotItems(o.items)
}

func (o *Orchestrator) isStopped() bool {
	select {
	case <-o.stopped:
		return true
	default:
		return false
	}
}

// transition updates the state and notifies subscribers.
func (o *Orchestrator) transition(to State) {
	o.stateMu.Lock()
	from := o.state
	o.state = to
	o.stateMu.Unlock()

	if from == to {
		return
	}
	o.emit(&events.RunStateChangedEvent{
		BaseEvent: events.NewGraderEvent(events.EventRunStateChanged),
		From:      string(from),
		To:        string(to),
	})
}

// counts returns the graded/skipped counters under the stats lock.
func (o *Orchestrator) counts() (graded, skipped int) {
	o.statsMu.RLock()
	defer o.statsMu.RUnlock()
	return o.graded, o.skipped
}

func (o *Orchestrator) bumpGraded() {
	o.statsMu.Lock()
	o.graded++
	o.statsMu.Unlock()
}

func (o *Orchestrator) bumpSkipped() {
	o.statsMu.Lock()
	o.skipped++
	o.statsMu.Unlock()
}

func (o *Orchestrator) setCurrent(id string) {
	o.statsMu.Lock()
	o.current = id
	o.statsMu.Unlock()
}

// emit sends an event to the router if available.
func (o *Orchestrator) emit(event events.Event) {
	if o.router != nil {
		o.router.Emit(event)
	}
}

// sleep waits for the given duration unless an emergency stop arrives.
func (o *Orchestrator) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-o.stopped:
	}
}
