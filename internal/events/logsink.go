package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// LogSink appends every event as one JSON line to the run's event log.
// `rollcall events` replays the file after the fact; a previous run's
// log is archived on startup so each file covers exactly one run and
// followers always start at a run boundary.
type LogSink struct {
	path string

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder

	done chan struct{}
}

// archiveWarnSize is the event-log size above which the operator is told
// to clean up old archives.
const archiveWarnSize = 100 << 20

// NewLogSink creates a sink writing to path. The directory is created on
// Start.
func NewLogSink(path string) *LogSink {
	return &LogSink{
		path: path,
		done: make(chan struct{}),
	}
}

// Start archives any previous log, opens a fresh one and drains events
// until the channel closes or ctx is canceled.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	if err := s.archivePrevious(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.mu.Unlock()

	go s.drain(ctx, events)
	return nil
}

// archivePrevious moves a non-empty log from an earlier run aside under
// a timestamped .bak name.
func (s *LogSink) archivePrevious() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat event log: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	if info.Size() > archiveWarnSize {
		slog.Warn("event log is large, consider removing old .bak files",
			"size_mb", info.Size()>>20,
			"dir", filepath.Dir(s.path),
		)
	}

	bak := fmt.Sprintf("%s.%s.bak", s.path, time.Now().Format("2006-01-02T15-04-05"))
	if err := os.Rename(s.path, bak); err != nil {
		return fmt.Errorf("archive event log: %w", err)
	}
	return nil
}

func (s *LogSink) drain(ctx context.Context, events <-chan Event) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(event)
		}
	}
}

func (s *LogSink) write(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return
	}
	if err := s.encoder.Encode(event); err != nil {
		// stderr may belong to the TUI at this point; report through
		// the logger and keep going
		slog.Error("event log write failed", "event_type", event.Type(), "error", err)
	}
}

// Stop waits for the drain goroutine and closes the file.
func (s *LogSink) Stop() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.encoder = nil
	return err
}

// Path returns the event log path.
func (s *LogSink) Path() string {
	return s.path
}
