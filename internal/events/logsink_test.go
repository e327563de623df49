package events

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogSinkWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	sink := NewLogSink(path)
	ch := make(chan Event, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sink.Start(ctx, ch); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch <- &LogMessageEvent{BaseEvent: NewGraderEvent(EventLogMessage), Text: "grading started", Tone: "info"}
	ch <- &ItemStatusEvent{BaseEvent: NewGraderEvent(EventItemStatus), ItemID: "s-1", Status: "graded"}
	close(ch)

	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first["type"] != string(EventLogMessage) {
		t.Errorf("expected type %s, got %v", EventLogMessage, first["type"])
	}
	if first["text"] != "grading started" {
		t.Errorf("expected text field, got %v", first["text"])
	}
}

func TestLogSinkRotatesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	if err := os.WriteFile(path, []byte("{\"old\":true}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sink := NewLogSink(path)
	ch := make(chan Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sink.Start(ctx, ch); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	close(ch)
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	foundBak := false
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bak") {
			foundBak = true
		}
	}
	if !foundBak {
		t.Error("expected existing log to be rotated to a .bak file")
	}

	// The fresh file should be empty
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat fresh log: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected fresh empty log, size=%d", info.Size())
	}
}

func TestLogSinkStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	sink := NewLogSink(filepath.Join(dir, "events.jsonl"))
	ch := make(chan Event)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sink.Start(ctx, ch); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	done := make(chan error, 1)
	go func() { done <- sink.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}
