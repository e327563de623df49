// Package testutil provides small synchronization helpers shared by the
// package tests. Everything here polls or waits with a deadline so a
// broken condition fails the test instead of hanging it.
package testutil

import (
	"testing"
	"time"
)

// pollInterval is how often Eventually re-checks its condition.
const pollInterval = 5 * time.Millisecond

// Eventually polls cond until it returns true or the timeout expires.
// Fails the test with msg on timeout.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("timed out after %v: %s", timeout, msg)
}

// WaitClosed blocks until ch is closed or the timeout expires.
// Fails the test with msg on timeout.
func WaitClosed(t *testing.T, timeout time.Duration, ch <-chan struct{}, msg string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, msg)
	}
}
