// Package events provides the channel-based pub/sub event router.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the subscriber buffer used when a caller does not
// ask for a specific size.
const DefaultBufferSize = 100

// Router fans grading-run events out to subscribers. The run goroutine
// emits; the TUI, the event log and the plain-mode follower each drain
// their own channel at their own pace, which keeps the foreground the
// single writer of its own state. Delivery is best effort: a full
// subscriber loses the event rather than stalling the run, and every
// loss is counted so consumers can reconcile against the orchestrator's
// own statistics.
type Router struct {
	mu      sync.RWMutex
	subs    []chan Event
	bufSize int
	closed  bool

	dropped atomic.Uint64
}

// NewRouter creates a router whose Subscribe channels carry bufferSize
// events. Zero or negative means DefaultBufferSize.
func NewRouter(bufferSize int) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Router{bufSize: bufferSize}
}

// Emit publishes an event to every subscriber without blocking. A
// subscriber whose buffer is full misses the event; the drop is counted
// and logged. Emit after Close is a no-op.
func (r *Router) Emit(event Event) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return
	}
	missed := 0
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
			missed++
		}
	}
	r.mu.RUnlock()

	if missed > 0 {
		r.dropped.Add(uint64(missed))
		slog.Warn("event dropped: subscriber buffer full",
			"event_type", event.Type(),
			"source", event.Source(),
			"subscribers_missed", missed,
		)
	}
}

// Dropped reports how many event deliveries have been lost to full
// subscriber buffers since the router was created.
func (r *Router) Dropped() uint64 {
	return r.dropped.Load()
}

// Subscribe returns a channel receiving all emitted events, buffered at
// the router's default size. The channel closes when the router closes.
func (r *Router) Subscribe() <-chan Event {
	return r.SubscribeBuffered(r.bufSize)
}

// SubscribeBuffered returns a subscription with an explicit buffer size
// for consumers that cannot afford drops, like the TUI during a long
// run. The channel closes when the router closes.
func (r *Router) SubscribeBuffered(size int) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Event, size)
	if r.closed {
		close(ch)
		return ch
	}
	r.subs = append(r.subs, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel. Unknown or
// already-removed channels are ignored.
func (r *Router) Unsubscribe(ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close closes every subscriber channel and stops further delivery.
// Emit becomes a no-op and new subscriptions come back already closed.
// Safe to call more than once.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for _, sub := range r.subs {
		close(sub)
	}
	r.subs = nil
}
