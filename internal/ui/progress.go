package ui

import (
	"sync"
	"time"
)

// WaitTracker keeps shared wait state across renderer implementations.
// It is safe for concurrent use.
type WaitTracker struct {
	mu    sync.RWMutex
	start time.Time
	polls int
	last  WaitEvent
}

// NewWaitTracker creates a tracker anchored at now.
func NewWaitTracker() *WaitTracker {
	return &WaitTracker{start: time.Now()}
}

// Observe stamps a poll event with its sequence number and elapsed time
// and returns the completed event.
func (t *WaitTracker) Observe(event WaitEvent) WaitEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.polls++
	event.Polls = t.polls
	event.Elapsed = time.Since(t.start)
	t.last = event
	return event
}

// Last returns the most recent observed event.
func (t *WaitTracker) Last() WaitEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Polls returns the number of polls observed so far.
func (t *WaitTracker) Polls() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.polls
}

// Elapsed returns time since the wait started.
func (t *WaitTracker) Elapsed() time.Duration {
	return time.Since(t.startTime())
}

func (t *WaitTracker) startTime() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.start
}
