// Package flight provides a single-flight execution tracker: at most one
// payload is in flight at a time, and concurrent starts are rejected rather
// than queued. Rapid re-triggers are intentionally dropped.
package flight

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by Begin while another payload is active.
var ErrBusy = errors.New("flight: already in flight")

type entry[T any] struct {
	payload T
	cancel  context.CancelFunc
	done    chan struct{}
}

// Queue tracks the single active (payload, cancel, done) triple. All
// mutations are atomic with respect to concurrent Begin/Cancel/Finish calls.
type Queue[T any] struct {
	mu     sync.Mutex
	active *entry[T]
}

func NewQueue[T any]() *Queue[T] { return &Queue[T]{} }

// Begin claims the queue for payload. The returned channel is closed by
// Finish and lets callers await natural completion or cancellation.
func (q *Queue[T]) Begin(payload T, cancel context.CancelFunc) (<-chan struct{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active != nil {
		return nil, ErrBusy
	}
	q.active = &entry[T]{payload: payload, cancel: cancel, done: make(chan struct{})}
	return q.active.done, nil
}

// Cancel cancels the active payload, if any. Idempotent; calling it when
// idle is a no-op. The slot stays claimed until Finish so a cancelled flow
// cannot be raced by a new trigger before it unwinds.
func (q *Queue[T]) Cancel() {
	q.mu.Lock()
	e := q.active
	q.mu.Unlock()
	if e != nil && e.cancel != nil {
		e.cancel()
	}
}

// Finish clears the slot after the active flow reaches a terminal state.
// Idempotent.
func (q *Queue[T]) Finish() {
	q.mu.Lock()
	e := q.active
	q.active = nil
	q.mu.Unlock()
	if e != nil {
		close(e.done)
	}
}

// Active returns the in-flight payload, if any.
func (q *Queue[T]) Active() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		var zero T
		return zero, false
	}
	return q.active.payload, true
}

// Done returns the completion channel of the active flow, or nil when idle.
func (q *Queue[T]) Done() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil {
		return nil
	}
	return q.active.done
}
