package buffer

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrIteratorDone is returned when the queue is closed and drained.
	ErrIteratorDone = errors.New("iterator done")

	// ErrTimeout is returned by Pop when no item arrived in time.
	ErrTimeout = errors.New("buffer: pop timeout")
)

// Queue is a bounded FIFO queue safe for concurrent use.
//
// Producers never block: TryPush fails immediately when the queue is full or
// closed, and a full queue counts the rejected item as dropped. Existing
// items are never evicted to make room, so what was queued first is what
// gets consumed first.
//
// A closed queue keeps serving its remaining items; once empty, Pop returns
// ErrIteratorDone.
type Queue[T any] struct {
	notify chan struct{}

	mu      sync.Mutex
	items   []T
	head    int
	size    int
	closed  bool
	dropped uint64
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{
		notify: make(chan struct{}, 1),
		items:  make([]T, capacity),
	}
}

// TryPush appends v to the queue. It returns false if the queue is closed or
// full; in the full case the dropped counter is incremented.
func (q *Queue[T]) TryPush(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.size == len(q.items) {
		q.dropped++
		return false
	}
	q.items[(q.head+q.size)%len(q.items)] = v
	q.size++
	q.signalLocked()
	return true
}

// Pop removes and returns the oldest item. It blocks up to timeout waiting
// for one; a non-positive timeout only checks once.
func (q *Queue[T]) Pop(timeout time.Duration) (v T, err error) {
	var timer *time.Timer
	for {
		q.mu.Lock()
		if q.size > 0 {
			v = q.popLocked()
			if q.size > 0 {
				q.signalLocked()
			}
			q.mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return v, ErrIteratorDone
		}
		if timeout <= 0 {
			return v, ErrTimeout
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.notify:
		case <-timer.C:
			return v, ErrTimeout
		}
	}
}

// Drain removes every queued item for which match returns true and reports
// how many were removed. The order of the remaining items is preserved.
func (q *Queue[T]) Drain(match func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := make([]T, 0, q.size)
	for i := 0; i < q.size; i++ {
		v := q.items[(q.head+i)%len(q.items)]
		if !match(v) {
			kept = append(kept, v)
		}
	}
	removed := q.size - len(kept)
	var zero T
	for i := range q.items {
		q.items[i] = zero
	}
	copy(q.items, kept)
	q.head = 0
	q.size = len(kept)
	return removed
}

// Snapshot returns a copy of the queued items, oldest first.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, q.size)
	for i := range out {
		out[i] = q.items[(q.head+i)%len(q.items)]
	}
	return out
}

// CloseWrite stops accepting new items and wakes blocked consumers. Closing
// twice is a no-op.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.notify)
	return nil
}

// Closed reports whether CloseWrite was called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Dropped returns how many items TryPush rejected because the queue was full.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue[T]) popLocked() T {
	var zero T
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return v
}

func (q *Queue[T]) signalLocked() {
	if q.closed {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
