package buffer

import "sync"

// RingBuffer is a fixed-size buffer that overwrites the oldest item when
// full. It is safe for concurrent use.
type RingBuffer[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// RingN creates a new RingBuffer holding at most size items.
func RingN[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Add appends t, evicting the oldest item if the buffer is full.
func (rb *RingBuffer[T]) Add(t T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buf[rb.tail%int64(len(rb.buf))] = t
	rb.tail++
	if rb.tail-rb.head > int64(len(rb.buf)) {
		rb.head++
	}
}

// Len returns the number of items held.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Items returns a copy of the held items, oldest first.
func (rb *RingBuffer[T]) Items() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	out := make([]T, 0, rb.tail-rb.head)
	for i := rb.head; i < rb.tail; i++ {
		out = append(out, rb.buf[i%int64(len(rb.buf))])
	}
	return out
}

// Reset empties the buffer.
func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	var zero T
	for i := range rb.buf {
		rb.buf[i] = zero
	}
	rb.head = 0
	rb.tail = 0
}
