// Package buffer provides thread-safe bounded containers for streaming audio.
//
//   - Queue: a bounded FIFO that never blocks producers. When full, the
//     newest item is dropped and counted. Consumers block with a timeout.
//
//   - RingBuffer: a fixed-size window that overwrites its oldest item when
//     full. Useful for keeping the last few frames before an event.
//
// Example usage:
//
//	q := buffer.NewQueue[[]byte](150)
//	if !q.TryPush(frame) {
//	    // dropped, q.Dropped() was incremented
//	}
//	v, err := q.Pop(time.Second)
//	switch {
//	case errors.Is(err, buffer.ErrTimeout):
//	    // poll again
//	case errors.Is(err, buffer.ErrIteratorDone):
//	    // closed and drained
//	}
package buffer
