package buffer

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int](4)
	for i := 1; i <= 3; i++ {
		if !q.TryPush(i) {
			t.Fatalf("TryPush(%d) failed", i)
		}
	}
	for want := 1; want <= 3; want++ {
		got, err := q.Pop(time.Second)
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		if got != want {
			t.Fatalf("Pop = %d, want %d", got, want)
		}
	}
}

func TestQueue_FullDropsNewest(t *testing.T) {
	q := NewQueue[int](3)
	for i := 1; i <= 3; i++ {
		q.TryPush(i)
	}
	before := q.Snapshot()
	if q.TryPush(4) {
		t.Fatal("TryPush on full queue should fail")
	}
	if got := q.Dropped(); got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	if after := q.Snapshot(); !slices.Equal(before, after) {
		t.Errorf("contents changed: %v -> %v", before, after)
	}
}

func TestQueue_PopTimeout(t *testing.T) {
	q := NewQueue[int](1)
	start := time.Now()
	_, err := q.Pop(30 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Pop = %v, want ErrTimeout", err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Errorf("Pop returned too early")
	}
	if _, err := q.Pop(0); !errors.Is(err, ErrTimeout) {
		t.Errorf("Pop(0) = %v, want ErrTimeout", err)
	}
}

func TestQueue_PopWakesOnPush(t *testing.T) {
	q := NewQueue[int](1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.TryPush(7)
	}()
	got, err := q.Pop(2 * time.Second)
	if err != nil {
		t.Fatalf("Pop error: %v", err)
	}
	if got != 7 {
		t.Fatalf("Pop = %d, want 7", got)
	}
}

func TestQueue_CloseDrainsThenDone(t *testing.T) {
	q := NewQueue[int](2)
	q.TryPush(1)
	if err := q.CloseWrite(); err != nil {
		t.Fatalf("CloseWrite error: %v", err)
	}
	if err := q.CloseWrite(); err != nil {
		t.Fatalf("second CloseWrite error: %v", err)
	}
	if q.TryPush(2) {
		t.Fatal("TryPush after close should fail")
	}
	if q.Dropped() != 0 {
		t.Errorf("push after close must not count as overflow")
	}
	if v, err := q.Pop(time.Second); err != nil || v != 1 {
		t.Fatalf("Pop = %d, %v", v, err)
	}
	if _, err := q.Pop(time.Second); !errors.Is(err, ErrIteratorDone) {
		t.Fatalf("Pop = %v, want ErrIteratorDone", err)
	}
}

func TestQueue_CloseWakesBlockedPop(t *testing.T) {
	q := NewQueue[int](1)
	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(5 * time.Second)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	q.CloseWrite()
	select {
	case err := <-done:
		if !errors.Is(err, ErrIteratorDone) {
			t.Fatalf("Pop = %v, want ErrIteratorDone", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake on close")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue[int](5)
	for i := 1; i <= 5; i++ {
		q.TryPush(i)
	}
	q.Pop(0)
	q.TryPush(6)
	n := q.Drain(func(v int) bool { return v%2 == 0 })
	if n != 3 {
		t.Errorf("Drain removed %d, want 3", n)
	}
	if got := q.Snapshot(); !slices.Equal(got, []int{3, 5}) {
		t.Errorf("remaining = %v, want [3 5]", got)
	}
	if !q.TryPush(7) {
		t.Fatal("TryPush after Drain failed")
	}
	if got := q.Snapshot(); !slices.Equal(got, []int{3, 5, 7}) {
		t.Errorf("remaining = %v, want [3 5 7]", got)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := NewQueue[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for !q.TryPush(i) {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		q.CloseWrite()
	}()
	var n int
	for {
		_, err := q.Pop(time.Second)
		if errors.Is(err, ErrIteratorDone) {
			break
		}
		if err != nil {
			t.Fatalf("Pop error: %v", err)
		}
		n++
	}
	if n != 400 {
		t.Fatalf("received %d items, want 400", n)
	}
}
