package call

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry tracks live calls for the debug endpoint and shutdown.
type Registry struct {
	mu    sync.Mutex
	calls map[uint64]*Controller
	next  atomic.Uint64
	total atomic.Uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{calls: make(map[uint64]*Controller)}
}

// Add registers c and returns a function removing it.
func (r *Registry) Add(c *Controller) (remove func()) {
	id := r.next.Add(1)
	r.total.Add(1)
	r.mu.Lock()
	r.calls[id] = c
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.calls, id)
		r.mu.Unlock()
	}
}

// Len returns the number of live calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Total returns how many calls were ever added.
func (r *Registry) Total() uint64 {
	return r.total.Load()
}

// Snapshots returns the state of every live call ordered by call id.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	calls := make([]*Controller, 0, len(r.calls))
	for _, c := range r.calls {
		calls = append(calls, c)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Snapshot())
	}
	slices.SortFunc(out, func(a, b Snapshot) int { return strings.Compare(a.CallID, b.CallID) })
	return out
}

// CloseAll closes every live call and waits until each has torn down.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	calls := make([]*Controller, 0, len(r.calls))
	for _, c := range r.calls {
		calls = append(calls, c)
	}
	r.mu.Unlock()

	for _, c := range calls {
		c.Close(reason)
	}
	for _, c := range calls {
		<-c.Done()
	}
}
