package call

import (
	"slices"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

// ResponseState tracks the response currently allowed to play.
type ResponseState struct {
	ID string

	// Gen increases with every new response on the call.
	Gen int

	AudioStarted bool
	Cancelled    bool
}

// gate lets at most one response write audio. A newer response supersedes
// the current one, and audio of superseded, cancelled or finished
// responses is refused. It is not safe for concurrent use; the controller
// holds its mutex.
type gate struct {
	cur     *ResponseState
	gen     int
	retired *buffer.RingBuffer[string]
}

func newGate() gate {
	return gate{retired: buffer.RingN[string](16)}
}

func (g *gate) isRetired(id string) bool {
	return slices.Contains(g.retired.Items(), id)
}

func (g *gate) retire() *ResponseState {
	old := g.cur
	if old != nil {
		g.retired.Add(old.ID)
		g.cur = nil
	}
	return old
}

// begin makes id the current response, superseding any other. It returns
// the new state and the superseded one, if any.
func (g *gate) begin(id string) (st, superseded *ResponseState) {
	superseded = g.retire()
	g.gen++
	g.cur = &ResponseState{ID: id, Gen: g.gen}
	return g.cur, superseded
}

// admit decides whether audio of response id may play. fresh is true for
// the first admitted chunk of a response. A nil state means drop.
func (g *gate) admit(id string) (st *ResponseState, fresh bool, superseded *ResponseState) {
	if g.isRetired(id) {
		return nil, false, nil
	}
	if g.cur == nil || g.cur.ID != id {
		st, superseded = g.begin(id)
	} else {
		st = g.cur
	}
	if st.Cancelled {
		return nil, false, nil
	}
	fresh = !st.AudioStarted
	st.AudioStarted = true
	return st, fresh, superseded
}

// cancel marks the current response cancelled and retires it.
func (g *gate) cancel() *ResponseState {
	if g.cur == nil {
		return nil
	}
	g.cur.Cancelled = true
	return g.retire()
}

// finish retires id if it is current and reports whether it played audio.
func (g *gate) finish(id string) (played bool) {
	if g.cur == nil || g.cur.ID != id {
		return false
	}
	played = g.cur.AudioStarted && !g.cur.Cancelled
	g.retire()
	return played
}

// current returns the response allowed to play, or nil.
func (g *gate) current() *ResponseState {
	return g.cur
}
