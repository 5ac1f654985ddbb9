package realtime

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

type opKind int

const (
	opAudio opKind = iota + 1
	opText
	opCancel
	opFunctionResult
)

type op struct {
	kind      opKind
	audio     []byte
	text      string
	endOfTurn bool
	id        string
	name      string
}

// Handle is a connected vendor session. Send methods never block: they
// enqueue work for a writer goroutine.
type Handle struct {
	provider Provider
	conn     Conn
	logger   *slog.Logger
	cfg      RetryConfig
	now      func() time.Time

	sendQ       *buffer.Queue[op]
	writerDone  chan struct{}
	closeOnce   sync.Once
	closed      atomic.Bool
	eventsTaken atomic.Bool

	mu        sync.Mutex
	active    map[string]int // response id -> last seq
	protoErrs *buffer.RingBuffer[time.Time]
}

func newHandle(c *Client, conn Conn) *Handle {
	h := &Handle{
		provider:   c.provider,
		conn:       conn,
		logger:     c.logger,
		cfg:        c.cfg,
		now:        c.now,
		sendQ:      buffer.NewQueue[op](c.cfg.SendQueue),
		writerDone: make(chan struct{}),
		active:     make(map[string]int),
		protoErrs:  buffer.RingN[time.Time](c.cfg.ProtocolBurst),
	}
	go h.writeLoop()
	return h
}

// Provider returns the provider this handle is connected through.
func (h *Handle) Provider() Provider {
	return h.provider
}

// Formats returns the provider's audio formats.
func (h *Handle) Formats() Formats {
	return h.provider.Formats()
}

// SendAudio queues input audio in Formats().Input.
func (h *Handle) SendAudio(pcm []byte, endOfTurn bool) error {
	return h.enqueue(op{kind: opAudio, audio: pcm, endOfTurn: endOfTurn})
}

// SendText queues a user text turn.
func (h *Handle) SendText(text string, endOfTurn bool) error {
	return h.enqueue(op{kind: opText, text: text, endOfTurn: endOfTurn})
}

// SendFunctionResult queues the answer to a function call.
func (h *Handle) SendFunctionResult(callID, name, output string) error {
	return h.enqueue(op{kind: opFunctionResult, id: callID, name: name, text: output})
}

// CancelResponse asks the vendor to stop a response. Unknown and finished
// responses are ignored.
func (h *Handle) CancelResponse(responseID string) error {
	h.mu.Lock()
	_, ok := h.active[responseID]
	h.mu.Unlock()
	if !ok {
		h.logger.Debug("cancel ignored", "response_id", responseID)
		return nil
	}
	return h.enqueue(op{kind: opCancel, id: responseID})
}

func (h *Handle) enqueue(o op) error {
	if h.closed.Load() {
		return ErrClosed
	}
	if h.sendQ.TryPush(o) {
		return nil
	}
	if h.sendQ.Closed() {
		return ErrClosed
	}
	h.logger.Warn("send queue full", "dropped", h.sendQ.Dropped())
	return ErrBackpressure
}

func (h *Handle) writeLoop() {
	defer close(h.writerDone)
	for {
		o, err := h.sendQ.Pop(time.Second)
		if errors.Is(err, buffer.ErrTimeout) {
			continue
		}
		if err != nil {
			return
		}
		if h.closed.Load() {
			continue
		}
		if err := h.write(o); err != nil && !h.closed.Load() {
			h.logger.Warn("send failed", "op", o.kind, "error", err)
		}
	}
}

func (h *Handle) write(o op) error {
	switch o.kind {
	case opAudio:
		return h.conn.SendAudio(o.audio, o.endOfTurn)
	case opText:
		return h.conn.SendText(o.text, o.endOfTurn)
	case opCancel:
		return h.conn.Cancel(o.id)
	case opFunctionResult:
		return h.conn.SendFunctionResult(o.id, o.name, o.text)
	}
	return fmt.Errorf("realtime: unknown op %d", o.kind)
}

// Events yields normalized events until the connection ends. It can be
// ranged over once.
//
// Protocol errors are yielded (wrapping ErrProtocol) and the sequence goes
// on, unless they come in a burst, in which case an ErrConnect error is
// yielded and the sequence ends. A lost connection also ends it with
// ErrConnect. After Disconnect the sequence ends without an error.
func (h *Handle) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		if !h.eventsTaken.CompareAndSwap(false, true) {
			yield(nil, errors.New("realtime: events already consumed"))
			return
		}
		for ev, err := range h.conn.Events() {
			if h.closed.Load() {
				return
			}
			if err != nil {
				if !errors.Is(err, ErrProtocol) {
					yield(nil, fmt.Errorf("realtime: %s stream: %w: %w", h.provider.Name(), ErrConnect, err))
					return
				}
				if h.protocolBurst() {
					yield(nil, fmt.Errorf("realtime: %s: too many protocol errors: %w: %w", h.provider.Name(), ErrConnect, err))
					return
				}
				h.logger.Warn("protocol error", "error", err)
				if !yield(nil, err) {
					return
				}
				continue
			}
			h.stamp(ev)
			if !yield(ev, nil) {
				return
			}
		}
		if !h.closed.Load() {
			yield(nil, fmt.Errorf("realtime: %s stream ended: %w", h.provider.Name(), ErrConnect))
		}
	}
}

// stamp assigns the per-response sequence number and tracks which
// responses are still running.
func (h *Handle) stamp(ev *Event) {
	if ev.ResponseID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.active[ev.ResponseID] + 1
	ev.Seq = seq
	if ev.Kind.Ends() {
		delete(h.active, ev.ResponseID)
		return
	}
	h.active[ev.ResponseID] = seq
}

func (h *Handle) protocolBurst() bool {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.protoErrs.Add(now)
	if h.protoErrs.Len() < h.cfg.ProtocolBurst {
		return false
	}
	oldest := h.protoErrs.Items()[0]
	return now.Sub(oldest) <= h.cfg.ProtocolWindow
}

// Active reports whether a response is in progress.
func (h *Handle) Active(responseID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.active[responseID]
	return ok
}

// Disconnect closes the vendor connection. Calling it again is a no-op.
func (h *Handle) Disconnect(reason string) {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.sendQ.CloseWrite()
		if err := h.conn.Close(); err != nil {
			h.logger.Debug("close vendor connection", "error", err)
		}
		h.logger.Info("disconnected", "reason", reason, "send_dropped", h.sendQ.Dropped())
	})
}

// Done is closed once the writer goroutine has exited after Disconnect.
func (h *Handle) Done() <-chan struct{} {
	return h.writerDone
}
