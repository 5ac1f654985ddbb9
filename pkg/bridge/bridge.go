// Package bridge connects the synchronous telephony loop with the call
// controller through two bounded queues.
//
// Neither side ever blocks the other: pushes fail fast when a queue is full
// (the newest message is dropped and counted) and reads wait at most one
// poll interval before re-checking the context.
//
//	br := bridge.New(bridge.Config{}, logger)
//	go func() {
//	    for {
//	        msg, err := br.Receive(ctx)
//	        if err != nil || msg.Kind == bridge.KindEndOfStream {
//	            return
//	        }
//	        // handle msg
//	    }
//	}()
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

var (
	// ErrOverflow is returned when a queue is full. The message was dropped.
	ErrOverflow = errors.New("bridge: queue overflow")

	// ErrClosed is returned when pushing to or reading from a closed side.
	ErrClosed = errors.New("bridge: closed")
)

// Default queue sizes and poll interval.
const (
	DefaultInboundCapacity  = 150  // ≈3s of 20ms frames
	DefaultOutboundCapacity = 1500 // ≈30s of 20ms frames
	DefaultPollInterval     = time.Second
)

// Config sizes the bridge queues.
type Config struct {
	InboundCapacity  int           `yaml:"inbound_capacity,omitempty" json:"inbound_capacity,omitempty"`
	OutboundCapacity int           `yaml:"outbound_capacity,omitempty" json:"outbound_capacity,omitempty"`
	PollInterval     time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
}

// WithDefaults fills zero fields with defaults.
func (c Config) WithDefaults() Config {
	if c.InboundCapacity <= 0 {
		c.InboundCapacity = DefaultInboundCapacity
	}
	if c.OutboundCapacity <= 0 {
		c.OutboundCapacity = DefaultOutboundCapacity
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Stats is a point-in-time view of the queues.
type Stats struct {
	InboundQueued   int    `json:"inbound_queued"`
	InboundDropped  uint64 `json:"inbound_dropped"`
	OutboundQueued  int    `json:"outbound_queued"`
	OutboundDropped uint64 `json:"outbound_dropped"`
}

// Bridge is safe for concurrent use.
type Bridge struct {
	cfg Config
	log atomic.Pointer[slog.Logger]

	in  *buffer.Queue[Message]
	out *buffer.Queue[Message]

	stopOnce  sync.Once
	closeOnce sync.Once
}

// New creates a bridge. The call id is usually unknown at this point; the
// controller rebinds the logger with SetLogger once the stream starts.
func New(cfg Config, logger *slog.Logger) *Bridge {
	cfg = cfg.WithDefaults()
	b := &Bridge{
		cfg: cfg,
		in:  buffer.NewQueue[Message](cfg.InboundCapacity),
		out: buffer.NewQueue[Message](cfg.OutboundCapacity),
	}
	b.SetLogger(logger)
	return b
}

// SetLogger replaces the logger. A nil logger selects slog.Default.
func (b *Bridge) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	b.log.Store(logger)
}

func (b *Bridge) logger() *slog.Logger {
	return b.log.Load()
}

// Config returns the effective configuration.
func (b *Bridge) Config() Config {
	return b.cfg
}

// PushInbound queues a message from the telephony side without blocking.
func (b *Bridge) PushInbound(m Message) error {
	if b.in.TryPush(m) {
		return nil
	}
	if b.in.Closed() {
		return ErrClosed
	}
	b.logger().Warn("inbound queue full, dropping newest",
		"kind", m.Kind, "dropped", b.in.Dropped())
	return fmt.Errorf("bridge: inbound %s: %w", m.Kind, ErrOverflow)
}

// Receive returns the next inbound message. It polls the queue every poll
// interval until a message arrives or ctx is done. After Stop and once the
// queue is drained it returns a KindEndOfStream message.
func (b *Bridge) Receive(ctx context.Context) (Message, error) {
	for {
		m, err := b.in.Pop(b.cfg.PollInterval)
		switch {
		case err == nil:
			return m, nil
		case errors.Is(err, buffer.ErrIteratorDone):
			return Message{Kind: KindEndOfStream}, nil
		case errors.Is(err, buffer.ErrTimeout):
			if err := ctx.Err(); err != nil {
				return Message{}, err
			}
		default:
			return Message{}, err
		}
	}
}

// Stop ends the inbound stream. Messages already queued are still delivered,
// then Receive reports end of stream. Stopping twice is a no-op.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.in.CloseWrite()
		b.logger().Debug("bridge stopped",
			"inbound_dropped", b.in.Dropped(), "outbound_dropped", b.out.Dropped())
	})
}

// Stopped reports whether Stop was called.
func (b *Bridge) Stopped() bool {
	return b.in.Closed()
}

// Send queues a message for the telephony side without blocking. When the
// outbound queue is full the message is dropped and ErrOverflow returned.
func (b *Bridge) Send(m Message) error {
	if b.out.TryPush(m) {
		return nil
	}
	if b.out.Closed() {
		return ErrClosed
	}
	b.logger().Warn("outbound queue full, dropping newest",
		"kind", m.Kind, "dropped", b.out.Dropped())
	return fmt.Errorf("bridge: outbound %s: %w", m.Kind, ErrOverflow)
}

// NextOutbound returns the next message for the telephony side, waiting up
// to timeout. It returns buffer.ErrTimeout when nothing arrived and
// ErrClosed once CloseOutbound was called and the queue drained.
func (b *Bridge) NextOutbound(timeout time.Duration) (Message, error) {
	m, err := b.out.Pop(timeout)
	if errors.Is(err, buffer.ErrIteratorDone) {
		return Message{}, ErrClosed
	}
	return m, err
}

// ClearOutbound drops every queued outbound media frame and queues a clear
// message. It returns how many frames were dropped.
func (b *Bridge) ClearOutbound() int {
	n := b.out.Drain(func(m Message) bool { return m.Kind == KindMedia })
	if err := b.Send(Clear()); err != nil {
		b.logger().Warn("queue clear failed", "error", err)
	}
	if n > 0 {
		b.logger().Debug("cleared outbound audio", "frames", n)
	}
	return n
}

// OutboundPending returns the number of media frames waiting to be written.
func (b *Bridge) OutboundPending() int {
	n := 0
	for _, m := range b.out.Snapshot() {
		if m.Kind == KindMedia {
			n++
		}
	}
	return n
}

// CloseOutbound stops accepting outbound messages. Queued messages are still
// returned by NextOutbound. Closing twice is a no-op.
func (b *Bridge) CloseOutbound() {
	b.closeOnce.Do(func() { b.out.CloseWrite() })
}

// Dropped returns how many outbound messages were dropped on overflow.
func (b *Bridge) Dropped() uint64 {
	return b.out.Dropped()
}

// Stats returns queue lengths and drop counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		InboundQueued:   b.in.Len(),
		InboundDropped:  b.in.Dropped(),
		OutboundQueued:  b.out.Len(),
		OutboundDropped: b.out.Dropped(),
	}
}
