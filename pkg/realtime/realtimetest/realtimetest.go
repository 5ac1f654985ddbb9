// Package realtimetest provides an in-memory realtime.Provider for tests.
package realtimetest

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
)

// Provider hands out Conns and can be told to fail the first dials.
type Provider struct {
	// FailFirst dials fail with DialErr (or a retryable error).
	FailFirst int
	DialErr   error
	Fmt       realtime.Formats

	mu       sync.Mutex
	dials    int
	sessions []realtime.Session
	conns    []*Conn
	notify   chan *Conn
}

// NewProvider returns a provider with 16kHz input and 24kHz output.
func NewProvider() *Provider {
	return &Provider{
		Fmt:    realtime.Formats{Input: pcm.L16Mono16K, Output: pcm.L16Mono24K},
		notify: make(chan *Conn, 16),
	}
}

func (*Provider) Name() string { return "fake" }

func (p *Provider) Formats() realtime.Formats { return p.Fmt }

func (p *Provider) Dial(ctx context.Context, s realtime.Session) (realtime.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dials++
	p.sessions = append(p.sessions, s)
	if p.dials <= p.FailFirst {
		if p.DialErr != nil {
			return nil, p.DialErr
		}
		return nil, &realtime.Error{Provider: "fake", Op: "dial", Retryable: true, Err: errors.New("unavailable")}
	}
	c := newConn()
	p.conns = append(p.conns, c)
	select {
	case p.notify <- c:
	default:
	}
	return c, nil
}

// Dials returns how many times Dial was called.
func (p *Provider) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// Sessions returns the sessions passed to Dial.
func (p *Provider) Sessions() []realtime.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Session(nil), p.sessions...)
}

// NextConn waits for the next successful dial.
func (p *Provider) NextConn(timeout time.Duration) *Conn {
	select {
	case c := <-p.notify:
		return c
	case <-time.After(timeout):
		return nil
	}
}

// Sent is one call made on a Conn.
type Sent struct {
	Op        string // "audio", "text", "cancel", "function_result"
	Audio     []byte
	Text      string
	EndOfTurn bool
	ID        string
}

type item struct {
	ev  *realtime.Event
	err error
}

// Conn records what was sent and replays scripted events.
type Conn struct {
	events    chan item
	closed    chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	sent []Sent
	hold chan struct{}
	cond chan struct{}
}

// Hold makes every send block until Release.
func (c *Conn) Hold() {
	c.mu.Lock()
	c.hold = make(chan struct{})
	c.mu.Unlock()
}

// Release unblocks sends held by Hold.
func (c *Conn) Release() {
	c.mu.Lock()
	if c.hold != nil {
		close(c.hold)
		c.hold = nil
	}
	c.mu.Unlock()
}

func newConn() *Conn {
	return &Conn{
		events: make(chan item, 1024),
		closed: make(chan struct{}),
		cond:   make(chan struct{}, 1),
	}
}

func (c *Conn) record(s Sent) error {
	select {
	case <-c.closed:
		return errors.New("realtimetest: closed")
	default:
	}
	c.mu.Lock()
	hold := c.hold
	c.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-c.closed:
			return errors.New("realtimetest: closed")
		}
	}
	c.mu.Lock()
	c.sent = append(c.sent, s)
	c.mu.Unlock()
	select {
	case c.cond <- struct{}{}:
	default:
	}
	return nil
}

func (c *Conn) SendAudio(pcm []byte, endOfTurn bool) error {
	return c.record(Sent{Op: "audio", Audio: pcm, EndOfTurn: endOfTurn})
}

func (c *Conn) SendText(text string, endOfTurn bool) error {
	return c.record(Sent{Op: "text", Text: text, EndOfTurn: endOfTurn})
}

func (c *Conn) Cancel(responseID string) error {
	return c.record(Sent{Op: "cancel", ID: responseID})
}

func (c *Conn) SendFunctionResult(callID, name, output string) error {
	return c.record(Sent{Op: "function_result", ID: callID, Text: output})
}

// Emit queues an event for Events.
func (c *Conn) Emit(ev *realtime.Event) {
	c.events <- item{ev: ev}
}

// EmitErr queues an error for Events.
func (c *Conn) EmitErr(err error) {
	c.events <- item{err: err}
}

// End ends the event stream as if the vendor hung up.
func (c *Conn) End() {
	close(c.events)
}

func (c *Conn) Events() iter.Seq2[*realtime.Event, error] {
	return func(yield func(*realtime.Event, error) bool) {
		for {
			select {
			case <-c.closed:
				return
			case it, ok := <-c.events:
				if !ok {
					return
				}
				if !yield(it.ev, it.err) {
					return
				}
			}
		}
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Sent returns a copy of everything sent so far.
func (c *Conn) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// WaitSent waits until match accepts the sent log or timeout elapses.
func (c *Conn) WaitSent(timeout time.Duration, match func([]Sent) bool) bool {
	deadline := time.After(timeout)
	for {
		if match(c.Sent()) {
			return true
		}
		select {
		case <-c.cond:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			return match(c.Sent())
		}
	}
}
