package realtime

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

var (
	// ErrConnect reports that a vendor connection could not be established
	// or was lost.
	ErrConnect = errors.New("realtime: connect failed")

	// ErrProtocol reports a vendor message that could not be understood.
	// The stream continues.
	ErrProtocol = errors.New("realtime: protocol error")

	// ErrBackpressure is returned when the send queue is full.
	ErrBackpressure = errors.New("realtime: send queue full")

	// ErrClosed is returned by a disconnected handle.
	ErrClosed = errors.New("realtime: handle closed")
)

// Error is a vendor failure with a retry hint.
type Error struct {
	Provider  string
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("realtime: %s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Formats are the linear PCM formats a vendor consumes and produces.
type Formats struct {
	Input  pcm.Format
	Output pcm.Format
}

// Session configures one vendor conversation.
type Session struct {
	// Model overrides the provider default.
	Model string

	Voice        string
	SystemPrompt string

	// Temperature is passed through when positive.
	Temperature float64

	Tools []Tool
}

// Provider dials one vendor.
type Provider interface {
	Name() string
	Formats() Formats
	Dial(ctx context.Context, s Session) (Conn, error)
}

// Conn is an open vendor conversation. Send methods may block on the
// network and are called from a single writer goroutine. Events is
// consumed by a single reader goroutine.
type Conn interface {
	// SendAudio appends input audio in Formats().Input. With endOfTurn the
	// caller's turn is closed and a response requested.
	SendAudio(pcm []byte, endOfTurn bool) error

	// SendText adds a user text turn. With endOfTurn a response is
	// requested.
	SendText(text string, endOfTurn bool) error

	// Cancel stops the given response if the vendor supports it.
	Cancel(responseID string) error

	// SendFunctionResult answers a function call.
	SendFunctionResult(callID, name, output string) error

	// Events yields normalized events. ErrProtocol errors are followed by
	// more events; any other error ends the sequence.
	Events() iter.Seq2[*Event, error]

	Close() error
}

// EventKind is the type of a normalized event.
type EventKind int

const (
	// EventAudio carries a chunk of response audio.
	EventAudio EventKind = iota + 1
	// EventText carries response text or a transcript of response audio.
	EventText
	// EventTurnComplete ends a response normally.
	EventTurnComplete
	// EventInterrupted ends a response that was cut short.
	EventInterrupted
	// EventSetupComplete means the vendor accepted the session.
	EventSetupComplete
	// EventFunctionCall asks the client to run a tool.
	EventFunctionCall
)

func (k EventKind) String() string {
	switch k {
	case EventAudio:
		return "audio"
	case EventText:
		return "text"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	case EventSetupComplete:
		return "setup_complete"
	case EventFunctionCall:
		return "function_call"
	default:
		return "unknown"
	}
}

// Ends reports whether the kind closes a response.
func (k EventKind) Ends() bool {
	return k == EventTurnComplete || k == EventInterrupted
}

// Event is a normalized vendor event.
type Event struct {
	Kind EventKind

	// ResponseID identifies the response the event belongs to. Empty for
	// EventSetupComplete.
	ResponseID string

	// Seq numbers the events of one response from 1, assigned by Handle.
	Seq int

	// Audio is linear PCM in Format for EventAudio.
	Audio  []byte
	Format pcm.Format

	// Text is set for EventText.
	Text string

	// Call is set for EventFunctionCall.
	Call *FunctionCall
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}
