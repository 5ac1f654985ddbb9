package realtime

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	openairealtime "github.com/carhubcentralts-hue/prosaasil-sub006/pkg/openai-realtime"
)

// OpenAI is the Provider for the OpenAI Realtime API.
type OpenAI struct {
	client *openairealtime.Client
	model  string
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI returns a provider using client. An empty model selects the
// client default.
func NewOpenAI(client *openairealtime.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (*OpenAI) Name() string {
	return "openai"
}

// Formats reports pcm16 at 24kHz in both directions.
func (*OpenAI) Formats() Formats {
	return Formats{Input: pcm.L16Mono24K, Output: pcm.L16Mono24K}
}

// Dial opens a websocket session with server VAD disabled, so turns end
// only when the caller's utterance is committed.
func (p *OpenAI) Dial(ctx context.Context, s Session) (Conn, error) {
	model := p.model
	if s.Model != "" {
		model = s.Model
	}
	tools, err := openaiTools(s.Tools)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Op: "dial", Err: err}
	}
	conn, err := p.client.Dial(ctx, &openairealtime.DialConfig{Model: model})
	if err != nil {
		return nil, &Error{Provider: p.Name(), Op: "dial", Retryable: openaiRetryable(err), Err: err}
	}
	cfg := &openairealtime.SessionConfig{
		Modalities:        []string{openairealtime.ModalityAudio, openairealtime.ModalityText},
		Instructions:      s.SystemPrompt,
		Voice:             s.Voice,
		InputAudioFormat:  openairealtime.AudioFormatPCM16,
		OutputAudioFormat: openairealtime.AudioFormatPCM16,
		ManualTurns:       true,
		Tools:             tools,
	}
	if len(tools) > 0 {
		cfg.ToolChoice = "auto"
	}
	if s.Temperature > 0 {
		t := s.Temperature
		cfg.Temperature = &t
	}
	if err := conn.UpdateSession(cfg); err != nil {
		conn.Close()
		return nil, &Error{Provider: p.Name(), Op: "session.update", Retryable: true, Err: err}
	}
	return &openaiConn{conn: conn}, nil
}

func openaiRetryable(err error) bool {
	if errors.Is(err, openairealtime.ErrNoAPIKey) {
		return false
	}
	if apiErr, ok := openairealtime.AsError(err); ok {
		return apiErr.Retryable()
	}
	return true
}

// openaiConn allows one response at a time, since the server rejects
// response.create while another response is active. A caller turn cancels
// the active response first; a function result waits for it to finish.
type openaiConn struct {
	conn *openairealtime.Conn

	mu          sync.Mutex
	active      string // id from response.created, empty until then
	outstanding int    // responses requested and not yet done
	createAfter bool
}

func (c *openaiConn) SendAudio(audio []byte, endOfTurn bool) error {
	if len(audio) > 0 {
		if err := c.conn.AppendAudio(audio); err != nil {
			return err
		}
	}
	if !endOfTurn {
		return nil
	}
	if err := c.conn.CommitInput(); err != nil {
		return err
	}
	return c.respond(true)
}

func (c *openaiConn) SendText(text string, endOfTurn bool) error {
	if err := c.conn.AddUserText(text); err != nil {
		return err
	}
	if !endOfTurn {
		return nil
	}
	return c.respond(true)
}

func (c *openaiConn) Cancel(responseID string) error {
	return c.conn.CancelResponse(responseID)
}

func (c *openaiConn) SendFunctionResult(callID, _, output string) error {
	if err := c.conn.AddFunctionOutput(callID, output); err != nil {
		return err
	}
	return c.respond(false)
}

// respond requests a new response. With a response still active it either
// cancels it first (interrupt) or defers the request until response.done.
func (c *openaiConn) respond(interrupt bool) error {
	c.mu.Lock()
	busy := c.outstanding > 0
	if busy && !interrupt {
		c.createAfter = true
		c.mu.Unlock()
		return nil
	}
	active := c.active
	c.active = ""
	c.createAfter = false
	c.outstanding++
	c.mu.Unlock()

	if busy {
		if err := c.conn.CancelResponse(active); err != nil {
			return err
		}
	}
	return c.conn.CreateResponse(nil)
}

// track follows the response lifecycle and sends a deferred request once
// the last outstanding response is done.
func (c *openaiConn) track(se *openairealtime.ServerEvent) error {
	c.mu.Lock()
	switch se.Type {
	case openairealtime.EventTypeResponseCreated:
		c.active = se.ResponseIDOf()
		c.mu.Unlock()
		return nil
	case openairealtime.EventTypeResponseDone:
		if id := se.ResponseIDOf(); id == c.active {
			c.active = ""
		}
		if c.outstanding > 0 {
			c.outstanding--
		}
		if c.outstanding > 0 || !c.createAfter {
			c.mu.Unlock()
			return nil
		}
		c.createAfter = false
		c.outstanding++
		c.mu.Unlock()
		return c.conn.CreateResponse(nil)
	}
	c.mu.Unlock()
	return nil
}

func (c *openaiConn) Close() error {
	return c.conn.Close()
}

func (c *openaiConn) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for se, err := range c.conn.Events() {
			if err != nil {
				if !yield(nil, classifyOpenAIError(err)) {
					return
				}
				if errors.Is(err, openairealtime.ErrMalformed) {
					continue
				}
				if _, ok := openairealtime.AsError(err); ok {
					continue
				}
				return
			}
			if err := c.track(se); err != nil {
				if !yield(nil, err) {
					return
				}
			}
			ev, err := normalizeOpenAI(se)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if ev == nil {
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// classifyOpenAIError maps malformed messages and server error events to
// ErrProtocol. Transport errors pass through unchanged.
func classifyOpenAIError(err error) error {
	if errors.Is(err, openairealtime.ErrMalformed) {
		return errors.Join(ErrProtocol, err)
	}
	if _, ok := openairealtime.AsError(err); ok {
		return errors.Join(ErrProtocol, err)
	}
	return err
}

// normalizeOpenAI converts one server event. Events the bridge does not
// use return nil.
func normalizeOpenAI(se *openairealtime.ServerEvent) (*Event, error) {
	switch se.Type {
	case openairealtime.EventTypeSessionUpdated:
		return &Event{Kind: EventSetupComplete}, nil
	case openairealtime.EventTypeResponseAudioDelta:
		if len(se.Audio) == 0 {
			return nil, nil
		}
		return &Event{
			Kind:       EventAudio,
			ResponseID: se.ResponseIDOf(),
			Audio:      se.Audio,
			Format:     pcm.L16Mono24K,
		}, nil
	case openairealtime.EventTypeResponseAudioTranscriptDelta, openairealtime.EventTypeResponseTextDelta:
		if se.Delta == "" {
			return nil, nil
		}
		return &Event{Kind: EventText, ResponseID: se.ResponseIDOf(), Text: se.Delta}, nil
	case openairealtime.EventTypeResponseFunctionCallArgumentsDone:
		args, err := ParseArguments(se.Arguments)
		if err != nil {
			return nil, err
		}
		return &Event{
			Kind:       EventFunctionCall,
			ResponseID: se.ResponseIDOf(),
			Call:       &FunctionCall{ID: se.CallID, Name: se.Name, Arguments: args},
		}, nil
	case openairealtime.EventTypeResponseDone:
		kind := EventTurnComplete
		if se.Response != nil && se.Response.Status == "cancelled" {
			kind = EventInterrupted
		}
		return &Event{Kind: kind, ResponseID: se.ResponseIDOf()}, nil
	}
	return nil, nil
}
