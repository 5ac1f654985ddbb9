package openairealtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/encoding"
)

// ErrNoAPIKey is returned by Dial when the client has no API key.
var ErrNoAPIKey = errors.New("openai-realtime: API key is required")

// Conn is a websocket Realtime session. Send methods are safe for
// concurrent use; Events must be consumed by a single goroutine.
type Conn struct {
	conn   *websocket.Conn
	logger *slog.Logger

	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once

	writeMu   sync.Mutex
	mu        sync.Mutex
	sessionID string
}

type eventOrError struct {
	event *ServerEvent
	err   error
}

// Dial opens a websocket session.
func (c *Client) Dial(ctx context.Context, cfg *DialConfig) (*Conn, error) {
	if c.config.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	model := ModelGPT4oRealtimePreview
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}
	u := c.config.wsURL + "?model=" + url.QueryEscape(model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.config.apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")
	if c.config.organization != "" {
		headers.Set("OpenAI-Organization", c.config.organization)
	}
	if c.config.project != "" {
		headers.Set("OpenAI-Project", c.config.project)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, u, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("handshake: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openai-realtime: dial: %w", err)
	}

	s := &Conn{
		conn:     conn,
		logger:   c.config.logger,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	go s.readLoop()
	return s, nil
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}

// UpdateSession sends session.update.
func (s *Conn) UpdateSession(cfg *SessionConfig) error {
	return s.send(&clientEvent{Type: EventTypeSessionUpdate, Session: cfg})
}

// AppendAudio appends pcm16 24kHz audio to the input buffer.
func (s *Conn) AppendAudio(pcm []byte) error {
	return s.send(&clientEvent{
		Type:  EventTypeInputAudioBufferAppend,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

// CommitInput turns the input buffer into a user message.
func (s *Conn) CommitInput() error {
	return s.send(&clientEvent{Type: EventTypeInputAudioBufferCommit})
}

// ClearInput discards uncommitted input audio.
func (s *Conn) ClearInput() error {
	return s.send(&clientEvent{Type: EventTypeInputAudioBufferClear})
}

// AddUserText adds a user text message to the conversation.
func (s *Conn) AddUserText(text string) error {
	return s.send(&clientEvent{
		Type: EventTypeConversationItemCreate,
		Item: &ConversationItem{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	})
}

// AddFunctionOutput reports the result of a function call.
func (s *Conn) AddFunctionOutput(callID, output string) error {
	return s.send(&clientEvent{
		Type: EventTypeConversationItemCreate,
		Item: &ConversationItem{Type: "function_call_output", CallID: callID, Output: output},
	})
}

// CreateResponse asks the model to respond. opts may be nil.
func (s *Conn) CreateResponse(opts *ResponseOptions) error {
	return s.send(&clientEvent{Type: EventTypeResponseCreate, Response: opts})
}

// CancelResponse cancels a response in progress. An empty id cancels the
// current one.
func (s *Conn) CancelResponse(responseID string) error {
	return s.send(&clientEvent{Type: EventTypeResponseCancel, ResponseID: responseID})
}

// Events returns an iterator over server events.
//
// Malformed messages and server error events are yielded as errors
// (ErrMalformed or *Error) and iteration continues. A transport error is
// yielded last and ends the iteration.
func (s *Conn) Events() iter.Seq2[*ServerEvent, error] {
	return func(yield func(*ServerEvent, error) bool) {
		for {
			select {
			case <-s.closeCh:
				return
			case item, ok := <-s.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
			}
		}
	}
}

// Close closes the session. Closing twice is a no-op.
func (s *Conn) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

// SessionID returns the id from session.created, or "" before it arrives.
func (s *Conn) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Conn) send(ev *clientEvent) error {
	select {
	case <-s.closeCh:
		return net.ErrClosed
	default:
	}
	ev.EventID = newEventID()
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("openai-realtime: marshal %s: %w", ev.Type, err)
	}
	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		str := string(data)
		if len(str) > 500 {
			str = str[:500] + "..."
		}
		s.logger.Debug("sending event", "type", ev.Type, "content", str)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("openai-realtime: write %s: %w", ev.Type, err)
	}
	return nil
}

func (s *Conn) readLoop() {
	defer close(s.eventsCh)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.emit(eventOrError{err: fmt.Errorf("openai-realtime: read: %w", err)})
			return
		}

		if s.logger.Enabled(context.Background(), slog.LevelDebug) {
			str := string(message)
			if len(str) > 1000 {
				str = str[:1000] + "..."
			}
			s.logger.Debug("received message", "len", len(message), "content", str)
		}

		event, err := parseEvent(message)
		switch {
		case err != nil:
			if !s.emit(eventOrError{event: event, err: err}) {
				return
			}
			continue
		case event.Type == EventTypeSessionCreated && event.Session != nil:
			s.mu.Lock()
			s.sessionID = event.Session.ID
			s.mu.Unlock()
		case event.Type == EventTypeError:
			apiErr := event.Error
			if apiErr == nil {
				apiErr = &Error{Message: "unspecified server error"}
			}
			if !s.emit(eventOrError{event: event, err: apiErr}) {
				return
			}
			continue
		}
		if !s.emit(eventOrError{event: event}) {
			return
		}
	}
}

func (s *Conn) emit(item eventOrError) bool {
	select {
	case <-s.closeCh:
		return false
	case s.eventsCh <- item:
		return true
	}
}

// parseEvent decodes one server message. Audio deltas are decoded leniently
// and trimmed to whole 16-bit samples.
func parseEvent(message []byte) (*ServerEvent, error) {
	var event ServerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	event.Raw = message

	if event.Type == EventTypeResponseAudioDelta {
		audio, err := encoding.DecodeLenient(event.Delta)
		if err != nil {
			return &event, fmt.Errorf("%w: audio delta: %v", ErrMalformed, err)
		}
		event.Audio = audio[:len(audio)&^1]
	}
	return &event, nil
}
