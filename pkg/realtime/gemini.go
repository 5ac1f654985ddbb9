package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

// DefaultGeminiModel is used when neither the provider nor the session
// names a model.
const DefaultGeminiModel = "gemini-2.0-flash-live-001"

// Gemini is the Provider for the Gemini Live API.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Provider = (*Gemini)(nil)

// NewGemini returns a provider using client, which must be configured with
// an API version that serves the Live API (v1alpha for the Gemini API).
func NewGemini(client *genai.Client, model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}
}

// NewGeminiClient creates a genai client for the Gemini API suitable for
// NewGemini.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1alpha"},
	})
}

func (*Gemini) Name() string {
	return "gemini"
}

// Formats reports 16kHz input and 24kHz output.
func (*Gemini) Formats() Formats {
	return Formats{Input: pcm.L16Mono16K, Output: pcm.L16Mono24K}
}

// Dial opens a Live session with automatic activity detection disabled;
// the connection marks activity start and end around each caller turn.
func (p *Gemini) Dial(ctx context.Context, s Session) (Conn, error) {
	model := p.model
	if s.Model != "" {
		model = s.Model
	}
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		Tools:              geminiTools(s.Tools),
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{Disabled: true},
		},
	}
	if s.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s.SystemPrompt}}}
	}
	if s.Voice != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: s.Voice},
			},
		}
	}
	if s.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(s.Temperature))
	}

	// Live.Connect does not observe ctx, so the dial runs aside and a late
	// session is closed.
	type result struct {
		sess *genai.Session
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		sess, err := p.client.Live.Connect(ctx, model, cfg)
		ch <- result{sess, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, &Error{Provider: p.Name(), Op: "dial", Retryable: geminiRetryable(r.err), Err: r.err}
		}
		return &geminiConn{sess: r.sess}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.sess != nil {
				r.sess.Close()
			}
		}()
		return nil, &Error{Provider: p.Name(), Op: "dial", Retryable: true, Err: ctx.Err()}
	}
}

// geminiRetryable reports whether a dial error may succeed on retry. Live
// dials drop the handshake response, so a refused upgrade (bad key or
// unknown model) is final.
func geminiRetryable(err error) bool {
	if errors.Is(err, websocket.ErrBadHandshake) {
		return false
	}
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return true
	case code >= 400:
		return false
	}
	return true
}

const geminiInputMIME = "audio/pcm;rate=16000"

type geminiConn struct {
	sess *genai.Session

	mu         sync.Mutex
	inActivity bool
	turn       geminiTurn
	closed     bool
}

// geminiTurn tracks the synthesized response id. Gemini does not name its
// responses, so every model turn gets "turn-N".
type geminiTurn struct {
	n         int
	cancelled bool
}

func (t *geminiTurn) id() string {
	return fmt.Sprintf("turn-%d", t.n+1)
}

func (t *geminiTurn) next() {
	t.n++
	t.cancelled = false
}

func (c *geminiConn) SendAudio(audio []byte, endOfTurn bool) error {
	c.mu.Lock()
	start := !c.inActivity
	c.inActivity = !endOfTurn
	c.mu.Unlock()

	if start {
		if err := c.sess.SendRealtimeInput(genai.LiveRealtimeInput{ActivityStart: &genai.ActivityStart{}}); err != nil {
			return err
		}
	}
	if len(audio) > 0 {
		err := c.sess.SendRealtimeInput(genai.LiveRealtimeInput{
			Audio: &genai.Blob{Data: audio, MIMEType: geminiInputMIME},
		})
		if err != nil {
			return err
		}
	}
	if endOfTurn {
		return c.sess.SendRealtimeInput(genai.LiveRealtimeInput{ActivityEnd: &genai.ActivityEnd{}})
	}
	return nil
}

func (c *geminiConn) SendText(text string, endOfTurn bool) error {
	return c.sess.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(endOfTurn),
	})
}

// Cancel drops the rest of the current turn's audio locally. The Live API
// has no cancel message; the model stops on the next activity start.
func (c *geminiConn) Cancel(responseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn.id() == responseID {
		c.turn.cancelled = true
	}
	return nil
}

func (c *geminiConn) SendFunctionResult(callID, name, output string) error {
	return c.sess.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       callID,
			Name:     name,
			Response: map[string]any{"output": output},
		}},
	})
}

func (c *geminiConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.sess.Close()
}

func (c *geminiConn) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			msg, err := c.sess.Receive()
			if err != nil {
				c.mu.Lock()
				closed := c.closed
				c.mu.Unlock()
				if closed {
					return
				}
				var se *json.SyntaxError
				if errors.As(err, &se) {
					if !yield(nil, fmt.Errorf("%w: %v", ErrProtocol, err)) {
						return
					}
					continue
				}
				yield(nil, err)
				return
			}
			c.mu.Lock()
			events, err := normalizeGemini(msg, &c.turn)
			c.mu.Unlock()
			for _, ev := range events {
				if !yield(ev, nil) {
					return
				}
			}
			if err != nil && !yield(nil, err) {
				return
			}
		}
	}
}

// normalizeGemini converts one server message. Audio for a cancelled turn
// is dropped. A turn boundary advances the synthesized response id.
func normalizeGemini(msg *genai.LiveServerMessage, turn *geminiTurn) ([]*Event, error) {
	var out []*Event
	var perr error
	if msg.SetupComplete != nil {
		out = append(out, &Event{Kind: EventSetupComplete})
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil {
					ev, err := geminiAudio(part.InlineData, turn)
					if err != nil {
						perr = err
						continue
					}
					if ev != nil {
						out = append(out, ev)
					}
				}
				if part.Text != "" && !part.Thought {
					out = append(out, &Event{Kind: EventText, ResponseID: turn.id(), Text: part.Text})
				}
			}
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			out = append(out, &Event{Kind: EventText, ResponseID: turn.id(), Text: sc.OutputTranscription.Text})
		}
		switch {
		case sc.Interrupted:
			out = append(out, &Event{Kind: EventInterrupted, ResponseID: turn.id()})
			turn.next()
		case sc.TurnComplete:
			kind := EventTurnComplete
			if turn.cancelled {
				kind = EventInterrupted
			}
			out = append(out, &Event{Kind: kind, ResponseID: turn.id()})
			turn.next()
		}
	}
	if tc := msg.ToolCall; tc != nil {
		for _, fc := range tc.FunctionCalls {
			if fc == nil {
				continue
			}
			args := fc.Args
			if args == nil {
				args = map[string]any{}
			}
			out = append(out, &Event{
				Kind:       EventFunctionCall,
				ResponseID: turn.id(),
				Call:       &FunctionCall{ID: fc.ID, Name: fc.Name, Arguments: args},
			})
		}
	}
	return out, perr
}

// geminiAudio reads the rate from the MIME tag, falling back to 24kHz when
// the tag is missing or malformed.
func geminiAudio(blob *genai.Blob, turn *geminiTurn) (*Event, error) {
	mime := strings.ToLower(blob.MIMEType)
	if mime != "" && !strings.HasPrefix(mime, "audio/") {
		return nil, fmt.Errorf("%w: unexpected inline data %q", ErrProtocol, blob.MIMEType)
	}
	if turn.cancelled || len(blob.Data) < 2 {
		return nil, nil
	}
	f, err := pcm.ParseMIME(blob.MIMEType)
	if err != nil || !f.IsLinear() {
		f = pcm.L16Mono24K
	}
	data := blob.Data[:len(blob.Data)&^1]
	return &Event{Kind: EventAudio, ResponseID: turn.id(), Audio: data, Format: f}, nil
}
