package realtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gorilla/websocket"

	"google.golang.org/genai"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

func audioMsg(mime string, data []byte) *genai.LiveServerMessage {
	return &genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{
			ModelTurn: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mime, Data: data}}}},
		},
	}
}

func TestNormalizeGemini_Audio(t *testing.T) {
	tests := []struct {
		mime string
		want pcm.Format
	}{
		{"audio/pcm;rate=24000", pcm.L16Mono24K},
		{"audio/pcm;rate=16000", pcm.L16Mono16K},
		{"audio/pcm", pcm.L16Mono24K},
		{"audio/pcm;rate=bogus", pcm.L16Mono24K},
		{"", pcm.L16Mono24K},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			var turn geminiTurn
			evs, err := normalizeGemini(audioMsg(tt.mime, []byte{1, 2, 3}), &turn)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if len(evs) != 1 || evs[0].Kind != EventAudio {
				t.Fatalf("events = %+v", evs)
			}
			if evs[0].Format != tt.want {
				t.Errorf("Format = %v, want %v", evs[0].Format, tt.want)
			}
			if len(evs[0].Audio) != 2 {
				t.Errorf("odd audio not trimmed: %d bytes", len(evs[0].Audio))
			}
			if evs[0].ResponseID != "turn-1" {
				t.Errorf("ResponseID = %q", evs[0].ResponseID)
			}
		})
	}
}

func TestNormalizeGemini_TurnBoundaries(t *testing.T) {
	var turn geminiTurn
	msg := audioMsg("audio/pcm;rate=24000", []byte{0, 0})
	msg.ServerContent.TurnComplete = true
	evs, _ := normalizeGemini(msg, &turn)
	if len(evs) != 2 || evs[0].Kind != EventAudio || evs[1].Kind != EventTurnComplete {
		t.Fatalf("events = %+v", evs)
	}
	if evs[1].ResponseID != "turn-1" {
		t.Errorf("turn complete id = %q", evs[1].ResponseID)
	}

	evs, _ = normalizeGemini(audioMsg("audio/pcm;rate=24000", []byte{0, 0}), &turn)
	if evs[0].ResponseID != "turn-2" {
		t.Errorf("next turn id = %q, want turn-2", evs[0].ResponseID)
	}

	evs, _ = normalizeGemini(&genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{Interrupted: true},
	}, &turn)
	if len(evs) != 1 || evs[0].Kind != EventInterrupted || evs[0].ResponseID != "turn-2" {
		t.Fatalf("interrupted events = %+v", evs)
	}
	if turn.id() != "turn-3" {
		t.Errorf("after interrupt id = %q", turn.id())
	}
}

func TestNormalizeGemini_CancelledTurn(t *testing.T) {
	turn := geminiTurn{cancelled: true}
	evs, _ := normalizeGemini(audioMsg("audio/pcm;rate=24000", []byte{0, 0}), &turn)
	if len(evs) != 0 {
		t.Fatalf("audio of cancelled turn delivered: %+v", evs)
	}
	evs, _ = normalizeGemini(&genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{TurnComplete: true},
	}, &turn)
	if len(evs) != 1 || evs[0].Kind != EventInterrupted {
		t.Fatalf("events = %+v, want interrupted", evs)
	}
	if turn.cancelled {
		t.Error("cancel flag carried into the next turn")
	}
}

func TestNormalizeGemini_SetupAndTools(t *testing.T) {
	var turn geminiTurn
	evs, err := normalizeGemini(&genai.LiveServerMessage{
		SetupComplete: &genai.LiveServerSetupComplete{},
		ToolCall: &genai.LiveServerToolCall{FunctionCalls: []*genai.FunctionCall{
			{ID: "fc1", Name: EndCallName, Args: map[string]any{"reason": "bye"}},
		}},
	}, &turn)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 || evs[0].Kind != EventSetupComplete || evs[1].Kind != EventFunctionCall {
		t.Fatalf("events = %+v", evs)
	}
	call := evs[1].Call
	if call.ID != "fc1" || call.Name != EndCallName || call.Arguments["reason"] != "bye" {
		t.Errorf("call = %+v", call)
	}
}

func TestNormalizeGemini_UnexpectedInlineData(t *testing.T) {
	var turn geminiTurn
	evs, err := normalizeGemini(audioMsg("image/png", []byte{1, 2}), &turn)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("err = %v, want ErrProtocol", err)
	}
	if len(evs) != 0 {
		t.Errorf("events = %+v", evs)
	}
}

func TestGeminiRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad handshake", fmt.Errorf("Connect to wss://x failed: %w", websocket.ErrBadHandshake), false},
		{"unauthorized", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, false},
		{"not found", fmt.Errorf("dial: %w", &genai.APIError{Code: 404}), false},
		{"rate limited", genai.APIError{Code: 429}, true},
		{"unavailable", &genai.APIError{Code: 503}, true},
		{"network", errors.New("dial tcp: connection refused"), true},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := geminiRetryable(tt.err); got != tt.want {
				t.Errorf("geminiRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
