package openairealtime

import "encoding/json"

// Models supported by the Realtime API.
const (
	ModelGPT4oRealtimePreview     = "gpt-4o-realtime-preview"
	ModelGPT4oMiniRealtimePreview = "gpt-4o-mini-realtime-preview"
	ModelGPTRealtime              = "gpt-realtime"
)

// Audio formats supported by the Realtime API.
const (
	// AudioFormatPCM16 is 16-bit PCM audio at 24kHz, mono, little-endian.
	AudioFormatPCM16 = "pcm16"
	// AudioFormatG711ULaw is G.711 μ-law audio at 8kHz.
	AudioFormatG711ULaw = "g711_ulaw"
)

// SampleRate is the rate of pcm16 audio in both directions.
const SampleRate = 24000

// Voice options for audio output.
const (
	VoiceAlloy   = "alloy"
	VoiceAsh     = "ash"
	VoiceBallad  = "ballad"
	VoiceCoral   = "coral"
	VoiceEcho    = "echo"
	VoiceSage    = "sage"
	VoiceShimmer = "shimmer"
	VoiceVerse   = "verse"
)

// Modality types.
const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

// DialConfig selects the model for a new session.
type DialConfig struct {
	// Model defaults to ModelGPT4oRealtimePreview.
	Model string
}

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	Modalities        []string `json:"modalities,omitzero"`
	Instructions      string   `json:"instructions,omitzero"`
	Voice             string   `json:"voice,omitzero"`
	InputAudioFormat  string   `json:"input_audio_format,omitzero"`
	OutputAudioFormat string   `json:"output_audio_format,omitzero"`

	// TurnDetection configures server VAD. Ignored when ManualTurns is set.
	TurnDetection *TurnDetection `json:"turn_detection,omitzero"`

	// ManualTurns sends "turn_detection": null so the server never ends a
	// turn on its own; the client commits and requests responses.
	ManualTurns bool `json:"-"`

	Tools      []Tool   `json:"tools,omitzero"`
	ToolChoice string   `json:"tool_choice,omitzero"`
	Temperature *float64 `json:"temperature,omitzero"`
}

// MarshalJSON writes an explicit null turn_detection when ManualTurns is set.
func (s SessionConfig) MarshalJSON() ([]byte, error) {
	type plain SessionConfig
	if !s.ManualTurns {
		return json.Marshal(plain(s))
	}
	p := plain(s)
	p.TurnDetection = nil
	return json.Marshal(struct {
		plain
		TurnDetection *TurnDetection `json:"turn_detection"`
	}{plain: p})
}

// TurnDetection configures server voice activity detection.
type TurnDetection struct {
	Type              string  `json:"type,omitzero"`
	Threshold         float64 `json:"threshold,omitzero"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitzero"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitzero"`
}

// Tool declares a function the model may call.
type Tool struct {
	// Type is always "function".
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitzero"`
	Parameters  json.RawMessage `json:"parameters,omitzero"`
}

// ResponseOptions are the optional fields of response.create.
type ResponseOptions struct {
	Modalities   []string `json:"modalities,omitzero"`
	Instructions string   `json:"instructions,omitzero"`
}

// SessionResource is the session state reported by the server.
type SessionResource struct {
	ID                string         `json:"id,omitzero"`
	Model             string         `json:"model,omitzero"`
	Voice             string         `json:"voice,omitzero"`
	InputAudioFormat  string         `json:"input_audio_format,omitzero"`
	OutputAudioFormat string         `json:"output_audio_format,omitzero"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitzero"`
}

// ConversationItem is an item in the conversation.
type ConversationItem struct {
	ID        string        `json:"id,omitzero"`
	Type      string        `json:"type,omitzero"` // "message", "function_call", "function_call_output"
	Status    string        `json:"status,omitzero"`
	Role      string        `json:"role,omitzero"`
	Content   []ContentPart `json:"content,omitzero"`
	CallID    string        `json:"call_id,omitzero"`
	Name      string        `json:"name,omitzero"`
	Arguments string        `json:"arguments,omitzero"`
	Output    string        `json:"output,omitzero"`
}

// ContentPart is one part of message content.
type ContentPart struct {
	Type       string `json:"type,omitzero"` // "input_text", "text", "audio"
	Text       string `json:"text,omitzero"`
	Transcript string `json:"transcript,omitzero"`
}

// ResponseResource is a model response.
type ResponseResource struct {
	ID     string             `json:"id,omitzero"`
	Status string             `json:"status,omitzero"` // "in_progress", "completed", "cancelled", "incomplete", "failed"
	Output []ConversationItem `json:"output,omitzero"`
	Usage  *Usage             `json:"usage,omitzero"`
}

// Usage contains token usage information.
type Usage struct {
	TotalTokens  int `json:"total_tokens,omitzero"`
	InputTokens  int `json:"input_tokens,omitzero"`
	OutputTokens int `json:"output_tokens,omitzero"`
}
