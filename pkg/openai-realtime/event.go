package openairealtime

// Client event types.
const (
	EventTypeSessionUpdate          = "session.update"
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeInputAudioBufferClear  = "input_audio_buffer.clear"
	EventTypeConversationItemCreate = "conversation.item.create"
	EventTypeResponseCreate         = "response.create"
	EventTypeResponseCancel         = "response.cancel"
)

// Server event types the bridge reacts to. Others are passed through with
// only Type and Raw populated in a meaningful way.
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeInputAudioBufferCommitted = "input_audio_buffer.committed"

	EventTypeResponseCreated = "response.created"
	EventTypeResponseDone    = "response.done"

	EventTypeResponseAudioDelta           = "response.audio.delta"
	EventTypeResponseAudioDone            = "response.audio.done"
	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseTextDelta            = "response.text.delta"

	EventTypeResponseFunctionCallArgumentsDone = "response.function_call_arguments.done"
)

// clientEvent is the envelope of every message sent to the server.
type clientEvent struct {
	EventID    string            `json:"event_id,omitzero"`
	Type       string            `json:"type"`
	Session    *SessionConfig    `json:"session,omitzero"`
	Audio      string            `json:"audio,omitzero"`
	Item       *ConversationItem `json:"item,omitzero"`
	Response   *ResponseOptions  `json:"response,omitzero"`
	ResponseID string            `json:"response_id,omitzero"`
}

// ServerEvent is a message received from the server.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitzero"`

	// Session is set for session.created and session.updated.
	Session *SessionResource `json:"session,omitzero"`

	// Response is set for response.created and response.done.
	Response *ResponseResource `json:"response,omitzero"`

	// Item is set for conversation item events.
	Item *ConversationItem `json:"item,omitzero"`

	ResponseID   string `json:"response_id,omitzero"`
	ItemID       string `json:"item_id,omitzero"`
	OutputIndex  int    `json:"output_index,omitzero"`
	ContentIndex int    `json:"content_index,omitzero"`

	// Delta carries text, transcript or base64 audio for *.delta events.
	Delta string `json:"delta,omitzero"`

	// Audio is the decoded pcm16 of a response.audio.delta, trimmed to whole
	// samples.
	Audio []byte `json:"-"`

	// Function call fields, set on response.function_call_arguments.done.
	CallID    string `json:"call_id,omitzero"`
	Name      string `json:"name,omitzero"`
	Arguments string `json:"arguments,omitzero"`

	// Error is set for error events.
	Error *Error `json:"error,omitzero"`

	// Raw is the original JSON message.
	Raw []byte `json:"-"`
}

// ResponseIDOf returns the response id an event belongs to, looking at
// both the top-level field and the embedded response.
func (e *ServerEvent) ResponseIDOf() string {
	if e.ResponseID != "" {
		return e.ResponseID
	}
	if e.Response != nil {
		return e.Response.ID
	}
	return ""
}
