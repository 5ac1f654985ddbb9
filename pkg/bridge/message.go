package bridge

// Kind identifies a bridge message.
type Kind int

const (
	// KindStart announces a new telephony stream (inbound).
	KindStart Kind = iota + 1
	// KindMedia carries 20ms of μ-law audio (both directions).
	KindMedia
	// KindMark is a named playback marker (both directions). Outbound marks
	// are echoed back inbound once the audio before them has played.
	KindMark
	// KindStop announces the end of the telephony stream (inbound).
	KindStop
	// KindClear asks the telephony side to discard buffered audio (outbound).
	KindClear
	// KindEndOfStream is the sentinel returned after the bridge stops.
	KindEndOfStream
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindMedia:
		return "media"
	case KindMark:
		return "mark"
	case KindStop:
		return "stop"
	case KindClear:
		return "clear"
	case KindEndOfStream:
		return "end_of_stream"
	default:
		return "unknown"
	}
}

// MediaFormat describes the telephony audio encoding.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// StartInfo is the metadata of a telephony stream.
type StartInfo struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	AccountSID       string            `json:"accountSid"`
	Tracks           []string          `json:"tracks,omitempty"`
	MediaFormat      MediaFormat       `json:"mediaFormat"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Message is one unit passed between the telephony loop and the call
// controller.
type Message struct {
	Kind Kind

	// Start is set for KindStart.
	Start *StartInfo

	// Payload is μ-law audio for KindMedia.
	Payload []byte

	// Mark is the marker name for KindMark.
	Mark string
}

// Media returns a media message carrying payload.
func Media(payload []byte) Message {
	return Message{Kind: KindMedia, Payload: payload}
}

// Mark returns a mark message.
func Mark(name string) Message {
	return Message{Kind: KindMark, Mark: name}
}

// Clear returns a clear message.
func Clear() Message {
	return Message{Kind: KindClear}
}
