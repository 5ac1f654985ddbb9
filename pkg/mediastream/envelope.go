package mediastream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/encoding"
)

// ErrFrame marks an inbound message that could not be parsed. It is
// logged and skipped.
var ErrFrame = errors.New("mediastream: bad frame")

// Event names of the media stream protocol.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
	EventDTMF      = "dtmf"
)

// Envelope is one JSON message of the media stream protocol.
type Envelope struct {
	Event          string        `json:"event"`
	SequenceNumber string        `json:"sequenceNumber,omitempty"`
	StreamSID      string        `json:"streamSid,omitempty"`
	Protocol       string        `json:"protocol,omitempty"`
	Start          *StartPayload `json:"start,omitempty"`
	Media          *MediaPayload `json:"media,omitempty"`
	Mark           *MarkPayload  `json:"mark,omitempty"`
	Stop           *StopPayload  `json:"stop,omitempty"`
	DTMF           *DTMFPayload  `json:"dtmf,omitempty"`
}

// StartPayload describes the stream.
type StartPayload struct {
	StreamSID        string             `json:"streamSid"`
	AccountSID       string             `json:"accountSid"`
	CallSID          string             `json:"callSid"`
	Tracks           []string           `json:"tracks"`
	MediaFormat      bridge.MediaFormat `json:"mediaFormat"`
	CustomParameters map[string]string  `json:"customParameters"`
}

// MediaPayload carries base64 μ-law audio.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// MarkPayload names a playback marker.
type MarkPayload struct {
	Name string `json:"name"`
}

// StopPayload ends the stream.
type StopPayload struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// DTMFPayload is a keypad digit.
type DTMFPayload struct {
	Track string `json:"track,omitempty"`
	Digit string `json:"digit"`
}

// Decode parses one inbound message into a bridge message. Messages the
// bridge has no use for (connected, dtmf, outbound-track media) return
// ok == false.
func Decode(data []byte) (msg bridge.Message, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return msg, false, fmt.Errorf("%w: %v", ErrFrame, err)
	}
	switch env.Event {
	case EventStart:
		if env.Start == nil {
			return msg, false, fmt.Errorf("%w: start without payload", ErrFrame)
		}
		s := env.Start
		if s.StreamSID == "" {
			s.StreamSID = env.StreamSID
		}
		return bridge.Message{Kind: bridge.KindStart, Start: &bridge.StartInfo{
			StreamSID:        s.StreamSID,
			CallSID:          s.CallSID,
			AccountSID:       s.AccountSID,
			Tracks:           s.Tracks,
			MediaFormat:      s.MediaFormat,
			CustomParameters: s.CustomParameters,
		}}, true, nil
	case EventMedia:
		if env.Media == nil {
			return msg, false, fmt.Errorf("%w: media without payload", ErrFrame)
		}
		if env.Media.Track != "" && env.Media.Track != "inbound" {
			return msg, false, nil
		}
		audio, err := encoding.DecodeLenient(env.Media.Payload)
		if err != nil {
			return msg, false, fmt.Errorf("%w: media payload: %v", ErrFrame, err)
		}
		if len(audio) == 0 {
			return msg, false, nil
		}
		return bridge.Media(audio), true, nil
	case EventMark:
		if env.Mark == nil {
			return msg, false, fmt.Errorf("%w: mark without name", ErrFrame)
		}
		return bridge.Mark(env.Mark.Name), true, nil
	case EventStop:
		return bridge.Message{Kind: bridge.KindStop}, true, nil
	case EventConnected, EventDTMF:
		return msg, false, nil
	}
	return msg, false, fmt.Errorf("%w: unknown event %q", ErrFrame, env.Event)
}

// Encode renders an outbound bridge message for streamSID.
func Encode(streamSID string, m bridge.Message) ([]byte, error) {
	env := Envelope{StreamSID: streamSID}
	switch m.Kind {
	case bridge.KindMedia:
		env.Event = EventMedia
		env.Media = &MediaPayload{Payload: base64.StdEncoding.EncodeToString(m.Payload)}
	case bridge.KindMark:
		env.Event = EventMark
		env.Mark = &MarkPayload{Name: m.Mark}
	case bridge.KindClear:
		env.Event = EventClear
	default:
		return nil, fmt.Errorf("mediastream: cannot send %s", m.Kind)
	}
	return json.Marshal(env)
}
