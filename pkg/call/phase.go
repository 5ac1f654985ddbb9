package call

import (
	"encoding/json"
	"fmt"
)

// Phase is the state of a call.
type Phase int

const (
	PhaseRinging Phase = iota
	PhaseGreeting
	PhaseListening
	PhaseThinking
	PhaseSpeaking
	PhaseEnded
	PhaseError
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseRinging:
		return "ringing"
	case PhaseGreeting:
		return "greeting"
	case PhaseListening:
		return "listening"
	case PhaseThinking:
		return "thinking"
	case PhaseSpeaking:
		return "speaking"
	case PhaseEnded:
		return "ended"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions happen.
func (p Phase) Terminal() bool {
	return p == PhaseEnded || p == PhaseError
}

// MarshalJSON implements json.Marshaler.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phase) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for q := PhaseRinging; q <= PhaseError; q++ {
		if q.String() == name {
			*p = q
			return nil
		}
	}
	return fmt.Errorf("call: unknown phase %q", name)
}
