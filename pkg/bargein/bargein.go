// Package bargein decides whether caller speech heard during or right after
// AI playback is a real interruption or the AI's own audio echoing back
// through the phone line.
//
// The classifier is a pure function of the timing inputs, so the call
// controller can evaluate it on every voiced frame.
package bargein

import "time"

// Default thresholds.
const (
	DefaultEchoWindow    = 350 * time.Millisecond
	DefaultEchoMinSpeech = 240 * time.Millisecond
	DefaultMinSpeech     = 160 * time.Millisecond
	DefaultAISilentAfter = 1200 * time.Millisecond
)

// Config holds the barge-in thresholds.
type Config struct {
	// EchoWindow is how long after the last AI audio frame incoming speech
	// is suspected to be echo.
	EchoWindow time.Duration `yaml:"echo_window,omitempty" json:"echo_window,omitempty"`

	// EchoMinSpeech is the continuous speech required inside the echo window.
	EchoMinSpeech time.Duration `yaml:"echo_min_speech,omitempty" json:"echo_min_speech,omitempty"`

	// MinSpeech is the continuous speech required outside the echo window.
	MinSpeech time.Duration `yaml:"min_speech,omitempty" json:"min_speech,omitempty"`

	// AISilentAfter is the quiet period after which the AI is considered
	// silent and caller speech is trusted outright.
	AISilentAfter time.Duration `yaml:"ai_silent_after,omitempty" json:"ai_silent_after,omitempty"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills zero fields with defaults.
func (c Config) WithDefaults() Config {
	if c.EchoWindow <= 0 {
		c.EchoWindow = DefaultEchoWindow
	}
	if c.EchoMinSpeech <= 0 {
		c.EchoMinSpeech = DefaultEchoMinSpeech
	}
	if c.MinSpeech <= 0 {
		c.MinSpeech = DefaultMinSpeech
	}
	if c.AISilentAfter <= 0 {
		c.AISilentAfter = DefaultAISilentAfter
	}
	return c
}

// Input is the timing state at the moment of classification.
type Input struct {
	// AIAudioSeen is false until the AI has produced any audio on this call.
	AIAudioSeen bool

	// SinceLastAIAudio is the time since the last AI audio frame was
	// handed to the telephony side.
	SinceLastAIAudio time.Duration

	// PlaybackPending is true while sent AI audio has not been acknowledged
	// as played.
	PlaybackPending bool

	// Speech is the current continuous caller speech duration.
	Speech time.Duration
}

// Reason explains a Decision.
type Reason int

const (
	// AISilent means the AI has been quiet long enough to trust the caller.
	AISilent Reason = iota + 1
	// EchoWindow means the speech was judged inside the echo window.
	EchoWindow
	// Overlap means the speech overlapped AI playback outside the window.
	Overlap
)

func (r Reason) String() string {
	switch r {
	case AISilent:
		return "ai_silent"
	case EchoWindow:
		return "echo_window"
	case Overlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// Decision is the result of Classify.
type Decision struct {
	Verified bool
	Reason   Reason

	// Required is the continuous speech the rule demanded.
	Required time.Duration
}

// Classify decides whether the input is a verified barge-in.
func (c Config) Classify(in Input) Decision {
	c = c.WithDefaults()
	if !in.AIAudioSeen || (!in.PlaybackPending && in.SinceLastAIAudio > c.AISilentAfter) {
		return Decision{Verified: in.Speech > 0, Reason: AISilent}
	}
	if in.SinceLastAIAudio < c.EchoWindow {
		return Decision{
			Verified: in.Speech >= c.EchoMinSpeech,
			Reason:   EchoWindow,
			Required: c.EchoMinSpeech,
		}
	}
	return Decision{
		Verified: in.Speech >= c.MinSpeech,
		Reason:   Overlap,
		Required: c.MinSpeech,
	}
}
