package call

import (
	"context"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bargein"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/bridge"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/fallback"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/realtime"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/vad"
)

// Mode selects how a call is handled.
type Mode string

const (
	// ModeAI bridges the caller to a realtime AI.
	ModeAI Mode = "ai"
	// ModePlayback plays one message and hangs up.
	ModePlayback Mode = "playback"
)

// Defaults.
const (
	DefaultMaxTurns        = 6
	DefaultMaxCallDuration = 15 * time.Minute
	DefaultHangupDrain     = 5 * time.Second
	DefaultPromptTimeout   = 3 * time.Second
	DefaultMaxReconnects   = 1

	DefaultGreeting = "The caller just connected. Greet them briefly and ask how you can help."
	DefaultWrapUp   = "This is the last turn of the call. Answer briefly, thank the caller and say goodbye."
	DefaultApology  = "Sorry, we are having technical difficulties. Please call again later."
)

// Reasons a call ends.
const (
	ReasonHangup       = "caller_hangup"
	ReasonStreamEnded  = "stream_ended"
	ReasonWatchdog     = "watchdog"
	ReasonTurnCap      = "turn_cap"
	ReasonEndCall      = "end_call"
	ReasonError        = "error"
	ReasonPlaybackDone = "playback_done"
	ReasonCanceled     = "canceled"
	ReasonShutdown     = "shutdown"
)

// Config tunes one call.
type Config struct {
	// MaxTurns caps caller utterances. The last one is answered with the
	// wrap-up instruction and the call hangs up after the answer.
	MaxTurns int `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`

	// MaxCallDuration ends the call unconditionally.
	MaxCallDuration time.Duration `yaml:"max_call_duration,omitempty" json:"max_call_duration,omitempty"`

	// HangupDrain bounds the wait for the final playback mark.
	HangupDrain time.Duration `yaml:"hangup_drain,omitempty" json:"hangup_drain,omitempty"`

	// PromptTimeout bounds rendering of fallback and playback prompts.
	PromptTimeout time.Duration `yaml:"prompt_timeout,omitempty" json:"prompt_timeout,omitempty"`

	// MaxReconnects is how often a lost AI stream is re-established.
	// Negative disables reconnecting.
	MaxReconnects int `yaml:"max_reconnects,omitempty" json:"max_reconnects,omitempty"`

	VAD     vad.Config          `yaml:"vad,omitempty" json:"vad,omitempty"`
	BargeIn bargein.Config      `yaml:"barge_in,omitempty" json:"barge_in,omitempty"`
	Tone    fallback.ToneConfig `yaml:"tone,omitempty" json:"tone,omitempty"`
}

// WithDefaults fills zero fields with defaults.
func (c Config) WithDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MaxCallDuration <= 0 {
		c.MaxCallDuration = DefaultMaxCallDuration
	}
	if c.HangupDrain <= 0 {
		c.HangupDrain = DefaultHangupDrain
	}
	if c.PromptTimeout <= 0 {
		c.PromptTimeout = DefaultPromptTimeout
	}
	if c.MaxReconnects < 0 {
		c.MaxReconnects = 0
	} else if c.MaxReconnects == 0 {
		c.MaxReconnects = DefaultMaxReconnects
	}
	c.VAD = c.VAD.WithDefaults()
	c.BargeIn = c.BargeIn.WithDefaults()
	return c
}

// Profile is everything the controller needs to run one call.
type Profile struct {
	Tenant string
	Mode   Mode

	// Client connects the AI. Required in ModeAI.
	Client  *realtime.Client
	Session realtime.Session

	Greeting string
	WrapUp   string
	Apology  string

	// Playback is the message of ModePlayback.
	Playback string

	Config Config
}

// Resolver picks the profile for a call once the telephony stream starts.
type Resolver func(ctx context.Context, start *bridge.StartInfo) (*Profile, error)

// Prompter renders text in a voice as 8 kHz μ-law.
type Prompter interface {
	Prompt(ctx context.Context, voice, text string) ([]byte, error)
}
