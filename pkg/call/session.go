package call

import (
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/jsontime"
)

// Snapshot is a copy of a call's state for logs and the debug endpoint.
type Snapshot struct {
	CallID    string `json:"call_id"`
	StreamID  string `json:"stream_id"`
	AccountID string `json:"account_id,omitempty"`
	Direction string `json:"direction"`

	Tenant   string `json:"tenant,omitempty"`
	Mode     Mode   `json:"mode,omitempty"`
	Provider string `json:"provider,omitempty"`
	Voice    string `json:"voice,omitempty"`

	Phase Phase `json:"phase"`
	Turns int   `json:"turns"`

	InboundFrames   uint64 `json:"inbound_frames"`
	OutboundFrames  uint64 `json:"outbound_frames"`
	InboundDropped  uint64 `json:"inbound_dropped"`
	OutboundDropped uint64 `json:"outbound_dropped"`

	// StaleAudio counts AI audio chunks refused because their response was
	// superseded, cancelled or finished.
	StaleAudio uint64 `json:"stale_audio"`
	BargeIns   int    `json:"barge_ins"`
	Reconnects int    `json:"reconnects"`

	// EchoUtterances counts caller utterances dropped as playback echo.
	EchoUtterances int `json:"echo_utterances"`

	CreatedAt jsontime.Milli `json:"created_at"`
	EndedAt   jsontime.Milli `json:"ended_at,omitzero"`
	EndReason string         `json:"end_reason,omitempty"`
	Error     string         `json:"error,omitempty"`
}
