package bargein

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name   string
		in     Input
		want   bool
		reason Reason
	}{
		{
			name:   "inside echo window too short",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 100 * ms, PlaybackPending: true, Speech: 200 * ms},
			want:   false,
			reason: EchoWindow,
		},
		{
			name:   "inside echo window long enough",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 100 * ms, PlaybackPending: true, Speech: 260 * ms},
			want:   true,
			reason: EchoWindow,
		},
		{
			name:   "residual echo right after a frame",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 150 * ms, PlaybackPending: true, Speech: 200 * ms},
			want:   false,
			reason: EchoWindow,
		},
		{
			name:   "outside echo window",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 500 * ms, PlaybackPending: true, Speech: 180 * ms},
			want:   true,
			reason: Overlap,
		},
		{
			name:   "outside echo window too short",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 500 * ms, PlaybackPending: true, Speech: 100 * ms},
			want:   false,
			reason: Overlap,
		},
		{
			name:   "ai never spoke",
			in:     Input{Speech: 20 * ms},
			want:   true,
			reason: AISilent,
		},
		{
			name:   "ai silent long enough",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 1500 * ms, Speech: 20 * ms},
			want:   true,
			reason: AISilent,
		},
		{
			name:   "ai quiet but playback still pending",
			in:     Input{AIAudioSeen: true, SinceLastAIAudio: 1500 * ms, PlaybackPending: true, Speech: 100 * ms},
			want:   false,
			reason: Overlap,
		},
	}
	cfg := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := cfg.Classify(tt.in)
			if d.Verified != tt.want {
				t.Errorf("Verified = %v, want %v", d.Verified, tt.want)
			}
			if d.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", d.Reason, tt.reason)
			}
		})
	}
}

func TestClassify_ZeroConfigUsesDefaults(t *testing.T) {
	in := Input{AIAudioSeen: true, SinceLastAIAudio: 0, PlaybackPending: true, Speech: 239 * time.Millisecond}
	if (Config{}).Classify(in).Verified {
		t.Error("239ms in echo window verified with zero config")
	}
	in.Speech = 240 * time.Millisecond
	if !(Config{}).Classify(in).Verified {
		t.Error("240ms in echo window not verified with zero config")
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	cfg := Config{EchoWindow: time.Second, EchoMinSpeech: 500 * time.Millisecond}
	in := Input{AIAudioSeen: true, SinceLastAIAudio: 800 * time.Millisecond, PlaybackPending: true, Speech: 400 * time.Millisecond}
	if d := cfg.Classify(in); d.Verified || d.Required != 500*time.Millisecond {
		t.Errorf("Classify = %+v", d)
	}
}
