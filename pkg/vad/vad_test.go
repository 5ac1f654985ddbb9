package vad

import (
	"testing"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

// square returns a 20ms 8kHz frame alternating between +amp and -amp.
// Its normalized RMS is amp/32768.
func square(amp int16) pcm.Frame {
	b := make([]byte, 320)
	for i := 0; i < 160; i++ {
		v := amp
		if i%2 == 1 {
			v = -amp
		}
		b[2*i] = byte(v)
		b[2*i+1] = byte(uint16(v) >> 8)
	}
	return pcm.NewFrame(pcm.L16Mono8K, b)
}

func feed(s *Segmenter, fr pcm.Frame, n int) (utts, discarded []*Utterance) {
	for range n {
		r := s.Process(fr)
		if r.Utterance != nil {
			utts = append(utts, r.Utterance)
		}
		if r.Discarded != nil {
			discarded = append(discarded, r.Discarded)
		}
	}
	return utts, discarded
}

func calibrated(t *testing.T, cfg Config) *Segmenter {
	t.Helper()
	s := New(cfg)
	feed(s, square(0), int(s.Config().Calibration/pcm.TelephonyFrameDuration))
	if !s.Calibrated() {
		t.Fatal("segmenter not calibrated after calibration window")
	}
	return s
}

func TestConfig_WithDefaults(t *testing.T) {
	c := DefaultConfig()
	if c.Multiplier != DefaultMultiplier || c.SilenceGap != DefaultSilenceGap || c.MinSpeech != DefaultMinSpeech {
		t.Errorf("DefaultConfig = %+v", c)
	}
	if got := (Config{Calibration: 50 * time.Millisecond}).WithDefaults().Calibration; got != 200*time.Millisecond {
		t.Errorf("short calibration clamped to %v, want 200ms", got)
	}
	if got := (Config{Calibration: 2 * time.Second}).WithDefaults().Calibration; got != 500*time.Millisecond {
		t.Errorf("long calibration clamped to %v, want 500ms", got)
	}
}

func TestSegmenter_ThresholdMonotonic(t *testing.T) {
	prev := false
	for amp := int16(100); amp <= 2000; amp += 50 {
		s := calibrated(t, Config{})
		r := s.Process(square(amp))
		if prev && !r.Speech {
			t.Fatalf("amp %d classified silent after a lower amplitude was speech", amp)
		}
		prev = r.Speech
	}
	if !prev {
		t.Fatal("loudest frame not classified as speech")
	}
}

func TestSegmenter_OneUtterance(t *testing.T) {
	s := calibrated(t, Config{})

	utts, _ := feed(s, square(6000), 150) // 3s speech
	if len(utts) != 0 {
		t.Fatalf("utterance emitted during speech")
	}
	if !s.InUtterance() {
		t.Fatal("expected an open utterance")
	}

	utts, discarded := feed(s, square(0), 40) // 800ms silence
	if len(utts) != 1 || len(discarded) != 0 {
		t.Fatalf("got %d utterances, %d discarded; want 1, 0", len(utts), len(discarded))
	}
	u := utts[0]
	if u.Duration < 2900*time.Millisecond || u.Duration > 3200*time.Millisecond {
		t.Errorf("Duration = %v, want about 3s", u.Duration)
	}
	if u.Voiced != 3*time.Second {
		t.Errorf("Voiced = %v, want 3s", u.Voiced)
	}
	if u.Reason != ClosedBySilence {
		t.Errorf("Reason = %v, want silence", u.Reason)
	}
	if got := u.Format.Duration(int64(len(u.Audio))); got != u.Duration {
		t.Errorf("audio length %v does not match Duration %v", got, u.Duration)
	}
	if u.Start != 240*time.Millisecond {
		t.Errorf("Start = %v, want 240ms (onset minus pre-roll)", u.Start)
	}
}

func TestSegmenter_SilenceGapBridgesPauses(t *testing.T) {
	s := calibrated(t, Config{})
	var utts []*Utterance
	for range 3 {
		u, _ := feed(s, square(6000), 25) // 500ms speech
		utts = append(utts, u...)
		u, _ = feed(s, square(0), 20) // 400ms pause
		utts = append(utts, u...)
	}
	if len(utts) != 0 {
		t.Fatalf("pause shorter than gap closed the utterance")
	}
	u, _ := feed(s, square(0), 20)
	if len(u) != 1 {
		t.Fatalf("got %d utterances, want 1", len(u))
	}
	if u[0].Voiced != 1500*time.Millisecond {
		t.Errorf("Voiced = %v, want 1.5s", u[0].Voiced)
	}
}

func TestSegmenter_ShortSpeechDiscarded(t *testing.T) {
	s := calibrated(t, Config{})
	feed(s, square(6000), 5) // 100ms blip
	utts, discarded := feed(s, square(0), 40)
	if len(utts) != 0 {
		t.Fatalf("short blip emitted as utterance")
	}
	if len(discarded) != 1 {
		t.Fatalf("discarded = %d, want 1", len(discarded))
	}
	if discarded[0].Voiced != 100*time.Millisecond {
		t.Errorf("discarded Voiced = %v, want 100ms", discarded[0].Voiced)
	}
}

func TestSegmenter_MaxUtterance(t *testing.T) {
	s := calibrated(t, Config{MaxUtterance: time.Second})
	utts, _ := feed(s, square(6000), 125) // 2.5s
	if len(utts) != 2 {
		t.Fatalf("got %d utterances, want 2", len(utts))
	}
	for i, u := range utts {
		if u.Reason != ClosedByMaxDuration {
			t.Errorf("utts[%d].Reason = %v", i, u.Reason)
		}
		if u.Duration != time.Second {
			t.Errorf("utts[%d].Duration = %v, want 1s", i, u.Duration)
		}
	}
	rest := s.Flush()
	if rest == nil {
		t.Fatal("Flush returned nil for open speech")
	}
	if rest.Reason != ClosedByFlush || rest.Voiced != 560*time.Millisecond {
		t.Errorf("Flush = %v voiced %v", rest.Reason, rest.Voiced)
	}
	if s.Flush() != nil {
		t.Error("second Flush should return nil")
	}
}

func TestSegmenter_Calibration(t *testing.T) {
	s := New(Config{})
	for range 15 {
		r := s.Process(square(1000))
		if r.Started || r.Utterance != nil {
			t.Fatal("utterance opened during calibration")
		}
	}
	if !s.Calibrated() {
		t.Fatal("not calibrated after 300ms")
	}
	floor := 1000.0 / 32768
	if d := s.NoiseFloor() - floor; d > 1e-6 || d < -1e-6 {
		t.Errorf("NoiseFloor = %f, want %f", s.NoiseFloor(), floor)
	}
	if r := s.Process(square(1500)); r.Speech {
		t.Errorf("frame under floor*multiplier classified as speech (energy %f, threshold %f)", r.Energy, r.Threshold)
	}
	if r := s.Process(square(4000)); !r.Speech || !r.Started {
		t.Errorf("loud frame: speech=%v started=%v", r.Speech, r.Started)
	}
}

func TestSegmenter_SpeechRun(t *testing.T) {
	s := calibrated(t, Config{})
	var r Result
	for range 10 {
		r = s.Process(square(6000))
	}
	if r.SpeechRun != 200*time.Millisecond {
		t.Errorf("SpeechRun = %v, want 200ms", r.SpeechRun)
	}
	if r = s.Process(square(0)); r.SpeechRun != 0 {
		t.Errorf("SpeechRun after silence = %v, want 0", r.SpeechRun)
	}
}

func TestSegmenter_Discard(t *testing.T) {
	s := calibrated(t, Config{})
	feed(s, square(6000), 20)
	s.Discard()
	if s.InUtterance() {
		t.Fatal("utterance still open after Discard")
	}
	utts, discarded := feed(s, square(0), 40)
	if len(utts)+len(discarded) != 0 {
		t.Error("discarded utterance was later closed")
	}
	if !s.Calibrated() {
		t.Error("Discard reset calibration")
	}
}
