// Package vad detects caller speech by frame energy and cuts the inbound
// stream into utterances.
//
// The segmenter first averages the RMS energy of the opening audio into a
// noise floor. Afterwards a frame is speech when its energy exceeds
// max(noiseFloor*Multiplier, AbsoluteFloor). Speech opens an utterance,
// a long enough silence closes it, and a length cap force-closes it.
// Utterances with too little voiced audio are discarded.
//
// Time is counted from the audio itself (bytes processed), not the wall
// clock, so results are reproducible.
package vad

import (
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/buffer"
)

// CloseReason tells why an utterance ended.
type CloseReason int

const (
	// ClosedBySilence means the silence gap elapsed.
	ClosedBySilence CloseReason = iota + 1
	// ClosedByMaxDuration means the utterance hit the length cap.
	ClosedByMaxDuration
	// ClosedByFlush means the stream ended while speech was open.
	ClosedByFlush
)

func (r CloseReason) String() string {
	switch r {
	case ClosedBySilence:
		return "silence"
	case ClosedByMaxDuration:
		return "max_duration"
	case ClosedByFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Utterance is one candidate caller turn.
type Utterance struct {
	// Audio is linear PCM in Format, from onset (including pre-roll) to the
	// last voiced frame.
	Audio  []byte
	Format pcm.Format

	// Start is the stream offset of the first byte of Audio.
	Start time.Duration

	// Duration is the playback length of Audio.
	Duration time.Duration

	// Voiced is the total duration of frames classified as speech.
	Voiced time.Duration

	Reason CloseReason
}

// Result describes one processed frame.
type Result struct {
	Speech    bool
	Energy    float64
	Threshold float64

	// SpeechRun is how long speech has been continuous, including this
	// frame. Zero on a silent frame.
	SpeechRun time.Duration

	// Started is true on the frame that opened an utterance.
	Started bool

	// Utterance is set when an utterance was emitted on this frame.
	Utterance *Utterance

	// Discarded is set when an utterance closed on this frame but was too
	// short to emit.
	Discarded *Utterance
}

type building struct {
	format     pcm.Format
	audio      []byte
	start      time.Duration
	dur        time.Duration
	voiced     time.Duration
	pending    [][]byte
	pendingDur time.Duration
}

// Segmenter is the per-call VAD state. It is not safe for concurrent use.
type Segmenter struct {
	cfg Config

	pos time.Duration

	calibrated bool
	calSum     float64
	calN       int
	calDur     time.Duration
	floor      float64

	run        time.Duration
	silenceRun time.Duration
	cur        *building
	preRoll    *buffer.RingBuffer[[]byte]
}

// New creates a segmenter. Zero config fields take defaults.
func New(cfg Config) *Segmenter {
	cfg = cfg.WithDefaults()
	s := &Segmenter{cfg: cfg}
	if cfg.PreRoll > 0 {
		n := int(cfg.PreRoll / pcm.TelephonyFrameDuration)
		s.preRoll = buffer.RingN[[]byte](max(n, 1))
	}
	return s
}

// Config returns the effective configuration.
func (s *Segmenter) Config() Config {
	return s.cfg
}

// Calibrated reports whether the noise floor has been established.
func (s *Segmenter) Calibrated() bool {
	return s.calibrated
}

// NoiseFloor returns the calibrated noise floor (zero before calibration).
func (s *Segmenter) NoiseFloor() float64 {
	return s.floor
}

// Threshold returns the current speech threshold.
func (s *Segmenter) Threshold() float64 {
	if !s.calibrated {
		return s.cfg.AbsoluteFloor
	}
	return max(s.floor*s.cfg.Multiplier, s.cfg.AbsoluteFloor)
}

// Position returns how much audio has been processed.
func (s *Segmenter) Position() time.Duration {
	return s.pos
}

// InUtterance reports whether an utterance is open.
func (s *Segmenter) InUtterance() bool {
	return s.cur != nil
}

// Process classifies one linear PCM frame.
func (s *Segmenter) Process(fr pcm.Frame) Result {
	d := fr.Duration()
	energy := fr.Energy()
	defer func() { s.pos += d }()

	if !s.calibrated {
		s.calSum += energy
		s.calN++
		s.calDur += d
		if s.calDur >= s.cfg.Calibration {
			s.floor = s.calSum / float64(s.calN)
			s.calibrated = true
		}
		speech := energy > s.cfg.AbsoluteFloor
		s.track(speech, d)
		s.remember(fr)
		return Result{Speech: speech, Energy: energy, Threshold: s.cfg.AbsoluteFloor, SpeechRun: s.run}
	}

	th := s.Threshold()
	res := Result{Energy: energy, Threshold: th, Speech: energy > th}
	s.track(res.Speech, d)
	res.SpeechRun = s.run

	if res.Speech {
		s.silenceRun = 0
		if s.cur == nil {
			s.open(fr.Format())
			res.Started = true
		}
		b := s.cur
		for _, p := range b.pending {
			b.audio = append(b.audio, p...)
		}
		b.dur += b.pendingDur
		b.pending, b.pendingDur = nil, 0
		b.audio = append(b.audio, fr.Bytes()...)
		b.dur += d
		b.voiced += d
		if b.dur >= s.cfg.MaxUtterance {
			s.close(ClosedByMaxDuration, &res)
		}
		return res
	}

	if s.cur == nil {
		s.remember(fr)
		return res
	}
	s.cur.pending = append(s.cur.pending, fr.Bytes())
	s.cur.pendingDur += d
	s.silenceRun += d
	switch {
	case s.silenceRun >= s.cfg.SilenceGap:
		s.close(ClosedBySilence, &res)
	case s.cur.dur+s.cur.pendingDur >= s.cfg.MaxUtterance:
		s.close(ClosedByMaxDuration, &res)
	}
	return res
}

// Flush closes an open utterance at end of stream. It returns the utterance
// if it has enough voiced audio, otherwise nil.
func (s *Segmenter) Flush() *Utterance {
	if s.cur == nil {
		return nil
	}
	var res Result
	s.close(ClosedByFlush, &res)
	return res.Utterance
}

// Discard drops an open utterance without emitting it. Calibration and the
// noise floor are kept.
func (s *Segmenter) Discard() {
	s.cur = nil
	s.silenceRun = 0
	if s.preRoll != nil {
		s.preRoll.Reset()
	}
}

func (s *Segmenter) track(speech bool, d time.Duration) {
	if speech {
		s.run += d
	} else {
		s.run = 0
	}
}

func (s *Segmenter) remember(fr pcm.Frame) {
	if s.preRoll != nil {
		s.preRoll.Add(fr.Bytes())
	}
}

func (s *Segmenter) open(f pcm.Format) {
	b := &building{format: f, start: s.pos}
	if s.preRoll != nil {
		for _, p := range s.preRoll.Items() {
			b.audio = append(b.audio, p...)
		}
		pre := f.Duration(int64(len(b.audio)))
		b.dur = pre
		b.start -= pre
		s.preRoll.Reset()
	}
	s.cur = b
}

func (s *Segmenter) close(reason CloseReason, res *Result) {
	b := s.cur
	s.cur = nil
	s.silenceRun = 0
	if reason == ClosedByMaxDuration {
		for _, p := range b.pending {
			b.audio = append(b.audio, p...)
		}
		b.dur += b.pendingDur
	}
	u := &Utterance{
		Audio:    b.audio,
		Format:   b.format,
		Start:    b.start,
		Duration: b.dur,
		Voiced:   b.voiced,
		Reason:   reason,
	}
	if b.voiced < s.cfg.MinSpeech {
		res.Discarded = u
		return
	}
	res.Utterance = u
}
