package resampler

import (
	"errors"
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// ErrClosed is returned by Process after Close.
var ErrClosed = errors.New("resampler: closed")

// Stream resamples a continuous mono 16-bit PCM stream. Process may be called
// from one goroutine at a time; Close may be called concurrently.
type Stream struct {
	srcRate int
	dstRate int

	mu        sync.Mutex
	resampler resampling.Resampler
	closed    bool
	carry     []byte
	dropped   int
}

// NewStream creates a stream converting from srcRate to dstRate (Hz).
func NewStream(srcRate, dstRate int) (*Stream, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	s := &Stream{srcRate: srcRate, dstRate: dstRate}
	if srcRate == dstRate {
		return s, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: failed to create resampler: %w", err)
	}
	s.resampler = r
	return s, nil
}

// Rates returns the source and destination sample rates.
func (s *Stream) Rates() (src, dst int) {
	return s.srcRate, s.dstRate
}

// Process converts the next chunk of the stream. An odd trailing byte is held
// back and joined with the next chunk, so the output never splits a sample.
// The returned slice is newly allocated and always has an even length.
func (s *Stream) Process(pcm []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.carry) > 0 {
		pcm = append(s.carry, pcm...)
		s.carry = nil
	}
	if len(pcm)%2 == 1 {
		s.carry = []byte{pcm[len(pcm)-1]}
		pcm = pcm[:len(pcm)-1]
	}
	if len(pcm) == 0 {
		return []byte{}, nil
	}
	if s.resampler == nil {
		return append([]byte(nil), pcm...), nil
	}
	out, err := s.resampler.Process(toFloat(pcm))
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	return fromFloat(out), nil
}

// Flush drains the samples still held by the filter and readies the stream
// for an unrelated segment. A held-back odd byte is discarded.
func (s *Stream) Flush() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.dropped += len(s.carry)
	s.carry = nil
	if s.resampler == nil {
		return []byte{}, nil
	}
	tail, err := s.resampler.Flush()
	s.resampler.Reset()
	if err != nil {
		return nil, fmt.Errorf("resampler: flush: %w", err)
	}
	return fromFloat(tail), nil
}

// Pending returns the number of bytes held back waiting for a full sample.
func (s *Stream) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carry)
}

// Close releases the stream and discards held-back bytes. It returns the
// number of discarded bytes so the caller can report them.
func (s *Stream) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	s.closed = true
	n := len(s.carry)
	s.carry = nil
	s.resampler = nil
	return n
}

// Resample converts a complete mono 16-bit PCM buffer from one rate to
// another. Identical rates return a copy. A trailing odd byte is dropped and
// reported in dropped; the output is never padded.
func Resample(pcm []byte, fromRate, toRate int) (out []byte, dropped int, err error) {
	dropped = len(pcm) % 2
	pcm = pcm[:len(pcm)-dropped]
	if fromRate == toRate {
		return append([]byte{}, pcm...), dropped, nil
	}
	st, err := NewStream(fromRate, toRate)
	if err != nil {
		return nil, dropped, err
	}
	defer st.Close()
	if out, err = st.Process(pcm); err != nil {
		return nil, dropped, err
	}
	tail, err := st.Flush()
	if err != nil {
		return nil, dropped, err
	}
	return append(out, tail...), dropped, nil
}

func toFloat(pcm []byte) []float64 {
	n := len(pcm) / 2
	in := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		in[i] = float64(s) / 32768.0
	}
	return in
}

func fromFloat(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		v *= 32768.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		s := int16(v)
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}
