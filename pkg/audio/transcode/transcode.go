// Package transcode converts audio between the telephony leg (μ-law, 8 kHz,
// 20ms frames) and the linear PCM rates realtime vendors speak.
package transcode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/codec/mulaw"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/resampler"
)

// ErrCodec marks a malformed audio payload. The frame is dropped and the
// call continues.
var ErrCodec = errors.New("transcode: malformed audio")

// TelephonyFrameBytes is the size of one 20ms μ-law frame.
var TelephonyFrameBytes = int(pcm.MuLaw8K.BytesInDuration(pcm.TelephonyFrameDuration))

// Inbound converts caller audio for analysis and for the vendor.
type Inbound struct {
	dst    pcm.Format
	logger *slog.Logger
}

// NewInbound returns an Inbound producing linear PCM in dst for the vendor.
func NewInbound(dst pcm.Format, logger *slog.Logger) (*Inbound, error) {
	if !dst.IsLinear() {
		return nil, fmt.Errorf("transcode: vendor format must be linear, got %v", dst)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbound{dst: dst, logger: logger}, nil
}

// Target returns the vendor input format.
func (in *Inbound) Target() pcm.Format {
	return in.dst
}

// Decode turns one μ-law telephony payload into an 8 kHz linear frame.
func (in *Inbound) Decode(mu []byte) (pcm.Frame, error) {
	if len(mu) == 0 {
		return pcm.Frame{}, fmt.Errorf("%w: empty media payload", ErrCodec)
	}
	if len(mu) != TelephonyFrameBytes {
		in.logger.Debug("transcode: unusual telephony frame size", "bytes", len(mu))
	}
	return pcm.NewFrame(pcm.L16Mono8K, mulaw.Decode(mu)), nil
}

// ToVendor resamples 8 kHz linear audio to the vendor input rate.
func (in *Inbound) ToVendor(linear8k []byte) ([]byte, error) {
	out, dropped, err := resampler.Resample(linear8k, pcm.L16Mono8K.SampleRate(), in.dst.SampleRate())
	if dropped > 0 {
		in.logger.Warn("transcode: dropped truncated sample before resampling", "bytes", dropped)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return out, nil
}

// Outbound converts vendor audio into 20ms μ-law telephony frames. It keeps
// resampler state and a partial frame between calls; Reset must be called
// when a new response starts so audio of the previous one never leaks in.
type Outbound struct {
	src    pcm.Format
	logger *slog.Logger

	stream  *resampler.Stream
	partial []byte
}

// NewOutbound returns an Outbound reading linear PCM in src.
func NewOutbound(src pcm.Format, logger *slog.Logger) (*Outbound, error) {
	if !src.IsLinear() {
		return nil, fmt.Errorf("transcode: vendor format must be linear, got %v", src)
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := &Outbound{src: src, logger: logger}
	if err := o.reset(src); err != nil {
		return nil, err
	}
	return o, nil
}

// Source returns the current vendor output format.
func (o *Outbound) Source() pcm.Format {
	return o.src
}

// Convert resamples and encodes a chunk of vendor audio in format f and
// returns all complete 20ms μ-law frames. A leftover partial frame is kept
// for the next call. If f differs from the current source format the
// converter switches to it first.
func (o *Outbound) Convert(f pcm.Format, chunk []byte) ([][]byte, error) {
	if f != o.src {
		o.logger.Info("transcode: vendor output format changed", "from", o.src, "to", f)
		if err := o.reset(f); err != nil {
			return nil, err
		}
	}
	if len(chunk) == 0 {
		return nil, nil
	}
	lin, err := o.stream.Process(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	mu := mulaw.Encode(lin)
	if len(o.partial) > 0 {
		mu = append(o.partial, mu...)
		o.partial = nil
	}
	whole := len(mu) / TelephonyFrameBytes * TelephonyFrameBytes
	if whole < len(mu) {
		o.partial = append([]byte(nil), mu[whole:]...)
	}
	return pcm.Split(mu[:whole], TelephonyFrameBytes), nil
}

// Flush ends the current response: it drains the resampler tail and returns
// the remaining audio as 20ms frames. The last frame may be short; it is
// not padded.
func (o *Outbound) Flush() [][]byte {
	mu := o.partial
	o.partial = nil
	tail, err := o.stream.Flush()
	if err != nil {
		o.logger.Warn("transcode: flush resampler", "error", err)
	} else if len(tail) > 0 {
		mu = append(mu, mulaw.Encode(tail)...)
	}
	if len(mu) == 0 {
		return nil
	}
	return pcm.Split(mu, TelephonyFrameBytes)
}

// Reset drops resampler state and any partial frame.
func (o *Outbound) Reset() {
	if err := o.reset(o.src); err != nil {
		o.logger.Error("transcode: reset outbound", "error", err)
	}
}

// Close releases the resampler.
func (o *Outbound) Close() {
	if o.stream != nil {
		if n := o.stream.Close(); n > 0 {
			o.logger.Debug("transcode: discarded truncated sample on close", "bytes", n)
		}
	}
}

func (o *Outbound) reset(src pcm.Format) error {
	if o.stream != nil {
		if n := o.stream.Close(); n > 0 {
			o.logger.Debug("transcode: discarded truncated sample on reset", "bytes", n)
		}
	}
	st, err := resampler.NewStream(src.SampleRate(), pcm.L16Mono8K.SampleRate())
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	o.src = src
	o.stream = st
	o.partial = nil
	return nil
}
