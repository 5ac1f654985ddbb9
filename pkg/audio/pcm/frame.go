package pcm

import (
	"math"
	"time"
)

// TelephonyFrameDuration is the duration of one inbound telephony frame.
const TelephonyFrameDuration = 20 * time.Millisecond

// Frame is an immutable unit of audio. Stages that transform audio return a
// new Frame and never write into the Data of a frame they received.
type Frame struct {
	data   []byte
	format Format
}

// NewFrame wraps data as a frame of the given format. The caller must not
// modify data afterwards.
func NewFrame(f Format, data []byte) Frame {
	return Frame{data: data, format: f}
}

// Bytes returns the raw audio bytes. The returned slice must not be modified.
func (fr Frame) Bytes() []byte {
	return fr.data
}

// Len returns the length of the audio data in bytes.
func (fr Frame) Len() int {
	return len(fr.data)
}

// Format returns the audio format of this frame.
func (fr Frame) Format() Format {
	return fr.format
}

// Duration returns the playback duration of this frame.
func (fr Frame) Duration() time.Duration {
	return fr.format.Duration(int64(len(fr.data)))
}

// Energy returns the RMS energy of a linear frame, see RMS.
func (fr Frame) Energy() float64 {
	if !fr.format.IsLinear() {
		return 0
	}
	return RMS(fr.data)
}

// RMS computes the root-mean-square energy of 16-bit signed little-endian
// PCM, normalized to [0, 1]. A trailing odd byte is ignored.
func RMS(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(pcm[i])|int16(pcm[i+1])<<8) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(samples))
}

// Split cuts data into chunks of n bytes. The last chunk may be shorter.
// The chunks share memory with data.
func Split(data []byte, n int) [][]byte {
	if n <= 0 || len(data) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(data)+n-1)/n)
	for len(data) > n {
		out = append(out, data[:n:n])
		data = data[n:]
	}
	return append(out, data)
}
