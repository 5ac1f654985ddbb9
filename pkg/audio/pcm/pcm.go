package pcm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MuLaw8K represents audio/PCMU; rate=8000; channels=1 (G.711 μ-law)
	MuLaw8K Format = iota
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents an audio format configuration: codec and sample rate.
// Every format in this package is mono.
type Format int

// FormatForRate returns the 16-bit linear format with the given sample rate.
func FormatForRate(rate int) (Format, error) {
	switch rate {
	case 8000:
		return L16Mono8K, nil
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", rate)
}

// ParseMIME parses a MIME tag such as "audio/pcm;rate=24000" or
// "audio/L16; rate=16000; channels=1" into a linear format.
func ParseMIME(mime string) (Format, error) {
	parts := strings.Split(mime, ";")
	media := strings.ToLower(strings.TrimSpace(parts[0]))
	switch media {
	case "audio/pcm", "audio/l16":
	case "audio/pcmu", "audio/x-mulaw", "audio/basic":
		return MuLaw8K, nil
	default:
		return 0, fmt.Errorf("pcm: unsupported media type %q", media)
	}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(k, "rate") {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("pcm: bad rate in %q: %w", mime, err)
		}
		return FormatForRate(rate)
	}
	return 0, fmt.Errorf("pcm: missing rate in %q", mime)
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case MuLaw8K, L16Mono8K:
		return 8000
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio type")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case MuLaw8K:
		return 8
	case L16Mono8K, L16Mono16K, L16Mono24K, L16Mono48K:
		return 16
	}
	panic("pcm: invalid audio type")
}

// IsLinear reports whether the format is 16-bit linear PCM.
func (f Format) IsLinear() bool {
	return f != MuLaw8K
}

// SampleBytes returns the size of one sample in bytes.
func (f Format) SampleBytes() int {
	return f.Depth() / 8
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes / int64(f.SampleBytes())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.SampleBytes())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.SampleBytes()
}

// Silence returns d of silence in this format.
func (f Format) Silence(d time.Duration) []byte {
	b := make([]byte, f.BytesInDuration(d))
	if f == MuLaw8K {
		// μ-law zero is 0xFF, not 0x00.
		for i := range b {
			b[i] = 0xFF
		}
	}
	return b
}

// MIME returns the MIME tag realtime vendors expect for this format.
func (f Format) MIME() string {
	if f == MuLaw8K {
		return "audio/PCMU;rate=8000"
	}
	return "audio/pcm;rate=" + strconv.Itoa(f.SampleRate())
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	switch f {
	case MuLaw8K:
		return "audio/PCMU; rate=8000; channels=1"
	case L16Mono8K:
		return "audio/L16; rate=8000; channels=1"
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono24K:
		return "audio/L16; rate=24000; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	return "audio/unknown"
}
