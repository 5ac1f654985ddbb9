package fallback

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/codec/mulaw"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

// ToneConfig shapes the fallback tone. Zero fields take defaults: three
// 425 Hz beeps of 250ms separated by 250ms of silence at amplitude 0.3.
type ToneConfig struct {
	Frequency float64       `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Beep      time.Duration `yaml:"beep,omitempty" json:"beep,omitempty"`
	Gap       time.Duration `yaml:"gap,omitempty" json:"gap,omitempty"`
	Count     int           `yaml:"count,omitempty" json:"count,omitempty"`
	Amplitude float64       `yaml:"amplitude,omitempty" json:"amplitude,omitempty"`
}

func (c ToneConfig) withDefaults() ToneConfig {
	if c.Frequency <= 0 {
		c.Frequency = 425
	}
	if c.Beep <= 0 {
		c.Beep = 250 * time.Millisecond
	}
	if c.Gap <= 0 {
		c.Gap = 250 * time.Millisecond
	}
	if c.Count <= 0 {
		c.Count = 3
	}
	if c.Amplitude <= 0 || c.Amplitude > 1 {
		c.Amplitude = 0.3
	}
	return c
}

// Tone renders the beep pattern as 8 kHz μ-law. Each beep fades in and out
// over 5ms to avoid clicks.
func Tone(cfg ToneConfig) []byte {
	cfg = cfg.withDefaults()
	f := pcm.L16Mono8K
	rate := float64(f.SampleRate())
	beepN := int(f.SamplesInDuration(cfg.Beep))
	gapN := int(f.SamplesInDuration(cfg.Gap))
	ramp := int(f.SamplesInDuration(5 * time.Millisecond))

	lin := make([]byte, 0, (beepN*cfg.Count+gapN*(cfg.Count-1))*2)
	for b := range cfg.Count {
		if b > 0 {
			lin = append(lin, f.Silence(cfg.Gap)...)
		}
		for i := range beepN {
			gain := cfg.Amplitude
			if i < ramp {
				gain *= float64(i) / float64(ramp)
			} else if beepN-i < ramp {
				gain *= float64(beepN-i) / float64(ramp)
			}
			s := gain * math.Sin(2*math.Pi*cfg.Frequency*float64(i)/rate)
			lin = binary.LittleEndian.AppendUint16(lin, uint16(int16(s*32767)))
		}
	}
	return mulaw.Encode(lin)
}
