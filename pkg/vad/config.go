package vad

import "time"

// Defaults for Config fields left at zero.
const (
	DefaultMultiplier    = 2.2
	DefaultAbsoluteFloor = 0.012
	DefaultCalibration   = 300 * time.Millisecond
	DefaultSilenceGap    = 700 * time.Millisecond
	DefaultMaxUtterance  = 8 * time.Second
	DefaultMinSpeech     = 200 * time.Millisecond
	DefaultPreRoll       = 60 * time.Millisecond

	minCalibration = 200 * time.Millisecond
	maxCalibration = 500 * time.Millisecond
)

// Config tunes the segmenter. Energies are RMS normalized to [0, 1].
type Config struct {
	// Multiplier scales the calibrated noise floor into the speech threshold.
	Multiplier float64 `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`

	// AbsoluteFloor is the lowest threshold ever used, so dead air with a
	// near-zero noise floor does not trigger on line hiss.
	AbsoluteFloor float64 `yaml:"absolute_floor,omitempty" json:"absolute_floor,omitempty"`

	// Calibration is how much initial audio is averaged into the noise
	// floor. Clamped to 200-500ms.
	Calibration time.Duration `yaml:"calibration,omitempty" json:"calibration,omitempty"`

	// SilenceGap is the silence run that closes an utterance.
	SilenceGap time.Duration `yaml:"silence_gap,omitempty" json:"silence_gap,omitempty"`

	// MaxUtterance force-closes an utterance that grows this long.
	MaxUtterance time.Duration `yaml:"max_utterance,omitempty" json:"max_utterance,omitempty"`

	// MinSpeech is the voiced duration an utterance needs to be emitted.
	MinSpeech time.Duration `yaml:"min_speech,omitempty" json:"min_speech,omitempty"`

	// PreRoll is audio kept from before the onset and prepended to a new
	// utterance. Negative disables it.
	PreRoll time.Duration `yaml:"pre_roll,omitempty" json:"pre_roll,omitempty"`
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills zero fields with defaults and clamps calibration.
func (c Config) WithDefaults() Config {
	if c.Multiplier <= 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.AbsoluteFloor <= 0 {
		c.AbsoluteFloor = DefaultAbsoluteFloor
	}
	if c.Calibration == 0 {
		c.Calibration = DefaultCalibration
	}
	c.Calibration = min(max(c.Calibration, minCalibration), maxCalibration)
	if c.SilenceGap <= 0 {
		c.SilenceGap = DefaultSilenceGap
	}
	if c.MaxUtterance <= 0 {
		c.MaxUtterance = DefaultMaxUtterance
	}
	if c.MinSpeech <= 0 {
		c.MinSpeech = DefaultMinSpeech
	}
	if c.PreRoll == 0 {
		c.PreRoll = DefaultPreRoll
	}
	return c
}
