package tenant

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/call"
)

var (
	// ErrUnknownTenant is returned when the selector names no configured
	// tenant and there is no default.
	ErrUnknownTenant = errors.New("tenant: unknown tenant")

	// ErrInvalid reports a tenant file that fails validation.
	ErrInvalid = errors.New("tenant: invalid file")
)

// DefaultSelector reads the tenant id from the custom parameters.
const DefaultSelector = ".customParameters.tenant"

// File is the parsed tenant file.
type File struct {
	// Default is the tenant used when the selector yields nothing.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`

	Selector Selector `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Tuning applies to every tenant; a tenant's own tuning overrides it
	// field by field.
	Tuning call.Config `yaml:"tuning,omitempty" json:"tuning,omitempty"`

	Tenants []Tenant `yaml:"tenants" json:"tenants"`
}

// Tenant is one business line answered by the bridge.
type Tenant struct {
	ID string `yaml:"id" json:"id"`

	Mode call.Mode `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Provider names the realtime vendor ("openai" or "gemini").
	Provider     string  `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model        string  `yaml:"model,omitempty" json:"model,omitempty"`
	Voice        string  `yaml:"voice,omitempty" json:"voice,omitempty"`
	SystemPrompt string  `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Temperature  float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	Greeting string `yaml:"greeting,omitempty" json:"greeting,omitempty"`
	WrapUp   string `yaml:"wrap_up,omitempty" json:"wrap_up,omitempty"`
	Apology  string `yaml:"apology,omitempty" json:"apology,omitempty"`
	Playback string `yaml:"playback,omitempty" json:"playback,omitempty"`

	Tuning *call.Config `yaml:"tuning,omitempty" json:"tuning,omitempty"`
}

// Load reads and parses a tenant file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a tenant file.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tenant: parse: %w", err)
	}
	if f.Selector.IsZero() {
		sel, err := ParseSelector(DefaultSelector)
		if err != nil {
			return nil, err
		}
		f.Selector = sel
	}
	for i := range f.Tenants {
		if f.Tenants[i].Mode == "" {
			f.Tenants[i].Mode = call.ModeAI
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids, modes and providers.
func (f *File) Validate() error {
	if len(f.Tenants) == 0 {
		return fmt.Errorf("%w: no tenants", ErrInvalid)
	}
	seen := make(map[string]bool, len(f.Tenants))
	for i, t := range f.Tenants {
		if t.ID == "" {
			return fmt.Errorf("%w: tenants[%d]: missing id", ErrInvalid, i)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: duplicate tenant %q", ErrInvalid, t.ID)
		}
		seen[t.ID] = true
		switch t.Mode {
		case call.ModeAI:
			if t.Provider == "" {
				return fmt.Errorf("%w: tenant %q: missing provider", ErrInvalid, t.ID)
			}
		case call.ModePlayback:
			if t.Playback == "" {
				return fmt.Errorf("%w: tenant %q: playback mode without a message", ErrInvalid, t.ID)
			}
		default:
			return fmt.Errorf("%w: tenant %q: unknown mode %q", ErrInvalid, t.ID, t.Mode)
		}
	}
	if f.Default != "" && !seen[f.Default] {
		return fmt.Errorf("%w: default tenant %q not defined", ErrInvalid, f.Default)
	}
	return nil
}

// Find returns the tenant with the given id.
func (f *File) Find(id string) (*Tenant, bool) {
	for i := range f.Tenants {
		if f.Tenants[i].ID == id {
			return &f.Tenants[i], true
		}
	}
	return nil, false
}

// Providers returns the distinct providers used by AI tenants.
func (f *File) Providers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range f.Tenants {
		if t.Mode != call.ModeAI || seen[t.Provider] {
			continue
		}
		seen[t.Provider] = true
		out = append(out, t.Provider)
	}
	return out
}

// TuningFor returns the file tuning overlaid with the tenant's.
func (f *File) TuningFor(t *Tenant) call.Config {
	cfg := f.Tuning
	if t.Tuning == nil {
		return cfg
	}
	o := *t.Tuning
	if o.MaxTurns != 0 {
		cfg.MaxTurns = o.MaxTurns
	}
	if o.MaxCallDuration != 0 {
		cfg.MaxCallDuration = o.MaxCallDuration
	}
	if o.HangupDrain != 0 {
		cfg.HangupDrain = o.HangupDrain
	}
	if o.PromptTimeout != 0 {
		cfg.PromptTimeout = o.PromptTimeout
	}
	if o.MaxReconnects != 0 {
		cfg.MaxReconnects = o.MaxReconnects
	}
	if o.VAD != zeroTuning.VAD {
		cfg.VAD = o.VAD
	}
	if o.BargeIn != zeroTuning.BargeIn {
		cfg.BargeIn = o.BargeIn
	}
	if o.Tone != zeroTuning.Tone {
		cfg.Tone = o.Tone
	}
	return cfg
}

var zeroTuning call.Config
