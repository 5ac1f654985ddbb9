package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/codec/mulaw"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/resampler"
)

// DefaultRenderTimeout bounds one render.
const DefaultRenderTimeout = 3 * time.Second

// ErrUnavailable is returned when no renderer is configured and the prompt
// is not cached.
var ErrUnavailable = errors.New("fallback: no renderer")

// Source renders prompts through a cache.
type Source struct {
	renderer Renderer
	cache    *Cache
	logger   *slog.Logger

	// Timeout bounds each render. Zero means DefaultRenderTimeout.
	Timeout time.Duration
}

// NewSource returns a Source. Either renderer or cache may be nil.
func NewSource(renderer Renderer, cache *Cache, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{renderer: renderer, cache: cache, logger: logger}
}

// Prompt returns text spoken in voice as 8 kHz μ-law.
func (s *Source) Prompt(ctx context.Context, voice, text string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("fallback: empty prompt")
	}
	if s.cache != nil {
		mu, err := s.cache.Get(ctx, voice, text)
		if err == nil {
			return mu, nil
		}
		if !isMiss(err) {
			s.logger.Warn("prompt cache read failed", "error", err)
		}
	}
	if s.renderer == nil {
		return nil, ErrUnavailable
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	lin, f, err := s.renderer.Render(rctx, voice, text)
	if err != nil {
		return nil, err
	}
	mu, err := ToMuLaw(lin, f)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, voice, text, mu); err != nil {
			s.logger.Warn("prompt cache write failed", "error", err)
		}
	}
	return mu, nil
}

// Warm renders and caches each text. Failures are logged and counted.
func (s *Source) Warm(ctx context.Context, voice string, texts ...string) (failed int) {
	for _, t := range texts {
		if t == "" {
			continue
		}
		if _, err := s.Prompt(ctx, voice, t); err != nil {
			s.logger.Warn("prompt warm-up failed", "voice", voice, "error", err)
			failed++
		}
	}
	return failed
}

// ToMuLaw converts linear PCM in f to 8 kHz μ-law.
func ToMuLaw(lin []byte, f pcm.Format) ([]byte, error) {
	if !f.IsLinear() {
		return lin, nil
	}
	out, _, err := resampler.Resample(lin, f.SampleRate(), pcm.L16Mono8K.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("fallback: resample: %w", err)
	}
	return mulaw.Encode(out), nil
}
