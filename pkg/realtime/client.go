package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Retry and queue defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 250 * time.Millisecond
	DefaultAttemptTimeout = 10 * time.Second
	DefaultProtocolBurst  = 5
	DefaultProtocolWindow = 10 * time.Second
	DefaultSendQueue      = 256
)

// RetryConfig controls connection retries and protocol-error tolerance.
type RetryConfig struct {
	// MaxAttempts is the total number of dial attempts.
	MaxAttempts int `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`

	// BaseDelay is the wait before the second attempt. It doubles after
	// every failed attempt.
	BaseDelay time.Duration `yaml:"base_delay,omitempty" json:"base_delay,omitempty"`

	// AttemptTimeout bounds a single dial.
	AttemptTimeout time.Duration `yaml:"attempt_timeout,omitempty" json:"attempt_timeout,omitempty"`

	// ProtocolBurst protocol errors within ProtocolWindow end the stream.
	ProtocolBurst  int           `yaml:"protocol_burst,omitempty" json:"protocol_burst,omitempty"`
	ProtocolWindow time.Duration `yaml:"protocol_window,omitempty" json:"protocol_window,omitempty"`

	// SendQueue is the capacity of the handle's outbound queue.
	SendQueue int `yaml:"send_queue,omitempty" json:"send_queue,omitempty"`
}

// WithDefaults fills zero fields with defaults.
func (c RetryConfig) WithDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.ProtocolBurst <= 0 {
		c.ProtocolBurst = DefaultProtocolBurst
	}
	if c.ProtocolWindow <= 0 {
		c.ProtocolWindow = DefaultProtocolWindow
	}
	if c.SendQueue <= 0 {
		c.SendQueue = DefaultSendQueue
	}
	return c
}

// Backoff returns the wait after the given failed attempt (0-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	return c.BaseDelay << attempt
}

// Client connects sessions through one provider.
type Client struct {
	provider Provider
	cfg      RetryConfig
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient creates a client for provider. Zero config fields take defaults.
func NewClient(provider Provider, cfg RetryConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		cfg:      cfg.WithDefaults(),
		logger:   logger.With("provider", provider.Name()),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Connect dials the provider, retrying with exponential backoff. Errors
// marked non-retryable stop the retries early. The returned error wraps
// ErrConnect and the last dial error.
func (c *Client) Connect(ctx context.Context, s Session) (*Handle, error) {
	var lastErr error
	attempts := 0
	for attempt := range c.cfg.MaxAttempts {
		if attempt > 0 {
			d := c.cfg.Backoff(attempt - 1)
			c.logger.Info("retrying connect", "attempt", attempt+1, "delay", d, "error", lastErr)
			if err := c.sleep(ctx, d); err != nil {
				lastErr = err
				break
			}
		}
		attempts++
		conn, err := c.dial(ctx, s)
		if err == nil {
			c.logger.Info("connected", "attempt", attempt+1)
			return newHandle(c, conn), nil
		}
		lastErr = err
		var re *Error
		if errors.As(err, &re) && !re.Retryable {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("realtime: connect %s after %d attempts: %w: %w",
		c.provider.Name(), attempts, ErrConnect, lastErr)
}

func (c *Client) dial(ctx context.Context, s Session) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()
	return c.provider.Dial(ctx, s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
