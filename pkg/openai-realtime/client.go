package openairealtime

import (
	"log/slog"
	"time"
)

const (
	// DefaultWebSocketURL is the default WebSocket endpoint.
	DefaultWebSocketURL = "wss://api.openai.com/v1/realtime"

	defaultHandshakeTimeout = 10 * time.Second
)

// Client dials OpenAI Realtime websocket sessions.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	apiKey           string
	organization     string
	project          string
	wsURL            string
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// NewClient creates a new OpenAI Realtime client.
//
// The apiKey can be obtained from https://platform.openai.com/api-keys.
// An empty key is reported by Dial.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		apiKey:           apiKey,
		wsURL:            DefaultWebSocketURL,
		handshakeTimeout: defaultHandshakeTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{config: cfg}
}

// WithOrganization sets the organization ID for API requests.
func WithOrganization(orgID string) Option {
	return func(c *clientConfig) {
		c.organization = orgID
	}
}

// WithProject sets the project ID for API requests.
func WithProject(projectID string) Option {
	return func(c *clientConfig) {
		c.project = projectID
	}
}

// WithWebSocketURL overrides the endpoint, mostly for tests.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithHandshakeTimeout bounds the websocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.handshakeTimeout = d
	}
}

// WithLogger sets the logger used for frame-level debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
