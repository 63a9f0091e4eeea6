package stt

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds transcriber configuration.
type Config struct {
	BaseURL  string        // API base URL
	APIKey   string        // Bearer token
	KeyFunc  func() string // Per-request key lookup; wins over APIKey when non-empty
	Model    string        // Transcription model
	Language string        // Optional ISO-639-1 hint

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring transcribers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithAPIKeyFunc resolves the API key per request.
func WithAPIKeyFunc(fn func() string) Option {
	return func(c *Config) { c.KeyFunc = fn }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage sets the spoken language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for OpenAI Whisper.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "whisper-1",
		Timeout: 30 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Key returns the API key in effect.
func (c *Config) Key() string {
	if c.KeyFunc != nil {
		if k := c.KeyFunc(); k != "" {
			return k
		}
	}
	return c.APIKey
}
