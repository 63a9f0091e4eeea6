package tts

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials. KeyFunc, when set, is consulted on every
	// request so a credential entered at runtime takes effect immediately.
	APIKey  string
	KeyFunc func() string
	BaseURL string

	// Voice configuration
	ModelID       string
	VoiceSettings VoiceSettings
	Language      string
	Languages     map[string]string

	// Timeouts
	Timeout time.Duration

	// Transport; nil selects an httpc client with Timeout.
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAPIKeyFunc resolves the API key per request.
func WithAPIKeyFunc(fn func() string) Option {
	return func(c *Config) {
		c.KeyFunc = fn
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the model ID.
func WithModel(modelID string) Option {
	return func(c *Config) {
		c.ModelID = modelID
	}
}

// WithVoiceSettings sets voice characteristics.
func WithVoiceSettings(settings VoiceSettings) Option {
	return func(c *Config) {
		c.VoiceSettings = settings
	}
}

// WithLanguage sets the default language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.Language = code
	}
}

// WithLanguages replaces the display-name to language-code catalog used by
// providers without a voice listing endpoint.
func WithLanguages(languages map[string]string) Option {
	return func(c *Config) {
		c.Languages = languages
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		VoiceSettings: DefaultVoiceSettings(),
		Timeout:       30 * time.Second,
		Logger:        slog.Default(),
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

// Key returns the current API key.
func (c *Config) Key() string {
	if c.KeyFunc != nil {
		if k := c.KeyFunc(); k != "" {
			return k
		}
	}
	return c.APIKey
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Key() == "" {
		return ErrNoAPIKey
	}
	return nil
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return httpc.NewClient(c.Timeout)
}
