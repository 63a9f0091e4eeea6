package tts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	// ProviderOpenAI is the registry name for OpenAI speech.
	ProviderOpenAI = "openai"
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral voice
	VoiceEcho    = "echo"    // Male voice
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male voice
	VoiceNova    = "nova"    // Female voice
	VoiceShimmer = "shimmer" // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

// openAIVoices is fixed; the API has no listing endpoint.
var openAIVoices = map[string]string{
	"Alloy":   VoiceAlloy,
	"Echo":    VoiceEcho,
	"Fable":   VoiceFable,
	"Onyx":    VoiceOnyx,
	"Nova":    VoiceNova,
	"Shimmer": VoiceShimmer,
}

// OpenAI implements Provider for OpenAI TTS. It shares the chat credential.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.Apply(opts...)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	return &OpenAI{
		config:  cfg,
		client:  cfg.client(),
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: baseURL,
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return ProviderOpenAI }

// RequiresCredential returns true.
func (o *OpenAI) RequiresCredential() bool { return true }

// ListVoices returns the built-in voices.
func (o *OpenAI) ListVoices(ctx context.Context) (Catalog, error) {
	catalog := make(Catalog, len(openAIVoices))
	for name, id := range openAIVoices {
		catalog[name] = Voice{Provider: ProviderOpenAI, ID: id, Name: name, Model: o.config.ModelID}
	}
	return catalog, nil
}

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize converts text to MP3 audio.
func (o *OpenAI) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if err := checkRequest(ProviderOpenAI, text, voice); err != nil {
		return nil, err
	}
	if err := o.config.Validate(); err != nil {
		return nil, WrapError(ProviderOpenAI, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}

	start := time.Now()
	model := voice.Model
	if model == "" {
		model = o.config.ModelID
	}

	req, err := newJSONRequest(ctx, http.MethodPost, o.baseURL+"/audio/speech", openAISpeechRequest{
		Model:          model,
		Voice:          voice.ID,
		Input:          text,
		ResponseFormat: string(FormatMP3),
	})
	if err != nil {
		return nil, WrapError(ProviderOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.config.Key())

	resp, err := do(o.client, req, ProviderOpenAI, OpSynthesize)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, invalidResponse(ProviderOpenAI, "empty audio body")
	}

	latency := time.Since(start).Milliseconds()
	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(resp.Body),
		"latency_ms", latency,
		"voice", voice.ID,
	)

	return &AudioResult{
		Audio:     resp.Body,
		Format:    FormatMP3,
		Provider:  ProviderOpenAI,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity by listing models.
func (o *OpenAI) Health(ctx context.Context) error {
	if err := o.config.Validate(); err != nil {
		return WrapError(ProviderOpenAI, err)
	}
	req, err := newJSONRequest(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return WrapError(ProviderOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.config.Key())

	_, err = do(o.client, req, ProviderOpenAI, OpHealth)
	return err
}

// Close releases resources held by the provider.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
