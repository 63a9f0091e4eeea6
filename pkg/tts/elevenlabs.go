package tts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io"

	// ProviderElevenLabs is the registry name for ElevenLabs.
	ProviderElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelMonolingualV1 is the legacy English model and the default.
	ModelMonolingualV1 = "eleven_monolingual_v1"

	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"

	// ModelTurboV2_5 is the fastest English model.
	ModelTurboV2_5 = "eleven_turbo_v2_5"
)

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
// The API key may be supplied later through WithAPIKeyFunc.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelMonolingualV1
	cfg.Apply(opts...)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:  cfg,
		client:  cfg.client(),
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}, nil
}

// Name returns "elevenlabs".
func (e *ElevenLabs) Name() string { return ProviderElevenLabs }

// RequiresCredential returns true.
func (e *ElevenLabs) RequiresCredential() bool { return true }

type elevenLabsVoices struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// ListVoices fetches the account's voices.
func (e *ElevenLabs) ListVoices(ctx context.Context) (Catalog, error) {
	if err := e.config.Validate(); err != nil {
		return nil, WrapError(ProviderElevenLabs, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}

	req, err := newJSONRequest(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, WrapError(ProviderElevenLabs, err)
	}
	e.setHeaders(req, "application/json")

	resp, err := do(e.client, req, ProviderElevenLabs, OpListVoices)
	if err != nil {
		return nil, err
	}

	var parsed elevenLabsVoices
	if err := decodeJSON(resp.Body, &parsed); err != nil {
		return nil, WrapError(ProviderElevenLabs, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}

	catalog := make(Catalog, len(parsed.Voices))
	for _, v := range parsed.Voices {
		if v.VoiceID == "" || v.Name == "" {
			continue
		}
		if _, dup := catalog[v.Name]; dup {
			e.logger.Debug("duplicate voice name, keeping first", "name", v.Name, "voice_id", v.VoiceID)
			continue
		}
		catalog[v.Name] = Voice{
			Provider: ProviderElevenLabs,
			ID:       v.VoiceID,
			Name:     v.Name,
			Model:    e.config.ModelID,
			Settings: e.config.VoiceSettings,
		}
	}

	e.logger.Debug("listed voices", "count", len(catalog))
	return catalog, nil
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to MP3 audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if err := checkRequest(ProviderElevenLabs, text, voice); err != nil {
		return nil, err
	}
	if err := e.config.Validate(); err != nil {
		return nil, WrapError(ProviderElevenLabs, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}

	start := time.Now()

	model := voice.Model
	if model == "" {
		model = e.config.ModelID
	}
	settings := voice.Settings
	if settings.IsZero() {
		settings = e.config.VoiceSettings
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, url.PathEscape(voice.ID))
	req, err := newJSONRequest(ctx, http.MethodPost, endpoint, elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, WrapError(ProviderElevenLabs, err)
	}
	e.setHeaders(req, FormatMP3.MIME())

	resp, err := do(e.client, req, ProviderElevenLabs, OpSynthesize)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, invalidResponse(ProviderElevenLabs, "empty audio body")
	}

	format, ok := FormatFromContentType(resp.Header.Get("Content-Type"))
	if !ok {
		format = FormatMP3
	}

	latency := time.Since(start).Milliseconds()
	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(resp.Body),
		"latency_ms", latency,
		"model", model,
	)

	return &AudioResult{
		Audio:     resp.Body,
		Format:    format,
		Provider:  ProviderElevenLabs,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	if err := e.config.Validate(); err != nil {
		return WrapError(ProviderElevenLabs, err)
	}
	req, err := newJSONRequest(ctx, http.MethodGet, e.baseURL+"/v1/user", nil)
	if err != nil {
		return WrapError(ProviderElevenLabs, err)
	}
	e.setHeaders(req, "application/json")

	_, err = do(e.client, req, ProviderElevenLabs, OpHealth)
	return err
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// setHeaders sets required HTTP headers.
func (e *ElevenLabs) setHeaders(req *http.Request, accept string) {
	req.Header.Set("xi-api-key", e.config.Key())
	req.Header.Set("Accept", accept)
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
