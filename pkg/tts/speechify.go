package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	speechifyV1BaseURL = "https://api.speechify.ai"
	speechifyV2BaseURL = "https://api.sws.speechify.com"

	// ProviderSpeechify is the registry name for the current Speechify API.
	ProviderSpeechify = "speechify"

	// ProviderSpeechifyV1 is the registry name for the legacy Speechify API.
	ProviderSpeechifyV1 = "speechify-v1"
)

// SpeechifyWire selects between the two Speechify request/response shapes.
type SpeechifyWire int

const (
	// SpeechifyV1 posts {text, voice, format} and receives raw audio.
	SpeechifyV1 SpeechifyWire = iota + 1

	// SpeechifyV2 posts {input, voice_id} and receives base64 audio in JSON.
	SpeechifyV2
)

// Speechify implements Provider for both Speechify wire formats.
type Speechify struct {
	config  *Config
	wire    SpeechifyWire
	name    string
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewSpeechify creates a Speechify provider speaking the given wire format.
func NewSpeechify(wire SpeechifyWire, opts ...Option) (*Speechify, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	var name, base string
	switch wire {
	case SpeechifyV1:
		name, base = ProviderSpeechifyV1, speechifyV1BaseURL
	case SpeechifyV2:
		name, base = ProviderSpeechify, speechifyV2BaseURL
	default:
		return nil, fmt.Errorf("tts: unknown speechify wire format %d", wire)
	}
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Speechify{
		config:  cfg,
		wire:    wire,
		name:    name,
		client:  cfg.client(),
		logger:  cfg.Logger.With("component", "tts."+name),
		baseURL: base,
	}, nil
}

// Name returns "speechify" or "speechify-v1".
func (s *Speechify) Name() string { return s.name }

// RequiresCredential returns true.
func (s *Speechify) RequiresCredential() bool { return true }

// Wire returns the wire format in use.
func (s *Speechify) Wire() SpeechifyWire { return s.wire }

type speechifyVoice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
	Language    string `json:"language"`
}

// ListVoices fetches the voice list. Both wire formats return a bare JSON array.
func (s *Speechify) ListVoices(ctx context.Context) (Catalog, error) {
	if err := s.config.Validate(); err != nil {
		return nil, WrapError(s.name, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}

	path := "/v1/voices"
	if s.wire == SpeechifyV1 {
		path = "/v2/voices"
	}

	req, err := newJSONRequest(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, WrapError(s.name, err)
	}
	s.setHeaders(req)

	resp, err := do(s.client, req, s.name, OpListVoices)
	if err != nil {
		return nil, err
	}

	var voices []speechifyVoice
	if err := decodeJSON(resp.Body, &voices); err != nil {
		return nil, WrapError(s.name, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}

	catalog := make(Catalog, len(voices))
	for _, v := range voices {
		name := v.DisplayName
		if name == "" {
			name = v.Name
		}
		if v.ID == "" || name == "" {
			continue
		}
		if _, dup := catalog[name]; dup {
			s.logger.Debug("duplicate voice name, keeping first", "name", name, "voice_id", v.ID)
			continue
		}
		lang := v.Locale
		if lang == "" {
			lang = v.Language
		}
		catalog[name] = Voice{Provider: s.name, ID: v.ID, Name: name, Language: lang}
	}

	s.logger.Debug("listed voices", "count", len(catalog))
	return catalog, nil
}

// Synthesize converts text to audio.
func (s *Speechify) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if err := checkRequest(s.name, text, voice); err != nil {
		return nil, err
	}
	if err := s.config.Validate(); err != nil {
		return nil, WrapError(s.name, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}

	start := time.Now()

	var (
		audio  []byte
		format Format
		err    error
	)
	if s.wire == SpeechifyV1 {
		audio, format, err = s.synthesizeV1(ctx, text, voice)
	} else {
		audio, format, err = s.synthesizeV2(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	s.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"format", format,
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    format,
		Provider:  s.name,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

type speechifyV1Request struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

func (s *Speechify) synthesizeV1(ctx context.Context, text string, voice Voice) ([]byte, Format, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, s.baseURL+"/v2/tts", speechifyV1Request{
		Text:   text,
		Voice:  voice.ID,
		Format: string(FormatMP3),
	})
	if err != nil {
		return nil, "", WrapError(s.name, err)
	}
	s.setHeaders(req)

	resp, err := do(s.client, req, s.name, OpSynthesize)
	if err != nil {
		return nil, "", err
	}
	if len(resp.Body) == 0 {
		return nil, "", invalidResponse(s.name, "empty audio body")
	}

	format, ok := FormatFromContentType(resp.Header.Get("Content-Type"))
	if !ok {
		format = FormatMP3
	}
	return resp.Body, format, nil
}

type speechifyV2Request struct {
	Input   string `json:"input"`
	VoiceID string `json:"voice_id"`
}

type speechifyV2Response struct {
	AudioData   *string `json:"audio_data"`
	AudioFormat string  `json:"audio_format"`
}

func (s *Speechify) synthesizeV2(ctx context.Context, text string, voice Voice) ([]byte, Format, error) {
	req, err := newJSONRequest(ctx, http.MethodPost, s.baseURL+"/v1/audio/speech", speechifyV2Request{
		Input:   text,
		VoiceID: voice.ID,
	})
	if err != nil {
		return nil, "", WrapError(s.name, err)
	}
	s.setHeaders(req)

	resp, err := do(s.client, req, s.name, OpSynthesize)
	if err != nil {
		return nil, "", err
	}

	return decodeSpeechifyV2(s.name, resp.Body)
}

// decodeSpeechifyV2 extracts base64 audio. A missing, malformed or empty
// audio_data field is an invalid response even on HTTP 200.
func decodeSpeechifyV2(provider string, body []byte) ([]byte, Format, error) {
	var parsed speechifyV2Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", invalidResponse(provider, "decode body: %v", err)
	}
	if parsed.AudioData == nil {
		return nil, "", invalidResponse(provider, "no audio_data in response")
	}

	audio, err := base64.StdEncoding.DecodeString(*parsed.AudioData)
	if err != nil {
		return nil, "", invalidResponse(provider, "audio_data is not base64: %v", err)
	}
	if len(audio) == 0 {
		return nil, "", invalidResponse(provider, "audio_data is empty")
	}

	tag := parsed.AudioFormat
	if tag == "" {
		tag = string(FormatWAV)
	}
	format, ok := ParseFormat(tag)
	if !ok {
		return nil, "", invalidResponse(provider, "unrecognized audio_format %q", parsed.AudioFormat)
	}
	return audio, format, nil
}

// Health lists voices as a connectivity and credential check.
func (s *Speechify) Health(ctx context.Context) error {
	_, err := s.ListVoices(ctx)
	return err
}

// Close releases resources held by the provider.
func (s *Speechify) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Speechify) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.config.Key())
	req.Header.Set("Accept", "*/*")
}

// Verify Speechify implements Provider at compile time.
var _ Provider = (*Speechify)(nil)
