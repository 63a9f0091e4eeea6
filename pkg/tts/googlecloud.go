package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

// ProviderGoogleCloud is the registry name for Google Cloud Text-to-Speech.
const ProviderGoogleCloud = "google-cloud"

// GoogleCloud implements Provider for Google Cloud Text-to-Speech.
// Requests authenticate with an API key when one is configured and with
// application default credentials otherwise.
type GoogleCloud struct {
	config *Config
	logger *slog.Logger

	tsOnce sync.Once
	ts     oauth2.TokenSource
	tsErr  error
}

// NewGoogleCloud creates a Cloud Text-to-Speech provider.
func NewGoogleCloud(opts ...Option) (*GoogleCloud, error) {
	cfg := DefaultConfig()
	cfg.Language = "en-US"
	cfg.Apply(opts...)

	return &GoogleCloud{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.google-cloud"),
	}, nil
}

// Name returns "google-cloud".
func (g *GoogleCloud) Name() string { return ProviderGoogleCloud }

// RequiresCredential returns false; application default credentials are
// resolved at request time when no key is set.
func (g *GoogleCloud) RequiresCredential() bool { return false }

// ListVoices lists voices for the configured language.
func (g *GoogleCloud) ListVoices(ctx context.Context) (Catalog, error) {
	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Voices.List().Context(ctx)
	if g.config.Language != "" {
		call = call.LanguageCode(g.config.Language)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, g.mapError(OpListVoices, err)
	}

	catalog := make(Catalog, len(resp.Voices))
	for _, v := range resp.Voices {
		if v == nil || v.Name == "" {
			continue
		}
		lang := g.config.Language
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		catalog[v.Name] = Voice{Provider: ProviderGoogleCloud, ID: v.Name, Name: v.Name, Language: lang}
	}

	g.logger.Debug("listed voices", "count", len(catalog), "lang", g.config.Language)
	return catalog, nil
}

// Synthesize converts text to MP3 audio.
func (g *GoogleCloud) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if err := checkRequest(ProviderGoogleCloud, text, voice); err != nil {
		return nil, err
	}

	svc, err := g.service(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	lang := voice.Language
	if lang == "" {
		lang = g.config.Language
	}

	resp, err := svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice.ID,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.mapError(OpSynthesize, err)
	}

	if resp.AudioContent == "" {
		return nil, invalidResponse(ProviderGoogleCloud, "empty audioContent")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, invalidResponse(ProviderGoogleCloud, "audioContent is not base64: %v", err)
	}
	if len(audio) == 0 {
		return nil, invalidResponse(ProviderGoogleCloud, "audioContent decoded to nothing")
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"voice", voice.ID,
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    FormatMP3,
		Provider:  ProviderGoogleCloud,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health lists voices as a connectivity and credential check.
func (g *GoogleCloud) Health(ctx context.Context) error {
	_, err := g.ListVoices(ctx)
	return err
}

// Close is a no-op; services are built per request.
func (g *GoogleCloud) Close() error {
	return nil
}

// service builds a client for the credential currently in effect.
func (g *GoogleCloud) service(ctx context.Context) (*texttospeech.Service, error) {
	client, err := g.httpClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.config.BaseURL))
	}

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, WrapError(ProviderGoogleCloud, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
	}
	return svc, nil
}

func (g *GoogleCloud) httpClient(ctx context.Context) (*http.Client, error) {
	base := g.config.HTTPClient
	if base == nil {
		base = httpc.NewClient(g.config.Timeout)
	}

	if g.config.Key() != "" {
		transport := base.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		return &http.Client{
			Timeout:   base.Timeout,
			Transport: &apiKeyTransport{key: g.config.Key, base: transport},
		}, nil
	}

	g.tsOnce.Do(func() {
		g.ts, g.tsErr = google.DefaultTokenSource(ctx, texttospeech.CloudPlatformScope)
	})
	if g.tsErr != nil {
		return nil, WrapError(ProviderGoogleCloud, fmt.Errorf("%w: %w", ErrAuthenticationFailed, g.tsErr))
	}

	// oauth2 uses the client stored under oauth2.HTTPClient as its base transport.
	baseCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return oauth2.NewClient(baseCtx, g.ts), nil
}

func (g *GoogleCloud) mapError(op Op, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return WrapError(ProviderGoogleCloud, &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Body:       gerr.Body,
			Provider:   ProviderGoogleCloud,
			Op:         op,
		})
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return WrapError(ProviderGoogleCloud, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err))
	}
	return unavailable(ProviderGoogleCloud, err)
}

// apiKeyTransport attaches the current API key to each request.
type apiKeyTransport struct {
	key  func() string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-Goog-Api-Key", t.key())
	return t.base.RoundTrip(r)
}

// Verify GoogleCloud implements Provider at compile time.
var _ Provider = (*GoogleCloud)(nil)
