package tts

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	googleTranslateBaseURL = "https://translate.google.com"

	// ProviderGoogle is the registry name for the keyless Google provider.
	ProviderGoogle = "google"

	// googleMaxChunk is the longest text the translate endpoint accepts per request.
	googleMaxChunk = 100
)

// DefaultGoogleLanguages is the static catalog offered by GoogleTranslate.
var DefaultGoogleLanguages = map[string]string{
	"English":    "en",
	"French":     "fr",
	"German":     "de",
	"Italian":    "it",
	"Japanese":   "ja",
	"Portuguese": "pt",
	"Spanish":    "es",
	"Swahili":    "sw",
}

// GoogleTranslate implements Provider using Google's translate speech
// endpoint. It needs no credential and has no network voice listing; each
// language is offered as a voice.
type GoogleTranslate struct {
	config    *Config
	client    *http.Client
	logger    *slog.Logger
	baseURL   string
	languages map[string]string
}

// NewGoogleTranslate creates the keyless Google provider.
func NewGoogleTranslate(opts ...Option) (*GoogleTranslate, error) {
	cfg := DefaultConfig()
	cfg.Language = "en"
	cfg.Apply(opts...)

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = googleTranslateBaseURL
	}

	languages := cfg.Languages
	if len(languages) == 0 {
		languages = DefaultGoogleLanguages
	}

	return &GoogleTranslate{
		config:    cfg,
		client:    cfg.client(),
		logger:    cfg.Logger.With("component", "tts.google"),
		baseURL:   baseURL,
		languages: languages,
	}, nil
}

// Name returns "google".
func (g *GoogleTranslate) Name() string { return ProviderGoogle }

// RequiresCredential returns false.
func (g *GoogleTranslate) RequiresCredential() bool { return false }

// ListVoices returns the configured language catalog without network access.
func (g *GoogleTranslate) ListVoices(ctx context.Context) (Catalog, error) {
	catalog := make(Catalog, len(g.languages))
	for name, code := range g.languages {
		catalog[name] = Voice{Provider: ProviderGoogle, ID: code, Name: name, Language: code}
	}
	return catalog, nil
}

// DefaultVoice returns the voice for the configured default language.
func (g *GoogleTranslate) DefaultVoice() Voice {
	code := g.config.Language
	for name, c := range g.languages {
		if c == code {
			return Voice{Provider: ProviderGoogle, ID: code, Name: name, Language: code}
		}
	}
	return Voice{Provider: ProviderGoogle, ID: code, Name: code, Language: code}
}

// Synthesize fetches MP3 audio chunk by chunk and concatenates the frames.
func (g *GoogleTranslate) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if err := checkRequest(ProviderGoogle, text, voice); err != nil {
		return nil, err
	}

	start := time.Now()
	lang := voice.Language
	if lang == "" {
		lang = voice.ID
	}

	chunks := SplitText(text, googleMaxChunk)
	var audio bytes.Buffer
	for i, chunk := range chunks {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", lang)
		q.Set("q", chunk)
		q.Set("total", strconv.Itoa(len(chunks)))
		q.Set("idx", strconv.Itoa(i))
		q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

		req, err := newJSONRequest(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+q.Encode(), nil)
		if err != nil {
			return nil, WrapError(ProviderGoogle, err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		req.Header.Set("Referer", g.baseURL+"/")

		resp, err := do(g.client, req, ProviderGoogle, OpSynthesize)
		if err != nil {
			return nil, err
		}
		if len(resp.Body) == 0 {
			return nil, invalidResponse(ProviderGoogle, "empty audio for chunk %d of %d", i+1, len(chunks))
		}
		audio.Write(resp.Body)
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"chunks", len(chunks),
		"bytes", audio.Len(),
		"lang", lang,
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio.Bytes(),
		Format:    FormatMP3,
		Provider:  ProviderGoogle,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health synthesizes a short phrase.
func (g *GoogleTranslate) Health(ctx context.Context) error {
	_, err := g.Synthesize(ctx, "ok", g.DefaultVoice())
	return err
}

// Close releases resources held by the provider.
func (g *GoogleTranslate) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// SplitText breaks text into pieces of at most max runes, preferring
// sentence punctuation, then whitespace, as split points.
func SplitText(text string, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if max <= 0 {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= max {
			chunks = appendChunk(chunks, string(runes))
			break
		}

		cut := -1
		for i := max; i > 0; i-- {
			if strings.ContainsRune(".!?;:,", runes[i-1]) {
				cut = i
				break
			}
		}
		if cut < 0 {
			for i := max; i > 0; i-- {
				if unicode.IsSpace(runes[i]) {
					cut = i
					break
				}
			}
		}
		if cut <= 0 {
			cut = max
		}

		chunks = appendChunk(chunks, string(runes[:cut]))
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	return chunks
}

func appendChunk(chunks []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// Verify GoogleTranslate implements Provider at compile time.
var _ Provider = (*GoogleTranslate)(nil)
