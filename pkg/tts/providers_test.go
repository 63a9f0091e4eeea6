package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/teslashibe/go-voicechat/pkg/tts"
)

func TestElevenLabs(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "el-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/voices":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"voices":[{"voice_id":"v-rachel","name":"Rachel"},{"voice_id":"v-adam","name":"Adam"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/text-to-speech/v-rachel":
			if r.Header.Get("Accept") != "audio/mpeg" {
				t.Errorf("Accept = %q", r.Header.Get("Accept"))
			}
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("ID3fake-mp3"))
		case r.URL.Path == "/v1/text-to-speech/v-broken":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":{"message":"text too long"}}`))
		case r.URL.Path == "/v1/text-to-speech/v-empty":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	el, err := tts.NewElevenLabs(tts.WithAPIKey("el-key"), tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer el.Close()

	t.Run("ListVoices", func(t *testing.T) {
		catalog, err := el.ListVoices(ctx)
		if err != nil {
			t.Fatalf("ListVoices: %v", err)
		}
		if len(catalog) != 2 {
			t.Fatalf("expected 2 voices, got %d", len(catalog))
		}
		v := catalog["Rachel"]
		if v.ID != "v-rachel" || v.Provider != tts.ProviderElevenLabs {
			t.Errorf("unexpected voice %+v", v)
		}
	})

	t.Run("Synthesize sends model and settings", func(t *testing.T) {
		result, err := el.Synthesize(ctx, "Hello", tts.Voice{Provider: tts.ProviderElevenLabs, ID: "v-rachel"})
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if string(result.Audio) != "ID3fake-mp3" || result.Format != tts.FormatMP3 {
			t.Errorf("unexpected result %q %q", result.Audio, result.Format)
		}
		if gotBody["model_id"] != tts.ModelMonolingualV1 {
			t.Errorf("model_id = %v", gotBody["model_id"])
		}
		settings, _ := gotBody["voice_settings"].(map[string]any)
		if settings["stability"] != 0.5 || settings["similarity_boost"] != 0.75 {
			t.Errorf("voice_settings = %v", settings)
		}
	})

	t.Run("API error is SynthesisFailed", func(t *testing.T) {
		_, err := el.Synthesize(ctx, "Hello", tts.Voice{Provider: tts.ProviderElevenLabs, ID: "v-broken"})
		if !errors.Is(err, tts.ErrSynthesisFailed) {
			t.Fatalf("expected ErrSynthesisFailed, got %v", err)
		}
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != 400 || apiErr.Message != "text too long" {
			t.Errorf("unexpected API error %+v", apiErr)
		}
	})

	t.Run("empty body is InvalidResponse", func(t *testing.T) {
		_, err := el.Synthesize(ctx, "Hello", tts.Voice{Provider: tts.ProviderElevenLabs, ID: "v-empty"})
		if !errors.Is(err, tts.ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("bad key is AuthenticationFailed", func(t *testing.T) {
		bad, _ := tts.NewElevenLabs(tts.WithAPIKey("wrong"), tts.WithBaseURL(server.URL))
		_, err := bad.ListVoices(ctx)
		if !errors.Is(err, tts.ErrAuthenticationFailed) {
			t.Errorf("expected ErrAuthenticationFailed, got %v", err)
		}
	})

	t.Run("missing key fails without a request", func(t *testing.T) {
		none, _ := tts.NewElevenLabs(tts.WithBaseURL("http://127.0.0.1:1"))
		_, err := none.ListVoices(ctx)
		if !errors.Is(err, tts.ErrAuthenticationFailed) || !errors.Is(err, tts.ErrNoAPIKey) {
			t.Errorf("expected auth failure, got %v", err)
		}
	})

	t.Run("runtime key is read per request", func(t *testing.T) {
		var key atomic.Value
		key.Store("wrong")
		dyn, _ := tts.NewElevenLabs(
			tts.WithAPIKeyFunc(func() string { return key.Load().(string) }),
			tts.WithBaseURL(server.URL),
		)
		if _, err := dyn.ListVoices(ctx); !errors.Is(err, tts.ErrAuthenticationFailed) {
			t.Fatalf("expected auth failure first, got %v", err)
		}
		key.Store("el-key")
		if _, err := dyn.ListVoices(ctx); err != nil {
			t.Errorf("expected success after key change, got %v", err)
		}
	})
}

func TestElevenLabsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	el, _ := tts.NewElevenLabs(tts.WithAPIKey("k"), tts.WithBaseURL(url))
	_, err := el.ListVoices(context.Background())
	if !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestListVoicesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	sp, _ := tts.NewSpeechify(tts.SpeechifyV2, tts.WithAPIKey("k"), tts.WithBaseURL(server.URL))
	_, err := sp.ListVoices(context.Background())
	if !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSpeechifyV1(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sp-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v2/voices":
			w.Write([]byte(`[{"name":"Henry","id":"henry"},{"name":"Joanna","id":"joanna"}]`))
		case "/v2/tts":
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("mp3-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	sp, err := tts.NewSpeechify(tts.SpeechifyV1, tts.WithAPIKey("sp-key"), tts.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewSpeechify: %v", err)
	}
	if sp.Name() != tts.ProviderSpeechifyV1 {
		t.Errorf("Name() = %q", sp.Name())
	}

	catalog, err := sp.ListVoices(ctx)
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	voice, ok := catalog.Lookup("Henry")
	if !ok || voice.ID != "henry" {
		t.Fatalf("expected Henry, got %+v", catalog)
	}

	result, err := sp.Synthesize(ctx, "Hi there", voice)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != "mp3-bytes" || result.Format != tts.FormatMP3 {
		t.Errorf("unexpected result %q %q", result.Audio, result.Format)
	}
	if gotBody["text"] != "Hi there" || gotBody["voice"] != "henry" || gotBody["format"] != "mp3" {
		t.Errorf("unexpected request body %v", gotBody)
	}
}

func TestSpeechifyV2(t *testing.T) {
	responses := map[string]string{
		"ok":        `{"audio_data":"` + base64.StdEncoding.EncodeToString([]byte("RIFFwav")) + `","audio_format":"wav"}`,
		"mp3":       `{"audio_data":"` + base64.StdEncoding.EncodeToString([]byte("ID3")) + `","audio_format":"mp3"}`,
		"noformat":  `{"audio_data":"` + base64.StdEncoding.EncodeToString([]byte("RIFF")) + `"}`,
		"missing":   `{"audio_format":"wav"}`,
		"badbase64": `{"audio_data":"!!!not-base64!!!","audio_format":"wav"}`,
		"empty":     `{"audio_data":"","audio_format":"wav"}`,
		"oddformat": `{"audio_data":"` + base64.StdEncoding.EncodeToString([]byte("x")) + `","audio_format":"vorbis-ish"}`,
	}

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/voices":
			w.Write([]byte(`[{"id":"dc1f","display_name":"Sophia","locale":"en-US"}]`))
		case "/v1/audio/speech":
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &gotBody)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(responses[gotBody["voice_id"].(string)]))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	sp, _ := tts.NewSpeechify(tts.SpeechifyV2, tts.WithAPIKey("k"), tts.WithBaseURL(server.URL))

	t.Run("ListVoices uses display_name", func(t *testing.T) {
		catalog, err := sp.ListVoices(ctx)
		if err != nil {
			t.Fatalf("ListVoices: %v", err)
		}
		if v, ok := catalog["Sophia"]; !ok || v.ID != "dc1f" || v.Language != "en-US" {
			t.Errorf("unexpected catalog %+v", catalog)
		}
	})

	voice := func(id string) tts.Voice { return tts.Voice{Provider: tts.ProviderSpeechify, ID: id} }

	t.Run("decodes base64 audio", func(t *testing.T) {
		result, err := sp.Synthesize(ctx, "Hello", voice("ok"))
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if string(result.Audio) != "RIFFwav" || result.Format != tts.FormatWAV {
			t.Errorf("unexpected result %q %q", result.Audio, result.Format)
		}
		if gotBody["input"] != "Hello" || gotBody["voice_id"] != "ok" {
			t.Errorf("unexpected request body %v", gotBody)
		}
	})

	t.Run("honours audio_format", func(t *testing.T) {
		result, err := sp.Synthesize(ctx, "Hello", voice("mp3"))
		if err != nil || result.Format != tts.FormatMP3 {
			t.Errorf("got %v, %v", result, err)
		}
	})

	t.Run("defaults to wav", func(t *testing.T) {
		result, err := sp.Synthesize(ctx, "Hello", voice("noformat"))
		if err != nil || result.Format != tts.FormatWAV {
			t.Errorf("got %v, %v", result, err)
		}
	})

	for _, id := range []string{"missing", "badbase64", "empty", "oddformat"} {
		t.Run("invalid "+id, func(t *testing.T) {
			_, err := sp.Synthesize(ctx, "Hello", voice(id))
			if !errors.Is(err, tts.ErrInvalidResponse) {
				t.Errorf("expected ErrInvalidResponse, got %v", err)
			}
		})
	}
}

func TestGoogleTranslate(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		if r.URL.Path != "/translate_tts" || q.Get("client") != "tw-ob" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len([]rune(q.Get("q"))) > 100 {
			t.Errorf("chunk too long: %d", len([]rune(q.Get("q"))))
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("[" + q.Get("tl") + q.Get("idx") + "]"))
	}))
	defer server.Close()

	ctx := context.Background()
	g, _ := tts.NewGoogleTranslate(tts.WithBaseURL(server.URL))

	if g.RequiresCredential() {
		t.Error("google should not need a credential")
	}

	catalog, err := g.ListVoices(ctx)
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if requests.Load() != 0 {
		t.Error("ListVoices should not touch the network")
	}
	sw, ok := catalog.Lookup("Swahili")
	if !ok || sw.Language != "sw" {
		t.Fatalf("expected Swahili in catalog, got %+v", catalog)
	}

	text := strings.Repeat("Habari ya asubuhi rafiki yangu. ", 8)
	result, err := g.Synthesize(ctx, text, sw)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	n := int(requests.Load())
	if n < 2 {
		t.Errorf("expected text to be chunked, got %d requests", n)
	}
	if !strings.HasPrefix(string(result.Audio), "[sw0][sw1]") || result.Format != tts.FormatMP3 {
		t.Errorf("unexpected audio %q", result.Audio)
	}
}

func TestOpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" || r.Header.Get("Authorization") != "Bearer oa" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","code":"invalid_api_key"}}`))
			return
		}
		w.Write([]byte("mp3"))
	}))
	defer server.Close()

	ctx := context.Background()
	o, _ := tts.NewOpenAI(tts.WithAPIKey("oa"), tts.WithBaseURL(server.URL))
	catalog, _ := o.ListVoices(ctx)
	voice, ok := catalog.Lookup("nova")
	if !ok {
		t.Fatal("expected nova")
	}
	if _, err := o.Synthesize(ctx, "hi", voice); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	bad, _ := tts.NewOpenAI(tts.WithAPIKey("nope"), tts.WithBaseURL(server.URL))
	_, err := bad.Synthesize(ctx, "hi", voice)
	var apiErr *tts.APIError
	if !errors.Is(err, tts.ErrAuthenticationFailed) || !errors.As(err, &apiErr) || apiErr.Code != "invalid_api_key" {
		t.Errorf("expected auth failure with code, got %v", err)
	}
}

func TestGoogleCloud(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Goog-Api-Key") != "gc-key" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/v1/voices"):
			w.Write([]byte(`{"voices":[{"name":"en-US-Wavenet-D","languageCodes":["en-US"]}]}`))
		case strings.HasSuffix(r.URL.Path, "/v1/text:synthesize"):
			w.Write([]byte(`{"audioContent":"` + base64.StdEncoding.EncodeToString([]byte("ID3cloud")) + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	gc, _ := tts.NewGoogleCloud(
		tts.WithAPIKey("gc-key"),
		tts.WithBaseURL(server.URL+"/"),
		tts.WithHTTPClient(server.Client()),
	)

	catalog, err := gc.ListVoices(ctx)
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	voice, ok := catalog["en-US-Wavenet-D"]
	if !ok || voice.Language != "en-US" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}

	result, err := gc.Synthesize(ctx, "Hello", voice)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != "ID3cloud" {
		t.Errorf("unexpected audio %q", result.Audio)
	}

	bad, _ := tts.NewGoogleCloud(
		tts.WithAPIKey("wrong"),
		tts.WithBaseURL(server.URL+"/"),
		tts.WithHTTPClient(server.Client()),
	)
	if _, err := bad.ListVoices(ctx); !errors.Is(err, tts.ErrAuthenticationFailed) {
		t.Errorf("expected ErrAuthenticationFailed, got %v", err)
	}
}
