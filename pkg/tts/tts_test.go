package tts_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/teslashibe/go-voicechat/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("ListVoices returns catalog", func(t *testing.T) {
		catalog, err := mock.ListVoices(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		v, ok := catalog.Lookup("Mock")
		if !ok {
			t.Fatal("expected Mock voice")
		}
		if v.Provider != tts.ProviderMock {
			t.Errorf("expected provider mock, got %q", v.Provider)
		}
	})

	t.Run("Synthesize returns audio", func(t *testing.T) {
		voice := tts.Voice{Provider: tts.ProviderMock, ID: "mock-voice", Name: "Mock"}
		result, err := mock.Synthesize(ctx, "Hello world", voice)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		calls := mock.Calls()
		if len(calls) != 3 {
			t.Errorf("expected 3 calls, got %d", len(calls))
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 Synthesize call, got %d", mock.CallCount("Synthesize"))
		}
		if last := mock.LastCall(); last == nil || last.Method != "Health" {
			t.Errorf("unexpected last call: %+v", last)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls to be cleared")
		}
	})
}

func TestSynthesizeRejectsBadRequests(t *testing.T) {
	mock := tts.NewNamedMock("alpha", map[string]string{"Alice": "a1"})
	ctx := context.Background()

	t.Run("empty text", func(t *testing.T) {
		_, err := mock.Synthesize(ctx, "   ", tts.Voice{Provider: "alpha", ID: "a1"})
		if !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("voice from another provider", func(t *testing.T) {
		_, err := mock.Synthesize(ctx, "hi", tts.Voice{Provider: "beta", ID: "b1"})
		if !errors.Is(err, tts.ErrVoiceMismatch) {
			t.Errorf("expected ErrVoiceMismatch, got %v", err)
		}
	})

	t.Run("missing voice id", func(t *testing.T) {
		_, err := mock.Synthesize(ctx, "hi", tts.Voice{Provider: "alpha"})
		if !errors.Is(err, tts.ErrNoVoice) {
			t.Errorf("expected ErrNoVoice, got %v", err)
		}
	})
}

func TestMockWithError(t *testing.T) {
	testErr := errors.New("test error")
	mock := tts.WithError(testErr)
	ctx := context.Background()
	voice := tts.Voice{Provider: tts.ProviderMock, ID: "mock-voice"}

	t.Run("Synthesize returns error", func(t *testing.T) {
		_, err := mock.Synthesize(ctx, "Hello", voice)
		if !errors.Is(err, testErr) {
			t.Errorf("expected test error, got %v", err)
		}
	})

	t.Run("Health returns error", func(t *testing.T) {
		if err := mock.Health(ctx); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 50*time.Millisecond)
	voice := tts.Voice{Provider: tts.ProviderMock, ID: "mock-voice"}

	t.Run("Synthesize has latency", func(t *testing.T) {
		start := time.Now()
		_, err := mock.Synthesize(context.Background(), "Hello", voice)
		elapsed := time.Since(start)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed < 50*time.Millisecond {
			t.Errorf("expected at least 50ms latency, got %v", elapsed)
		}
	})

	t.Run("Context cancellation works", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := mock.Synthesize(ctx, "Hello", voice)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("first provider succeeds", func(t *testing.T) {
		a := tts.NewNamedMock("a", map[string]string{"Alice": "a1"})
		b := tts.NewNamedMock("b", map[string]string{"Alice": "b1"})
		chain, err := tts.NewChain(a, b)
		if err != nil {
			t.Fatalf("NewChain: %v", err)
		}

		result, err := chain.Synthesize(ctx, "hello", tts.Voice{Provider: "a", ID: "a1", Name: "Alice"})
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if result.Provider != "a" {
			t.Errorf("expected provider a, got %q", result.Provider)
		}
		if b.CallCount("Synthesize") != 0 {
			t.Error("fallback should not be called")
		}
	})

	t.Run("fallback re-resolves voice by name", func(t *testing.T) {
		a := tts.WithError(errors.New("down"))
		a.NameValue = "a"
		b := tts.NewNamedMock("b", map[string]string{"Alice": "b1"})
		chain, _ := tts.NewChain(a, b)

		result, err := chain.Synthesize(ctx, "hello", tts.Voice{Provider: "a", ID: "a1", Name: "Alice"})
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if result.Provider != "b" {
			t.Errorf("expected provider b, got %q", result.Provider)
		}
		last := b.LastCall()
		if last == nil || last.Voice.ID != "b1" || last.Voice.Provider != "b" {
			t.Errorf("fallback got voice %+v, want b1 from b", last)
		}
	})

	t.Run("all providers fail", func(t *testing.T) {
		a := tts.WithError(errors.New("a down"))
		a.NameValue = "a"
		b := tts.NewNamedMock("b", map[string]string{"Bob": "b2"})
		chain, _ := tts.NewChain(a, b)

		_, err := chain.Synthesize(ctx, "hello", tts.Voice{Provider: "a", ID: "a1", Name: "Alice"})
		if !errors.Is(err, tts.ErrAllProvidersFailed) {
			t.Fatalf("expected ErrAllProvidersFailed, got %v", err)
		}
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Errorf("expected 2 recorded errors, got %v", err)
		}
	})

	t.Run("foreign voice rejected", func(t *testing.T) {
		chain, _ := tts.NewChain(tts.NewNamedMock("a", nil))
		_, err := chain.Synthesize(ctx, "hello", tts.Voice{Provider: "z", ID: "z1"})
		if !errors.Is(err, tts.ErrVoiceMismatch) {
			t.Errorf("expected ErrVoiceMismatch, got %v", err)
		}
	})

	t.Run("no providers", func(t *testing.T) {
		if _, err := tts.NewChain(); err == nil {
			t.Error("expected error for empty chain")
		}
	})
}

func TestCatalog(t *testing.T) {
	catalog := tts.Catalog{
		"Rachel": {Provider: "p", ID: "r1", Name: "Rachel"},
		"Adam":   {Provider: "p", ID: "a1", Name: "Adam"},
	}

	if names := catalog.Names(); strings.Join(names, ",") != "Adam,Rachel" {
		t.Errorf("Names() = %v", names)
	}
	if v, ok := catalog.Lookup("rachel"); !ok || v.ID != "r1" {
		t.Errorf("case-insensitive lookup failed: %+v %v", v, ok)
	}
	if _, ok := catalog.Lookup("Nobody"); ok {
		t.Error("expected miss")
	}
	if name, ok := catalog.FindID("a1"); !ok || name != "Adam" {
		t.Errorf("FindID = %q %v", name, ok)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		tag  string
		want tts.Format
		ok   bool
	}{
		{"mp3", tts.FormatMP3, true},
		{"WAV", tts.FormatWAV, true},
		{"mpeg", tts.FormatMP3, true},
		{"ogg", tts.FormatOGG, true},
		{"flac", tts.FormatFLAC, true},
		{"aac", tts.FormatAAC, true},
		{"xyz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := tts.ParseFormat(tt.tag)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.tag, got, ok)
			}
		})
	}

	if tts.FormatMP3.MIME() != "audio/mpeg" {
		t.Errorf("mp3 MIME = %q", tts.FormatMP3.MIME())
	}
	if tts.FormatWAV.Extension() != ".wav" {
		t.Errorf("wav extension = %q", tts.FormatWAV.Extension())
	}
}

func TestSplitText(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := tts.SplitText("Hello there.", 100)
		if len(chunks) != 1 || chunks[0] != "Hello there." {
			t.Errorf("got %q", chunks)
		}
	})

	t.Run("long text respects limit", func(t *testing.T) {
		text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
		chunks := tts.SplitText(text, 100)
		if len(chunks) < 5 {
			t.Errorf("expected several chunks, got %d", len(chunks))
		}
		for _, c := range chunks {
			if n := utf8.RuneCountInString(c); n > 100 || n == 0 {
				t.Errorf("chunk length %d: %q", n, c)
			}
		}
		if got := strings.Join(chunks, " "); strings.Join(strings.Fields(got), " ") != strings.Join(strings.Fields(text), " ") {
			t.Error("chunks do not reassemble to the input")
		}
	})

	t.Run("unbroken text is hard split", func(t *testing.T) {
		chunks := tts.SplitText(strings.Repeat("x", 250), 100)
		if len(chunks) != 3 {
			t.Errorf("expected 3 chunks, got %d", len(chunks))
		}
	})

	t.Run("empty", func(t *testing.T) {
		if chunks := tts.SplitText("  ", 100); len(chunks) != 0 {
			t.Errorf("expected none, got %q", chunks)
		}
	})
}

func TestNewRegistry(t *testing.T) {
	for _, name := range tts.Names() {
		t.Run(name, func(t *testing.T) {
			p, err := tts.New(name, tts.WithAPIKey("test"))
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			defer p.Close()
			if p.Name() != name {
				t.Errorf("Name() = %q, want %q", p.Name(), name)
			}
		})
	}

	if _, err := tts.New("festival"); !errors.Is(err, tts.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}
