package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/pkg/inference"
	"github.com/teslashibe/go-voicechat/pkg/stt"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body += "audio:\n  backend: mock\n  scratch_dir: " + t.TempDir() + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	return cfg
}

func TestBuildRegistersProviders(t *testing.T) {
	cfg := loadConfig(t, "tts:\n  provider: google\n")

	res, err := Build(cfg, quietLogger(), Overrides{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	status := res.Session.Status()
	if status.Provider != tts.ProviderGoogle {
		t.Errorf("active provider = %q, want google", status.Provider)
	}
	for _, name := range []string{
		tts.ProviderElevenLabs, tts.ProviderSpeechify, tts.ProviderSpeechifyV1,
		tts.ProviderGoogle, tts.ProviderGoogleCloud, tts.ProviderOpenAI,
	} {
		found := false
		for _, p := range status.Providers {
			if p == name {
				found = true
			}
		}
		if !found {
			t.Errorf("provider %s not registered (have %v)", name, status.Providers)
		}
	}
	if !res.Orchestrator.VoiceEnabled() {
		t.Error("mock backend should enable voice input")
	}
	if res.Web != nil {
		t.Error("web server should be off by default")
	}
	if res.Metrics == nil {
		t.Error("metrics should be on by default")
	}
}

func TestBuildFallbackChain(t *testing.T) {
	cfg := loadConfig(t, "tts:\n  provider: elevenlabs\n  fallbacks: [google]\n")

	res, err := Build(cfg, quietLogger(), Overrides{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	if got := res.Session.ProviderName(); got != "elevenlabs+google" {
		t.Errorf("active provider = %q, want elevenlabs+google", got)
	}
}

func TestBuildUnknownProvider(t *testing.T) {
	cfg := loadConfig(t, "tts:\n  provider: nope\n")
	if _, err := Build(cfg, quietLogger(), Overrides{}); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg = loadConfig(t, "tts:\n  provider: google\n  fallbacks: [nope]\n")
	if _, err := Build(cfg, quietLogger(), Overrides{}); err == nil {
		t.Error("expected error for unknown fallback")
	}
}

func TestBuildRunsTurn(t *testing.T) {
	cfg := loadConfig(t, "tts:\n  provider: mock\nweb:\n  enabled: true\n  addr: \":0\"\n")

	res, err := Build(cfg, quietLogger(), Overrides{
		Chat:        inference.NewReplyMock("Hi there"),
		Transcriber: stt.NewMock("Hello"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer res.Cleanup()

	if res.Web == nil {
		t.Fatal("expected web server")
	}

	out, err := res.Orchestrator.RunVoice(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunVoice() error = %v", err)
	}
	if out.User.Content != "Hello" || out.Assistant.Content != "Hi there" {
		t.Errorf("unexpected turn: %+v / %+v", out.User, out.Assistant)
	}
	if !out.Assistant.HasAudio() {
		t.Error("mock provider should attach audio")
	}
	if live := res.Scratch.Live(); len(live) != 0 {
		t.Errorf("scratch artifacts left behind: %v", live)
	}
}
