//go:build integration

package stt

import (
	"context"
	"os"
	"testing"
	"time"
)

// Run with: STT_SAMPLE=/path/to/speech.wav go test -tags=integration -v ./pkg/stt/...

func TestWhisperIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}
	sample := os.Getenv("STT_SAMPLE")
	if sample == "" {
		t.Skip("STT_SAMPLE not set")
	}

	whisper, err := NewWhisper(WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("NewWhisper failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	text, err := whisper.Transcribe(ctx, sample)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	t.Logf("transcript: %q", text)
}
