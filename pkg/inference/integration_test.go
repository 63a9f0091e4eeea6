//go:build integration

package inference

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// Run with: go test -tags=integration -v ./pkg/inference/...

func TestOpenAIIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	client, err := NewClient(WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Health", func(t *testing.T) {
		if err := client.Health(ctx); err != nil {
			t.Errorf("Health check failed: %v", err)
		}
	})

	t.Run("ChatWithHistory", func(t *testing.T) {
		resp, err := client.Chat(ctx, &ChatRequest{
			Messages: PrependSystem("You are a voice assistant. Answer in one word.", []Message{
				NewUserMessage("My favourite colour is green."),
				NewAssistantMessage("Noted."),
				NewUserMessage("What is my favourite colour?"),
			}),
		})
		if err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
		t.Logf("reply %q in %dms (%d tokens)", resp.Message.Content, resp.LatencyMs, resp.Usage.TotalTokens)
		if !strings.Contains(strings.ToLower(resp.Message.Content), "green") {
			t.Errorf("history not used, reply %q", resp.Message.Content)
		}
	})
}
