package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientChat(t *testing.T) {
	var reqBody chatCompletionRequest

	// Mock server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		// Check authorization header
		auth := r.Header.Get("Authorization")
		if auth != "Bearer test-key" {
			t.Errorf("Expected Bearer test-key, got %s", auth)
		}

		json.NewDecoder(r.Body).Decode(&reqBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"model": "gpt-3.5-turbo",
			"choices": [{"message": {"role": "assistant", "content": "Hello! How can I help?"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	// Create client
	client, err := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("test-key"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	resp, err := client.Chat(ctx, &ChatRequest{
		Messages: []Message{
			NewUserMessage("Hello"),
			NewAssistantMessage("Hi"),
			NewUserMessage("How are you?"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "Hello! How can I help?" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.Message.Role != RoleAssistant {
		t.Errorf("Expected assistant role, got %s", resp.Message.Role)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("Expected finish_reason 'stop', got %s", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("Expected 15 tokens, got %d", resp.Usage.TotalTokens)
	}

	if reqBody.Model != "gpt-3.5-turbo" {
		t.Errorf("Expected default model gpt-3.5-turbo, got %s", reqBody.Model)
	}
	if len(reqBody.Messages) != 3 || reqBody.Messages[1].Role != "assistant" {
		t.Errorf("History not forwarded in order: %+v", reqBody.Messages)
	}
}

func TestClientSystemPrompt(t *testing.T) {
	var reqBody chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&reqBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL), WithSystemPrompt("Be brief."))
	defer client.Close()

	if _, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("hi")}}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(reqBody.Messages) != 2 || reqBody.Messages[0].Role != "system" || reqBody.Messages[0].Content != "Be brief." {
		t.Errorf("Expected system prompt first, got %+v", reqBody.Messages)
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected /models, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []interface{}{},
		})
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	err := client.Health(context.Background())
	if err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "Invalid API key",
				"code":    "invalid_api_key",
			},
		})
	}))
	defer server.Close()

	client, _ := NewClient(
		WithBaseURL(server.URL),
		WithAPIKey("bad-key"),
	)
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("test")},
	})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Expected ErrCompletionFailed, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("Expected 401, got %d", apiErr.StatusCode)
	}
	if !apiErr.IsUnauthorized() {
		t.Error("Expected IsUnauthorized() to be true")
	}
	if apiErr.Code != "invalid_api_key" || apiErr.Body == "" {
		t.Errorf("Expected code and body, got %+v", apiErr)
	}
}

func TestClientNoRetry(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("x")}})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("Expected ErrCompletionFailed, got %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected exactly one request, got %d", hits)
	}
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, &ChatRequest{Messages: []Message{NewUserMessage("slow")}})
	if !errors.Is(err, ErrCompletionTimeout) {
		t.Errorf("Expected ErrCompletionTimeout, got %v", err)
	}
}

func TestClientEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(WithBaseURL(server.URL))
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{NewUserMessage("x")}})
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("Expected ErrCompletionFailed, got %v", err)
	}
}

func TestClientRequiresMessages(t *testing.T) {
	client, _ := NewClient(WithBaseURL("http://127.0.0.1:1"))
	defer client.Close()

	_, err := client.Chat(context.Background(), &ChatRequest{})
	if !errors.Is(err, ErrNoMessages) {
		t.Errorf("Expected ErrNoMessages, got %v", err)
	}
}

func TestClientRuntimeKey(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	key := "first"
	client, _ := NewClient(WithBaseURL(server.URL), WithAPIKeyFunc(func() string { return key }))
	defer client.Close()

	req := &ChatRequest{Messages: []Message{NewUserMessage("x")}}
	client.Chat(context.Background(), req)
	key = "second"
	client.Chat(context.Background(), req)

	if got != "Bearer second" {
		t.Errorf("Expected updated key, got %q", got)
	}
}

func TestClientNoAPIKey(t *testing.T) {
	// For local providers like Ollama, no API key is required
	client, err := NewClient(
		WithBaseURL("http://localhost:11434/v1"),
		// No API key
	)
	if err != nil {
		t.Fatalf("Should allow creation without API key: %v", err)
	}
	client.Close()
}
