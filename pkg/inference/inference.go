// Package inference is the chat engine of the voice assistant: it sends
// the conversation history to an OpenAI-compatible /chat/completions
// endpoint and returns the assistant's reply.
//
// Any server speaking that contract works (OpenAI, Ollama, vLLM, Groq).
// Requests are never retried. Timeouts surface as ErrCompletionTimeout and
// every other failure matches ErrCompletionFailed.
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKeyFunc(sess.CredentialFunc("openai")),
//	    inference.WithModel("gpt-3.5-turbo"),
//	)
//	resp, err := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: sess.History().Snapshot(),
//	})
package inference

import "context"

// Provider completes a conversation. The pipeline depends on this
// interface, never on *Client.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Health checks connectivity and credentials.
	Health(ctx context.Context) error

	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length. Zero leaves it to the server.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0). Zero leaves it to the server.
	Temperature float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage is the token accounting reported by the service, logged per turn.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
