// Package stt provides speech-to-text transcription.
//
// Transcribers upload a recorded audio file to a request/response
// service and return the recognised text:
//
//	whisper, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	text, err := whisper.Transcribe(ctx, "/tmp/capture.wav")
//
// Every failure matches ErrTranscriptionFailed. Requests are not retried.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// Transcriber converts a recorded audio file to text.
type Transcriber interface {
	// Transcribe uploads the file at path and returns its text.
	// The result is never empty on success.
	Transcribe(ctx context.Context, path string) (string, error)
}

// Sentinel errors for common conditions.
var (
	// ErrTranscriptionFailed matches every transcription failure.
	ErrTranscriptionFailed = errors.New("stt: transcription failed")

	// ErrEmptyTranscript is the cause when the service recognised no speech.
	ErrEmptyTranscript = errors.New("stt: empty transcript")
)

// TranscriptionError describes a failed transcription.
type TranscriptionError struct {
	// StatusCode is the HTTP status, zero for transport failures.
	StatusCode int

	// Body is the raw response body, truncated.
	Body string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TranscriptionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stt: transcription failed with status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("stt: transcription failed: %v", e.Cause)
}

// Is reports whether target is ErrTranscriptionFailed.
func (e *TranscriptionError) Is(target error) bool {
	return target == ErrTranscriptionFailed
}

// Unwrap returns the cause.
func (e *TranscriptionError) Unwrap() error {
	return e.Cause
}

func failed(cause error) error {
	return &TranscriptionError{Cause: cause}
}
