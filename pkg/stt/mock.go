package stt

import (
	"context"
	"sync"
)

// Mock implements Transcriber for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	TranscribeFunc func(ctx context.Context, path string) (string, error)

	mu    sync.Mutex
	paths []string
}

// NewMock returns a mock that always recognises text.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, path string) (string, error) {
			return text, nil
		},
	}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, path string) (string, error) {
			return "", err
		},
	}
}

// Transcribe records the path and calls TranscribeFunc.
func (m *Mock) Transcribe(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, path)
	}
	return "", failed(ErrEmptyTranscript)
}

// Paths returns every path passed to Transcribe.
func (m *Mock) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// Verify Mock implements Transcriber at compile time.
var _ Transcriber = (*Mock)(nil)
