package tts

import (
	"context"
	"sync"
	"time"
)

// ProviderMock is the registry name for Mock.
const ProviderMock = "mock"

// Mock implements Provider for testing.
// All methods can be customized via function fields.
type Mock struct {
	// NameValue is returned by Name. Defaults to "mock".
	NameValue string

	// NeedsCredential is returned by RequiresCredential.
	NeedsCredential bool

	// ListVoicesFunc is called when ListVoices is invoked.
	// If nil, returns a catalog with a single "Mock" voice.
	ListVoicesFunc func(ctx context.Context) (Catalog, error)

	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns silent audio of appropriate length.
	SynthesizeFunc func(ctx context.Context, text string, voice Voice) (*AudioResult, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Voice  Voice
	Time   time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return NewNamedMock(ProviderMock, map[string]string{"Mock": "mock-voice"})
}

// NewNamedMock creates a mock with the given name and display-name to ID catalog.
func NewNamedMock(name string, voices map[string]string) *Mock {
	m := &Mock{NameValue: name}
	m.ListVoicesFunc = func(ctx context.Context) (Catalog, error) {
		catalog := make(Catalog, len(voices))
		for display, id := range voices {
			catalog[display] = Voice{Provider: m.Name(), ID: id, Name: display}
		}
		return catalog, nil
	}
	m.SynthesizeFunc = func(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
		// ~20ms of 24kHz PCM16 silence per character gives natural pacing
		bytesPerChar := 960
		return &AudioResult{
			Audio:     make([]byte, len(text)*bytesPerChar),
			Format:    FormatPCM,
			Provider:  m.Name(),
			CharCount: len(text),
			LatencyMs: 10,
		}, nil
	}
	m.HealthFunc = func(ctx context.Context) error {
		return nil
	}
	return m
}

// Name returns NameValue, or "mock".
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return ProviderMock
	}
	return m.NameValue
}

// RequiresCredential returns NeedsCredential.
func (m *Mock) RequiresCredential() bool {
	return m.NeedsCredential
}

// ListVoices calls ListVoicesFunc and records the call.
func (m *Mock) ListVoices(ctx context.Context) (Catalog, error) {
	m.recordCall("ListVoices", "", Voice{})
	if m.ListVoicesFunc != nil {
		return m.ListVoicesFunc(ctx)
	}
	return Catalog{}, nil
}

// Synthesize validates the request, calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	m.recordCall("Synthesize", text, voice)
	if err := checkRequest(m.Name(), text, voice); err != nil {
		return nil, err
	}
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, voice)
	}
	return nil, WrapError(m.Name(), ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", "", Voice{})
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", "", Voice{})
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// recordCall adds a call to the tracking list.
func (m *Mock) recordCall(method, text string, voice Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Text:   text,
		Voice:  voice,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WithError returns a mock whose synthesis and health checks fail with err.
// Voice listing still succeeds so a voice can be selected.
func WithError(err error) *Mock {
	m := NewMock()
	m.SynthesizeFunc = func(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
		return nil, err
	}
	m.HealthFunc = func(ctx context.Context) error {
		return err
	}
	return m
}

// WithLatency wraps a mock to add artificial latency.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	originalSynthesize := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if originalSynthesize != nil {
			return originalSynthesize(ctx, text, voice)
		}
		return nil, WrapError(m.Name(), ErrProviderUnavailable)
	}
	return m
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
