package audioio

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockRecorder is a mock audio recorder for testing.
// It generates synthetic audio (silence or sine wave) without waiting.
type MockRecorder struct {
	logger *slog.Logger

	// Err, when set, is returned by every Record call.
	Err error

	// Delay simulates capture time, honouring cancellation.
	Delay time.Duration

	busy  atomic.Bool
	calls atomic.Int64

	// Synthetic audio generation
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
}

// MockRecorderOption configures a MockRecorder.
type MockRecorderOption func(*MockRecorder)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockRecorderOption {
	return func(m *MockRecorder) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithRecordError makes every capture fail with err.
func WithRecordError(err error) MockRecorderOption {
	return func(m *MockRecorder) {
		m.Err = err
	}
}

// NewMockRecorder creates a new mock recorder.
func NewMockRecorder(logger *slog.Logger, opts ...MockRecorderOption) *MockRecorder {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockRecorder{
		logger:    logger.With("component", "audioio.mock"),
		frequency: 0, // Silence by default
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Record returns SampleCount(duration, sampleRate) synthetic samples.
func (m *MockRecorder) Record(ctx context.Context, duration time.Duration, sampleRate int) (*AudioChunk, error) {
	if err := CheckCapture(duration, sampleRate); err != nil {
		return nil, err
	}
	if !m.busy.CompareAndSwap(false, true) {
		return nil, ErrDeviceBusy
	}
	defer m.busy.Store(false)
	m.calls.Add(1)

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	n := SampleCount(duration, sampleRate)
	samples := make([]int16, n)
	if m.frequency > 0 {
		for i := range samples {
			sample := m.amplitude * math.Sin(2*math.Pi*m.frequency*float64(i)/float64(sampleRate))
			samples[i] = int16(sample * 32767)
		}
	}
	// else: samples are already zero (silence)

	m.logger.Debug("mock capture", "samples", n, "frequency", m.frequency)

	return &AudioChunk{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   1,
	}, nil
}

// Calls returns the number of Record calls.
func (m *MockRecorder) Calls() int {
	return int(m.calls.Load())
}

// Name returns "mock".
func (m *MockRecorder) Name() string {
	return "mock"
}

// MockSink is a mock audio sink for testing.
// It discards audio data but records what was played.
type MockSink struct {
	// PlayFunc, when set, replaces the default behaviour.
	PlayFunc func(ctx context.Context, audio []byte, format string) error

	mu    sync.Mutex
	plays []MockPlay
}

// MockPlay records one Play call.
type MockPlay struct {
	Audio  []byte
	Format string
	Time   time.Time
}

// NewMockSink creates a new mock audio sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Play records the call and returns PlayFunc's result.
func (m *MockSink) Play(ctx context.Context, audio []byte, format string) error {
	m.mu.Lock()
	m.plays = append(m.plays, MockPlay{
		Audio:  append([]byte(nil), audio...),
		Format: format,
		Time:   time.Now(),
	})
	m.mu.Unlock()

	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, audio, format)
	}
	return ctx.Err()
}

// Plays returns all recorded Play calls.
func (m *MockSink) Plays() []MockPlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockPlay, len(m.plays))
	copy(result, m.plays)
	return result
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Ensure mocks implement the interfaces.
var (
	_ Recorder = (*MockRecorder)(nil)
	_ Sink     = (*MockSink)(nil)
)
