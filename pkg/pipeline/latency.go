package pipeline

import (
	"time"

	"github.com/teslashibe/go-voicechat/pkg/observability"
)

// Timings tracks latency at each stage of a turn.
type Timings struct {
	Capture       time.Duration // Recording
	Transcription time.Duration // Speech to text
	Completion    time.Duration // Chat engine round trip
	Synthesis     time.Duration // Text to speech
	Playback      time.Duration // Local playback
	Total         time.Duration // Whole turn
}

// stopwatch measures stages of one turn and reports them to metrics.
type stopwatch struct {
	start   time.Time
	mark    time.Time
	timings Timings
	metrics *observability.Metrics
}

func newStopwatch(m *observability.Metrics) *stopwatch {
	now := time.Now()
	return &stopwatch{start: now, mark: now, metrics: m}
}

// begin resets the stage reference point.
func (w *stopwatch) begin() {
	w.mark = time.Now()
}

// end records the time since begin against stage.
func (w *stopwatch) end(stage State) {
	d := time.Since(w.mark)
	switch stage {
	case StateCapturing:
		w.timings.Capture = d
	case StateTranscribing:
		w.timings.Transcription = d
	case StateCompleting:
		w.timings.Completion = d
	case StateSynthesizing:
		w.timings.Synthesis = d
	case StatePlaying:
		w.timings.Playback = d
	}
	w.metrics.ObserveStage(stage.String(), d)
}

// done finalizes the total and returns the timings.
func (w *stopwatch) done() Timings {
	w.timings.Total = time.Since(w.start)
	w.metrics.ObserveStage("total", w.timings.Total)
	return w.timings
}

// FormatLatency returns a formatted string of stage latencies.
func (t Timings) FormatLatency() string {
	return formatDuration(t.Capture) + " REC | " +
		formatDuration(t.Transcription) + " STT | " +
		formatDuration(t.Completion) + " LLM | " +
		formatDuration(t.Synthesis) + " TTS | " +
		formatDuration(t.Playback) + " PLAY | " +
		formatDuration(t.Total) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
