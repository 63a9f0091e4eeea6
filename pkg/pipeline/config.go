package pipeline

import (
	"errors"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
)

// Config holds the tunable parameters of a turn.
type Config struct {
	// Capture settings
	RecordDuration time.Duration // Default capture length (default: 5s)
	SampleRate     int           // Capture sample rate (default: 44100)

	// Stage timeouts
	TranscriptionTimeout time.Duration // default: 30s
	CompletionTimeout    time.Duration // default: 30s
	SynthesisTimeout     time.Duration // default: 30s
	PlaybackTimeout      time.Duration // default: 2m

	// Play synthesized replies through the sink (default: true)
	Play bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RecordDuration: audioio.DefaultRecordDuration,
		SampleRate:     audioio.DefaultSampleRate,

		TranscriptionTimeout: 30 * time.Second,
		CompletionTimeout:    30 * time.Second,
		SynthesisTimeout:     30 * time.Second,
		PlaybackTimeout:      2 * time.Minute,

		Play: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := checkDuration(c.RecordDuration); err != nil {
		return err
	}
	if c.SampleRate <= 0 {
		return errors.New("pipeline: sample rate must be positive")
	}
	if c.TranscriptionTimeout <= 0 || c.CompletionTimeout <= 0 ||
		c.SynthesisTimeout <= 0 || c.PlaybackTimeout <= 0 {
		return errors.New("pipeline: stage timeouts must be positive")
	}
	return nil
}

// WithTimeouts returns a copy with the stage timeouts set.
func (c Config) WithTimeouts(transcription, completion, synthesis, playback time.Duration) Config {
	c.TranscriptionTimeout = transcription
	c.CompletionTimeout = completion
	c.SynthesisTimeout = synthesis
	c.PlaybackTimeout = playback
	return c
}

// WithCapture returns a copy with capture settings.
func (c Config) WithCapture(duration time.Duration, sampleRate int) Config {
	c.RecordDuration = duration
	c.SampleRate = sampleRate
	return c
}

// WithPlayback returns a copy with playback enabled or disabled.
func (c Config) WithPlayback(play bool) Config {
	c.Play = play
	return c
}

func checkDuration(d time.Duration) error {
	if d < audioio.MinRecordDuration || d > audioio.MaxRecordDuration {
		return &StageError{
			Stage: StateCapturing,
			Err:   audioio.ErrInvalidDuration,
		}
	}
	return nil
}
