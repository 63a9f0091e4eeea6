// Package audioio provides fixed-duration audio capture, scratch audio
// artifacts and local playback.
//
// This package supports multiple backends:
//   - Exec - shells out to arecord (Linux) or sox rec (macOS) for capture,
//     and ffplay/afplay/aplay/mpg123 for playback
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically based on the platform,
// or can be explicitly specified via configuration.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects exec when a recorder program is installed, mock otherwise.
	BackendAuto Backend = "auto"
	// BackendExec drives external recorder and player programs.
	BackendExec Backend = "exec"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Capture limits accepted by the recorder.
const (
	DefaultSampleRate     = 44100
	DefaultRecordDuration = 5 * time.Second
	MinRecordDuration     = 1 * time.Second
	MaxRecordDuration     = 10 * time.Second
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto"
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the capture sample rate in Hz.
	// Default: 44100
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Device is the platform-specific input device identifier.
	// Examples:
	//   - arecord: "hw:0,0", "default", "plughw:1,0"
	//   - rec: ignored (uses the system default input)
	Device string `yaml:"device" json:"device"`

	// RecordCommand overrides the recorder program and arguments.
	// The placeholders {rate}, {seconds} and {device} are substituted.
	// The program must write raw mono PCM16LE to stdout.
	RecordCommand []string `yaml:"record_command" json:"record_command"`

	// PlayCommand overrides the player program and arguments.
	// The placeholder {file} is substituted with the artifact path.
	PlayCommand []string `yaml:"play_command" json:"play_command"`

	// ScratchDir holds temporary audio artifacts.
	// Default: a per-process directory under os.TempDir().
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendAuto,
		SampleRate: DefaultSampleRate,
		Device:     "", // Use system default
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	switch c.Backend {
	case BackendAuto, BackendExec, BackendMock, "":
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}

// SampleCount returns the number of mono samples a capture of d at rate holds.
func SampleCount(d time.Duration, rate int) int {
	return int(d.Seconds()*float64(rate) + 0.5)
}

// CheckCapture validates a capture request.
func CheckCapture(d time.Duration, rate int) error {
	if d <= 0 || rate <= 0 {
		return fmt.Errorf("%w: duration %s at %d Hz", ErrInvalidDuration, d, rate)
	}
	return nil
}
