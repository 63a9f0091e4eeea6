package audioio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// captureGrace is how long a recorder may overrun the requested duration
	// before it is killed.
	captureGrace = 3 * time.Second

	// PCMPlaybackRate is the rate assumed for headerless "pcm" audio.
	PCMPlaybackRate = 24000

	maxStderr = 1024
)

// ExecRecorder captures audio by running an external recorder program that
// writes raw mono PCM16LE to stdout.
type ExecRecorder struct {
	argv   []string
	device string
	logger *slog.Logger

	busy atomic.Bool
}

// NewExecRecorder creates a recorder for the current platform.
// cfg.RecordCommand, when set, replaces the platform default.
func NewExecRecorder(cfg Config, logger *slog.Logger) (*ExecRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	argv := cfg.RecordCommand
	if len(argv) == 0 {
		var err error
		argv, err = recorderArgs(runtime.GOOS, cfg.Device)
		if err != nil {
			return nil, err
		}
	}
	return &ExecRecorder{
		argv:   argv,
		device: cfg.Device,
		logger: logger.With("component", "audioio.recorder", "program", argv[0]),
	}, nil
}

func recorderArgs(goos, device string) ([]string, error) {
	switch goos {
	case "linux":
		if device == "" {
			device = "default"
		}
		return []string{
			"arecord", "-q", "-D", device,
			"-f", "S16_LE", "-c", "1", "-r", "{rate}",
			"-d", "{seconds}", "-t", "raw",
		}, nil
	case "darwin":
		return []string{
			"rec", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer",
			"-c", "1", "-r", "{rate}", "-", "trim", "0", "{seconds}",
		}, nil
	default:
		return nil, fmt.Errorf("%w: capture is not implemented for %s", ErrDeviceUnavailable, goos)
	}
}

// Name returns the recorder program.
func (r *ExecRecorder) Name() string { return r.argv[0] }

// Record runs the recorder for duration and normalizes its output to
// exactly SampleCount(duration, sampleRate) samples.
func (r *ExecRecorder) Record(ctx context.Context, duration time.Duration, sampleRate int) (*AudioChunk, error) {
	if err := CheckCapture(duration, sampleRate); err != nil {
		return nil, err
	}
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrDeviceBusy
	}
	defer r.busy.Store(false)

	argv := expand(r.argv, map[string]string{
		"{rate}":    strconv.Itoa(sampleRate),
		"{seconds}": strconv.Itoa(int(math.Ceil(duration.Seconds()))),
		"{device}":  r.device,
	})
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, duration+captureGrace)
	defer cancel()

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: maxStderr}
	cmd := exec.CommandContext(runCtx, path, argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if stdout.Len() < 2 {
		msg := strings.TrimSpace(stderr.String())
		if runErr != nil {
			return nil, fmt.Errorf("%w: %s: %w (%s)", ErrDeviceUnavailable, argv[0], runErr, msg)
		}
		return nil, fmt.Errorf("%w: %s produced no audio", ErrDeviceUnavailable, argv[0])
	}
	if runErr != nil {
		r.logger.Warn("recorder exited with error after producing audio", "error", runErr)
	}

	chunk := &AudioChunk{}
	chunk.FromBytes(stdout.Bytes(), sampleRate, 1)
	captured := len(chunk.Samples)
	chunk.Fit(SampleCount(duration, sampleRate))

	r.logger.Debug("capture complete",
		"duration", duration,
		"sample_rate", sampleRate,
		"captured_samples", captured,
		"samples", len(chunk.Samples),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return chunk, nil
}

// player describes a playback program and the containers it accepts.
type player struct {
	argv    []string
	formats []string // empty accepts anything
}

func (p player) accepts(format string) bool {
	if len(p.formats) == 0 {
		return true
	}
	for _, f := range p.formats {
		if f == format {
			return true
		}
	}
	return false
}

var ffplay = player{argv: []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "{file}"}}

func platformPlayers(goos string) []player {
	switch goos {
	case "darwin":
		return []player{
			{argv: []string{"afplay", "{file}"}, formats: []string{"mp3", "wav", "aac", "flac"}},
			ffplay,
		}
	default:
		return []player{
			ffplay,
			{argv: []string{"mpg123", "-q", "{file}"}, formats: []string{"mp3"}},
			{argv: []string{"aplay", "-q", "{file}"}, formats: []string{"wav"}},
			{argv: []string{"paplay", "{file}"}, formats: []string{"wav", "ogg", "flac"}},
		}
	}
}

// ExecSink plays audio by writing it to a scratch artifact and running an
// external player on it. The artifact is released when playback ends.
type ExecSink struct {
	scratch *Scratch
	command []string
	players []player
	logger  *slog.Logger
}

// NewExecSink creates a sink for the current platform.
// cfg.PlayCommand, when set, replaces the platform players.
func NewExecSink(cfg Config, scratch *Scratch, logger *slog.Logger) *ExecSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{
		scratch: scratch,
		command: cfg.PlayCommand,
		players: platformPlayers(runtime.GOOS),
		logger:  logger.With("component", "audioio.sink"),
	}
}

// Name returns "exec".
func (s *ExecSink) Name() string { return "exec" }

// Play writes audio to the scratch dir and blocks until the player exits.
func (s *ExecSink) Play(ctx context.Context, audio []byte, format string) error {
	if len(audio) == 0 {
		return nil
	}
	format = strings.ToLower(format)
	if format == "pcm" {
		audio = EncodeWAV(audio, PCMPlaybackRate)
		format = "wav"
	}

	argv, err := s.playerFor(format)
	if err != nil {
		return err
	}

	art, err := s.scratch.Write(audio, format)
	if err != nil {
		return err
	}
	defer func() {
		if err := art.Release(); err != nil {
			s.logger.Warn("release playback artifact", "error", err)
		}
	}()

	argv = expand(argv, map[string]string{"{file}": art.Path})
	stderr := &limitedBuffer{max: maxStderr}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrPlaybackFailed, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s: %w (%s)", ErrPlaybackFailed, argv[0], err, strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, argv[0], err)
	}

	s.logger.Debug("playback complete",
		"player", argv[0],
		"format", format,
		"bytes", len(audio),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *ExecSink) playerFor(format string) ([]string, error) {
	if len(s.command) > 0 {
		path, err := exec.LookPath(s.command[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		return append([]string{path}, s.command[1:]...), nil
	}
	for _, p := range s.players {
		if !p.accepts(format) {
			continue
		}
		if path, err := exec.LookPath(p.argv[0]); err == nil {
			return append([]string{path}, p.argv[1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: no player installed for %s audio", ErrDeviceUnavailable, format)
}

// expand substitutes placeholders in every argument.
func expand(argv []string, vars map[string]string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		for k, v := range vars {
			a = strings.ReplaceAll(a, k, v)
		}
		out[i] = a
	}
	return out
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }

// Verify implementations at compile time.
var (
	_ Recorder = (*ExecRecorder)(nil)
	_ Sink     = (*ExecSink)(nil)
)
