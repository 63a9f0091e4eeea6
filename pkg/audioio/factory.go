package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewRecorder creates a recorder with the given configuration.
// If cfg.Backend is BackendAuto, the best available backend is selected.
func NewRecorder(cfg Config, logger *slog.Logger) (Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := resolveBackend(cfg)

	logger.Info("creating audio recorder",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"device", cfg.Device,
	)

	switch backend {
	case BackendMock:
		return NewMockRecorder(logger), nil
	case BackendExec:
		return NewExecRecorder(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// NewSink creates a playback sink with the given configuration.
// Played audio is staged in scratch.
func NewSink(cfg Config, scratch *Scratch, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	backend := resolveBackend(cfg)

	logger.Info("creating audio sink", "backend", backend)

	switch backend {
	case BackendMock:
		return NewMockSink(), nil
	case BackendExec:
		if scratch == nil {
			return nil, fmt.Errorf("exec sink requires a scratch directory")
		}
		return NewExecSink(cfg, scratch, logger), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func resolveBackend(cfg Config) Backend {
	if cfg.Backend == BackendAuto || cfg.Backend == "" {
		if len(cfg.RecordCommand) > 0 || len(cfg.PlayCommand) > 0 {
			return BackendExec
		}
		return detectBestBackend()
	}
	return cfg.Backend
}

// detectBestBackend returns the best available backend for the current platform.
func detectBestBackend() Backend {
	switch runtime.GOOS {
	case "linux", "darwin":
		return BackendExec
	default:
		return BackendMock
	}
}

// AvailableBackends returns the list of backends available on this platform.
func AvailableBackends() []Backend {
	backends := []Backend{BackendMock}

	switch runtime.GOOS {
	case "linux", "darwin":
		backends = append(backends, BackendExec)
	}

	return backends
}
