package audioio

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrDeviceUnavailable is returned when the recorder or player program,
	// or the input device it needs, is missing.
	ErrDeviceUnavailable = errors.New("audioio: device unavailable")

	// ErrDeviceBusy is returned when a capture is already in progress.
	ErrDeviceBusy = errors.New("audioio: device busy")

	// ErrInvalidDuration is returned for non-positive durations or rates.
	ErrInvalidDuration = errors.New("audioio: invalid capture duration")

	// ErrFileSystem is returned when a scratch artifact cannot be written.
	ErrFileSystem = errors.New("audioio: file system error")

	// ErrPlaybackFailed is returned when the player exits unsuccessfully.
	ErrPlaybackFailed = errors.New("audioio: playback failed")
)
