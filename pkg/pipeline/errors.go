package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/inference"
	"github.com/teslashibe/go-voicechat/pkg/session"
	"github.com/teslashibe/go-voicechat/pkg/stt"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

// Common errors returned by the orchestrator.
var (
	ErrTurnInProgress = errors.New("pipeline: a turn is already in progress")
	ErrEmptyInput     = errors.New("pipeline: empty input")
	ErrNoRecorder     = errors.New("pipeline: voice input is not configured")
)

// StageError records the stage a turn failed in.
type StageError struct {
	Stage State
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Error kinds reported by Kind.
const (
	KindDeviceUnavailable    = "device_unavailable"
	KindTranscriptionFailed  = "transcription_failed"
	KindCompletionTimeout    = "completion_timeout"
	KindCompletionFailed     = "completion_failed"
	KindAuthenticationFailed = "authentication_failed"
	KindSynthesisFailed      = "synthesis_failed"
	KindInvalidResponse      = "invalid_response"
	KindProviderUnavailable  = "provider_unavailable"
	KindFileSystemError      = "file_system_error"
	KindPlaybackFailed       = "playback_failed"
	KindNoVoices             = "no_voices"
	KindBusy                 = "busy"
	KindEmptyInput           = "empty_input"
	KindInvalidInput         = "invalid_input"
	KindCanceled             = "canceled"
	KindInternal             = "internal"
)

// Kind classifies err for display. It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTurnInProgress):
		return KindBusy
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, audioio.ErrInvalidDuration):
		return KindInvalidInput
	case errors.Is(err, audioio.ErrDeviceUnavailable),
		errors.Is(err, audioio.ErrDeviceBusy),
		errors.Is(err, ErrNoRecorder):
		return KindDeviceUnavailable
	case errors.Is(err, audioio.ErrPlaybackFailed):
		return KindPlaybackFailed
	case errors.Is(err, audioio.ErrFileSystem):
		return KindFileSystemError
	case errors.Is(err, stt.ErrTranscriptionFailed):
		return KindTranscriptionFailed
	case errors.Is(err, inference.ErrCompletionTimeout):
		return KindCompletionTimeout
	case errors.Is(err, inference.ErrCompletionFailed):
		return KindCompletionFailed
	case errors.Is(err, tts.ErrAuthenticationFailed), errors.Is(err, tts.ErrNoAPIKey):
		return KindAuthenticationFailed
	case errors.Is(err, tts.ErrInvalidResponse):
		return KindInvalidResponse
	case errors.Is(err, tts.ErrSynthesisFailed):
		return KindSynthesisFailed
	case errors.Is(err, tts.ErrProviderUnavailable), errors.Is(err, tts.ErrAllProvidersFailed):
		return KindProviderUnavailable
	case errors.Is(err, session.ErrNoVoices), errors.Is(err, session.ErrVoiceNotFound):
		return KindNoVoices
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}
