package tts

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when a provider that needs a key has none.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrNoVoice is returned when Synthesize receives a voice without an ID.
	ErrNoVoice = errors.New("tts: voice required")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("tts: text is empty")

	// ErrVoiceMismatch is returned when a voice from one provider is passed to another.
	ErrVoiceMismatch = errors.New("tts: voice belongs to a different provider")

	// ErrVoiceNotFound is returned when a display name is absent from a catalog.
	ErrVoiceNotFound = errors.New("tts: voice not found")

	// ErrAuthenticationFailed is returned when the provider rejects the credential.
	ErrAuthenticationFailed = errors.New("tts: authentication failed")

	// ErrProviderUnavailable is returned when the provider cannot be reached
	// or the voice catalog cannot be fetched.
	ErrProviderUnavailable = errors.New("tts: provider unavailable")

	// ErrSynthesisFailed is returned when the synthesis request is rejected.
	ErrSynthesisFailed = errors.New("tts: synthesis failed")

	// ErrInvalidResponse is returned when a success response carries no usable audio.
	ErrInvalidResponse = errors.New("tts: invalid response")

	// ErrUnknownProvider is returned by New for unregistered names.
	ErrUnknownProvider = errors.New("tts: unknown provider")

	// ErrAllProvidersFailed is returned when all providers in a chain fail.
	ErrAllProvidersFailed = errors.New("tts: all providers failed")
)

// Op names the operation an APIError came from.
type Op string

const (
	OpListVoices Op = "list_voices"
	OpSynthesize Op = "synthesize"
	OpHealth     Op = "health"
)

// APIError represents an error response from a TTS API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code from the API (if provided).
	Code string

	// Body is the raw response body, truncated.
	Body string

	// Provider identifies which provider returned the error.
	Provider string

	// Op is the operation that failed.
	Op Op
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tts [%s]: %s: API error %d (%s): %s", e.Provider, e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tts [%s]: %s: API error %d: %s", e.Provider, e.Op, e.StatusCode, e.Message)
}

// Is maps the HTTP status onto the package's error kinds.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthenticationFailed:
		return e.IsUnauthorized() || e.IsForbidden()
	case ErrProviderUnavailable:
		if e.IsServerError() {
			return true
		}
		return e.Op != OpSynthesize && !e.IsUnauthorized() && !e.IsForbidden()
	case ErrSynthesisFailed:
		return e.Op == OpSynthesize && !e.IsUnauthorized() && !e.IsForbidden()
	}
	return false
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden returns true if this is a permission error (HTTP 403).
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsNotFound returns true if the resource was not found (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request could succeed if repeated.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// VoiceMismatchError reports a voice handed to the wrong provider.
type VoiceMismatchError struct {
	Want string
	Got  string
}

func (e *VoiceMismatchError) Error() string {
	got := e.Got
	if got == "" {
		got = "none"
	}
	return fmt.Sprintf("tts: voice from provider %q used with %q", got, e.Want)
}

func (e *VoiceMismatchError) Is(target error) bool {
	return target == ErrVoiceMismatch
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// unavailable marks a transport failure. The cause stays in the chain so
// context.DeadlineExceeded remains detectable.
func unavailable(provider string, err error) error {
	return WrapError(provider, fmt.Errorf("%w: %w", ErrProviderUnavailable, err))
}

// invalidResponse marks a success status whose payload is unusable.
func invalidResponse(provider string, format string, args ...any) error {
	return WrapError(provider, fmt.Errorf("%w: %s", ErrInvalidResponse, fmt.Sprintf(format, args...)))
}
