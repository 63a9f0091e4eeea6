// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports ElevenLabs, Speechify (both the legacy and current wire
// formats), Google's keyless translate endpoint and Google Cloud Text-to-Speech.
// All providers implement the Provider interface, enabling the session to
// switch providers at runtime without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.New("elevenlabs",
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	defer provider.Close()
//
//	voices, _ := provider.ListVoices(ctx)
//	voice, _ := voices.Lookup("Rachel")
//	result, _ := provider.Synthesize(ctx, "Hello world", voice)
//	// result.Audio holds encoded audio, result.Format names the container
package tts

import (
	"context"
	"sort"
	"strings"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Name is the stable identifier used in voices, credentials and config.
	Name() string

	// RequiresCredential reports whether requests need an API key.
	RequiresCredential() bool

	// ListVoices fetches the display-name to voice mapping.
	ListVoices(ctx context.Context) (Catalog, error)

	// Synthesize converts text to audio using a voice issued by this provider.
	Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Voice identifies a provider-specific voice. It is only meaningful to the
// provider named in Provider.
type Voice struct {
	Provider string
	ID       string
	Name     string

	// Language is set for providers that select speech by language code.
	Language string

	// Model overrides the provider's default model when non-empty.
	Model string

	// Settings overrides the provider's default voice settings when non-zero.
	Settings VoiceSettings
}

// IsZero reports whether no voice has been chosen.
func (v Voice) IsZero() bool {
	return v.Provider == "" && v.ID == ""
}

// Catalog maps display names to voices.
type Catalog map[string]Voice

// Lookup returns the voice with the given display name.
// Matching falls back to a case-insensitive comparison.
func (c Catalog) Lookup(name string) (Voice, bool) {
	if v, ok := c[name]; ok {
		return v, true
	}
	for display, v := range c {
		if strings.EqualFold(display, name) {
			return v, true
		}
	}
	return Voice{}, false
}

// Names returns display names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindID returns the display name of the voice with the given ID.
func (c Catalog) FindID(id string) (string, bool) {
	for name, v := range c {
		if v.ID == id {
			return name, true
		}
	}
	return "", false
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio. It is never empty on success.
	Audio []byte

	// Format names the container Audio is encoded in.
	Format Format

	// Provider identifies the provider that produced the audio.
	Provider string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the end-to-end request time in milliseconds.
	LatencyMs int64
}

// VoiceSettings controls voice characteristics for providers that support it.
// These settings affect the expressiveness and consistency of the generated speech.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	// Lower values = more expressive/variable, higher = more consistent.
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64
}

// IsZero reports whether no settings were supplied.
func (s VoiceSettings) IsZero() bool {
	return s == VoiceSettings{}
}

// DefaultVoiceSettings returns sensible defaults for voice synthesis.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
	}
}

// checkRequest validates arguments common to every Synthesize implementation.
func checkRequest(provider, text string, voice Voice) error {
	if strings.TrimSpace(text) == "" {
		return WrapError(provider, ErrEmptyText)
	}
	if voice.Provider != provider {
		return WrapError(provider, &VoiceMismatchError{Want: provider, Got: voice.Provider})
	}
	if voice.ID == "" {
		return WrapError(provider, ErrNoVoice)
	}
	return nil
}
