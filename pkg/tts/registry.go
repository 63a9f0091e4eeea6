package tts

import (
	"fmt"
	"strings"
)

// Names lists the providers New understands.
func Names() []string {
	return []string{
		ProviderElevenLabs,
		ProviderSpeechify,
		ProviderSpeechifyV1,
		ProviderGoogle,
		ProviderGoogleCloud,
		ProviderOpenAI,
		ProviderMock,
	}
}

// New constructs a provider by registry name.
func New(name string, opts ...Option) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderElevenLabs:
		return NewElevenLabs(opts...)
	case ProviderSpeechify:
		return NewSpeechify(SpeechifyV2, opts...)
	case ProviderSpeechifyV1:
		return NewSpeechify(SpeechifyV1, opts...)
	case ProviderGoogle:
		return NewGoogleTranslate(opts...)
	case ProviderGoogleCloud:
		return NewGoogleCloud(opts...)
	case ProviderOpenAI:
		return NewOpenAI(opts...)
	case ProviderMock:
		return NewMock(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}
