package audioio

import "context"

// Sink plays encoded audio to a speaker or other output.
type Sink interface {
	// Play blocks until the audio has been played or ctx is done.
	// format is a container tag such as "mp3" or "wav".
	Play(ctx context.Context, audio []byte, format string) error

	// Name returns the backend name (e.g., "ffplay", "afplay", "mock").
	Name() string
}
