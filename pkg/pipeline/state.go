package pipeline

import "fmt"

// State is the orchestrator's position in a turn.
type State int

const (
	StateIdle State = iota
	StateReadingInput
	StateCapturing
	StateTranscribing
	StateAppending
	StateCompleting
	StateSynthesizing
	StatePlaying
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingInput:
		return "reading_input"
	case StateCapturing:
		return "capturing"
	case StateTranscribing:
		return "transcribing"
	case StateAppending:
		return "appending"
	case StateCompleting:
		return "completing"
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	name := string(text)
	for st := StateIdle; st <= StatePlaying; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("pipeline: unknown state %q", name)
}
