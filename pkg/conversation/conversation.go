// Package conversation holds the ordered history of a single conversation.
//
// A Store is append-only: turns are immutable once stored, and the only way
// to remove them is Reset, which clears the whole history atomically.
// Readers always see a consistent copy.
package conversation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-voicechat/pkg/inference"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Audio is synthesized speech owned by a turn.
type Audio struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
}

// Turn is one message in the conversation.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Audio     *Audio    `json:"audio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasAudio reports whether speech is attached to the turn.
func (t Turn) HasAudio() bool {
	return t.Audio != nil && len(t.Audio.Data) > 0
}

func (t Turn) clone() Turn {
	if t.Audio != nil {
		a := *t.Audio
		a.Data = append([]byte(nil), t.Audio.Data...)
		t.Audio = &a
	}
	return t
}

// Sentinel errors.
var (
	// ErrInvalidTurn is returned for a turn with an unknown role or blank content.
	ErrInvalidTurn = errors.New("conversation: invalid turn")

	// ErrTurnNotFound is returned when no turn has the requested ID.
	ErrTurnNotFound = errors.New("conversation: turn not found")

	// ErrAudioNotAllowed is returned when audio would be attached to a user
	// turn or to a turn that already has audio.
	ErrAudioNotAllowed = errors.New("conversation: audio not allowed on turn")
)

// Store is the conversation history. The zero value is ready to use.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
	index map[string]int
}

// NewStore returns an empty history.
func NewStore() *Store {
	return &Store{}
}

// Append validates t, assigns its ID and timestamp, and stores a copy.
// It returns the stored turn.
func (s *Store) Append(t Turn) (Turn, error) {
	if !t.Role.Valid() {
		return Turn{}, fmt.Errorf("%w: role %q", ErrInvalidTurn, t.Role)
	}
	if strings.TrimSpace(t.Content) == "" {
		return Turn{}, fmt.Errorf("%w: empty content", ErrInvalidTurn)
	}
	if t.Audio != nil {
		if t.Role != RoleAssistant || len(t.Audio.Data) == 0 {
			return Turn{}, ErrAudioNotAllowed
		}
	}

	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	t = t.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[t.ID] = len(s.turns)
	s.turns = append(s.turns, t)
	return t.clone(), nil
}

// AttachAudio attaches synthesized speech to an assistant turn that has
// none yet. A turn's audio can be set once.
func (s *Store) AttachAudio(id string, audio Audio) error {
	if len(audio.Data) == 0 {
		return ErrAudioNotAllowed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return ErrTurnNotFound
	}
	cur := s.turns[i]
	if cur.Role != RoleAssistant || cur.Audio != nil {
		return ErrAudioNotAllowed
	}

	// Replace the element rather than mutate it so earlier copies stay valid.
	cur.Audio = &Audio{Data: append([]byte(nil), audio.Data...), Format: audio.Format}
	s.turns[i] = cur
	return nil
}

// Snapshot projects the history to chat messages in order.
func (s *Store) Snapshot() []inference.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]inference.Message, len(s.turns))
	for i, t := range s.turns {
		msgs[i] = inference.Message{Role: inference.Role(t.Role), Content: t.Content}
	}
	return msgs
}

// Turns returns deep copies of all turns in order.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	for i, t := range s.turns {
		out[i] = t.clone()
	}
	return out
}

// Turn returns a copy of the turn with the given ID.
func (s *Store) Turn(id string) (Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Turn{}, ErrTurnNotFound
	}
	return s.turns[i].clone(), nil
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Reset removes every turn.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.index = nil
}
