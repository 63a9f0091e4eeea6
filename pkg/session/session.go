// Package session holds the mutable state of one running conversation:
// provider credentials, the active TTS provider, the selected voice and the
// conversation history.
//
// All methods are safe for concurrent use. Writers replace values under a
// lock, so readers always observe the latest committed value.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/teslashibe/go-voicechat/pkg/conversation"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

// NoVoicesPolicy decides what happens when the active provider lists no voices.
type NoVoicesPolicy string

const (
	// PolicyRequire fails voice resolution with ErrNoVoices.
	PolicyRequire NoVoicesPolicy = "require"
	// PolicyTextOnly skips synthesis and lets turns complete as text.
	PolicyTextOnly NoVoicesPolicy = "text-only"
)

// Skip reasons reported in Target.Skip.
const (
	SkipNoProvider   = "no_provider"
	SkipNoCredential = "no_credential"
	SkipNoVoices     = "no_voices"
)

// Sentinel errors.
var (
	ErrUnknownProvider = errors.New("session: unknown provider")
	ErrNoProvider      = errors.New("session: no active provider")
	ErrNoVoices        = errors.New("session: provider has no voices")
	ErrVoiceNotFound   = errors.New("session: voice not found")
	ErrProviderChanged = errors.New("session: provider changed during voice lookup")
)

// Context is the state of a single conversation.
type Context struct {
	history *conversation.Store
	logger  *slog.Logger

	mu           sync.RWMutex
	providers    map[string]tts.Provider
	active       string
	voice        tts.Voice
	voiceFor     string // active provider name voice was resolved under
	voiceName    string
	runtime      map[string]string
	env          map[string]string
	policy       NoVoicesPolicy
	systemPrompt string
}

// Option configures a Context.
type Option func(*Context)

// WithProviders registers TTS providers. The first becomes active unless
// WithActiveProvider names another.
func WithProviders(providers ...tts.Provider) Option {
	return func(s *Context) {
		for _, p := range providers {
			s.register(p)
		}
	}
}

// WithActiveProvider selects the initial provider by name.
func WithActiveProvider(name string) Option {
	return func(s *Context) { s.active = name }
}

// WithEnvCredentials sets the environment-level secrets. Runtime entries
// made with SetCredential take precedence.
func WithEnvCredentials(creds map[string]string) Option {
	return func(s *Context) {
		for k, v := range creds {
			if v = strings.TrimSpace(v); v != "" {
				s.env[k] = v
			}
		}
	}
}

// WithVoiceName sets the preferred voice display name, resolved lazily.
func WithVoiceName(name string) Option {
	return func(s *Context) { s.voiceName = name }
}

// WithNoVoicesPolicy sets the empty-catalog policy.
func WithNoVoicesPolicy(p NoVoicesPolicy) Option {
	return func(s *Context) { s.policy = p }
}

// WithSystemPrompt sets the instruction sent ahead of the history.
func WithSystemPrompt(prompt string) Option {
	return func(s *Context) { s.systemPrompt = prompt }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Context) { s.logger = l }
}

// New creates a session with empty history and no runtime credentials.
func New(opts ...Option) (*Context, error) {
	s := &Context{
		history:   conversation.NewStore(),
		logger:    slog.Default(),
		providers: make(map[string]tts.Provider),
		runtime:   make(map[string]string),
		env:       make(map[string]string),
		policy:    PolicyTextOnly,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "session")

	switch s.policy {
	case PolicyRequire, PolicyTextOnly:
	default:
		return nil, fmt.Errorf("session: unknown no-voices policy %q", s.policy)
	}
	if s.active != "" {
		if _, ok := s.providers[s.active]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, s.active)
		}
	}
	return s, nil
}

func (s *Context) register(p tts.Provider) {
	s.providers[p.Name()] = p
	if s.active == "" {
		s.active = p.Name()
	}
}

// Register adds a provider. It becomes active if none is.
func (s *Context) Register(p tts.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(p)
}

// SetProvider switches the active provider and clears the selected voice.
func (s *Context) SetProvider(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if name != s.active {
		s.logger.Info("provider switched", "from", s.active, "to", name)
		s.active = name
		s.voice = tts.Voice{}
		s.voiceFor = ""
	}
	return nil
}

// Provider returns the active provider, or nil.
func (s *Context) Provider() tts.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers[s.active]
}

// ProviderName returns the active provider's name.
func (s *Context) ProviderName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Providers returns the registered provider names, sorted.
func (s *Context) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetCredential stores a runtime secret for provider, superseding any earlier
// value. An empty secret removes the runtime entry.
func (s *Context) SetCredential(provider, secret string) {
	secret = strings.TrimSpace(secret)

	s.mu.Lock()
	defer s.mu.Unlock()
	if secret == "" {
		delete(s.runtime, provider)
	} else {
		s.runtime[provider] = secret
	}
	s.logger.Info("credential updated", "provider", provider, "set", secret != "")
}

// Credential returns the secret in effect for provider: the runtime value
// when present, the environment value otherwise.
func (s *Context) Credential(provider string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.runtime[provider]; ok {
		return v
	}
	return s.env[provider]
}

// CredentialFunc returns a lookup for provider's current secret, suitable
// for the providers' WithAPIKeyFunc options.
func (s *Context) CredentialFunc(provider string) func() string {
	return func() string { return s.Credential(provider) }
}

// HasCredential reports whether a secret is available for provider.
func (s *Context) HasCredential(provider string) bool {
	return s.Credential(provider) != ""
}

// credentialed reports whether p can authenticate. A chain can when any
// member can.
func (s *Context) credentialed(p tts.Provider) bool {
	if !p.RequiresCredential() || s.HasCredential(p.Name()) {
		return true
	}
	if c, ok := p.(interface{ Providers() []tts.Provider }); ok {
		for _, m := range c.Providers() {
			if s.credentialed(m) {
				return true
			}
		}
	}
	return false
}

// ListVoices fetches the active provider's catalog.
func (s *Context) ListVoices(ctx context.Context) (tts.Catalog, error) {
	p := s.Provider()
	if p == nil {
		return nil, ErrNoProvider
	}
	return p.ListVoices(ctx)
}

// ResolveVoice fetches the active provider's catalog and selects the voice
// with the given display name.
func (s *Context) ResolveVoice(ctx context.Context, name string) (tts.Voice, error) {
	s.mu.RLock()
	p := s.providers[s.active]
	s.mu.RUnlock()
	if p == nil {
		return tts.Voice{}, ErrNoProvider
	}

	catalog, err := p.ListVoices(ctx)
	if err != nil {
		return tts.Voice{}, err
	}
	if len(catalog) == 0 {
		return tts.Voice{}, fmt.Errorf("%w: %s", ErrNoVoices, p.Name())
	}
	voice, ok := catalog.Lookup(name)
	if !ok {
		return tts.Voice{}, fmt.Errorf("%w: %q on %s", ErrVoiceNotFound, name, p.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != p.Name() {
		return tts.Voice{}, ErrProviderChanged
	}
	s.voice = voice
	s.voiceFor = p.Name()
	s.voiceName = voice.Name
	s.logger.Info("voice selected", "provider", p.Name(), "voice", voice.Name)
	return voice, nil
}

// Voice returns the selected voice, if any.
func (s *Context) Voice() (tts.Voice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voice, !s.voice.IsZero()
}

// VoiceName returns the preferred voice display name.
func (s *Context) VoiceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceName
}

// ClearVoice forgets the selected voice.
func (s *Context) ClearVoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = tts.Voice{}
	s.voiceFor = ""
}

// Target is what a turn should be spoken with.
type Target struct {
	Provider tts.Provider
	Voice    tts.Voice

	// Skip is non-empty when synthesis should be skipped, naming why.
	Skip string
}

// OK reports whether synthesis can proceed.
func (t Target) OK() bool { return t.Skip == "" }

// SynthesisTarget returns the active provider and voice. When no voice is
// selected, the preferred voice name is resolved, falling back to the first
// voice by name. A missing provider, credential or (under PolicyTextOnly)
// voice yields a Target with Skip set and no error.
func (s *Context) SynthesisTarget(ctx context.Context) (Target, error) {
	s.mu.RLock()
	p := s.providers[s.active]
	voice := s.voice
	voiceFor := s.voiceFor
	preferred := s.voiceName
	policy := s.policy
	s.mu.RUnlock()

	if p == nil {
		return Target{Skip: SkipNoProvider}, nil
	}
	if !s.credentialed(p) {
		return Target{Provider: p, Skip: SkipNoCredential}, nil
	}
	// A chain's voices carry a member's name, so the cache is keyed by the
	// active provider instead.
	if !voice.IsZero() && voiceFor == p.Name() {
		return Target{Provider: p, Voice: voice}, nil
	}

	catalog, err := p.ListVoices(ctx)
	if err != nil {
		return Target{Provider: p}, err
	}
	if len(catalog) == 0 {
		if policy == PolicyRequire {
			return Target{Provider: p}, fmt.Errorf("%w: %s", ErrNoVoices, p.Name())
		}
		return Target{Provider: p, Skip: SkipNoVoices}, nil
	}

	v, ok := catalog.Lookup(preferred)
	if !ok {
		v = catalog[catalog.Names()[0]]
	}

	s.mu.Lock()
	if s.active == p.Name() && s.voice.IsZero() {
		s.voice = v
		s.voiceFor = p.Name()
	}
	s.mu.Unlock()

	s.logger.Debug("voice resolved", "provider", p.Name(), "voice", v.Name, "preferred", preferred)
	return Target{Provider: p, Voice: v}, nil
}

// Policy returns the empty-catalog policy.
func (s *Context) Policy() NoVoicesPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// History returns the conversation history.
func (s *Context) History() *conversation.Store {
	return s.history
}

// SystemPrompt returns the instruction sent ahead of the history.
func (s *Context) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemPrompt
}

// Reset clears the conversation history. Credentials, provider and voice
// are kept.
func (s *Context) Reset() {
	s.history.Reset()
	s.logger.Info("conversation reset")
}

// Status is a point-in-time view of the session for display.
type Status struct {
	Provider    string          `json:"provider"`
	Providers   []string        `json:"providers"`
	Voice       string          `json:"voice,omitempty"`
	VoiceName   string          `json:"voice_name,omitempty"`
	Credentials map[string]bool `json:"credentials"`
	Policy      NoVoicesPolicy  `json:"no_voices_policy"`
	Turns       int             `json:"turns"`
}

// Status reports the current state. Secrets are reported as present or not.
func (s *Context) Status() Status {
	names := s.Providers()

	s.mu.RLock()
	st := Status{
		Provider:    s.active,
		Providers:   names,
		Voice:       s.voice.Name,
		VoiceName:   s.voiceName,
		Credentials: make(map[string]bool, len(names)),
		Policy:      s.policy,
	}
	s.mu.RUnlock()

	for _, n := range names {
		st.Credentials[n] = s.HasCredential(n)
	}
	st.Turns = s.history.Len()
	return st
}
