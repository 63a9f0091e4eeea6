package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderChain is the name reported by Chain.
const ProviderChain = "chain"

// Chain implements Provider by trying multiple providers in order.
// The first successful provider wins; if all fail, returns an aggregate error.
//
// A voice chosen from one provider is re-resolved by display name on each
// fallback, so voice identifiers never cross provider boundaries.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain that tries providers in order.
// At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}

	return &Chain{
		providers: providers,
		logger:    slog.Default().With("component", "tts.chain"),
	}, nil
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	chain, err := NewChain(providers...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "tts.chain")
	return chain, nil
}

// Name returns the member names joined by "+", e.g. "elevenlabs+google".
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// RequiresCredential reports true only when every member needs a key.
func (c *Chain) RequiresCredential() bool {
	for _, p := range c.providers {
		if !p.RequiresCredential() {
			return false
		}
	}
	return true
}

// ListVoices returns the catalog of the first provider that can list voices.
// Voices keep the issuing member's provider name.
func (c *Chain) ListVoices(ctx context.Context) (Catalog, error) {
	var errs []error
	for _, p := range c.providers {
		catalog, err := p.ListVoices(ctx)
		if err == nil {
			return catalog, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, &ChainError{Errors: errs}
}

// Synthesize tries each provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string, voice Voice) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(c.Name(), ErrEmptyText)
	}
	if !c.owns(voice) {
		return nil, WrapError(c.Name(), &VoiceMismatchError{Want: c.Name(), Got: voice.Provider})
	}

	var errs []error
	for i, p := range c.providers {
		v, err := c.voiceFor(ctx, p, voice)
		if err != nil {
			errs = append(errs, err)
			c.logger.Warn("no matching voice, trying next",
				"provider", p.Name(),
				"voice", voice.Name,
				"error", err,
			)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		result, err := p.Synthesize(ctx, text, v)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider", p.Name(),
					"provider_index", i,
					"chars", len(text),
				)
			}
			return result, nil
		}

		errs = append(errs, err)
		c.logger.Warn("provider failed, trying next",
			"provider", p.Name(),
			"provider_index", i,
			"error", err,
		)

		// Check if context was cancelled
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// voiceFor translates voice into p's namespace.
func (c *Chain) voiceFor(ctx context.Context, p Provider, voice Voice) (Voice, error) {
	if voice.Provider == p.Name() {
		return voice, nil
	}
	catalog, err := p.ListVoices(ctx)
	if err != nil {
		return Voice{}, err
	}
	v, ok := catalog.Lookup(voice.Name)
	if !ok {
		return Voice{}, WrapError(p.Name(), fmt.Errorf("%w: %q", ErrVoiceNotFound, voice.Name))
	}
	return v, nil
}

func (c *Chain) owns(voice Voice) bool {
	for _, p := range c.providers {
		if p.Name() == voice.Provider {
			return true
		}
	}
	return false
}

// Health checks all providers and returns error if all are unhealthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error

	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}

	if healthy == 0 {
		return fmt.Errorf("all %d providers unhealthy: %w", len(c.providers), lastErr)
	}

	c.logger.Debug("health check complete",
		"healthy", healthy,
		"total", len(c.providers),
	)

	return nil
}

// Close closes all providers.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Is matches ErrAllProvidersFailed.
func (e *ChainError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
