// Package app assembles a running voice chat from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/teslashibe/go-voicechat/internal/config"
	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/inference"
	"github.com/teslashibe/go-voicechat/pkg/observability"
	"github.com/teslashibe/go-voicechat/pkg/pipeline"
	"github.com/teslashibe/go-voicechat/pkg/session"
	"github.com/teslashibe/go-voicechat/pkg/stt"
	"github.com/teslashibe/go-voicechat/pkg/tts"
	"github.com/teslashibe/go-voicechat/pkg/web"
)

// BuildResult holds the wired components.
type BuildResult struct {
	Config       *config.Config
	Session      *session.Context
	Orchestrator *pipeline.Orchestrator
	Metrics      *observability.Metrics
	Scratch      *audioio.Scratch
	Web          *web.Server

	// Cleanup releases providers and the scratch directory.
	Cleanup func() error
}

// Overrides replaces external services, mainly for tests and offline runs.
type Overrides struct {
	Chat        inference.Provider
	Transcriber stt.Transcriber
	Providers   []tts.Provider
	Recorder    audioio.Recorder
	Sink        audioio.Sink
}

// Build wires config into a session and orchestrator.
func Build(cfg *config.Config, logger *slog.Logger, ov Overrides) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "app")

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	sess, err := session.New(
		session.WithEnvCredentials(cfg.Credentials()),
		session.WithVoiceName(cfg.TTS.Voice),
		session.WithNoVoicesPolicy(session.NoVoicesPolicy(cfg.TTS.NoVoices)),
		session.WithSystemPrompt(cfg.Session.SystemPrompt),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	providers := ov.Providers
	if providers == nil {
		providers, err = buildProviders(cfg, sess, logger)
		if err != nil {
			return nil, err
		}
	}
	for _, p := range providers {
		sess.Register(p)
	}
	if err := selectProvider(cfg, sess, providers, logger); err != nil {
		closeAll(providers)
		return nil, err
	}

	chat := ov.Chat
	if chat == nil {
		chat, err = inference.NewClient(
			inference.WithBaseURL(cfg.OpenAI.BaseURL),
			inference.WithAPIKeyFunc(sess.CredentialFunc("openai")),
			inference.WithModel(cfg.OpenAI.ChatModel),
			inference.WithMaxTokens(cfg.OpenAI.MaxTokens),
			inference.WithTemperature(cfg.OpenAI.Temperature),
			inference.WithTimeout(cfg.Timeouts.Completion),
			inference.WithLogger(logger),
		)
		if err != nil {
			closeAll(providers)
			return nil, fmt.Errorf("chat engine: %w", err)
		}
	}

	transcriber := ov.Transcriber
	if transcriber == nil {
		transcriber, err = stt.NewWhisper(
			stt.WithBaseURL(cfg.OpenAI.BaseURL),
			stt.WithAPIKeyFunc(sess.CredentialFunc("openai")),
			stt.WithModel(cfg.OpenAI.TranscriptionModel),
			stt.WithLanguage(cfg.OpenAI.Language),
			stt.WithTimeout(cfg.Timeouts.Transcription),
			stt.WithLogger(logger),
		)
		if err != nil {
			closeAll(providers)
			chat.Close()
			return nil, fmt.Errorf("transcriber: %w", err)
		}
	}

	audioCfg := audioio.Config{
		Backend:       audioio.Backend(cfg.Audio.Backend),
		SampleRate:    cfg.Audio.SampleRate,
		Device:        cfg.Audio.Device,
		RecordCommand: cfg.Audio.RecordCommand,
		PlayCommand:   cfg.Audio.PlayCommand,
		ScratchDir:    cfg.Audio.ScratchDir,
	}
	scratch, err := audioio.NewScratch(audioCfg.ScratchDir, logger)
	if err != nil {
		closeAll(providers)
		chat.Close()
		return nil, err
	}

	recorder := ov.Recorder
	if recorder == nil {
		if recorder, err = audioio.NewRecorder(audioCfg, logger); err != nil {
			// Typed input keeps working without a microphone.
			log.Warn("voice input disabled", "error", err)
			recorder = nil
		}
	}
	sink := ov.Sink
	if sink == nil && cfg.Audio.Play {
		if sink, err = audioio.NewSink(audioCfg, scratch, logger); err != nil {
			log.Warn("local playback disabled", "error", err)
			sink = nil
		}
	}

	pcfg := pipeline.DefaultConfig().
		WithCapture(cfg.Audio.RecordDuration, cfg.Audio.SampleRate).
		WithTimeouts(cfg.Timeouts.Transcription, cfg.Timeouts.Completion,
			cfg.Timeouts.Synthesis, cfg.Timeouts.Playback).
		WithPlayback(cfg.Audio.Play)

	opts := []pipeline.Option{
		pipeline.WithConfig(pcfg),
		pipeline.WithScratch(scratch),
		pipeline.WithTranscriber(transcriber),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger),
	}
	if recorder != nil {
		opts = append(opts, pipeline.WithRecorder(recorder))
	}
	if sink != nil {
		opts = append(opts, pipeline.WithSink(sink))
	}
	orch, err := pipeline.New(sess, chat, opts...)
	if err != nil {
		closeAll(providers)
		chat.Close()
		return nil, err
	}

	res := &BuildResult{
		Config:       cfg,
		Session:      sess,
		Orchestrator: orch,
		Metrics:      metrics,
		Scratch:      scratch,
	}
	if cfg.Web.Enabled {
		res.Web = web.NewServer(cfg.Web.Addr, orch,
			web.WithMetrics(metrics),
			web.WithLogger(logger),
		)
	}

	res.Cleanup = func() error {
		var errs []error
		errs = append(errs, closeAll(providers))
		errs = append(errs, chat.Close())
		if cfg.Audio.ScratchDir == "" {
			if err := os.Remove(scratch.Dir()); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove scratch dir: %w", err))
			}
		}
		return errors.Join(errs...)
	}

	status := sess.Status()
	log.Info("voice chat ready",
		"provider", status.Provider,
		"providers", strings.Join(status.Providers, ","),
		"voice_input", orch.VoiceEnabled(),
		"playback", sink != nil && cfg.Audio.Play,
		"web", cfg.Web.Enabled,
	)
	return res, nil
}

// buildProviders constructs every registry provider with credentials that
// resolve through the session on each request.
func buildProviders(cfg *config.Config, sess *session.Context, logger *slog.Logger) ([]tts.Provider, error) {
	timeout := tts.WithTimeout(cfg.Timeouts.Synthesis)
	withLogger := tts.WithLogger(logger)

	settings := tts.VoiceSettings{
		Stability:       cfg.TTS.ElevenLabs.Stability,
		SimilarityBoost: cfg.TTS.ElevenLabs.SimilarityBoost,
	}

	specs := map[string][]tts.Option{
		tts.ProviderElevenLabs: {
			tts.WithBaseURL(cfg.TTS.ElevenLabs.BaseURL),
			tts.WithModel(cfg.TTS.ElevenLabs.Model),
			tts.WithVoiceSettings(settings),
		},
		tts.ProviderSpeechify:   {tts.WithBaseURL(cfg.TTS.Speechify.V2BaseURL)},
		tts.ProviderSpeechifyV1: {tts.WithBaseURL(cfg.TTS.Speechify.V1BaseURL)},
		tts.ProviderGoogle: {
			tts.WithBaseURL(cfg.TTS.Google.BaseURL),
			tts.WithLanguage(cfg.TTS.Google.Language),
		},
		tts.ProviderGoogleCloud: {
			tts.WithBaseURL(cfg.TTS.GoogleCloud.Endpoint),
			tts.WithLanguage(cfg.TTS.GoogleCloud.Language),
		},
		tts.ProviderOpenAI: {tts.WithBaseURL(cfg.OpenAI.BaseURL)},
	}

	var providers []tts.Provider
	for _, name := range tts.Names() {
		opts, ok := specs[name]
		if !ok && name != cfg.TTS.Provider {
			continue
		}
		opts = append(opts,
			tts.WithAPIKeyFunc(sess.CredentialFunc(name)),
			timeout,
			withLogger,
		)
		p, err := tts.New(name, opts...)
		if err != nil {
			closeAll(providers)
			return nil, fmt.Errorf("tts provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// selectProvider activates the configured provider, wrapping it in a chain
// when fallbacks are configured.
func selectProvider(cfg *config.Config, sess *session.Context, providers []tts.Provider, logger *slog.Logger) error {
	byName := make(map[string]tts.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	primary, ok := byName[cfg.TTS.Provider]
	if !ok {
		return fmt.Errorf("%w: %s", tts.ErrUnknownProvider, cfg.TTS.Provider)
	}
	if len(cfg.TTS.Fallbacks) == 0 {
		return sess.SetProvider(primary.Name())
	}

	members := []tts.Provider{primary}
	for _, name := range cfg.TTS.Fallbacks {
		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("%w: fallback %s", tts.ErrUnknownProvider, name)
		}
		members = append(members, p)
	}
	chain, err := tts.NewChainWithLogger(logger, members...)
	if err != nil {
		return err
	}
	sess.Register(chain)
	return sess.SetProvider(chain.Name())
}

func closeAll(providers []tts.Provider) error {
	var errs []error
	for _, p := range providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
