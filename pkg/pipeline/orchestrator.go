package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-voicechat/pkg/audioio"
	"github.com/teslashibe/go-voicechat/pkg/conversation"
	"github.com/teslashibe/go-voicechat/pkg/inference"
	"github.com/teslashibe/go-voicechat/pkg/observability"
	"github.com/teslashibe/go-voicechat/pkg/session"
	"github.com/teslashibe/go-voicechat/pkg/stt"
	"github.com/teslashibe/go-voicechat/pkg/tts"
)

// Input kinds reported on results and metrics.
const (
	InputText  = "text"
	InputVoice = "voice"
)

// Degraded reasons, beyond the session's skip reasons.
const (
	DegradedSynthesisFailed = "synthesis_failed"
)

// Result describes a completed turn.
type Result struct {
	Input     string            `json:"input"`
	User      conversation.Turn `json:"user"`
	Assistant conversation.Turn `json:"assistant"`

	// Degraded is set when the reply has no speech; DegradedReason says why.
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`

	// Warnings holds non-fatal synthesis and playback errors.
	Warnings []error `json:"-"`

	Timings Timings `json:"timings"`
}

// Event is emitted to observers as a turn progresses.
type Event struct {
	Type    string             `json:"type"`
	State   State              `json:"state"`
	Turn    *conversation.Turn `json:"turn,omitempty"`
	Message string             `json:"message,omitempty"`
	Kind    string             `json:"kind,omitempty"`
	Time    time.Time          `json:"time"`
}

// Event types.
const (
	EventState   = "state"
	EventTurn    = "turn"
	EventAudio   = "audio"
	EventWarning = "warning"
	EventError   = "error"
	EventReset   = "reset"
)

// Orchestrator sequences the stages of each turn. It is the only component
// that mutates the conversation history.
type Orchestrator struct {
	cfg         Config
	session     *session.Context
	chat        inference.Provider
	recorder    audioio.Recorder
	scratch     *audioio.Scratch
	transcriber stt.Transcriber
	sink        audioio.Sink
	metrics     *observability.Metrics
	logger      *slog.Logger

	busy atomic.Bool

	mu       sync.RWMutex
	state    State
	onState  []func(from, to State)
	onEvents []func(Event)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets the turn configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithRecorder enables voice input.
func WithRecorder(r audioio.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithScratch sets where captured audio is staged.
func WithScratch(s *audioio.Scratch) Option {
	return func(o *Orchestrator) { o.scratch = s }
}

// WithTranscriber sets the speech-to-text service.
func WithTranscriber(t stt.Transcriber) Option {
	return func(o *Orchestrator) { o.transcriber = t }
}

// WithSink enables playback of synthesized replies.
func WithSink(s audioio.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator for sess using chat for completions.
func New(sess *session.Context, chat inference.Provider, opts ...Option) (*Orchestrator, error) {
	if sess == nil || chat == nil {
		return nil, errors.New("pipeline: session and chat engine are required")
	}
	o := &Orchestrator{
		cfg:     DefaultConfig(),
		session: sess,
		chat:    chat,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "pipeline")
	return o, nil
}

// Config returns the turn configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Session returns the session the orchestrator drives.
func (o *Orchestrator) Session() *session.Context { return o.session }

// VoiceEnabled reports whether RunVoice can capture audio.
func (o *Orchestrator) VoiceEnabled() bool {
	return o.recorder != nil && o.scratch != nil && o.transcriber != nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Busy reports whether a turn is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// OnStateChange registers a callback fired on every transition.
func (o *Orchestrator) OnStateChange(fn func(from, to State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onState = append(o.onState, fn)
}

// OnEvent registers a callback fired for every event.
func (o *Orchestrator) OnEvent(fn func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onEvents = append(o.onEvents, fn)
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	stateFns := append([]func(from, to State){}, o.onState...)
	o.mu.Unlock()

	if from == to {
		return
	}
	for _, fn := range stateFns {
		fn(from, to)
	}
	o.emit(Event{Type: EventState, State: to})
}

func (o *Orchestrator) emit(e Event) {
	o.mu.RLock()
	fns := append([]func(Event){}, o.onEvents...)
	if e.State == StateIdle && e.Type != EventState {
		e.State = o.state
	}
	o.mu.RUnlock()

	e.Time = time.Now()
	for _, fn := range fns {
		fn(e)
	}
}

func (o *Orchestrator) acquire() error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrTurnInProgress
	}
	return nil
}

func (o *Orchestrator) release() {
	o.setState(StateIdle)
	o.busy.Store(false)
}

// RunText runs a turn for typed input.
func (o *Orchestrator) RunText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.release()

	watch := newStopwatch(o.metrics)
	o.setState(StateReadingInput)

	res, err := o.converse(ctx, text, watch)
	return o.finish(InputText, res, err, watch)
}

// RunVoice records duration of audio, transcribes it and runs a turn.
// A zero duration selects the configured default.
func (o *Orchestrator) RunVoice(ctx context.Context, duration time.Duration) (*Result, error) {
	if duration == 0 {
		duration = o.cfg.RecordDuration
	}
	if err := checkDuration(duration); err != nil {
		return nil, err
	}
	if !o.VoiceEnabled() {
		return nil, &StageError{Stage: StateCapturing, Err: ErrNoRecorder}
	}
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.release()

	watch := newStopwatch(o.metrics)

	text, err := o.listen(ctx, duration, watch)
	if err != nil {
		return o.finish(InputVoice, nil, err, watch)
	}

	res, err := o.converse(ctx, text, watch)
	return o.finish(InputVoice, res, err, watch)
}

// listen captures and transcribes speech. The capture artifact is released
// before it returns.
func (o *Orchestrator) listen(ctx context.Context, duration time.Duration, watch *stopwatch) (string, error) {
	o.setState(StateCapturing)
	watch.begin()
	chunk, err := o.recorder.Record(ctx, duration, o.cfg.SampleRate)
	watch.end(StateCapturing)
	if err != nil {
		return "", &StageError{Stage: StateCapturing, Err: err}
	}

	artifact, err := o.scratch.Persist(chunk)
	if err != nil {
		return "", &StageError{Stage: StateCapturing, Err: err}
	}
	defer o.releaseArtifact(artifact)

	if err := ctx.Err(); err != nil {
		return "", &StageError{Stage: StateTranscribing, Err: err}
	}

	o.setState(StateTranscribing)
	tctx, cancel := context.WithTimeout(ctx, o.cfg.TranscriptionTimeout)
	defer cancel()

	watch.begin()
	text, err := o.transcriber.Transcribe(tctx, artifact.Path)
	watch.end(StateTranscribing)
	if err != nil {
		o.metrics.ProviderError("transcription", Kind(err))
		return "", &StageError{Stage: StateTranscribing, Err: err}
	}
	return text, nil
}

func (o *Orchestrator) releaseArtifact(a *audioio.Artifact) {
	if err := a.Release(); err != nil {
		o.logger.Warn("release capture artifact", "path", a.Path, "error", err)
	}
}

// converse stores the user's text, completes the history and speaks the
// reply.
func (o *Orchestrator) converse(ctx context.Context, text string, watch *stopwatch) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StateAppending, Err: err}
	}
	history := o.session.History()

	o.setState(StateAppending)
	user, err := history.Append(conversation.Turn{Role: conversation.RoleUser, Content: text})
	if err != nil {
		if errors.Is(err, conversation.ErrInvalidTurn) {
			err = fmt.Errorf("%w: %w", ErrEmptyInput, err)
		}
		return nil, &StageError{Stage: StateAppending, Err: err}
	}
	o.metrics.SetHistory(history.Len())
	o.emit(Event{Type: EventTurn, State: StateAppending, Turn: &user})

	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StateCompleting, Err: err}
	}

	o.setState(StateCompleting)
	watch.begin()
	reply, err := o.complete(ctx, history.Snapshot())
	watch.end(StateCompleting)
	if err != nil {
		o.metrics.ProviderError("chat", Kind(err))
		return nil, &StageError{Stage: StateCompleting, Err: err}
	}

	o.setState(StateAppending)
	assistant, err := history.Append(conversation.Turn{Role: conversation.RoleAssistant, Content: reply})
	if err != nil {
		return nil, &StageError{Stage: StateAppending, Err: err}
	}
	o.metrics.SetHistory(history.Len())
	o.emit(Event{Type: EventTurn, State: StateAppending, Turn: &assistant})

	res := &Result{User: user, Assistant: assistant}
	o.speak(ctx, res, watch)
	return res, nil
}

func (o *Orchestrator) complete(ctx context.Context, msgs []inference.Message) (string, error) {
	msgs = inference.PrependSystem(o.session.SystemPrompt(), msgs)

	cctx, cancel := context.WithTimeout(ctx, o.cfg.CompletionTimeout)
	defer cancel()

	resp, err := o.chat.Chat(cctx, &inference.ChatRequest{Messages: msgs})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, inference.ErrCompletionTimeout) {
			err = fmt.Errorf("%w: %w", inference.ErrCompletionTimeout, err)
		}
		return "", err
	}
	reply := strings.TrimSpace(resp.Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", inference.ErrCompletionFailed)
	}
	return reply, nil
}

// speak synthesizes and plays the reply. Failures become warnings.
func (o *Orchestrator) speak(ctx context.Context, res *Result, watch *stopwatch) {
	if err := ctx.Err(); err != nil {
		o.degrade(res, DegradedSynthesisFailed, &StageError{Stage: StateSynthesizing, Err: err})
		return
	}

	o.setState(StateSynthesizing)
	sctx, cancel := context.WithTimeout(ctx, o.cfg.SynthesisTimeout)
	defer cancel()

	watch.begin()
	audio, provider, err := o.synthesize(sctx, res)
	watch.end(StateSynthesizing)
	if err != nil {
		o.metrics.ProviderError(provider, Kind(err))
		o.degrade(res, DegradedSynthesisFailed, &StageError{Stage: StateSynthesizing, Err: err})
		return
	}
	if audio == nil {
		return
	}

	history := o.session.History()
	if err := history.AttachAudio(res.Assistant.ID, conversation.Audio{
		Data:   audio.Audio,
		Format: string(audio.Format),
	}); err != nil {
		o.degrade(res, DegradedSynthesisFailed, &StageError{Stage: StateSynthesizing, Err: err})
		return
	}
	if stored, err := history.Turn(res.Assistant.ID); err == nil {
		res.Assistant = stored
	}
	o.emit(Event{Type: EventAudio, State: StateSynthesizing, Turn: &res.Assistant})

	if o.sink == nil || !o.cfg.Play {
		return
	}
	if err := ctx.Err(); err != nil {
		o.warn(res, &StageError{Stage: StatePlaying, Err: err})
		return
	}

	o.setState(StatePlaying)
	pctx, pcancel := context.WithTimeout(ctx, o.cfg.PlaybackTimeout)
	defer pcancel()

	watch.begin()
	err = o.sink.Play(pctx, audio.Audio, string(audio.Format))
	watch.end(StatePlaying)
	if err != nil {
		o.warn(res, &StageError{Stage: StatePlaying, Err: err})
	}
}

// synthesize returns nil audio without error when the session cannot speak.
func (o *Orchestrator) synthesize(ctx context.Context, res *Result) (*tts.AudioResult, string, error) {
	target, err := o.session.SynthesisTarget(ctx)
	name := o.session.ProviderName()
	if err != nil {
		return nil, name, err
	}
	if !target.OK() {
		res.Degraded = true
		res.DegradedReason = target.Skip
		o.metrics.Degraded(target.Skip)
		o.logger.Debug("synthesis skipped", "reason", target.Skip, "provider", name)
		return nil, name, nil
	}

	audio, err := target.Provider.Synthesize(ctx, res.Assistant.Content, target.Voice)
	if err != nil {
		return nil, target.Provider.Name(), err
	}
	if audio == nil || len(audio.Audio) == 0 {
		return nil, target.Provider.Name(), fmt.Errorf("%w: empty audio", tts.ErrInvalidResponse)
	}
	o.metrics.Synthesized(target.Provider.Name(), len(res.Assistant.Content))
	return audio, target.Provider.Name(), nil
}

func (o *Orchestrator) degrade(res *Result, reason string, err error) {
	res.Degraded = true
	res.DegradedReason = reason
	o.metrics.Degraded(reason)
	o.warn(res, err)
}

func (o *Orchestrator) warn(res *Result, err error) {
	res.Warnings = append(res.Warnings, err)
	o.logger.Warn("turn completed with warning", "kind", Kind(err), "error", err)
	o.emit(Event{Type: EventWarning, Message: err.Error(), Kind: Kind(err)})
}

func (o *Orchestrator) finish(input string, res *Result, err error, watch *stopwatch) (*Result, error) {
	timings := watch.done()
	if err != nil {
		o.metrics.TurnDone(input, "error")
		o.logger.Warn("turn failed", "input", input, "kind", Kind(err), "error", err)
		o.emit(Event{Type: EventError, Message: err.Error(), Kind: Kind(err)})
		return nil, err
	}

	res.Input = input
	res.Timings = timings
	outcome := "ok"
	if res.Degraded || len(res.Warnings) > 0 {
		outcome = "degraded"
	}
	o.metrics.TurnDone(input, outcome)
	o.logger.Info("turn complete",
		"input", input,
		"outcome", outcome,
		"latency", timings.FormatLatency(),
	)
	return res, nil
}

// Reset clears the conversation history. It fails while a turn runs.
func (o *Orchestrator) Reset() error {
	if err := o.acquire(); err != nil {
		return err
	}
	defer o.busy.Store(false)

	o.session.Reset()
	o.metrics.SetHistory(0)
	o.emit(Event{Type: EventReset})
	return nil
}
