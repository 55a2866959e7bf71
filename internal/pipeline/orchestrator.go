// Package pipeline runs recording sessions end to end: capture, segmentation,
// transcription, profile selection, correction, post-processing, expansion,
// delivery and history.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/delivery"
	"github.com/loqalabs/loqa-dictate/internal/eventstore"
	"github.com/loqalabs/loqa-dictate/internal/expand"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
	"github.com/loqalabs/loqa-dictate/internal/llm"
	"github.com/loqalabs/loqa-dictate/internal/model"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/loqalabs/loqa-dictate/internal/queue"
	"github.com/loqalabs/loqa-dictate/internal/selector"
	"github.com/loqalabs/loqa-dictate/internal/session"
	"github.com/loqalabs/loqa-dictate/internal/stt"
	"github.com/loqalabs/loqa-dictate/internal/textfilter"
	"github.com/loqalabs/loqa-dictate/internal/vad"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotRunning     = errors.New("pipeline: orchestrator is not running")
	ErrAlreadyRunning = errors.New("pipeline: orchestrator already running")
)

const (
	transitionBuffer = 64
	resultBuffer     = 16
	finishTimeout    = 10 * time.Second
)

// History persists sessions, transitions and finished dictations.
type History interface {
	AppendSession(ctx context.Context, sessionID, actorID, privacy string) error
	AppendEvent(ctx context.Context, evt eventstore.Event) error
	AppendDictation(ctx context.Context, d eventstore.Dictation) error
}

// Deps are the collaborators of an Orchestrator. Source, Engine and Catalog
// are required; the rest are optional.
type Deps struct {
	Source        audio.Source
	NewClassifier func() vad.Classifier
	Engine        *stt.Engine
	Catalog       *jargon.Catalog
	Selector      *selector.Selector
	Prompts       *selector.PromptRouter
	PostProcessor *llm.PostProcessor
	Expander      *expand.Expander
	Deliverer     delivery.Deliverer
	History       History
	Publisher     delivery.Publisher
	ModelStatus   func() model.Handle
}

type Orchestrator struct {
	deps     Deps
	audioCfg config.AudioConfig
	vadCfg   config.VADConfig
	machine  *session.Machine
	settings atomic.Pointer[Settings]
	log      *slog.Logger
	metrics  *metrics
	tracer   trace.Tracer

	transitions *queue.Ring[session.Transition]
	results     chan Output
	lostResults atomic.Uint64

	mu      sync.Mutex
	runCtx  context.Context
	stopped bool
	active  *recording
	wg      sync.WaitGroup
}

func New(cfg config.Config, machine *session.Machine, deps Deps, log *slog.Logger) (*Orchestrator, error) {
	if deps.Source == nil || deps.Engine == nil || deps.Catalog == nil {
		return nil, errors.New("pipeline: source, engine and catalog are required")
	}
	log = log.With(slog.String("component", "pipeline"))
	if deps.Selector == nil {
		deps.Selector = selector.New(selector.OptionsFrom(cfg.Selector), nil, log)
	}
	if deps.Deliverer == nil {
		deps.Deliverer = delivery.NewLog(log)
	}
	if deps.NewClassifier == nil {
		threshold, smoothing := cfg.VAD.Threshold, cfg.VAD.Smoothing
		deps.NewClassifier = func() vad.Classifier { return vad.NewEnergyClassifier(threshold, smoothing) }
	}

	m, err := newMetrics(otel.Meter(instrumentationName), deps.ModelStatus)
	if err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
		m = noopMetrics()
	}

	o := &Orchestrator{
		deps:        deps,
		audioCfg:    cfg.Audio,
		vadCfg:      cfg.VAD,
		machine:     machine,
		log:         log,
		metrics:     m,
		tracer:      otel.Tracer(instrumentationName),
		transitions: queue.New[session.Transition](transitionBuffer),
		results:     make(chan Output, resultBuffer),
	}
	settings := SettingsFrom(cfg)
	o.settings.Store(&settings)
	machine.Observe(o.observe)
	return o, nil
}

// Settings returns the settings the next utterance will use.
func (o *Orchestrator) Settings() Settings {
	return o.settings.Load().clone()
}

// SetSettings replaces the settings from the next utterance on.
func (o *Orchestrator) SetSettings(s Settings) {
	s = s.clone()
	o.settings.Store(&s)
}

// Results delivers every finished session. Results are dropped when nobody
// reads them.
func (o *Orchestrator) Results() <-chan Output {
	return o.results
}

func (o *Orchestrator) State() session.Session {
	return o.machine.State()
}

func (o *Orchestrator) StartRecording() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Start)
}

func (o *Orchestrator) StopRecording() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Stop)
}

func (o *Orchestrator) ToggleRecording() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Toggle)
}

func (o *Orchestrator) Press() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Press)
}

func (o *Orchestrator) Release() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Release)
}

func (o *Orchestrator) CancelRecording() (session.Effect, session.Session, error) {
	return o.apply(o.machine.Cancel)
}

// Dispatch runs a control action by name.
func (o *Orchestrator) Dispatch(action string) (session.Effect, session.Session, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "start", "start_recording":
		return o.StartRecording()
	case "stop", "stop_recording":
		return o.StopRecording()
	case "toggle", "toggle_recording":
		return o.ToggleRecording()
	case "press":
		return o.Press()
	case "release":
		return o.Release()
	case "cancel", "cancel_recording":
		return o.CancelRecording()
	default:
		return session.EffectNone, o.machine.State(), fmt.Errorf("unknown action %q", action)
	}
}

// Run serves sessions until ctx ends. An active recording is aborted on
// shutdown; sessions already processing are allowed to finish.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.runCtx != nil {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.runCtx = ctx
	o.mu.Unlock()

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		o.forwardTransitions()
	}()

	<-ctx.Done()

	o.mu.Lock()
	o.stopped = true
	if o.active != nil {
		effect, s := o.machine.Cancel()
		o.handleLocked(effect, s)
	}
	o.mu.Unlock()

	o.wg.Wait()
	o.transitions.Close()
	<-forwarded
	return nil
}

func (o *Orchestrator) apply(fn func() (session.Effect, session.Session)) (session.Effect, session.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runCtx == nil || o.stopped {
		return session.EffectNone, o.machine.State(), ErrNotRunning
	}
	effect, s := fn()
	o.handleLocked(effect, s)
	return effect, s, nil
}

func (o *Orchestrator) handleLocked(effect session.Effect, s session.Session) {
	switch effect {
	case session.EffectBeginRecording:
		if o.stopped {
			o.machine.Cancel()
			return
		}
		o.beginLocked(s)
	case session.EffectBeginProcessing:
		rec := o.active
		if rec == nil || rec.session.ID != s.ID {
			return
		}
		o.active = nil
		rec.stopCapture()
		o.wg.Add(1)
		go o.finish(rec)
	case session.EffectAbort:
		rec := o.active
		if rec == nil || rec.session.ID != s.ID {
			return
		}
		o.active = nil
		rec.aborted.Store(true)
		rec.stopCapture()
		o.wg.Add(1)
		go o.abandon(rec)
	case session.EffectQueued:
		o.log.Info("start queued behind processing session", slog.String("session_id", s.ID))
	}
}

// recording is the per-session pipeline state. Fields after the processing
// comment belong to the process goroutine until procDone is closed.
type recording struct {
	session     session.Session
	ctx         context.Context
	span        trace.Span
	stopCapture context.CancelFunc
	aborted     atomic.Bool
	frames      *queue.Ring[audio.Frame]
	segments    *queue.Ring[vad.Segment]
	procDone    chan struct{}

	mu       sync.Mutex
	fatal    *Failure
	warnings []*Failure
	vadStats vad.Stats

	// processing goroutine
	state        selector.State
	texts        []string
	profiles     []string
	terms        []string
	modelID      string
	transcribed  int
	failedErrors []error
}

func (r *recording) setFatal(f *Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatal == nil {
		r.fatal = f
	}
}

func (r *recording) fatalFailure() *Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

func (r *recording) warn(f *Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, f)
}

func (o *Orchestrator) beginLocked(s session.Session) {
	// Only capture stops with the run context; queued speech is still
	// transcribed and delivered.
	ctx, span := o.tracer.Start(context.WithoutCancel(o.runCtx), "pipeline.session",
		trace.WithAttributes(attribute.String("session.id", s.ID), attribute.String("session.mode", string(s.Mode))))
	captureCtx, cancel := context.WithCancel(o.runCtx)
	rec := &recording{
		session:     s,
		ctx:         ctx,
		span:        span,
		stopCapture: cancel,
		frames:      queue.New[audio.Frame](o.audioCfg.QueueFrames),
		segments:    queue.New[vad.Segment](o.vadCfg.QueueSegments),
		procDone:    make(chan struct{}),
	}
	segmenter := vad.NewSegmenter(o.vadCfg, o.audioCfg.SampleRate, o.deps.NewClassifier(), rec.segments, func(seg vad.Segment) {
		o.segmentDropped(rec, seg)
	})
	if o.deps.Prompts != nil {
		o.deps.Prompts.Reset()
	}
	o.active = rec

	o.wg.Add(3)
	go o.capture(captureCtx, rec)
	go o.segment(rec, segmenter)
	go o.process(rec)
	o.log.Info("recording started", slog.String("session_id", s.ID), slog.String("mode", string(s.Mode)))
}

func (o *Orchestrator) capture(ctx context.Context, rec *recording) {
	defer o.wg.Done()
	defer rec.frames.Close()

	var dropped int64
	err := o.deps.Source.Run(ctx, func(f audio.Frame) {
		if _, evicted, _ := rec.frames.Push(f); evicted {
			dropped++
		}
	})
	if dropped > 0 {
		o.metrics.framesDropped.Add(rec.ctx, dropped)
		o.log.Warn("audio frames dropped", slog.String("session_id", rec.session.ID), slog.Int64("frames", dropped))
		o.publish(protocol.SubjectBackpressure, protocol.Backpressure{
			SessionID: rec.session.ID,
			Stage:     "frames",
			Dropped:   uint64(dropped),
			Timestamp: time.Now().UTC(),
		})
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		rec.setFatal(&Failure{Stage: StageCapture, Err: err})
		o.log.Error("capture failed", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
	} else {
		o.log.Info("audio source exhausted", slog.String("session_id", rec.session.ID))
	}
	o.endRecording(rec)
}

// endRecording stops rec if it is still the active recording, moving the
// machine on to processing.
func (o *Orchestrator) endRecording(rec *recording) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == rec {
		effect, s := o.machine.Stop()
		o.handleLocked(effect, s)
	}
}

func (o *Orchestrator) segment(rec *recording, seg *vad.Segmenter) {
	defer o.wg.Done()
	defer rec.segments.Close()

	for {
		frame, err := rec.frames.Pop(context.Background())
		if err != nil {
			break
		}
		if rec.aborted.Load() {
			continue
		}
		if err := seg.Feed(frame); err != nil {
			f := &Failure{Stage: StageSegmentation, Err: err}
			rec.warn(f)
			o.log.Warn("segment dropped", slog.String("session_id", rec.session.ID), slog.String("error", f.Error()))
		}
	}
	if rec.aborted.Load() {
		seg.Discard()
	} else {
		seg.Flush()
	}
	stats := seg.Stats()
	rec.mu.Lock()
	rec.vadStats = stats
	rec.mu.Unlock()
	o.metrics.segments.Add(rec.ctx, int64(stats.Segments))
}

func (o *Orchestrator) segmentDropped(rec *recording, seg vad.Segment) {
	o.metrics.segmentsDropped.Add(rec.ctx, 1)
	o.log.Warn("segment queue full, oldest segment dropped",
		slog.String("session_id", rec.session.ID),
		slog.Int64("start_ms", seg.StartMS),
		slog.Int64("duration_ms", seg.DurationMS()))
	o.publish(protocol.SubjectBackpressure, protocol.Backpressure{
		SessionID: rec.session.ID,
		Stage:     "segments",
		Dropped:   1,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) process(rec *recording) {
	defer o.wg.Done()
	defer close(rec.procDone)
	for {
		seg, err := rec.segments.Pop(context.Background())
		if err != nil {
			return
		}
		if rec.aborted.Load() || rec.fatalFailure() != nil {
			continue
		}
		o.processSegment(rec, seg)
	}
}

func (o *Orchestrator) processSegment(rec *recording, seg vad.Segment) {
	ctx, span := o.tracer.Start(rec.ctx, "pipeline.segment", trace.WithAttributes(
		attribute.Int64("segment.start_ms", seg.StartMS),
		attribute.Int64("segment.duration_ms", seg.DurationMS()),
		attribute.Bool("segment.forced", seg.Forced),
	))
	defer span.End()

	snap := o.deps.Catalog.Snapshot()
	settings := o.Settings()
	opts := o.deps.Selector.Options()

	hintIDs := settings.ManualProfiles
	if opts.Enabled {
		hintIDs = selector.Blend(settings.ManualProfiles, rec.state.Previous, opts.BlendManual)
	}
	hints := model.Hints{InitialPrompt: jargon.InitialPrompt(jargon.Compute(snap, hintIDs, settings.Custom).Terms)}

	tr, err := o.deps.Engine.Transcribe(ctx, seg, hints)
	o.metrics.transcription.Record(ctx, tr.Elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		if errors.Is(err, model.ErrLoad) || errors.Is(err, model.ErrNoModel) {
			rec.setFatal(&Failure{Stage: StageModelLoad, Err: err})
			o.log.Error("model unavailable", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
			o.endRecording(rec)
			return
		}
		rec.failedErrors = append(rec.failedErrors, err)
		rec.warn(&Failure{Stage: StageTranscription, Err: err})
		o.log.Warn("segment transcription failed", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
		return
	}
	rec.transcribed++
	rec.modelID = tr.ModelID
	if tr.Discarded || tr.Text == "" {
		return
	}

	ids := settings.ManualProfiles
	if opts.Enabled {
		out, err := o.deps.Selector.Select(ctx, &rec.state, tr.Text, snap.Enabled())
		if err != nil {
			rec.warn(&Failure{Stage: StageSelector, Err: err})
			o.metrics.selectorFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", out.Fallback)))
		}
		ids = selector.Blend(settings.ManualProfiles, out.IDs, opts.BlendManual)
	}

	dict := jargon.Compute(snap, ids, settings.Custom)
	text := jargon.NewCorrector(dict.Corrections).Apply(tr.Text)
	text = jargon.NewFuzzyMatcher(settings.Custom.Terms, settings.FuzzyThreshold).Apply(text)

	rec.texts = append(rec.texts, text)
	rec.profiles = union(rec.profiles, ids)
	rec.terms = union(rec.terms, dict.Terms)
	span.SetAttributes(attribute.StringSlice("profiles", ids))
}

// finish waits for the last segment, assembles the output and returns the
// machine to idle.
func (o *Orchestrator) finish(rec *recording) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		effect, s := o.machine.Complete()
		o.handleLocked(effect, s)
	}()

	<-rec.procDone
	out := o.assemble(rec)
	outcome := "ok"
	if out.Err != nil {
		outcome = "failed"
		rec.span.RecordError(out.Err)
		rec.span.SetStatus(codes.Error, out.Err.Error())
	}
	rec.span.SetAttributes(attribute.Int("segments", out.Segments))
	rec.span.End()
	o.metrics.sessions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	select {
	case o.results <- out:
	default:
		o.lostResults.Add(1)
	}
}

func (o *Orchestrator) abandon(rec *recording) {
	defer o.wg.Done()
	<-rec.procDone
	rec.span.SetAttributes(attribute.Bool("cancelled", true))
	rec.span.End()
	o.metrics.sessions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", "cancelled")))
	o.log.Info("recording cancelled", slog.String("session_id", rec.session.ID))
}

func (o *Orchestrator) assemble(rec *recording) Output {
	rec.mu.Lock()
	stats := rec.vadStats
	rec.mu.Unlock()

	out := Output{
		SessionID: rec.session.ID,
		Profiles:  rec.profiles,
		ModelID:   rec.modelID,
		Segments:  len(rec.texts),
	}
	ctx, cancel := context.WithTimeout(rec.ctx, finishTimeout)
	defer cancel()

	defer func() {
		rec.mu.Lock()
		out.Warnings = append([]*Failure(nil), rec.warnings...)
		rec.mu.Unlock()
		o.record(ctx, out)
	}()

	fatal := rec.fatalFailure()
	if fatal == nil && rec.transcribed == 0 && len(rec.failedErrors) > 0 {
		fatal = &Failure{Stage: StageTranscription, Err: errors.Join(rec.failedErrors...)}
	}
	if fatal != nil {
		out.Err = fatal
		o.log.Error("dictation failed", slog.String("session_id", rec.session.ID), slog.String("error", fatal.Error()))
		return out
	}

	text := textfilter.JoinSegments(rec.texts)
	if strings.TrimSpace(text) == "" {
		o.log.Info("no speech captured",
			slog.String("session_id", rec.session.ID),
			slog.Int64("input_ms", stats.InputMS),
			slog.Int64("trimmed_ms", stats.TrimmedMS),
			slog.Int64("discarded_ms", stats.DiscardedMS))
		return out
	}

	settings := o.Settings()
	expanding := settings.Expansion && o.deps.Expander != nil
	if settings.PostProcess && o.deps.PostProcessor != nil {
		text, out.PromptID = o.postProcess(ctx, rec, settings, text, expanding)
	}

	out.HistoryText, out.DeliveredText = text, text
	if expanding {
		res, err := o.deps.Expander.Expand(text)
		if err != nil {
			rec.warn(&Failure{Stage: StageExpansion, Err: err})
			o.log.Warn("reference expansion failed", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
		}
		out.HistoryText, out.DeliveredText = res.History, res.Delivered
		o.metrics.expansionSnippets.Add(ctx, int64(len(res.Resolved)))
	}

	if err := o.deps.Deliverer.Deliver(ctx, out.Dictation()); err != nil {
		rec.warn(&Failure{Stage: StageDelivery, Err: err})
		o.log.Error("delivery failed", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
	}
	o.log.Info("dictation complete",
		slog.String("session_id", rec.session.ID),
		slog.Int("segments", out.Segments),
		slog.Any("profiles", out.Profiles),
		slog.Int("chars", len(out.DeliveredText)))
	return out
}

func (o *Orchestrator) postProcess(ctx context.Context, rec *recording, settings Settings, text string, expanding bool) (string, string) {
	promptID := settings.PromptID
	if settings.AutoPrompt && o.deps.Prompts != nil {
		var prompts []selector.Prompt
		for _, t := range o.deps.PostProcessor.Templates() {
			prompts = append(prompts, selector.Prompt{ID: t.ID, Name: t.Name})
		}
		promptID = o.deps.Prompts.Select(ctx, text, prompts, promptID)
	}

	ctx, span := o.tracer.Start(ctx, "postprocess", trace.WithAttributes(attribute.String("prompt.id", promptID)))
	defer span.End()
	res, err := o.deps.PostProcessor.Process(ctx, llm.Input{
		Text:           text,
		PromptID:       promptID,
		Terms:          rec.terms,
		Segments:       len(rec.texts),
		PreserveTokens: expanding,
	})
	if err != nil {
		span.RecordError(err)
		rec.warn(&Failure{Stage: StagePostProcess, Err: err})
		o.metrics.postFallbacks.Add(ctx, 1)
		o.log.Warn("post-processing failed, keeping transcript", slog.String("session_id", rec.session.ID), slog.String("error", err.Error()))
		return text, ""
	}
	return res.Text, res.PromptID
}

func (o *Orchestrator) record(ctx context.Context, out Output) {
	if o.deps.History == nil {
		return
	}
	if out.Err == nil && out.HistoryText == "" {
		return
	}
	d := out.Dictation()
	err := o.deps.History.AppendDictation(ctx, eventstore.Dictation{
		SessionID:     d.SessionID,
		HistoryText:   d.HistoryText,
		DeliveredText: d.DeliveredText,
		Profiles:      d.Profiles,
		PromptID:      d.PromptID,
		ModelID:       d.ModelID,
		Segments:      d.Segments,
		Error:         d.Error,
	})
	if err != nil {
		o.log.Warn("failed to record dictation", slog.String("session_id", out.SessionID), slog.String("error", err.Error()))
	}
}

// observe runs under the machine lock, so it only queues the transition.
func (o *Orchestrator) observe(t session.Transition) {
	_, _, _ = o.transitions.Push(t)
}

func (o *Orchestrator) forwardTransitions() {
	for {
		t, err := o.transitions.Pop(context.Background())
		if err != nil {
			return
		}
		o.log.Debug("session transition",
			slog.String("session_id", t.SessionID),
			slog.String("from", string(t.From)),
			slog.String("to", string(t.To)),
			slog.String("trigger", t.Trigger))
		msg := protocol.SessionTransition{
			SessionID: t.SessionID,
			From:      string(t.From),
			To:        string(t.To),
			Trigger:   t.Trigger,
			Timestamp: t.At.UTC(),
		}
		o.publish(protocol.SubjectSessionState, msg)
		o.persistTransition(msg)
	}
}

func (o *Orchestrator) persistTransition(msg protocol.SessionTransition) {
	if o.deps.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if msg.From == string(session.StateIdle) && msg.To == string(session.StateRecording) {
		if err := o.deps.History.AppendSession(ctx, msg.SessionID, "local", "session"); err != nil {
			o.log.Warn("failed to record session", slog.String("error", err.Error()))
			return
		}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := o.deps.History.AppendEvent(ctx, eventstore.Event{
		SessionID: msg.SessionID,
		Type:      "session.transition",
		Payload:   payload,
		Privacy:   "session",
		CreatedAt: msg.Timestamp,
	}); err != nil {
		o.log.Warn("failed to record transition", slog.String("error", err.Error()))
	}
}

func (o *Orchestrator) publish(subject string, v any) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.PublishJSON(subject, v); err != nil {
		o.log.Warn("publish failed", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func union(base, add []string) []string {
	for _, v := range add {
		if !slices.Contains(base, v) {
			base = append(base, v)
		}
	}
	return base
}
