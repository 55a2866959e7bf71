// Package model owns the single loaded transcription model. Loading,
// switching, unloading and inference are serialised by one exclusive guard so
// no transcription ever runs against a model that is being torn down.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

type Status string

const (
	StatusUnloaded Status = "unloaded"
	StatusLoading  Status = "loading"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// Handle is a snapshot of the manager state.
type Handle struct {
	ID       string    `json:"id"`
	Status   Status    `json:"status"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Err      string    `json:"error,omitempty"`
}

var (
	ErrNoModel = errors.New("model: no model selected")
	ErrClosed  = errors.New("model: manager closed")

	// ErrLoad wraps every loader failure.
	ErrLoad = errors.New("model: load failed")
)

// Hints bias recognition toward expected vocabulary.
type Hints struct {
	InitialPrompt string
	Language      string
}

type Result struct {
	Text       string
	Confidence float64
}

// Model is a loaded recogniser. The manager never calls Transcribe and Close
// concurrently.
type Model interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int, hints Hints) (Result, error)
	Close() error
}

// Loader materialises a model by id.
type Loader interface {
	Load(ctx context.Context, id string) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, id string) (Model, error) {
	return f(ctx, id)
}

type Manager struct {
	loader         Loader
	log            *slog.Logger
	idleTimeout    time.Duration
	checkInterval  time.Duration
	unloadAfterUse bool
	now            func() time.Time

	// op is a one-slot semaphore held by load, switch, unload and Use.
	op      chan struct{}
	model   Model
	desired string
	closed  bool

	stateMu  sync.RWMutex
	handle   Handle
	lastUsed time.Time

	subMu      sync.Mutex
	subs       map[int]chan Event
	nextSub    int
	subsClosed bool
	dropped    atomic.Uint64
}

func NewManager(cfg config.ModelConfig, loader Loader, log *slog.Logger) *Manager {
	check := time.Duration(cfg.CheckIntervalMS) * time.Millisecond
	if check <= 0 {
		check = 10 * time.Second
	}
	return &Manager{
		loader:         loader,
		log:            log.With(slog.String("component", "model")),
		idleTimeout:    time.Duration(cfg.IdleTimeoutMS) * time.Millisecond,
		checkInterval:  check,
		unloadAfterUse: cfg.UnloadAfterUse,
		now:            time.Now,
		op:             make(chan struct{}, 1),
		desired:        cfg.ID,
		handle:         Handle{ID: cfg.ID, Status: StatusUnloaded},
		subs:           make(map[int]chan Event),
	}
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.op <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.closed {
		m.release()
		return ErrClosed
	}
	return nil
}

func (m *Manager) release() {
	<-m.op
}

// Load makes id the loaded model. Loading the model that is already ready is
// a no-op.
func (m *Manager) Load(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoModel
	}
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	m.desired = id
	return m.loadLocked(ctx, id)
}

// Switch replaces the loaded model with id, waiting for any in-flight use of
// the current model to finish first.
func (m *Manager) Switch(ctx context.Context, id string) error {
	return m.Load(ctx, id)
}

// Unload releases the loaded model. The selected id is kept so the next Use
// reloads it.
func (m *Manager) Unload(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()
	m.unloadLocked("requested")
	return nil
}

// Status returns the current handle.
func (m *Manager) Status() Handle {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.handle
}

// Use runs fn against the loaded model, loading the selected model first when
// none is resident. Load, switch and unload wait until fn returns.
func (m *Manager) Use(ctx context.Context, fn func(Model) error) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	if m.model == nil {
		if m.desired == "" {
			return ErrNoModel
		}
		if err := m.loadLocked(ctx, m.desired); err != nil {
			return err
		}
	}

	err := fn(m.model)

	m.stateMu.Lock()
	m.lastUsed = m.now()
	m.stateMu.Unlock()

	if m.unloadAfterUse {
		m.unloadLocked("unload after use")
	}
	return err
}

// Run unloads the model after the idle timeout until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTimeout <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkIdle()
		}
	}
}

// checkIdle unloads an idle model. A busy manager is in use and so not idle.
func (m *Manager) checkIdle() {
	select {
	case m.op <- struct{}{}:
	default:
		return
	}
	defer m.release()
	if m.model == nil || m.closed {
		return
	}
	m.stateMu.RLock()
	idle := m.now().Sub(m.lastUsed)
	m.stateMu.RUnlock()
	if idle >= m.idleTimeout {
		m.unloadLocked("idle timeout")
	}
}

// Close unloads the model and closes every subscription.
func (m *Manager) Close() error {
	if err := m.acquire(context.Background()); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	m.unloadLocked("shutdown")
	m.closed = true
	m.release()

	m.subMu.Lock()
	m.subsClosed = true
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.subMu.Unlock()
	return nil
}

func (m *Manager) loadLocked(ctx context.Context, id string) error {
	if m.model != nil {
		if m.Status().ID == id {
			return nil
		}
		m.unloadLocked("switch")
	}

	m.setHandle(Handle{ID: id, Status: StatusLoading})
	m.emit(Event{Kind: EventLoadingStarted, ModelID: id})
	started := m.now()

	mdl, err := m.loader.Load(ctx, id)
	if err != nil {
		m.setHandle(Handle{ID: id, Status: StatusError, Err: err.Error()})
		m.emit(Event{Kind: EventLoadingFailed, ModelID: id, Err: err.Error()})
		m.log.Error("model load failed", slog.String("model", id), slog.String("error", err.Error()))
		return fmt.Errorf("%w: %q: %w", ErrLoad, id, err)
	}

	now := m.now()
	m.model = mdl
	m.stateMu.Lock()
	m.handle = Handle{ID: id, Status: StatusReady, LoadedAt: now}
	m.lastUsed = now
	m.stateMu.Unlock()
	m.emit(Event{Kind: EventLoaded, ModelID: id})
	m.log.Info("model loaded", slog.String("model", id), slog.Duration("elapsed", now.Sub(started)))
	return nil
}

func (m *Manager) unloadLocked(reason string) {
	if m.model == nil {
		return
	}
	id := m.Status().ID
	if err := m.model.Close(); err != nil {
		m.log.Warn("model close failed", slog.String("model", id), slog.String("error", err.Error()))
	}
	m.model = nil
	m.setHandle(Handle{ID: id, Status: StatusUnloaded})
	m.emit(Event{Kind: EventUnloaded, ModelID: id})
	m.log.Info("model unloaded", slog.String("model", id), slog.String("reason", reason))
}

func (m *Manager) setHandle(h Handle) {
	m.stateMu.Lock()
	m.handle = h
	m.stateMu.Unlock()
}
