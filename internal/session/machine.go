package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

type Mode string

const (
	ModeToggle     Mode = "toggle"
	ModePushToTalk Mode = "push_to_talk"
)

// ParseMode accepts the configured mode names.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeToggle, "":
		return ModeToggle, nil
	case ModePushToTalk:
		return ModePushToTalk, nil
	default:
		return "", fmt.Errorf("unknown recording mode %q", s)
	}
}

// Effect tells the caller what work a transition requires.
type Effect int

const (
	EffectNone Effect = iota
	// EffectBeginRecording: start capture for the returned session.
	EffectBeginRecording
	// EffectBeginProcessing: stop capture and run the pipeline.
	EffectBeginProcessing
	// EffectAbort: stop capture and discard the audio.
	EffectAbort
	// EffectQueued: a start was queued behind the running pipeline.
	EffectQueued
)

func (e Effect) String() string {
	switch e {
	case EffectBeginRecording:
		return "begin_recording"
	case EffectBeginProcessing:
		return "begin_processing"
	case EffectAbort:
		return "abort"
	case EffectQueued:
		return "queued"
	default:
		return "none"
	}
}

// Session is one recording from start to completion.
type Session struct {
	ID        string
	Mode      Mode
	State     State
	StartedAt time.Time
}

// Transition is reported to observers on every state change.
type Transition struct {
	SessionID string
	From      State
	To        State
	Trigger   string
	At        time.Time
}

// Observer receives transitions synchronously, in order. It must not call
// back into the Machine.
type Observer func(Transition)

// Machine is the process-wide recording state. The zero value is not usable;
// construct with New.
type Machine struct {
	mu        sync.Mutex
	mode      Mode
	current   Session
	queued    bool
	observers []Observer
	now       func() time.Time
}

func New(mode Mode, observers ...Observer) *Machine {
	return &Machine{
		mode:      mode,
		current:   Session{State: StateIdle, Mode: mode},
		observers: observers,
		now:       time.Now,
	}
}

// Observe registers an additional observer.
func (m *Machine) Observe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Machine) Mode() Mode { return m.mode }

// State returns a copy of the current session.
func (m *Machine) State() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Start begins a recording when idle. While processing the start is queued
// (at most one) and replayed by Complete. While recording it is a no-op.
func (m *Machine) Start() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked("start")
}

// Stop moves a recording to processing.
func (m *Machine) Stop() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked("stop")
}

// Toggle starts when idle or processing and stops when recording.
func (m *Machine) Toggle() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.State == StateRecording {
		return m.stopLocked("toggle")
	}
	return m.startLocked("toggle")
}

// Press starts a push-to-talk recording. In toggle mode it toggles.
func (m *Machine) Press() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModePushToTalk {
		return m.startLocked("press")
	}
	if m.current.State == StateRecording {
		return m.stopLocked("press")
	}
	return m.startLocked("press")
}

// Release stops a push-to-talk recording. In toggle mode it does nothing.
func (m *Machine) Release() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModePushToTalk {
		return EffectNone, m.current
	}
	return m.stopLocked("release")
}

// Cancel aborts a recording without running the pipeline. While processing
// it only drops a queued start.
func (m *Machine) Cancel() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.current.State {
	case StateRecording:
		s := m.current
		m.transitionLocked(StateIdle, "cancel")
		return EffectAbort, s
	case StateProcessing:
		m.queued = false
	}
	return EffectNone, m.current
}

// Complete ends processing. When a start was queued meanwhile, the new
// recording begins immediately and EffectBeginRecording is returned.
func (m *Machine) Complete() (Effect, Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.State != StateProcessing {
		return EffectNone, m.current
	}
	m.transitionLocked(StateIdle, "complete")
	if m.queued {
		m.queued = false
		return m.startLocked("queued_start")
	}
	return EffectNone, m.current
}

func (m *Machine) startLocked(trigger string) (Effect, Session) {
	switch m.current.State {
	case StateRecording:
		return EffectNone, m.current
	case StateProcessing:
		m.queued = true
		return EffectQueued, m.current
	}
	m.current = Session{
		ID:        uuid.NewString(),
		Mode:      m.mode,
		State:     StateIdle,
		StartedAt: m.now(),
	}
	m.transitionLocked(StateRecording, trigger)
	return EffectBeginRecording, m.current
}

func (m *Machine) stopLocked(trigger string) (Effect, Session) {
	if m.current.State != StateRecording {
		return EffectNone, m.current
	}
	m.transitionLocked(StateProcessing, trigger)
	return EffectBeginProcessing, m.current
}

func (m *Machine) transitionLocked(to State, trigger string) {
	from := m.current.State
	m.current.State = to
	t := Transition{
		SessionID: m.current.ID,
		From:      from,
		To:        to,
		Trigger:   trigger,
		At:        m.now(),
	}
	for _, o := range m.observers {
		o(t)
	}
}
