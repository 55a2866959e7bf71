package model

import "time"

type EventKind string

const (
	EventLoadingStarted EventKind = "loading_started"
	EventLoaded         EventKind = "loaded"
	EventLoadingFailed  EventKind = "loading_failed"
	EventUnloaded       EventKind = "unloaded"
)

// Event is a lifecycle notification.
type Event struct {
	Kind    EventKind `json:"kind"`
	ModelID string    `json:"model_id,omitempty"`
	Err     string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Subscribe returns a channel receiving lifecycle events and a function that
// ends the subscription. Delivery never blocks the manager: when the buffer is
// full the event is dropped for that subscriber and counted. After Close the
// channel is returned already closed.
func (m *Manager) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	m.subMu.Lock()
	if m.subsClosed {
		m.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if existing, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// DroppedEvents reports events lost to full subscriber buffers.
func (m *Manager) DroppedEvents() uint64 {
	return m.dropped.Load()
}

func (m *Manager) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.dropped.Add(1)
		}
	}
}
