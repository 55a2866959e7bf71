package protocol

import "time"

// ControlCommand drives the recording state machine remotely.
type ControlCommand struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// ControlReply answers a ControlCommand sent as a request.
type ControlReply struct {
	RequestID string `json:"request_id,omitempty"`
	Effect    string `json:"effect"`
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// SessionTransition is broadcast on every recording state change.
type SessionTransition struct {
	SessionID string    `json:"session_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// ModelLifecycle mirrors model manager events on the bus.
type ModelLifecycle struct {
	Kind      string    `json:"kind"`
	ModelID   string    `json:"model_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dictation is the final result of a recording session.
type Dictation struct {
	SessionID     string    `json:"session_id"`
	HistoryText   string    `json:"history_text"`
	DeliveredText string    `json:"delivered_text"`
	Profiles      []string  `json:"profiles,omitempty"`
	PromptID      string    `json:"prompt_id,omitempty"`
	ModelID       string    `json:"model_id,omitempty"`
	Segments      int       `json:"segments"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Backpressure reports an item dropped from a full pipeline queue.
type Backpressure struct {
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	Dropped   uint64    `json:"dropped"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectControl        = "dictate.control"
	SubjectSessionState   = "dictate.session.state"
	SubjectModelLifecycle = "dictate.model.lifecycle"
	SubjectOutput         = "dictate.output"
	SubjectBackpressure   = "dictate.backpressure"
)
