package models

import "time"

// SignalStatus is the lifecycle state of a queued signal.
type SignalStatus string

// Signal statuses. Done and failed are terminal.
const (
	SignalStatusQueued      SignalStatus = "queued"
	SignalStatusDispatching SignalStatus = "dispatching"
	SignalStatusDone        SignalStatus = "done"
	SignalStatusFailed      SignalStatus = "failed"
)

// IsTerminal reports whether the signal will not be dispatched again.
func (s SignalStatus) IsTerminal() bool {
	return s == SignalStatusDone || s == SignalStatusFailed
}

// Signal is a durable request handed to an external collaborator, such as an
// export of the committed packages.
type Signal struct {
	ID            string       `json:"id"`
	SessionID     string       `json:"session_id"`
	Kind          SignalKind   `json:"kind"`
	PayloadJSON   string       `json:"payload_json"`
	Status        SignalStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt *time.Time   `json:"next_attempt_at,omitempty"`
	DedupeKey     string       `json:"dedupe_key,omitempty"`
	LockedAt      *time.Time   `json:"locked_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
