// Package models defines the persisted session snapshot.
package models

import "time"

// Role identifies the author of a history entry.
type Role string

// History roles.
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// HistoryEntry is one utterance in the conversation log.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	Intent    Intent    `json:"intent,omitempty"`
}

// Preferences are learned from committed records during a session.
type Preferences struct {
	DefaultSender   *Sender   `json:"default_sender,omitempty"`
	CommonAddresses []Address `json:"common_addresses,omitempty"`
	DefaultCurrency string    `json:"default_currency,omitempty"`
}

// SessionMetadata holds bookkeeping counters for a session.
type SessionMetadata struct {
	StartTime         time.Time `json:"start_time"`
	LastActivity      time.Time `json:"last_activity"`
	TotalPackages     int       `json:"total_packages"`
	CompletedPackages int       `json:"completed_packages"`
}

// Session is the full, serializable memory of one conversation.
type Session struct {
	ID        string             `json:"id"`
	State     ConversationState  `json:"state"`
	Current   *Package           `json:"current_package,omitempty"`
	Packages  []Package          `json:"packages"`
	History   []HistoryEntry     `json:"history"`
	Retries   map[Field]int      `json:"retries,omitempty"`
	Editing   bool               `json:"editing,omitempty"`
	Templates map[string]Package `json:"templates,omitempty"`
	Prefs     Preferences        `json:"preferences"`
	Metadata  SessionMetadata    `json:"metadata"`
	LastReply *Reply             `json:"last_reply,omitempty"`
}

// NewSession returns an empty session in the welcome state.
func NewSession(id string, now time.Time) Session {
	return Session{
		ID:        id,
		State:     StateWelcome,
		Packages:  []Package{},
		History:   []HistoryEntry{},
		Retries:   map[Field]int{},
		Templates: map[string]Package{},
		Prefs:     Preferences{DefaultCurrency: "USD"},
		Metadata:  SessionMetadata{StartTime: now, LastActivity: now},
	}
}
