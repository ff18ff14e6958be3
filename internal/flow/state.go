// Package flow defines the session and signal contracts used by the dialogue
// engine.
package flow

import (
	"context"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Session is the engine's only mutable memory. Implementations need not be
// safe for concurrent use; callers serialize turns per session.
type Session interface {
	// ID returns the session identifier
	ID() string

	// CurrentState returns the active conversation state
	CurrentState() models.ConversationState

	// SetState changes the active conversation state
	SetState(state models.ConversationState)

	// CurrentRecord returns a copy of the in-progress record, or nil
	CurrentRecord() *models.Package

	// StartRecord replaces any in-progress record with a new empty one
	StartRecord() *models.Package

	// UpdateRecord applies fn to the in-progress record, starting one if needed
	UpdateRecord(fn func(p *models.Package))

	// CompleteRecord moves the in-progress record to the committed list
	CompleteRecord() (models.Package, bool)

	// DiscardRecord drops the in-progress record without committing it
	DiscardRecord()

	// CommittedRecords returns copies of the committed records in order
	CommittedRecords() []models.Package

	// LastRecord returns a copy of the most recently committed record, or nil
	LastRecord() *models.Package

	// DeleteRecord removes the committed record at index (0-based)
	DeleteRecord(index int) bool

	// Retries returns the consecutive failure count for a field
	Retries(field models.Field) int

	// SetRetries stores the consecutive failure count for a field
	SetRetries(field models.Field, n int)

	// ResetRetries zeroes the failure count for a field
	ResetRetries(field models.Field)

	// Editing reports whether the current field is being edited from the summary
	Editing() bool

	// SetEditing toggles edit mode
	SetEditing(editing bool)

	// Template returns a copy of the named template
	Template(name string) (*models.Package, bool)

	// TemplateNames lists saved template names in sorted order
	TemplateNames() []string

	// SaveTemplate stores a copy of p under name
	SaveTemplate(name string, p models.Package)

	// AddCommonAddress remembers a destination for later reuse
	AddCommonAddress(addr models.Address)

	// SetDefaultSender remembers the most recent sender
	SetDefaultSender(sender models.Sender)

	// AddHistoryEntry appends an utterance to the conversation log
	AddHistoryEntry(role models.Role, message string, intent models.Intent)

	// Clear resets the session to an empty welcome state, keeping its ID
	Clear()
}

// Signaler hands export/finish/pause requests to an external collaborator.
type Signaler interface {
	// EnqueueSignal queues a signal. A non-empty dedupeKey returns the ID of
	// an existing pending signal with the same key instead of queueing again.
	EnqueueSignal(ctx context.Context, sessionID string, kind models.SignalKind, payloadJSON, dedupeKey string) (string, error)
}
