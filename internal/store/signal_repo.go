// Package store provides the SignalRepo interface for restart-safe signal delivery.
package store

import (
	"context"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// SignalRepo defines the interface for the durable signal outbox.
type SignalRepo interface {
	// EnqueueSignal inserts a new queued signal. If dedupeKey is non-empty and
	// a non-terminal signal with that key exists, returns the existing ID.
	EnqueueSignal(ctx context.Context, sessionID string, kind models.SignalKind, payloadJSON, dedupeKey string) (string, error)

	// GetSignal returns a signal by ID, or ErrSignalNotFound.
	GetSignal(ctx context.Context, id string) (*models.Signal, error)

	// ListSignals returns a session's signals, oldest first.
	ListSignals(ctx context.Context, sessionID string) ([]models.Signal, error)

	// ClaimDueSignals marks up to limit queued signals whose next_attempt_at
	// <= now (or is NULL) as dispatching and returns them.
	ClaimDueSignals(ctx context.Context, now time.Time, limit int) ([]models.Signal, error)

	// MarkSignalDone marks a signal as successfully dispatched.
	MarkSignalDone(ctx context.Context, id string) error

	// RetrySignal records a dispatch failure and schedules another attempt.
	RetrySignal(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error

	// FailSignal records a final dispatch failure. The signal is not retried.
	FailSignal(ctx context.Context, id string, errMsg string) error

	// RequeueStaleSignals resets signals stuck in dispatching since before
	// staleBefore back to queued (crash recovery).
	RequeueStaleSignals(ctx context.Context, staleBefore time.Time) (int, error)
}
