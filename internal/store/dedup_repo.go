// Package store provides the DedupRepo interface for inbound message deduplication.
package store

import (
	"context"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// DedupRecord represents an inbound message deduplication record. Records are
// scoped to a session, so two sessions may use the same message ID.
type DedupRecord struct {
	SessionID   string        `json:"session_id"`
	MessageID   string        `json:"message_id"`
	ReceivedAt  time.Time     `json:"received_at"`
	ProcessedAt *time.Time    `json:"processed_at"`
	Reply       *models.Reply `json:"reply,omitempty"`
}

// DedupRepo defines the interface for inbound message deduplication.
type DedupRepo interface {
	// RecordInbound inserts a new inbound message record. Returns false if the
	// message was already recorded for this session (duplicate).
	RecordInbound(ctx context.Context, sessionID, messageID string) (bool, error)

	// MarkProcessed sets the processed_at timestamp and stores the reply
	// produced for the message.
	MarkProcessed(ctx context.Context, sessionID, messageID string, reply models.Reply) error

	// ProcessedReply returns the stored reply for a processed message, or nil
	// if the message is unknown or was never processed.
	ProcessedReply(ctx context.Context, sessionID, messageID string) (*models.Reply, error)
}
