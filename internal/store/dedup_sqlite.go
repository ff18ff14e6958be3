package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func (s *SQLiteStore) RecordInbound(ctx context.Context, sessionID, messageID string) (bool, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO inbound_messages (session_id, message_id, received_at) VALUES (?, ?, ?)`,
		sessionID, messageID, now,
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, sessionID, messageID string, reply models.Reply) error {
	replyJSON, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`UPDATE inbound_messages SET processed_at = ?, reply_json = ? WHERE session_id = ? AND message_id = ?`,
		now, string(replyJSON), sessionID, messageID,
	)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ProcessedReply(ctx context.Context, sessionID, messageID string) (*models.Reply, error) {
	var replyJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT reply_json FROM inbound_messages WHERE session_id = ? AND message_id = ? AND processed_at IS NOT NULL`,
		sessionID, messageID,
	).Scan(&replyJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get processed reply failed: %w", err)
	}
	return decodeReply(replyJSON)
}

func decodeReply(replyJSON sql.NullString) (*models.Reply, error) {
	if !replyJSON.Valid || replyJSON.String == "" {
		return nil, nil
	}
	var reply models.Reply
	if err := json.Unmarshal([]byte(replyJSON.String), &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return &reply, nil
}
