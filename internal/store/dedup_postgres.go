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

func (s *PostgresStore) RecordInbound(ctx context.Context, sessionID, messageID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO inbound_messages (session_id, message_id, received_at) VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, message_id) DO NOTHING`,
		sessionID, messageID, time.Now(),
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

func (s *PostgresStore) MarkProcessed(ctx context.Context, sessionID, messageID string, reply models.Reply) error {
	replyJSON, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE inbound_messages SET processed_at = $1, reply_json = $2 WHERE session_id = $3 AND message_id = $4`,
		time.Now(), string(replyJSON), sessionID, messageID,
	)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ProcessedReply(ctx context.Context, sessionID, messageID string) (*models.Reply, error) {
	var replyJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT reply_json FROM inbound_messages WHERE session_id = $1 AND message_id = $2 AND processed_at IS NOT NULL`,
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
