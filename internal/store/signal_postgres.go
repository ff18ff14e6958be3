package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func (s *PostgresStore) EnqueueSignal(ctx context.Context, sessionID string, kind models.SignalKind, payloadJSON, dedupeKey string) (string, error) {
	id := uuid.NewString()
	now := time.Now()

	if dedupeKey != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM signals WHERE dedupe_key = $1 AND status NOT IN ('done', 'failed')`,
			dedupeKey,
		).Scan(&existingID)
		if err == nil {
			slog.Debug("PostgresStore.EnqueueSignal: dedupe hit", "dedupeKey", dedupeKey, "existingID", existingID)
			return existingID, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("signal dedupe check failed: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, session_id, kind, payload_json, status, attempts, dedupe_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'queued', 0, $5, $6, $7)`,
		id, sessionID, string(kind), payloadJSON, nilIfEmpty(dedupeKey), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("enqueue signal failed: %w", err)
	}
	slog.Debug("PostgresStore.EnqueueSignal", "id", id, "sessionID", sessionID, "kind", kind)
	return id, nil
}

func (s *PostgresStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	sig, err := scanSignal(s.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signal failed: %w", err)
	}
	return &sig, nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, sessionID string) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list signals failed: %w", err)
	}
	return scanSignals(rows)
}

func (s *PostgresStore) ClaimDueSignals(ctx context.Context, now time.Time, limit int) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE signals SET status = 'dispatching', locked_at = $1, updated_at = $1
		 WHERE id IN (
		   SELECT id FROM signals WHERE status = 'queued' AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		   ORDER BY created_at ASC LIMIT $2
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+signalColumns,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due signals failed: %w", err)
	}
	return scanSignals(rows)
}

func (s *PostgresStore) MarkSignalDone(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'done', locked_at = NULL, updated_at = $1 WHERE id = $2`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("mark signal done failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) RetrySignal(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'queued', attempts = attempts + 1, last_error = $1, next_attempt_at = $2, locked_at = NULL, updated_at = $3 WHERE id = $4`,
		errMsg, nextAttemptAt, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("retry signal failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) FailSignal(ctx context.Context, id string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'failed', attempts = attempts + 1, last_error = $1, locked_at = NULL, updated_at = $2 WHERE id = $3`,
		errMsg, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("fail signal failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) RequeueStaleSignals(ctx context.Context, staleBefore time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'queued', locked_at = NULL, updated_at = $1 WHERE status = 'dispatching' AND locked_at < $2`,
		time.Now(), staleBefore,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale signals failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		slog.Info("PostgresStore.RequeueStaleSignals", "requeued", n)
	}
	return int(n), nil
}
