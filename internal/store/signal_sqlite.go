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

// Times are written in UTC so SQLite's text comparison orders them correctly.

func (s *SQLiteStore) EnqueueSignal(ctx context.Context, sessionID string, kind models.SignalKind, payloadJSON, dedupeKey string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	if dedupeKey != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM signals WHERE dedupe_key = ? AND status NOT IN ('done', 'failed')`,
			dedupeKey,
		).Scan(&existingID)
		if err == nil {
			slog.Debug("SQLiteStore.EnqueueSignal: dedupe hit", "dedupeKey", dedupeKey, "existingID", existingID)
			return existingID, nil
		}
		if err != sql.ErrNoRows {
			return "", fmt.Errorf("signal dedupe check failed: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, session_id, kind, payload_json, status, attempts, dedupe_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'queued', 0, ?, ?, ?)`,
		id, sessionID, string(kind), payloadJSON, nilIfEmpty(dedupeKey), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("enqueue signal failed: %w", err)
	}
	slog.Debug("SQLiteStore.EnqueueSignal", "id", id, "sessionID", sessionID, "kind", kind)
	return id, nil
}

func (s *SQLiteStore) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	sig, err := scanSignal(s.db.QueryRowContext(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrSignalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signal failed: %w", err)
	}
	return &sig, nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, sessionID string) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list signals failed: %w", err)
	}
	return scanSignals(rows)
}

func (s *SQLiteStore) ClaimDueSignals(ctx context.Context, now time.Time, limit int) ([]models.Signal, error) {
	now = now.UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim due signals failed: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals
		 WHERE status = 'queued' AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		 ORDER BY created_at ASC LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due signals failed: %w", err)
	}
	sigs, err := scanSignals(rows)
	if err != nil {
		return nil, err
	}

	for i := range sigs {
		_, err := tx.ExecContext(ctx,
			`UPDATE signals SET status = 'dispatching', locked_at = ?, updated_at = ? WHERE id = ?`,
			now, now, sigs[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("mark signal dispatching failed: %w", err)
		}
		locked := now
		sigs[i].Status = models.SignalStatusDispatching
		sigs[i].LockedAt = &locked
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim due signals commit failed: %w", err)
	}
	return sigs, nil
}

func (s *SQLiteStore) MarkSignalDone(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'done', locked_at = NULL, updated_at = ? WHERE id = ?`,
		now, id,
	)
	if err != nil {
		return fmt.Errorf("mark signal done failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RetrySignal(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'queued', attempts = attempts + 1, last_error = ?, next_attempt_at = ?, locked_at = NULL, updated_at = ? WHERE id = ?`,
		errMsg, nextAttemptAt.UTC(), now, id,
	)
	if err != nil {
		return fmt.Errorf("retry signal failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FailSignal(ctx context.Context, id string, errMsg string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'failed', attempts = attempts + 1, last_error = ?, locked_at = NULL, updated_at = ? WHERE id = ?`,
		errMsg, now, id,
	)
	if err != nil {
		return fmt.Errorf("fail signal failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RequeueStaleSignals(ctx context.Context, staleBefore time.Time) (int, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE signals SET status = 'queued', locked_at = NULL, updated_at = ? WHERE status = 'dispatching' AND locked_at < ?`,
		now, staleBefore.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale signals failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		slog.Info("SQLiteStore.RequeueStaleSignals", "requeued", n)
	}
	return int(n), nil
}
