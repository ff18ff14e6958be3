package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// signalColumns is the column list every signal query selects, in scan order.
const signalColumns = `id, session_id, kind, payload_json, status, attempts, next_attempt_at, dedupe_key, locked_at, last_error, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanSignal scans a Signal selected with signalColumns.
func scanSignal(row rowScanner) (models.Signal, error) {
	var sig models.Signal
	var payloadJSON, dedupeKey, lastError sql.NullString
	var nextAttemptAt, lockedAt sql.NullTime
	err := row.Scan(
		&sig.ID, &sig.SessionID, &sig.Kind, &payloadJSON, &sig.Status, &sig.Attempts,
		&nextAttemptAt, &dedupeKey, &lockedAt, &lastError, &sig.CreatedAt, &sig.UpdatedAt,
	)
	if err != nil {
		return sig, err
	}
	sig.PayloadJSON = payloadJSON.String
	sig.DedupeKey = dedupeKey.String
	sig.LastError = lastError.String
	if nextAttemptAt.Valid {
		sig.NextAttemptAt = &nextAttemptAt.Time
	}
	if lockedAt.Valid {
		sig.LockedAt = &lockedAt.Time
	}
	return sig, nil
}

func scanSignals(rows *sql.Rows) ([]models.Signal, error) {
	defer rows.Close()
	var out []models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal failed: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("signal rows iteration failed: %w", err)
	}
	return out, nil
}

func encodeSnapshot(snap models.Session) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session %s: %w", snap.ID, err)
	}
	return string(data), nil
}

func decodeSnapshot(data string) (*models.Session, error) {
	var snap models.Session
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSessionData, err)
	}
	return &snap, nil
}
