// Package store provides storage backends for ParcelPipe.
//
// It persists session snapshots, the signal outbox and inbound message
// de-duplication records. An in-memory store is used when no DSN is given;
// SQLite and PostgreSQL are supported for durable deployments.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Error variables for store lookups
var (
	ErrSignalNotFound = errors.New("signal not found")
)

// Opts holds configuration for store backends.
type Opts struct {
	DSN    string
	Driver string // "sqlite3" or "postgres"; empty selects the in-memory store
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN selects the SQLite backend with a database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "sqlite3"
	}
}

// WithPostgresDSN selects the PostgreSQL backend with a connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Driver = "postgres"
	}
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// SessionSummary is a lightweight listing entry for a stored session.
type SessionSummary struct {
	ID           string                   `json:"id"`
	State        models.ConversationState `json:"state"`
	PackageCount int                      `json:"package_count"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// SessionRepo persists session snapshots.
type SessionRepo interface {
	// SaveSession inserts or replaces the snapshot for snap.ID.
	SaveSession(ctx context.Context, snap models.Session) error

	// GetSession returns the snapshot, or (nil, nil) when it does not exist.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// DeleteSession removes the snapshot. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns summaries ordered by most recent update first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	SessionRepo
	SignalRepo
	DedupRepo
	Close() error
}

// NewStore opens the backend selected by opts. Without a DSN an in-memory
// store is returned.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Debug("NewStore: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	case cfg.Driver == "postgres":
		return NewPostgresStore(opts...)
	default:
		return NewSQLiteStore(opts...)
	}
}
