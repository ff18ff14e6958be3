package session

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Registry defaults.
const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxSessions = 4096
)

// Persister is the storage the Registry writes snapshots and inbound message
// IDs to. GetSession returns (nil, nil) when the session does not exist.
type Persister interface {
	SaveSession(ctx context.Context, snap models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	RecordInbound(ctx context.Context, sessionID, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, sessionID, messageID string, reply models.Reply) error
	ProcessedReply(ctx context.Context, sessionID, messageID string) (*models.Reply, error)
}

// Opts holds configuration for a Registry.
type Opts struct {
	TTL             time.Duration
	MaxSessions     int
	Persister       Persister
	DefaultCurrency string
}

// Option configures a Registry.
type Option func(*Opts)

// WithTTL sets how long an idle session stays in memory.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithMaxSessions bounds the number of sessions held in memory.
func WithMaxSessions(n int) Option {
	return func(o *Opts) { o.MaxSessions = n }
}

// WithPersister sets the backing store. Without one, sessions live only in memory.
func WithPersister(p Persister) Option {
	return func(o *Opts) { o.Persister = p }
}

// WithDefaultCurrency sets the currency new sessions assume for values.
func WithDefaultCurrency(code string) Option {
	return func(o *Opts) { o.DefaultCurrency = code }
}

// Registry owns live sessions. Turns on one session are serialized by a
// per-session lock; the registry lock is only held for bookkeeping.
type Registry struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int
	persister   Persister
	currency    string

	lru *list.List               // front=MRU
	m   map[string]*list.Element // id -> element(Value=*item)

	now func() time.Time
}

type item struct {
	mu       sync.Mutex // serializes turns
	id       string
	s        *Session
	lastUsed time.Time
	refs     int  // guarded by Registry.mu
	deleted  bool // guarded by mu
}

// NewRegistry creates a Registry.
func NewRegistry(opts ...Option) *Registry {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	slog.Debug("NewRegistry: creating session registry", "ttl", cfg.TTL, "maxSessions", cfg.MaxSessions, "persistent", cfg.Persister != nil)
	return &Registry{
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		persister:   cfg.Persister,
		currency:    cfg.DefaultCurrency,
		lru:         list.New(),
		m:           map[string]*list.Element{},
		now:         time.Now,
	}
}

// Create opens a new session, lets init populate it and persists it.
func (r *Registry) Create(ctx context.Context, init func(s *Session)) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	s := New(id)
	if r.currency != "" {
		s.data.Prefs.DefaultCurrency = r.currency
	}
	if init != nil {
		init(s)
	}
	if err := r.save(ctx, s); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.evictExpiredLocked(r.now())
	e := r.lru.PushFront(&item{id: id, s: s, lastUsed: r.now()})
	r.m[id] = e
	r.evictOverLimitLocked()
	r.mu.Unlock()

	slog.Debug("Registry.Create: session created", "sessionID", id)
	return id, nil
}

// WithSession runs fn with exclusive access to the session and persists it
// afterwards, even when fn returns an error.
func (r *Registry) WithSession(ctx context.Context, id string, fn func(s *Session) error) error {
	it, err := r.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer r.release(it)

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.deleted {
		return models.ErrSessionNotFound
	}

	fnErr := fn(it.s)
	if err := r.save(ctx, it.s); err != nil {
		return err
	}
	return fnErr
}

// Turn processes one inbound message. When messageID was already processed for
// this session the reply it produced is returned and fn is not called. A
// message that was recorded but never completed is processed again.
func (r *Registry) Turn(ctx context.Context, id, messageID string, fn func(s *Session) models.Reply) (reply models.Reply, duplicate bool, err error) {
	it, err := r.acquire(ctx, id)
	if err != nil {
		return models.Reply{}, false, err
	}
	defer r.release(it)

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.deleted {
		return models.Reply{}, false, models.ErrSessionNotFound
	}

	if messageID != "" && r.persister != nil {
		fresh, err := r.persister.RecordInbound(ctx, id, messageID)
		if err != nil {
			slog.Error("Registry.Turn: dedup record failed", "sessionID", id, "messageID", messageID, "error", err)
			return models.Reply{}, false, fmt.Errorf("failed to record inbound message: %w", err)
		}
		if !fresh {
			prev, err := r.persister.ProcessedReply(ctx, id, messageID)
			if err != nil {
				slog.Error("Registry.Turn: dedup lookup failed", "sessionID", id, "messageID", messageID, "error", err)
				return models.Reply{}, false, fmt.Errorf("failed to look up inbound message: %w", err)
			}
			if prev != nil {
				slog.Debug("Registry.Turn: duplicate message, replaying stored reply", "sessionID", id, "messageID", messageID)
				return *prev, true, nil
			}
			slog.Warn("Registry.Turn: message recorded but never completed, processing again", "sessionID", id, "messageID", messageID)
		}
	}

	reply = fn(it.s)
	it.s.SetLastReply(reply)
	if err := r.save(ctx, it.s); err != nil {
		return reply, false, err
	}
	if messageID != "" && r.persister != nil {
		if err := r.persister.MarkProcessed(ctx, id, messageID, reply); err != nil {
			slog.Error("Registry.Turn: mark processed failed", "sessionID", id, "messageID", messageID, "error", err)
		}
	}
	return reply, false, nil
}

// Snapshot returns a copy of the session's data.
func (r *Registry) Snapshot(ctx context.Context, id string) (models.Session, error) {
	it, err := r.acquire(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	defer r.release(it)

	it.mu.Lock()
	defer it.mu.Unlock()
	if it.deleted {
		return models.Session{}, models.ErrSessionNotFound
	}
	return it.s.Snapshot(), nil
}

// Delete drops the session from memory and from the backing store. It waits
// for a turn in flight on the session; callers queued behind it get
// ErrSessionNotFound.
func (r *Registry) Delete(ctx context.Context, id string) error {
	it, err := r.acquire(ctx, id)
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		// Nothing loaded; the store delete below is idempotent.
	case err != nil:
		return err
	default:
		defer r.release(it)
		it.mu.Lock()
		defer it.mu.Unlock()
		it.deleted = true

		r.mu.Lock()
		if e := r.m[id]; e != nil && e.Value.(*item) == it {
			r.deleteElemLocked(e)
		}
		r.mu.Unlock()
	}

	if r.persister == nil {
		return nil
	}
	if err := r.persister.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	slog.Debug("Registry.Delete: session deleted", "sessionID", id)
	return nil
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}

// Sweep drops idle sessions past their TTL from memory and returns how many
// were dropped. Persisted snapshots are untouched.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.evictExpiredLocked(now)
	if n > 0 {
		slog.Info("Registry.Sweep: expired idle sessions", "count", n, "remaining", r.lru.Len())
	}
	return n
}

func (r *Registry) acquire(ctx context.Context, id string) (*item, error) {
	if it := r.lookup(id); it != nil {
		return it, nil
	}
	if r.persister == nil {
		return nil, models.ErrSessionNotFound
	}

	snap, err := r.persister.GetSession(ctx, id)
	if err != nil {
		slog.Error("Registry.acquire: load failed", "sessionID", id, "error", err)
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if snap == nil {
		return nil, models.ErrSessionNotFound
	}
	slog.Debug("Registry.acquire: session reloaded from store", "sessionID", id)

	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpiredLocked(now)
	// Another caller may have loaded it while the lock was released.
	if e := r.m[id]; e != nil {
		it := e.Value.(*item)
		it.lastUsed = now
		it.refs++
		r.lru.MoveToFront(e)
		return it, nil
	}
	it := &item{id: id, s: FromSnapshot(*snap), lastUsed: now, refs: 1}
	r.m[id] = r.lru.PushFront(it)
	r.evictOverLimitLocked()
	return it, nil
}

func (r *Registry) lookup(id string) *item {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked(now)
	e := r.m[id]
	if e == nil {
		return nil
	}
	it := e.Value.(*item)
	it.lastUsed = now
	it.refs++
	r.lru.MoveToFront(e)
	return it
}

func (r *Registry) release(it *item) {
	r.mu.Lock()
	it.refs--
	it.lastUsed = r.now()
	r.mu.Unlock()
}

func (r *Registry) save(ctx context.Context, s *Session) error {
	if r.persister == nil {
		return nil
	}
	if err := r.persister.SaveSession(ctx, s.Snapshot()); err != nil {
		slog.Error("Registry.save: persist failed", "sessionID", s.ID(), "error", err)
		return fmt.Errorf("failed to persist session %s: %w", s.ID(), err)
	}
	return nil
}

// Sessions are persisted after every turn, so eviction only drops memory.
// Entries with a turn in flight are never evicted.
func (r *Registry) evictExpiredLocked(now time.Time) int {
	evicted := 0
	for e := r.lru.Back(); e != nil; {
		prev := e.Prev()
		it := e.Value.(*item)
		if now.Sub(it.lastUsed) <= r.ttl {
			break
		}
		if it.refs == 0 {
			slog.Debug("Registry.evict: idle session expired", "sessionID", it.id)
			r.deleteElemLocked(e)
			evicted++
		}
		e = prev
	}
	return evicted
}

func (r *Registry) evictOverLimitLocked() {
	for e := r.lru.Back(); e != nil && r.lru.Len() > r.maxSessions; {
		prev := e.Prev()
		if it := e.Value.(*item); it.refs == 0 {
			slog.Debug("Registry.evict: session limit reached", "sessionID", it.id)
			r.deleteElemLocked(e)
		}
		e = prev
	}
}

func (r *Registry) deleteElemLocked(e *list.Element) {
	if it, _ := e.Value.(*item); it != nil {
		delete(r.m, it.id)
	}
	r.lru.Remove(e)
}
