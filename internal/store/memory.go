package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// InMemoryStore keeps everything in process memory. Snapshots are stored in
// encoded form so callers never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	signals  []models.Signal
	inbound  map[inboundKey]DedupRecord
}

type inboundKey struct {
	sessionID string
	messageID string
}

type memorySession struct {
	summary SessionSummary
	data    string
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: map[string]memorySession{},
		inbound:  map[inboundKey]DedupRecord{},
	}
}

func (s *InMemoryStore) SaveSession(_ context.Context, snap models.Session) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snap.ID] = memorySession{
		summary: SessionSummary{ID: snap.ID, State: snap.State, PackageCount: len(snap.Packages), UpdatedAt: time.Now()},
		data:    data,
	}
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	ms, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeSnapshot(ms.data)
}

func (s *InMemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) ListSessions(_ context.Context) ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionSummary, 0, len(s.sessions))
	for _, ms := range s.sessions {
		out = append(out, ms.summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemoryStore) EnqueueSignal(_ context.Context, sessionID string, kind models.SignalKind, payloadJSON, dedupeKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for _, sig := range s.signals {
			if sig.DedupeKey == dedupeKey && !sig.Status.IsTerminal() {
				slog.Debug("InMemoryStore.EnqueueSignal: dedupe hit", "dedupeKey", dedupeKey, "existingID", sig.ID)
				return sig.ID, nil
			}
		}
	}
	now := time.Now()
	sig := models.Signal{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Kind:        kind,
		PayloadJSON: payloadJSON,
		Status:      models.SignalStatusQueued,
		DedupeKey:   dedupeKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.signals = append(s.signals, sig)
	slog.Debug("InMemoryStore.EnqueueSignal", "id", sig.ID, "sessionID", sessionID, "kind", kind)
	return sig.ID, nil
}

func (s *InMemoryStore) GetSignal(_ context.Context, id string) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sig := range s.signals {
		if sig.ID == id {
			return &sig, nil
		}
	}
	return nil, ErrSignalNotFound
}

func (s *InMemoryStore) ListSignals(_ context.Context, sessionID string) ([]models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Signal
	for _, sig := range s.signals {
		if sig.SessionID == sessionID {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ClaimDueSignals(_ context.Context, now time.Time, limit int) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Signal
	for i := range s.signals {
		if len(out) >= limit {
			break
		}
		sig := &s.signals[i]
		if sig.Status != models.SignalStatusQueued {
			continue
		}
		if sig.NextAttemptAt != nil && sig.NextAttemptAt.After(now) {
			continue
		}
		locked := now
		sig.Status = models.SignalStatusDispatching
		sig.LockedAt = &locked
		sig.UpdatedAt = now
		out = append(out, *sig)
	}
	return out, nil
}

// update applies fn to the signal with the given ID.
func (s *InMemoryStore) update(id string, fn func(sig *models.Signal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.signals {
		if s.signals[i].ID == id {
			fn(&s.signals[i])
			s.signals[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrSignalNotFound
}

func (s *InMemoryStore) MarkSignalDone(_ context.Context, id string) error {
	return s.update(id, func(sig *models.Signal) {
		sig.Status = models.SignalStatusDone
		sig.LockedAt = nil
	})
}

func (s *InMemoryStore) RetrySignal(_ context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	return s.update(id, func(sig *models.Signal) {
		sig.Status = models.SignalStatusQueued
		sig.Attempts++
		sig.LastError = errMsg
		sig.NextAttemptAt = &nextAttemptAt
		sig.LockedAt = nil
	})
}

func (s *InMemoryStore) FailSignal(_ context.Context, id string, errMsg string) error {
	return s.update(id, func(sig *models.Signal) {
		sig.Status = models.SignalStatusFailed
		sig.Attempts++
		sig.LastError = errMsg
		sig.LockedAt = nil
	})
}

func (s *InMemoryStore) RequeueStaleSignals(_ context.Context, staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.signals {
		sig := &s.signals[i]
		if sig.Status == models.SignalStatusDispatching && sig.LockedAt != nil && sig.LockedAt.Before(staleBefore) {
			sig.Status = models.SignalStatusQueued
			sig.LockedAt = nil
			sig.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) RecordInbound(_ context.Context, sessionID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := inboundKey{sessionID: sessionID, messageID: messageID}
	if _, ok := s.inbound[key]; ok {
		return false, nil
	}
	s.inbound[key] = DedupRecord{SessionID: sessionID, MessageID: messageID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, sessionID, messageID string, reply models.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := inboundKey{sessionID: sessionID, messageID: messageID}
	rec, ok := s.inbound[key]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.ProcessedAt = &now
	rec.Reply = &reply
	s.inbound[key] = rec
	return nil
}

func (s *InMemoryStore) ProcessedReply(_ context.Context, sessionID, messageID string) (*models.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.inbound[inboundKey{sessionID: sessionID, messageID: messageID}]
	if !ok || rec.ProcessedAt == nil || rec.Reply == nil {
		return nil, nil
	}
	reply := *rec.Reply
	return &reply, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
