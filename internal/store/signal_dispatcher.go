// Package store provides the SignalDispatcher for delivering queued signals.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// Dispatcher defaults.
const (
	DefaultPollInterval   = 5 * time.Second
	DefaultStaleThreshold = 5 * time.Minute
	DefaultClaimLimit     = 10
	DefaultMaxAttempts    = 5
)

// SignalDispatchFunc delivers one signal. A returned error schedules a retry.
type SignalDispatchFunc func(ctx context.Context, sig models.Signal) error

// SignalDispatcher periodically claims due signals and hands them to a dispatch function.
type SignalDispatcher struct {
	repo           SignalRepo
	dispatch       SignalDispatchFunc
	pollInterval   time.Duration
	staleThreshold time.Duration
	claimLimit     int
	maxAttempts    int
	now            func() time.Time
}

// NewSignalDispatcher creates a new SignalDispatcher.
func NewSignalDispatcher(repo SignalRepo, dispatch SignalDispatchFunc, pollInterval time.Duration) *SignalDispatcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &SignalDispatcher{
		repo:           repo,
		dispatch:       dispatch,
		pollInterval:   pollInterval,
		staleThreshold: DefaultStaleThreshold,
		claimLimit:     DefaultClaimLimit,
		maxAttempts:    DefaultMaxAttempts,
		now:            time.Now,
	}
}

// RecoverStaleSignals requeues signals stuck in dispatching (crash recovery).
// Should be called once at startup.
func (d *SignalDispatcher) RecoverStaleSignals(ctx context.Context) error {
	staleBefore := d.now().Add(-d.staleThreshold)
	n, err := d.repo.RequeueStaleSignals(ctx, staleBefore)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("SignalDispatcher.RecoverStaleSignals: requeued stale signals", "count", n)
	}
	return nil
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (d *SignalDispatcher) Run(ctx context.Context) error {
	slog.Info("SignalDispatcher.Run: starting signal dispatcher", "pollInterval", d.pollInterval)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SignalDispatcher.Run: stopping")
			return nil
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *SignalDispatcher) poll(ctx context.Context) {
	now := d.now()
	sigs, err := d.repo.ClaimDueSignals(ctx, now, d.claimLimit)
	if err != nil {
		slog.Error("SignalDispatcher.poll: claim failed", "error", err)
		return
	}

	for _, sig := range sigs {
		slog.Debug("SignalDispatcher.poll: dispatching signal", "id", sig.ID, "sessionID", sig.SessionID, "kind", sig.Kind)
		err := d.dispatch(ctx, sig)
		if err == nil {
			if err := d.repo.MarkSignalDone(ctx, sig.ID); err != nil {
				slog.Error("SignalDispatcher.poll: mark done error", "id", sig.ID, "error", err)
			}
			continue
		}

		slog.Error("SignalDispatcher.poll: dispatch failed", "id", sig.ID, "attempts", sig.Attempts+1, "error", err)
		if sig.Attempts+1 >= d.maxAttempts {
			if err := d.repo.FailSignal(ctx, sig.ID, err.Error()); err != nil {
				slog.Error("SignalDispatcher.poll: fail signal error", "id", sig.ID, "error", err)
			}
			continue
		}
		// Exponential backoff: 10s, 20s, 40s, ...
		backoff := time.Duration(10*(1<<sig.Attempts)) * time.Second
		if err := d.repo.RetrySignal(ctx, sig.ID, err.Error(), now.Add(backoff)); err != nil {
			slog.Error("SignalDispatcher.poll: retry signal error", "id", sig.ID, "error", err)
		}
	}
}

// signalFile is the on-disk form written by FileDispatchFunc.
type signalFile struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Kind      models.SignalKind `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
}

// FileDispatchFunc returns a dispatch function that writes each signal as a
// JSON file under dir. Writes go through a temporary file and a rename so a
// reader never observes a partial file.
func FileDispatchFunc(dir string) SignalDispatchFunc {
	return func(_ context.Context, sig models.Signal) error {
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return fmt.Errorf("failed to create signal directory: %w", err)
		}
		out := signalFile{ID: sig.ID, SessionID: sig.SessionID, Kind: sig.Kind, CreatedAt: sig.CreatedAt}
		if sig.PayloadJSON != "" && json.Valid([]byte(sig.PayloadJSON)) {
			out.Payload = json.RawMessage(sig.PayloadJSON)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal signal %s: %w", sig.ID, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.json", sig.SessionID, sig.Kind, sig.ID))
		tmp := name + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("failed to write signal %s: %w", sig.ID, err)
		}
		if err := os.Rename(tmp, name); err != nil {
			return fmt.Errorf("failed to finalize signal %s: %w", sig.ID, err)
		}
		slog.Info("FileDispatchFunc: signal written", "id", sig.ID, "kind", sig.Kind, "path", name)
		return nil
	}
}
