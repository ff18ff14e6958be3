package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func TestSignalDispatcher_DispatchesAndMarksDone(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	id, err := s.EnqueueSignal(ctx, "sess-1", models.SignalExport, `{"n":1}`, "")
	if err != nil {
		t.Fatalf("EnqueueSignal failed: %v", err)
	}

	var got []models.Signal
	d := NewSignalDispatcher(s, func(_ context.Context, sig models.Signal) error {
		got = append(got, sig)
		return nil
	}, time.Second)
	d.poll(ctx)

	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("Expected signal %s dispatched once, got %+v", id, got)
	}
	sig, err := s.GetSignal(ctx, id)
	if err != nil {
		t.Fatalf("GetSignal failed: %v", err)
	}
	if sig.Status != models.SignalStatusDone {
		t.Errorf("Expected status done, got %q", sig.Status)
	}

	d.poll(ctx)
	if len(got) != 1 {
		t.Errorf("Expected done signal not to be dispatched again, got %d calls", len(got))
	}
}

func TestSignalDispatcher_BackoffThenFail(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	id, err := s.EnqueueSignal(ctx, "sess-1", models.SignalFinish, `{}`, "")
	if err != nil {
		t.Fatalf("EnqueueSignal failed: %v", err)
	}

	calls := 0
	d := NewSignalDispatcher(s, func(context.Context, models.Signal) error {
		calls++
		return errors.New("collaborator unavailable")
	}, time.Second)
	d.maxAttempts = 3
	now := time.Now()
	d.now = func() time.Time { return now }

	d.poll(ctx)
	sig, _ := s.GetSignal(ctx, id)
	if sig.Status != models.SignalStatusQueued {
		t.Fatalf("Expected status queued after first failure, got %q", sig.Status)
	}
	if sig.NextAttemptAt == nil || !sig.NextAttemptAt.Equal(now.Add(10*time.Second)) {
		t.Errorf("Expected next attempt in 10s, got %v", sig.NextAttemptAt)
	}

	// Not due yet.
	d.poll(ctx)
	if calls != 1 {
		t.Errorf("Expected 1 call before backoff elapsed, got %d", calls)
	}

	now = now.Add(11 * time.Second)
	d.poll(ctx)
	sig, _ = s.GetSignal(ctx, id)
	if !sig.NextAttemptAt.Equal(now.Add(20 * time.Second)) {
		t.Errorf("Expected next attempt in 20s, got %v", sig.NextAttemptAt)
	}

	now = now.Add(21 * time.Second)
	d.poll(ctx)
	sig, _ = s.GetSignal(ctx, id)
	if sig.Status != models.SignalStatusFailed {
		t.Errorf("Expected status failed after max attempts, got %q", sig.Status)
	}
	if sig.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", sig.Attempts)
	}
	if sig.LastError != "collaborator unavailable" {
		t.Errorf("Expected last error recorded, got %q", sig.LastError)
	}
	if calls != 3 {
		t.Errorf("Expected 3 dispatch calls, got %d", calls)
	}
}

func TestSignalDispatcher_RecoverStaleSignals(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	id, _ := s.EnqueueSignal(ctx, "sess-1", models.SignalPause, `{}`, "")
	if _, err := s.ClaimDueSignals(ctx, time.Now().Add(-time.Hour), 10); err != nil {
		t.Fatalf("ClaimDueSignals failed: %v", err)
	}

	d := NewSignalDispatcher(s, func(context.Context, models.Signal) error { return nil }, 0)
	if d.pollInterval != DefaultPollInterval {
		t.Errorf("Expected default poll interval, got %v", d.pollInterval)
	}
	if err := d.RecoverStaleSignals(ctx); err != nil {
		t.Fatalf("RecoverStaleSignals failed: %v", err)
	}
	sig, _ := s.GetSignal(ctx, id)
	if sig.Status != models.SignalStatusQueued {
		t.Errorf("Expected stale signal requeued, got %q", sig.Status)
	}
}

func TestSignalDispatcher_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	s := NewInMemoryStore()
	d := NewSignalDispatcher(s, func(context.Context, models.Signal) error { return nil }, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error from Run, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestFileDispatchFunc(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "signals")
	sig := models.Signal{
		ID:          "sig-1",
		SessionID:   "sess-1",
		Kind:        models.SignalExport,
		PayloadJSON: `{"packages":[{"id":"p1"}]}`,
		CreatedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := FileDispatchFunc(dir)(context.Background(), sig); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sess-1-export-sig-1.json"))
	if err != nil {
		t.Fatalf("Expected signal file, got %v", err)
	}
	var out struct {
		ID      string          `json:"id"`
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid signal file: %v", err)
	}
	if out.ID != "sig-1" || out.Kind != "export" {
		t.Errorf("Expected id sig-1 kind export, got %q %q", out.ID, out.Kind)
	}
	var payload struct {
		Packages []struct {
			ID string `json:"id"`
		} `json:"packages"`
	}
	if err := json.Unmarshal(out.Payload, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Packages) != 1 || payload.Packages[0].ID != "p1" {
		t.Errorf("Expected payload preserved, got %s", out.Payload)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess-1-export-sig-1.json.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file removed")
	}
}
