package session

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

func TestNew(t *testing.T) {
	s := New("abc")
	if s.ID() != "abc" {
		t.Errorf("Expected ID abc, got %q", s.ID())
	}
	if s.CurrentState() != models.StateWelcome {
		t.Errorf("Expected welcome state, got %q", s.CurrentState())
	}
	if s.CurrentRecord() != nil {
		t.Error("Expected no in-progress record")
	}
	if s.LastRecord() != nil {
		t.Error("Expected no committed record")
	}
	if s.LastReply() != nil {
		t.Error("Expected no last reply")
	}
}

func TestSession_RecordLifecycle(t *testing.T) {
	s := New("abc")

	first := s.StartRecord()
	if first.ID == "" {
		t.Fatal("Expected record to get an ID")
	}
	s.SetRetries(models.FieldWeight, 2)
	s.UpdateRecord(func(p *models.Package) {
		p.Type = models.PackageBox
		p.Weight = &models.Weight{Value: 5, Unit: models.UnitKG}
	})

	cur := s.CurrentRecord()
	if cur.Type != models.PackageBox {
		t.Errorf("Expected box, got %q", cur.Type)
	}
	// Mutating the copy must not leak into the session.
	cur.Weight.Value = 99
	if got := s.CurrentRecord().Weight.Value; got != 5 {
		t.Errorf("Expected weight 5 after mutating copy, got %v", got)
	}

	committed, ok := s.CompleteRecord()
	if !ok {
		t.Fatal("Expected CompleteRecord to succeed")
	}
	if committed.ID != first.ID {
		t.Errorf("Expected committed ID %q, got %q", first.ID, committed.ID)
	}
	if s.CurrentRecord() != nil {
		t.Error("Expected no in-progress record after commit")
	}
	if s.Retries(models.FieldWeight) != 0 {
		t.Errorf("Expected retries cleared on commit, got %d", s.Retries(models.FieldWeight))
	}
	if n := len(s.CommittedRecords()); n != 1 {
		t.Fatalf("Expected 1 committed record, got %d", n)
	}
	snap := s.Snapshot()
	if snap.Metadata.TotalPackages != 1 || snap.Metadata.CompletedPackages != 1 {
		t.Errorf("Expected counters 1/1, got %d/%d", snap.Metadata.TotalPackages, snap.Metadata.CompletedPackages)
	}

	if _, ok := s.CompleteRecord(); ok {
		t.Error("Expected CompleteRecord without a record to fail")
	}
}

func TestSession_UpdateRecordStartsRecord(t *testing.T) {
	s := New("abc")
	s.UpdateRecord(func(p *models.Package) { p.Priority = models.PriorityExpress })
	cur := s.CurrentRecord()
	if cur == nil {
		t.Fatal("Expected UpdateRecord to start a record")
	}
	if cur.Priority != models.PriorityExpress {
		t.Errorf("Expected express, got %q", cur.Priority)
	}
}

func TestSession_DiscardRecord(t *testing.T) {
	s := New("abc")
	s.StartRecord()
	s.SetEditing(true)
	s.SetRetries(models.FieldDestination, 1)
	s.DiscardRecord()
	if s.CurrentRecord() != nil {
		t.Error("Expected record discarded")
	}
	if s.Editing() {
		t.Error("Expected editing cleared")
	}
	if s.Retries(models.FieldDestination) != 0 {
		t.Error("Expected retries cleared")
	}
}

func TestSession_DeleteRecord(t *testing.T) {
	s := New("abc")
	for _, pt := range []models.PackageType{models.PackageBox, models.PackageEnvelope, models.PackageTube} {
		s.StartRecord()
		s.UpdateRecord(func(p *models.Package) { p.Type = pt })
		s.CompleteRecord()
	}

	tests := []struct {
		name  string
		index int
		ok    bool
	}{
		{"negative", -1, false},
		{"out of range", 3, false},
		{"middle", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.DeleteRecord(tt.index); got != tt.ok {
				t.Errorf("Expected %v, got %v", tt.ok, got)
			}
		})
	}

	var types []models.PackageType
	for _, p := range s.CommittedRecords() {
		types = append(types, p.Type)
	}
	want := []models.PackageType{models.PackageBox, models.PackageTube}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("committed records mismatch (-want +got):\n%s", diff)
	}
	if got := s.LastRecord().Type; got != models.PackageTube {
		t.Errorf("Expected last record tube, got %q", got)
	}
}

func TestSession_Templates(t *testing.T) {
	s := New("abc")
	p := models.Package{ID: "rec-1", Type: models.PackageCrate, Fragile: models.BoolPtr(true)}
	s.SaveTemplate("Office", p)

	got, ok := s.Template("office")
	if !ok {
		t.Fatal("Expected template lookup to be case-insensitive")
	}
	if got.ID != "" {
		t.Errorf("Expected template ID stripped, got %q", got.ID)
	}
	if got.Type != models.PackageCrate || !got.IsFragile() {
		t.Errorf("Unexpected template contents: %+v", got)
	}

	*p.Fragile = false
	again, _ := s.Template("OFFICE")
	if !again.IsFragile() {
		t.Error("Expected template to be independent of the saved value")
	}

	s.SaveTemplate("archive", p)
	if diff := cmp.Diff([]string{"archive", "office"}, s.TemplateNames()); diff != "" {
		t.Errorf("template names mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Template("missing"); ok {
		t.Error("Expected missing template lookup to fail")
	}
}

func TestSession_AddCommonAddress(t *testing.T) {
	s := New("abc")
	a := models.Address{Street: "1 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Country: "USA"}
	s.AddCommonAddress(a)
	dup := a
	dup.Street = "1 MAIN ST"
	dup.City = "Elsewhere"
	s.AddCommonAddress(dup)

	if n := len(s.Snapshot().Prefs.CommonAddresses); n != 1 {
		t.Fatalf("Expected 1 address after duplicate, got %d", n)
	}

	for i := 0; i < maxCommonAddresses+2; i++ {
		b := a
		b.PostalCode = string(rune('A' + i))
		s.AddCommonAddress(b)
	}
	if n := len(s.Snapshot().Prefs.CommonAddresses); n != maxCommonAddresses {
		t.Errorf("Expected %d addresses, got %d", maxCommonAddresses, n)
	}
}

func TestSession_Clear(t *testing.T) {
	s := New("abc")
	s.StartRecord()
	s.CompleteRecord()
	s.SaveTemplate("default", models.Package{Type: models.PackageBox})
	s.SetState(models.StateAskingContinue)
	s.SetDefaultSender(models.Sender{Name: "Ann"})
	s.AddHistoryEntry(models.RoleUser, "hi", models.IntentNone)

	s.Clear()

	snap := s.Snapshot()
	if snap.ID != "abc" {
		t.Errorf("Expected ID kept, got %q", snap.ID)
	}
	if snap.State != models.StateWelcome {
		t.Errorf("Expected welcome, got %q", snap.State)
	}
	if len(snap.Packages) != 0 || len(snap.History) != 0 || len(snap.Templates) != 0 {
		t.Errorf("Expected empty session, got %+v", snap)
	}
	if snap.Prefs.DefaultSender != nil {
		t.Error("Expected default sender cleared")
	}
}

func TestSession_SnapshotRoundTrip(t *testing.T) {
	s := New("abc")
	s.StartRecord()
	s.UpdateRecord(func(p *models.Package) {
		p.Destination = &models.Address{Street: "1 Main St", City: "Springfield"}
	})
	s.SetLastReply(models.Reply{Message: "hello", Suggestions: []string{"Yes"}})
	s.AddHistoryEntry(models.RoleBot, "hello", models.IntentNone)

	snap := s.Snapshot()
	snap.Current.Destination.City = "Changed"
	snap.LastReply.Suggestions[0] = "No"
	if s.CurrentRecord().Destination.City != "Springfield" {
		t.Error("Expected snapshot to be a deep copy of the record")
	}
	if s.LastReply().Suggestions[0] != "Yes" {
		t.Error("Expected snapshot to be a deep copy of the reply")
	}

	restored := FromSnapshot(s.Snapshot())
	if diff := cmp.Diff(s.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("restored session mismatch (-want +got):\n%s", diff)
	}
}

func TestFromSnapshot_FillsDefaults(t *testing.T) {
	s := FromSnapshot(models.Session{ID: "x"})
	if s.CurrentState() != models.StateWelcome {
		t.Errorf("Expected welcome, got %q", s.CurrentState())
	}
	// Must not panic on nil maps.
	s.SetRetries(models.FieldWeight, 1)
	s.SaveTemplate("t", models.Package{})
	s.AddHistoryEntry(models.RoleUser, "hi", models.IntentNone)
	if s.CommittedRecords() == nil {
		t.Error("Expected non-nil committed records")
	}
}

func TestSession_HistoryTimestamps(t *testing.T) {
	s := New("abc")
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	s.AddHistoryEntry(models.RoleUser, "box", models.IntentNone)
	snap := s.Snapshot()
	if len(snap.History) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(snap.History))
	}
	if !snap.History[0].Timestamp.Equal(fixed) {
		t.Errorf("Expected timestamp %v, got %v", fixed, snap.History[0].Timestamp)
	}
	if !snap.Metadata.LastActivity.Equal(fixed) {
		t.Errorf("Expected last activity %v, got %v", fixed, snap.Metadata.LastActivity)
	}
}
