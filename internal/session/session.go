// Package session holds the per-conversation memory the dialogue engine reads
// and writes, and the Registry that serializes turns, persists snapshots and
// expires idle sessions.
package session

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// maxCommonAddresses bounds the remembered destination list.
const maxCommonAddresses = 10

// Session is the in-memory state of one conversation. It is not safe for
// concurrent use; the Registry serializes access.
type Session struct {
	data models.Session
	now  func() time.Time
}

// New creates an empty session in the welcome state.
func New(id string) *Session {
	now := time.Now()
	return &Session{data: models.NewSession(id, now), now: time.Now}
}

// FromSnapshot restores a session from a persisted snapshot.
func FromSnapshot(snap models.Session) *Session {
	s := &Session{data: copySession(snap), now: time.Now}
	if s.data.State == "" {
		s.data.State = models.StateWelcome
	}
	if s.data.Packages == nil {
		s.data.Packages = []models.Package{}
	}
	if s.data.History == nil {
		s.data.History = []models.HistoryEntry{}
	}
	if s.data.Retries == nil {
		s.data.Retries = map[models.Field]int{}
	}
	if s.data.Templates == nil {
		s.data.Templates = map[string]models.Package{}
	}
	return s
}

// Snapshot returns a deep copy of the session's data.
func (s *Session) Snapshot() models.Session {
	return copySession(s.data)
}

// LastReply returns the reply to the most recent turn, if any.
func (s *Session) LastReply() *models.Reply {
	if s.data.LastReply == nil {
		return nil
	}
	r := *s.data.LastReply
	return &r
}

// SetLastReply records the reply to the most recent turn.
func (s *Session) SetLastReply(r models.Reply) {
	s.data.LastReply = &r
}

func (s *Session) touch() {
	s.data.Metadata.LastActivity = s.now()
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.data.ID }

// CurrentState returns the active conversation state.
func (s *Session) CurrentState() models.ConversationState { return s.data.State }

// SetState changes the active conversation state.
func (s *Session) SetState(state models.ConversationState) {
	s.data.State = state
	s.touch()
}

// CurrentRecord returns a copy of the in-progress record, or nil.
func (s *Session) CurrentRecord() *models.Package {
	return s.data.Current.Clone()
}

// StartRecord replaces any in-progress record with a new empty one and
// clears the retry ledger.
func (s *Session) StartRecord() *models.Package {
	now := s.now()
	s.data.Current = &models.Package{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	s.data.Retries = map[models.Field]int{}
	s.data.Editing = false
	s.touch()
	return s.data.Current.Clone()
}

// UpdateRecord applies fn to the in-progress record, starting one if needed.
func (s *Session) UpdateRecord(fn func(p *models.Package)) {
	if fn == nil {
		return
	}
	if s.data.Current == nil {
		s.StartRecord()
	}
	fn(s.data.Current)
	s.data.Current.UpdatedAt = s.now()
	s.touch()
}

// CompleteRecord commits the in-progress record.
func (s *Session) CompleteRecord() (models.Package, bool) {
	if s.data.Current == nil {
		return models.Package{}, false
	}
	p := *s.data.Current.Clone()
	p.UpdatedAt = s.now()
	s.data.Packages = append(s.data.Packages, p)
	s.data.Metadata.TotalPackages++
	s.data.Metadata.CompletedPackages++
	s.data.Current = nil
	s.data.Retries = map[models.Field]int{}
	s.data.Editing = false
	s.touch()
	return *p.Clone(), true
}

// DiscardRecord drops the in-progress record.
func (s *Session) DiscardRecord() {
	s.data.Current = nil
	s.data.Retries = map[models.Field]int{}
	s.data.Editing = false
	s.touch()
}

// CommittedRecords returns copies of the committed records.
func (s *Session) CommittedRecords() []models.Package {
	out := make([]models.Package, len(s.data.Packages))
	for i := range s.data.Packages {
		out[i] = *s.data.Packages[i].Clone()
	}
	return out
}

// LastRecord returns a copy of the most recently committed record, or nil.
func (s *Session) LastRecord() *models.Package {
	if len(s.data.Packages) == 0 {
		return nil
	}
	return s.data.Packages[len(s.data.Packages)-1].Clone()
}

// DeleteRecord removes the committed record at index.
func (s *Session) DeleteRecord(index int) bool {
	if index < 0 || index >= len(s.data.Packages) {
		return false
	}
	s.data.Packages = append(s.data.Packages[:index], s.data.Packages[index+1:]...)
	s.data.Metadata.TotalPackages--
	s.data.Metadata.CompletedPackages--
	s.touch()
	return true
}

// Retries returns the consecutive failure count for field.
func (s *Session) Retries(field models.Field) int { return s.data.Retries[field] }

// SetRetries stores the consecutive failure count for field.
func (s *Session) SetRetries(field models.Field, n int) { s.data.Retries[field] = n }

// ResetRetries zeroes the failure count for field.
func (s *Session) ResetRetries(field models.Field) { delete(s.data.Retries, field) }

// Editing reports whether a field is being revisited from the summary.
func (s *Session) Editing() bool { return s.data.Editing }

// SetEditing toggles edit mode.
func (s *Session) SetEditing(editing bool) { s.data.Editing = editing }

// Template returns a copy of the named template.
func (s *Session) Template(name string) (*models.Package, bool) {
	t, ok := s.data.Templates[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// TemplateNames lists saved template names.
func (s *Session) TemplateNames() []string {
	names := make([]string, 0, len(s.data.Templates))
	for n := range s.data.Templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SaveTemplate stores a copy of p under name.
func (s *Session) SaveTemplate(name string, p models.Package) {
	t := *p.Clone()
	t.ID = ""
	s.data.Templates[strings.ToLower(name)] = t
	s.touch()
}

// AddCommonAddress remembers addr unless an address with the same street and
// postal code is already known.
func (s *Session) AddCommonAddress(addr models.Address) {
	for _, a := range s.data.Prefs.CommonAddresses {
		if strings.EqualFold(a.Street, addr.Street) && strings.EqualFold(a.PostalCode, addr.PostalCode) {
			return
		}
	}
	s.data.Prefs.CommonAddresses = append(s.data.Prefs.CommonAddresses, addr)
	if n := len(s.data.Prefs.CommonAddresses); n > maxCommonAddresses {
		s.data.Prefs.CommonAddresses = s.data.Prefs.CommonAddresses[n-maxCommonAddresses:]
	}
}

// SetDefaultSender remembers sender for the session.
func (s *Session) SetDefaultSender(sender models.Sender) {
	s.data.Prefs.DefaultSender = (&models.Package{Sender: &sender}).Clone().Sender
}

// AddHistoryEntry appends to the conversation log.
func (s *Session) AddHistoryEntry(role models.Role, message string, intent models.Intent) {
	s.data.History = append(s.data.History, models.HistoryEntry{
		Timestamp: s.now(),
		Role:      role,
		Message:   message,
		Intent:    intent,
	})
	s.touch()
}

// Clear resets the session to an empty welcome state. The ID is kept.
func (s *Session) Clear() {
	currency := s.data.Prefs.DefaultCurrency
	s.data = models.NewSession(s.data.ID, s.now())
	if currency != "" {
		s.data.Prefs.DefaultCurrency = currency
	}
}

func copySession(src models.Session) models.Session {
	dst := src
	dst.Current = src.Current.Clone()
	if src.Packages != nil {
		dst.Packages = make([]models.Package, len(src.Packages))
		for i := range src.Packages {
			dst.Packages[i] = *src.Packages[i].Clone()
		}
	}
	if src.History != nil {
		dst.History = append([]models.HistoryEntry(nil), src.History...)
	}
	if src.Retries != nil {
		dst.Retries = make(map[models.Field]int, len(src.Retries))
		for k, v := range src.Retries {
			dst.Retries[k] = v
		}
	}
	if src.Templates != nil {
		dst.Templates = make(map[string]models.Package, len(src.Templates))
		for k, v := range src.Templates {
			dst.Templates[k] = *v.Clone()
		}
	}
	if src.Prefs.DefaultSender != nil {
		dst.Prefs.DefaultSender = (&models.Package{Sender: src.Prefs.DefaultSender}).Clone().Sender
	}
	if src.Prefs.CommonAddresses != nil {
		dst.Prefs.CommonAddresses = append([]models.Address(nil), src.Prefs.CommonAddresses...)
	}
	if src.LastReply != nil {
		r := *src.LastReply
		r.Suggestions = append([]string(nil), src.LastReply.Suggestions...)
		dst.LastReply = &r
	}
	return dst
}
