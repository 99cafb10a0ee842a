// Package state holds the process-wide snapshot of the signed-in user's data
// that the presentation layer renders from. It is the only mutable shared
// resource; all access goes through its methods.
package state

import (
	"log/slog"
	"sync"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

// MaxActivities is how many recent activity entries the store retains.
const MaxActivities = 10

// Listener receives notifications when a slice of the store changes. Each
// callback carries a copy of the updated slice; listeners must not assume any
// particular goroutine.
type Listener interface {
	ProfileChanged(profile *model.Profile)
	ProgressChanged(progress map[string]model.ProgressRecord)
	ActivitiesChanged(activities []model.ActivityEntry)
	BadgesChanged(badges []model.BadgeAward)
	// BadgeAwarded fires once per incoming badge event, for transient
	// feedback on top of the BadgesChanged notification.
	BadgeAwarded(award model.BadgeAward)
}

// Store is the local snapshot for one session context.
type Store struct {
	logger *slog.Logger

	mu         sync.RWMutex
	profile    *model.Profile
	themes     []model.Theme
	progress   map[string]model.ProgressRecord // keyed by theme id
	activities []model.ActivityEntry           // newest first
	badges     []model.BadgeAward              // newest first
	listeners  []Listener
}

// New creates an empty store
func New(logger *slog.Logger) *Store {
	return &Store{
		logger:   logger.With(slog.String("component", "state")),
		progress: make(map[string]model.ProgressRecord),
	}
}

// AddListener registers a listener for slice-change notifications.
func (s *Store) AddListener(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// ReplaceAll atomically replaces every slice with freshly loaded data. The
// progress list collapses into the theme-keyed mapping; later entries for the
// same theme overwrite earlier ones.
func (s *Store) ReplaceAll(profile *model.Profile, themes []model.Theme, progress []model.ProgressRecord, activities []model.ActivityEntry, badges []model.BadgeAward) {
	s.mu.Lock()
	s.profile = copyProfile(profile)
	s.themes = append([]model.Theme(nil), themes...)
	s.progress = make(map[string]model.ProgressRecord, len(progress))
	for _, rec := range progress {
		s.progress[rec.ThemeID] = rec
	}
	s.activities = truncateActivities(append([]model.ActivityEntry(nil), activities...))
	s.badges = append([]model.BadgeAward(nil), badges...)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.ProfileChanged(s.Profile())
		l.ProgressChanged(s.Progress())
		l.ActivitiesChanged(s.Activities())
		l.BadgesChanged(s.Badges())
	}
}

// SetProfile replaces the profile slice only.
func (s *Store) SetProfile(profile *model.Profile) {
	s.mu.Lock()
	s.profile = copyProfile(profile)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.ProfileChanged(s.Profile())
	}
}

// ApplyProgressEvent upserts one progress record by theme id. Unconditional
// overwrite: the last delivered event wins, with no timestamp comparison.
// Unknown theme ids are stored as-is; rendering may ignore them.
func (s *Store) ApplyProgressEvent(record model.ProgressRecord) {
	s.mu.Lock()
	s.progress[record.ThemeID] = record
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.ProgressChanged(s.Progress())
	}
}

// ApplyActivityEvent prepends one activity entry and truncates to the most
// recent MaxActivities.
func (s *Store) ApplyActivityEvent(entry model.ActivityEntry) {
	s.mu.Lock()
	s.activities = truncateActivities(append([]model.ActivityEntry{entry}, s.activities...))
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.ActivitiesChanged(s.Activities())
	}
}

// ApplyBadgeEvent prepends one badge award. No dedup happens here; the
// gateway's uniqueness constraint is the only guard against double awards.
func (s *Store) ApplyBadgeEvent(award model.BadgeAward) {
	s.mu.Lock()
	s.badges = append([]model.BadgeAward{award}, s.badges...)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.BadgesChanged(s.Badges())
		l.BadgeAwarded(award)
	}
}

// Clear drops every entity. Must run before a different identity's state is
// loaded so nothing leaks across sessions.
func (s *Store) Clear() {
	s.mu.Lock()
	s.profile = nil
	s.themes = nil
	s.progress = make(map[string]model.ProgressRecord)
	s.activities = nil
	s.badges = nil
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l.ProfileChanged(nil)
		l.ProgressChanged(map[string]model.ProgressRecord{})
		l.ActivitiesChanged(nil)
		l.BadgesChanged(nil)
	}
}

// Profile returns a copy of the current profile, or nil when signed out.
func (s *Store) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProfile(s.profile)
}

// Themes returns the theme catalogue in display order.
func (s *Store) Themes() []model.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Theme(nil), s.themes...)
}

// Progress returns a copy of the theme-keyed progress mapping.
func (s *Store) Progress() map[string]model.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progress := make(map[string]model.ProgressRecord, len(s.progress))
	for k, v := range s.progress {
		progress[k] = v
	}
	return progress
}

// Activities returns the recent activity entries, newest first.
func (s *Store) Activities() []model.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ActivityEntry(nil), s.activities...)
}

// Badges returns the earned badge awards, newest first.
func (s *Store) Badges() []model.BadgeAward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.BadgeAward(nil), s.badges...)
}

func (s *Store) listenersLocked() []Listener {
	return append([]Listener(nil), s.listeners...)
}

func copyProfile(p *model.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

func truncateActivities(entries []model.ActivityEntry) []model.ActivityEntry {
	if len(entries) > MaxActivities {
		return entries[:MaxActivities]
	}
	return entries
}
