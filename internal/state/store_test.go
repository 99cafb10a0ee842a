package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mathmaster/mathmaster-go/internal/model"
	"github.com/mathmaster/mathmaster-go/internal/testutil"
)

type recordingListener struct {
	profileCalls    int
	progressCalls   int
	activityCalls   int
	badgeCalls      int
	awards          []model.BadgeAward
	lastProfile     *model.Profile
	lastProgress    map[string]model.ProgressRecord
	lastActivities  []model.ActivityEntry
	lastBadgeAwards []model.BadgeAward
}

func (l *recordingListener) ProfileChanged(profile *model.Profile) {
	l.profileCalls++
	l.lastProfile = profile
}

func (l *recordingListener) ProgressChanged(progress map[string]model.ProgressRecord) {
	l.progressCalls++
	l.lastProgress = progress
}

func (l *recordingListener) ActivitiesChanged(activities []model.ActivityEntry) {
	l.activityCalls++
	l.lastActivities = activities
}

func (l *recordingListener) BadgesChanged(badges []model.BadgeAward) {
	l.badgeCalls++
	l.lastBadgeAwards = badges
}

func (l *recordingListener) BadgeAwarded(award model.BadgeAward) {
	l.awards = append(l.awards, award)
}

type StoreSuite struct {
	suite.Suite
	store    *Store
	listener *recordingListener
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New(testutil.NopLogger())
	s.listener = &recordingListener{}
	s.store.AddListener(s.listener)
}

func (s *StoreSuite) progressRecord(themeID string, pct int) model.ProgressRecord {
	return model.ProgressRecord{
		UserID:             "user-1",
		ThemeID:            themeID,
		ProgressPercentage: pct,
		UpdatedAt:          time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *StoreSuite) activity(id string) model.ActivityEntry {
	return model.ActivityEntry{
		ID:     id,
		UserID: "user-1",
		Type:   model.ActivityExercise,
		Title:  "Exercice",
	}
}

// ReplaceAll tests

func (s *StoreSuite) TestReplaceAllPopulatesEverySlice() {
	profile := &model.Profile{ID: "user-1", Username: "lea"}
	themes := []model.Theme{{ID: "equations", Title: "Équations"}}
	progress := []model.ProgressRecord{s.progressRecord("equations", 40)}
	activities := []model.ActivityEntry{s.activity("a1")}
	badges := []model.BadgeAward{{ID: "aw1", UserID: "user-1", BadgeID: "debutant"}}

	s.store.ReplaceAll(profile, themes, progress, activities, badges)

	s.Equal("lea", s.store.Profile().Username)
	s.Len(s.store.Themes(), 1)
	s.Equal(40, s.store.Progress()["equations"].ProgressPercentage)
	s.Len(s.store.Activities(), 1)
	s.Len(s.store.Badges(), 1)
	s.Equal(1, s.listener.profileCalls)
	s.Equal(1, s.listener.progressCalls)
	s.Equal(1, s.listener.activityCalls)
	s.Equal(1, s.listener.badgeCalls)
}

func (s *StoreSuite) TestReplaceAllTruncatesActivitiesToLimit() {
	activities := make([]model.ActivityEntry, 0, MaxActivities+5)
	for i := 0; i < MaxActivities+5; i++ {
		activities = append(activities, s.activity(fmt.Sprintf("a%d", i)))
	}

	s.store.ReplaceAll(nil, nil, nil, activities, nil)

	got := s.store.Activities()
	s.Len(got, MaxActivities)
	s.Equal("a0", got[0].ID)
}

func (s *StoreSuite) TestReplaceAllLastProgressRecordPerThemeWins() {
	progress := []model.ProgressRecord{
		s.progressRecord("equations", 20),
		s.progressRecord("equations", 60),
	}

	s.store.ReplaceAll(nil, nil, progress, nil, nil)

	s.Equal(60, s.store.Progress()["equations"].ProgressPercentage)
}

// Event application tests

func (s *StoreSuite) TestApplyProgressEventUpsertsByTheme() {
	s.store.ApplyProgressEvent(s.progressRecord("equations", 25))
	s.store.ApplyProgressEvent(s.progressRecord("equations", 75))

	progress := s.store.Progress()
	s.Len(progress, 1)
	s.Equal(75, progress["equations"].ProgressPercentage)
	s.Equal(2, s.listener.progressCalls)
}

func (s *StoreSuite) TestApplyProgressEventLastWriteWinsRegardlessOfTimestamp() {
	newer := s.progressRecord("equations", 90)
	newer.UpdatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	older := s.progressRecord("equations", 10)
	older.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.store.ApplyProgressEvent(newer)
	s.store.ApplyProgressEvent(older)

	s.Equal(10, s.store.Progress()["equations"].ProgressPercentage)
}

func (s *StoreSuite) TestApplyProgressEventAcceptsUnknownTheme() {
	s.store.ReplaceAll(nil, []model.Theme{{ID: "equations"}}, nil, nil, nil)

	s.store.ApplyProgressEvent(s.progressRecord("not-a-theme", 50))

	s.Equal(50, s.store.Progress()["not-a-theme"].ProgressPercentage)
}

func (s *StoreSuite) TestApplyActivityEventPrependsNewest() {
	s.store.ApplyActivityEvent(s.activity("first"))
	s.store.ApplyActivityEvent(s.activity("second"))

	got := s.store.Activities()
	s.Equal("second", got[0].ID)
	s.Equal("first", got[1].ID)
}

func (s *StoreSuite) TestApplyActivityEventTruncatesAtLimit() {
	for i := 0; i < MaxActivities+1; i++ {
		s.store.ApplyActivityEvent(s.activity(fmt.Sprintf("a%d", i)))
	}

	got := s.store.Activities()
	s.Len(got, MaxActivities)
	s.Equal(fmt.Sprintf("a%d", MaxActivities), got[0].ID)
	s.Equal("a1", got[MaxActivities-1].ID)
}

func (s *StoreSuite) TestApplyBadgeEventPrependsAndNotifies() {
	s.store.ApplyBadgeEvent(model.BadgeAward{ID: "aw1", BadgeID: "debutant"})
	s.store.ApplyBadgeEvent(model.BadgeAward{ID: "aw2", BadgeID: "rapide"})

	got := s.store.Badges()
	s.Equal("aw2", got[0].ID)
	s.Len(s.listener.awards, 2)
	s.Equal("rapide", s.listener.awards[1].BadgeID)
}

// Clear tests

func (s *StoreSuite) TestClearDropsEverything() {
	s.store.ReplaceAll(
		&model.Profile{ID: "user-1"},
		[]model.Theme{{ID: "equations"}},
		[]model.ProgressRecord{s.progressRecord("equations", 40)},
		[]model.ActivityEntry{s.activity("a1")},
		[]model.BadgeAward{{ID: "aw1"}},
	)

	s.store.Clear()

	s.Nil(s.store.Profile())
	s.Empty(s.store.Themes())
	s.Empty(s.store.Progress())
	s.Empty(s.store.Activities())
	s.Empty(s.store.Badges())
	s.Nil(s.listener.lastProfile)
}

// Snapshot isolation

func (s *StoreSuite) TestGettersReturnCopies() {
	s.store.ReplaceAll(&model.Profile{ID: "user-1", Username: "lea"}, nil, nil, nil, nil)

	profile := s.store.Profile()
	profile.Username = "mutated"
	progress := s.store.Progress()
	progress["equations"] = s.progressRecord("equations", 99)

	s.Equal("lea", s.store.Profile().Username)
	s.Empty(s.store.Progress())
}

// Summary tests

func (s *StoreSuite) TestSummarizeAveragesOverThemesWithRecords() {
	s.store.ReplaceAll(nil,
		[]model.Theme{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}, {ID: "t4"}},
		[]model.ProgressRecord{
			s.progressRecord("t1", 80),
			s.progressRecord("t2", 40),
		},
		nil, nil)

	summary := s.store.Summarize()

	s.Equal(60, summary.OverallProgress)
	s.Equal(2, summary.ThemesStarted)
	s.Equal(1, summary.ThemesMastered)
}

func (s *StoreSuite) TestSummarizeEmptyStoreIsZero() {
	summary := s.store.Summarize()

	s.Equal(0, summary.OverallProgress)
	s.Equal(0, summary.ThemesStarted)
	s.Equal(0, summary.BadgeCount)
}

func (s *StoreSuite) TestSummarizeCountsExercisesAndBadges() {
	rec := s.progressRecord("t1", 100)
	rec.ExercisesCompleted = 7
	s.store.ReplaceAll(nil, nil, []model.ProgressRecord{rec}, nil,
		[]model.BadgeAward{{ID: "aw1"}, {ID: "aw2"}})

	summary := s.store.Summarize()

	s.Equal(7, summary.ExercisesDone)
	s.Equal(2, summary.BadgeCount)
	s.Equal(1, summary.ThemesMastered)
}
