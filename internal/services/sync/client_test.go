package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/mocks"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	"github.com/mathmaster/mathmaster-go/internal/model"
	"github.com/mathmaster/mathmaster-go/internal/testutil"
)

type ClientSuite struct {
	suite.Suite
	gw     *memory.Gateway
	clock  *mocks.MockClock
	client *Client
	ctx    context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.gw = memory.New(s.clock, logger)
	s.client = New(s.gw, logger)
	s.ctx = context.Background()

	err := s.gw.Seed(s.ctx,
		[]model.Theme{
			{ID: "equations", Title: "Équations", OrderIndex: 3},
			{ID: "calcul-numerique", Title: "Calcul numérique", OrderIndex: 1},
		},
		[]model.Badge{
			{ID: "debutant", Name: "Débutant"},
			{ID: "expert", Name: "Expert"},
		},
		[]model.Exercise{
			{ID: "eq-1", ThemeID: "equations", Title: "Équations simples", OrderIndex: 1},
			{ID: "cn-1", ThemeID: "calcul-numerique", Title: "Priorités opératoires", OrderIndex: 1},
		},
	)
	s.Require().NoError(err)
}

func (s *ClientSuite) signUp(email string) *gateway.Session {
	session, err := s.client.SignUp(s.ctx, email, "secret99", model.ProfileDefaults{Level: "3ème"})
	s.Require().NoError(err)
	return session
}

// Auth tests

func (s *ClientSuite) TestSignUpCreatesProfileWithEmailUsername() {
	session := s.signUp("lea@example.com")

	profile, err := s.client.GetProfile(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Equal("lea", profile.Username)
	s.Equal("3ème", profile.Level)
}

func (s *ClientSuite) TestSignUpExplicitUsernameWins() {
	session, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99",
		model.ProfileDefaults{Username: "mathlover"})
	s.Require().NoError(err)

	profile, err := s.client.GetProfile(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Equal("mathlover", profile.Username)
}

func (s *ClientSuite) TestSignUpExposesDefaultsOnlyWhileInFlight() {
	done := make(chan struct{})
	s.gw.OnAuthStateChange(func(event gateway.AuthEvent, _ *gateway.Session) {
		if event != gateway.AuthSignedIn {
			return
		}
		defaults, ok := s.client.PendingSignUpDefaults("lea@example.com")
		s.True(ok)
		s.Equal("mathlover", defaults.Username)
		close(done)
	})

	_, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99",
		model.ProfileDefaults{Username: "mathlover"})
	s.Require().NoError(err)
	<-done

	_, ok := s.client.PendingSignUpDefaults("lea@example.com")
	s.False(ok)
}

func (s *ClientSuite) TestSignUpWeakPasswordRejected() {
	_, err := s.client.SignUp(s.ctx, "lea@example.com", "abc", model.ProfileDefaults{})
	s.ErrorIs(err, model.ErrWeakPassword)
}

func (s *ClientSuite) TestSignInWrongPassword() {
	s.signUp("lea@example.com")

	_, err := s.client.SignIn(s.ctx, "lea@example.com", "wrong-password")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

// Profile tests

func (s *ClientSuite) TestGetProfileMissing() {
	_, err := s.client.GetProfile(s.ctx, "no-such-user")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *ClientSuite) TestUpdateProfileReturnsUpdatedRow() {
	session := s.signUp("lea@example.com")
	class := "3ème B"

	profile, err := s.client.UpdateProfile(s.ctx, session.Identity.ID, model.ProfilePatch{Class: &class})
	s.Require().NoError(err)
	s.Equal("3ème B", profile.Class)
	s.Equal("lea", profile.Username)
}

// Reference data tests

func (s *ClientSuite) TestGetThemesOrderedByIndex() {
	themes, err := s.client.GetThemes(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(themes, 2)
	s.Equal("calcul-numerique", themes[0].ID)
	s.Equal("equations", themes[1].ID)
}

func (s *ClientSuite) TestGetExercisesFiltersByTheme() {
	exercises, err := s.client.GetExercises(s.ctx, "equations")
	s.Require().NoError(err)
	s.Require().Len(exercises, 1)
	s.Equal("eq-1", exercises[0].ID)
}

// Progress tests

func (s *ClientSuite) TestUpsertProgressValidatesRange() {
	session := s.signUp("lea@example.com")

	err := s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 150,
	})
	s.ErrorIs(err, model.ErrInvalidProgress)

	err = s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: -1,
	})
	s.ErrorIs(err, model.ErrInvalidProgress)
}

func (s *ClientSuite) TestGetUserProgressJoinsTheme() {
	session := s.signUp("lea@example.com")
	err := s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 45,
	})
	s.Require().NoError(err)

	records, err := s.client.GetUserProgress(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Require().NotNil(records[0].Theme)
	s.Equal("Équations", records[0].Theme.Title)
}

func (s *ClientSuite) TestGetUserProgressUnknownThemeKeepsNilJoin() {
	session := s.signUp("lea@example.com")
	err := s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "not-in-catalogue", ProgressPercentage: 45,
	})
	s.Require().NoError(err)

	records, err := s.client.GetUserProgress(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Nil(records[0].Theme)
}

// Activity tests

func (s *ClientSuite) TestAddActivityRejectsUnknownType() {
	err := s.client.AddActivity(s.ctx, &model.ActivityEntry{
		UserID: "user-1", Type: model.ActivityType("void"),
	})
	s.ErrorIs(err, model.ErrInvalidActivityType)
}

func (s *ClientSuite) TestAddActivityDefaultsTitleFromType() {
	session := s.signUp("lea@example.com")
	err := s.client.AddActivity(s.ctx, &model.ActivityEntry{
		UserID: session.Identity.ID, Type: model.ActivityExercise,
	})
	s.Require().NoError(err)

	entries, err := s.client.GetUserActivities(s.ctx, session.Identity.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("Exercice réussi", entries[0].Title)
}

func (s *ClientSuite) TestGetUserActivitiesNewestFirstWithDefaultLimit() {
	session := s.signUp("lea@example.com")
	for i := 0; i < DefaultActivityLimit+3; i++ {
		s.clock.Advance(time.Minute)
		err := s.client.AddActivity(s.ctx, &model.ActivityEntry{
			UserID: session.Identity.ID, Type: model.ActivityCourse, Title: "Cours",
		})
		s.Require().NoError(err)
	}

	entries, err := s.client.GetUserActivities(s.ctx, session.Identity.ID, 0)
	s.Require().NoError(err)
	s.Len(entries, DefaultActivityLimit)
	s.True(entries[0].CreatedAt.After(entries[1].CreatedAt))
}

// Badge tests

func (s *ClientSuite) TestAwardBadgeThenDuplicateConflicts() {
	session := s.signUp("lea@example.com")

	award, err := s.client.AwardBadge(s.ctx, session.Identity.ID, "debutant")
	s.Require().NoError(err)
	s.NotEmpty(award.ID)

	_, err = s.client.AwardBadge(s.ctx, session.Identity.ID, "debutant")
	s.ErrorIs(err, model.ErrBadgeAlreadyAwarded)

	awards, err := s.client.GetUserBadges(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Len(awards, 1)
}

func (s *ClientSuite) TestGetUserBadgesJoinsBadge() {
	session := s.signUp("lea@example.com")
	_, err := s.client.AwardBadge(s.ctx, session.Identity.ID, "expert")
	s.Require().NoError(err)

	awards, err := s.client.GetUserBadges(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Require().Len(awards, 1)
	s.Require().NotNil(awards[0].Badge)
	s.Equal("Expert", awards[0].Badge.Name)
}

// Subscription tests

func (s *ClientSuite) TestSubscribeProgressReceivesInsertsAndUpdates() {
	session := s.signUp("lea@example.com")
	var seen []int
	sub, err := s.client.SubscribeProgress(s.ctx, session.Identity.ID, func(rec model.ProgressRecord) {
		seen = append(seen, rec.ProgressPercentage)
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	s.Require().NoError(s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 20,
	}))
	s.Require().NoError(s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 60,
	}))

	s.Equal([]int{20, 60}, seen)
}

func (s *ClientSuite) TestSubscribeActivitiesFiltersByUser() {
	lea := s.signUp("lea@example.com")
	tom := s.signUp("tom@example.com")

	var seen []string
	sub, err := s.client.SubscribeActivities(s.ctx, lea.Identity.ID, func(entry model.ActivityEntry) {
		seen = append(seen, entry.UserID)
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	s.Require().NoError(s.client.AddActivity(s.ctx, &model.ActivityEntry{
		UserID: tom.Identity.ID, Type: model.ActivityCourse, Title: "Cours",
	}))
	s.Require().NoError(s.client.AddActivity(s.ctx, &model.ActivityEntry{
		UserID: lea.Identity.ID, Type: model.ActivityCourse, Title: "Cours",
	}))

	s.Equal([]string{lea.Identity.ID}, seen)
}

func (s *ClientSuite) TestSubscribeBadgesInsertOnly() {
	session := s.signUp("lea@example.com")

	var seen []string
	sub, err := s.client.SubscribeBadges(s.ctx, session.Identity.ID, func(award model.BadgeAward) {
		seen = append(seen, award.BadgeID)
	})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	_, err = s.client.AwardBadge(s.ctx, session.Identity.ID, "debutant")
	s.Require().NoError(err)

	s.Equal([]string{"debutant"}, seen)
}

func (s *ClientSuite) TestUnsubscribeStopsDelivery() {
	session := s.signUp("lea@example.com")

	calls := 0
	sub, err := s.client.SubscribeProgress(s.ctx, session.Identity.ID, func(model.ProgressRecord) {
		calls++
	})
	s.Require().NoError(err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	s.Require().NoError(s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 20,
	}))

	s.Equal(0, calls)
	s.Equal(0, s.gw.SubscriptionCount())
}
