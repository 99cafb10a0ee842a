package rest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/mocks"
	"github.com/mathmaster/mathmaster-go/internal/devgateway"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	"github.com/mathmaster/mathmaster-go/internal/model"
	"github.com/mathmaster/mathmaster-go/internal/testutil"
)

type GatewaySuite struct {
	suite.Suite
	backend *memory.Gateway
	server  *httptest.Server
	clock   *mocks.MockClock
	gw      *Gateway
	ctx     context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.backend = memory.New(s.clock, logger)
	s.server = httptest.NewServer(devgateway.NewRouter(s.backend, logger))

	cfg := DefaultConfig()
	cfg.BaseURL = s.server.URL
	s.gw = New(cfg, logger)
	s.ctx = context.Background()

	err := s.backend.Seed(s.ctx,
		[]model.Theme{
			{ID: "equations", Title: "Équations", OrderIndex: 3},
			{ID: "pythagore", Title: "Pythagore", OrderIndex: 7},
		},
		[]model.Badge{{ID: "debutant", Name: "Débutant"}},
		[]model.Exercise{{ID: "eq-1", ThemeID: "equations", OrderIndex: 1}},
	)
	s.Require().NoError(err)
}

func (s *GatewaySuite) TearDownTest() {
	s.server.Close()
}

func (s *GatewaySuite) signUp(email string) *gateway.Session {
	sess, err := s.gw.SignUp(s.ctx, email, "secret99")
	s.Require().NoError(err)
	return sess
}

// Auth tests

func (s *GatewaySuite) TestSignUpRoundTrip() {
	sess := s.signUp("lea@example.com")

	s.NotEmpty(sess.AccessToken)
	s.Equal("lea@example.com", sess.Identity.Email)

	current, err := s.gw.GetSession(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(current)
	s.Equal(sess.Identity.ID, current.Identity.ID)
}

func (s *GatewaySuite) TestErrorsMapBackToSentinels() {
	_, err := s.gw.SignUp(s.ctx, "lea@example.com", "abc")
	s.ErrorIs(err, model.ErrWeakPassword)

	s.signUp("lea@example.com")
	_, err = s.gw.SignUp(s.ctx, "lea@example.com", "secret99")
	s.ErrorIs(err, model.ErrEmailTaken)

	_, err = s.gw.SignIn(s.ctx, "lea@example.com", "wrong")
	s.ErrorIs(err, model.ErrInvalidCredentials)
}

func (s *GatewaySuite) TestGetSessionWithoutSignIn() {
	sess, err := s.gw.GetSession(s.ctx)
	s.Require().NoError(err)
	s.Nil(sess)
}

func (s *GatewaySuite) TestGetSessionUnreachableServerFails() {
	s.signUp("lea@example.com")
	s.server.Close()

	_, err := s.gw.GetSession(s.ctx)
	s.Error(err)
}

func (s *GatewaySuite) TestSignOutInvalidatesToken() {
	s.signUp("lea@example.com")

	s.Require().NoError(s.gw.SignOut(s.ctx))

	sess, err := s.gw.GetSession(s.ctx)
	s.Require().NoError(err)
	s.Nil(sess)

	// Store calls without a token are rejected.
	_, err = s.gw.ListThemes(s.ctx)
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *GatewaySuite) TestSetTokenResumesSession() {
	sess := s.signUp("lea@example.com")
	logger := testutil.NopLogger()

	cfg := DefaultConfig()
	cfg.BaseURL = s.server.URL
	fresh := New(cfg, logger)

	resumed, err := fresh.SetToken(s.ctx, sess.AccessToken)
	s.Require().NoError(err)
	s.Equal(sess.Identity.ID, resumed.Identity.ID)

	_, err = fresh.SetToken(s.ctx, "tok_bogus")
	s.ErrorIs(err, model.ErrNotAuthenticated)
}

func (s *GatewaySuite) TestAuthCallbacksFire() {
	var events []gateway.AuthEvent
	remove := s.gw.OnAuthStateChange(func(event gateway.AuthEvent, _ *gateway.Session) {
		events = append(events, event)
	})
	defer remove()

	s.signUp("lea@example.com")
	s.Require().NoError(s.gw.SignOut(s.ctx))

	s.Equal([]gateway.AuthEvent{gateway.AuthSignedIn, gateway.AuthSignedOut}, events)
}

// Store tests

func (s *GatewaySuite) TestProfileLifecycle() {
	sess := s.signUp("lea@example.com")

	profile := &model.Profile{ID: sess.Identity.ID, Username: "lea", Level: "3ème"}
	s.Require().NoError(s.gw.InsertProfile(s.ctx, profile))
	s.Equal(s.clock.Now(), profile.CreatedAt)

	err := s.gw.InsertProfile(s.ctx, &model.Profile{ID: sess.Identity.ID})
	s.ErrorIs(err, model.ErrProfileExists)

	class := "3ème B"
	s.Require().NoError(s.gw.UpdateProfile(s.ctx, sess.Identity.ID, model.ProfilePatch{Class: &class}))

	got, err := s.gw.GetProfile(s.ctx, sess.Identity.ID)
	s.Require().NoError(err)
	s.Equal("lea", got.Username)
	s.Equal("3ème B", got.Class)

	_, err = s.gw.GetProfile(s.ctx, "nope")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *GatewaySuite) TestReferenceDataReads() {
	s.signUp("lea@example.com")

	themes, err := s.gw.ListThemes(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(themes, 2)
	s.Equal("equations", themes[0].ID)

	badges, err := s.gw.ListBadges(s.ctx)
	s.Require().NoError(err)
	s.Len(badges, 1)

	exercises, err := s.gw.ListExercises(s.ctx, "equations")
	s.Require().NoError(err)
	s.Len(exercises, 1)
}

func (s *GatewaySuite) TestProgressRoundTripStampsCallerRecord() {
	sess := s.signUp("lea@example.com")

	rec := &model.ProgressRecord{UserID: sess.Identity.ID, ThemeID: "equations", ProgressPercentage: 40}
	s.Require().NoError(s.gw.UpsertProgress(s.ctx, rec))
	s.Equal(s.clock.Now(), rec.UpdatedAt)

	records, err := s.gw.ListProgress(s.ctx, sess.Identity.ID)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(40, records[0].ProgressPercentage)
}

func (s *GatewaySuite) TestActivityRoundTrip() {
	sess := s.signUp("lea@example.com")

	entry := &model.ActivityEntry{UserID: sess.Identity.ID, Type: model.ActivityExercise, Title: "Exercice réussi"}
	s.Require().NoError(s.gw.InsertActivity(s.ctx, entry))
	s.NotEmpty(entry.ID)

	entries, err := s.gw.ListActivities(s.ctx, sess.Identity.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(entry.ID, entries[0].ID)
}

func (s *GatewaySuite) TestBadgeAwardConflict() {
	sess := s.signUp("lea@example.com")

	s.Require().NoError(s.gw.InsertUserBadge(s.ctx, &model.BadgeAward{UserID: sess.Identity.ID, BadgeID: "debutant"}))

	err := s.gw.InsertUserBadge(s.ctx, &model.BadgeAward{UserID: sess.Identity.ID, BadgeID: "debutant"})
	s.ErrorIs(err, model.ErrBadgeAlreadyAwarded)
}

func (s *GatewaySuite) TestResultInserts() {
	sess := s.signUp("lea@example.com")

	exResult := &model.ExerciseResult{UserID: sess.Identity.ID, ExerciseID: "eq-1", Score: 90}
	s.Require().NoError(s.gw.InsertExerciseResult(s.ctx, exResult))
	s.NotEmpty(exResult.ID)

	diag := &model.DiagnosticResult{UserID: sess.Identity.ID, Level: "3ème", Score: 70}
	s.Require().NoError(s.gw.InsertDiagnosticResult(s.ctx, diag))
	s.NotEmpty(diag.ID)
}

// Feed tests

func (s *GatewaySuite) TestFeedStreamsChangeEvents() {
	sess := s.signUp("lea@example.com")

	var mu sync.Mutex
	var seen []gateway.ChangeEvent
	sub, err := s.gw.Subscribe(s.ctx, gateway.TableProgress, sess.Identity.ID,
		[]gateway.ChangeType{gateway.ChangeInsert, gateway.ChangeUpdate},
		func(event gateway.ChangeEvent) {
			mu.Lock()
			seen = append(seen, event)
			mu.Unlock()
		})
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	rec := &model.ProgressRecord{UserID: sess.Identity.ID, ThemeID: "equations", ProgressPercentage: 30}
	s.Require().NoError(s.gw.UpsertProgress(s.ctx, rec))

	s.Require().Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	s.Equal(gateway.TableProgress, seen[0].Table)
	s.Equal(gateway.ChangeInsert, seen[0].Type)

	var decoded model.ProgressRecord
	s.Require().NoError(json.Unmarshal(seen[0].Row, &decoded))
	s.Equal(30, decoded.ProgressPercentage)
}

func (s *GatewaySuite) TestUnsubscribeEndsStream() {
	sess := s.signUp("lea@example.com")

	events := make(chan gateway.ChangeEvent, 8)
	sub, err := s.gw.Subscribe(s.ctx, gateway.TableActivities, sess.Identity.ID,
		[]gateway.ChangeType{gateway.ChangeInsert},
		func(event gateway.ChangeEvent) { events <- event })
	s.Require().NoError(err)

	entry := &model.ActivityEntry{UserID: sess.Identity.ID, Type: model.ActivityCourse, Title: "Cours"}
	s.Require().NoError(s.gw.InsertActivity(s.ctx, entry))

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		s.Fail("expected an event before unsubscribing")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	s.Require().NoError(s.gw.InsertActivity(s.ctx, entry))
	select {
	case <-events:
		s.Fail("received an event after unsubscribing")
	case <-time.After(200 * time.Millisecond):
	}
}
