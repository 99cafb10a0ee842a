package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/mocks"
	"github.com/mathmaster/mathmaster-go/internal/gateway/memory"
	"github.com/mathmaster/mathmaster-go/internal/model"
	syncsvc "github.com/mathmaster/mathmaster-go/internal/services/sync"
	"github.com/mathmaster/mathmaster-go/internal/state"
	"github.com/mathmaster/mathmaster-go/internal/testutil"
)

type fakeUI struct {
	showCalls int
	hideCalls int
}

func (u *fakeUI) ShowSignIn() { u.showCalls++ }
func (u *fakeUI) HideSignIn() { u.hideCalls++ }

type ControllerSuite struct {
	suite.Suite
	gw         *memory.Gateway
	clock      *mocks.MockClock
	client     *syncsvc.Client
	store      *state.Store
	ui         *fakeUI
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.gw = memory.New(s.clock, logger)
	s.client = syncsvc.New(s.gw, logger)
	s.store = state.New(logger)
	s.ui = &fakeUI{}
	s.controller = NewController(s.client, s.store, s.ui, logger)
	s.ctx = context.Background()

	err := s.gw.Seed(s.ctx,
		[]model.Theme{{ID: "equations", Title: "Équations", OrderIndex: 1}},
		[]model.Badge{{ID: "debutant", Name: "Débutant"}},
		nil,
	)
	s.Require().NoError(err)
}

func (s *ControllerSuite) TearDownTest() {
	s.controller.Close()
}

func (s *ControllerSuite) start() {
	s.Require().NoError(s.controller.Start(s.ctx))
}

// Startup tests

func (s *ControllerSuite) TestStartSignedOutShowsSignIn() {
	s.start()

	s.Equal(1, s.ui.showCalls)
	s.Equal(0, s.ui.hideCalls)
	s.Nil(s.store.Profile())
}

func (s *ControllerSuite) TestStartWithExistingSessionLoadsState() {
	_, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	s.start()

	s.Equal(0, s.ui.showCalls)
	s.Equal(1, s.ui.hideCalls)
	s.Require().NotNil(s.store.Profile())
	s.Equal("lea", s.store.Profile().Username)
	s.Len(s.store.Themes(), 1)
}

// Sign-in lifecycle tests

func (s *ControllerSuite) TestSignUpAfterStartEstablishesSession() {
	s.start()

	session, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	s.Require().NotNil(s.store.Profile())
	s.Equal(session.Identity.ID, s.store.Profile().ID)
	s.Equal(3, s.gw.SubscriptionCount())
	s.Equal(1, s.ui.hideCalls)
}

func (s *ControllerSuite) TestSignUpKeepsExplicitProfileDefaults() {
	s.start()

	session, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{
		Username: "léa",
		FullName: "Léa Martin",
		Class:    "3ème B",
		Level:    "3ème",
	})
	s.Require().NoError(err)

	// The controller creates the profile from inside the sign-in callback;
	// the caller's defaults must survive that, both in the store and in the
	// gateway row.
	profile := s.store.Profile()
	s.Require().NotNil(profile)
	s.Equal("léa", profile.Username)
	s.Equal("Léa Martin", profile.FullName)
	s.Equal("3ème B", profile.Class)
	s.Equal("3ème", profile.Level)

	stored, err := s.client.GetProfile(s.ctx, session.Identity.ID)
	s.Require().NoError(err)
	s.Equal("léa", stored.Username)
	s.Equal("Léa Martin", stored.FullName)
}

func (s *ControllerSuite) TestSignInCreatesMissingProfileFromEmail() {
	// An account whose profile insert never happened.
	_, err := s.gw.Register(s.ctx, "tom@example.com", "secret99")
	s.Require().NoError(err)
	s.start()

	_, err = s.client.SignIn(s.ctx, "tom@example.com", "secret99")
	s.Require().NoError(err)

	s.Require().NotNil(s.store.Profile())
	s.Equal("tom", s.store.Profile().Username)
}

func (s *ControllerSuite) TestRepeatedSignInKeepsSingleSubscriptionSet() {
	s.start()
	_, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	_, err = s.client.SignIn(s.ctx, "lea@example.com", "secret99")
	s.Require().NoError(err)
	_, err = s.client.SignIn(s.ctx, "lea@example.com", "secret99")
	s.Require().NoError(err)

	s.Equal(3, s.gw.SubscriptionCount())
}

func (s *ControllerSuite) TestFeedEventsReachTheStore() {
	s.start()
	session, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	err = s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: session.Identity.ID, ThemeID: "equations", ProgressPercentage: 55,
	})
	s.Require().NoError(err)

	s.Equal(55, s.store.Progress()["equations"].ProgressPercentage)
}

func (s *ControllerSuite) TestBadgeEventArrivesJoined() {
	s.start()
	session, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	_, err = s.client.AwardBadge(s.ctx, session.Identity.ID, "debutant")
	s.Require().NoError(err)

	badges := s.store.Badges()
	s.Require().Len(badges, 1)
	s.Require().NotNil(badges[0].Badge)
	s.Equal("Débutant", badges[0].Badge.Name)
}

// Sign-out tests

func (s *ControllerSuite) TestSignOutClearsStateAndSubscriptions() {
	s.start()
	_, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	s.Require().NoError(s.client.SignOut(s.ctx))

	s.Nil(s.store.Profile())
	s.Empty(s.store.Progress())
	s.Equal(0, s.gw.SubscriptionCount())
	s.Equal(1, s.ui.showCalls)
}

func (s *ControllerSuite) TestIdentitySwitchWithoutSignOutClearsPreviousState() {
	s.start()
	lea, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)
	err = s.client.UpsertProgress(s.ctx, &model.ProgressRecord{
		UserID: lea.Identity.ID, ThemeID: "equations", ProgressPercentage: 80,
	})
	s.Require().NoError(err)

	tom, err := s.client.SignUp(s.ctx, "tom@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	s.Equal(tom.Identity.ID, s.store.Profile().ID)
	s.Empty(s.store.Progress())
	s.Equal(3, s.gw.SubscriptionCount())
}

func (s *ControllerSuite) TestCloseReleasesSubscriptions() {
	s.start()
	_, err := s.client.SignUp(s.ctx, "lea@example.com", "secret99", model.ProfileDefaults{})
	s.Require().NoError(err)

	s.controller.Close()

	s.Equal(0, s.gw.SubscriptionCount())
}
