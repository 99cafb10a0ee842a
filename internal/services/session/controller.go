// Package session drives the application lifecycle around authentication: it
// reacts to session transitions, loads the signed-in user's data into the
// local state store, and manages the change-feed subscriptions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
	syncsvc "github.com/mathmaster/mathmaster-go/internal/services/sync"
	"github.com/mathmaster/mathmaster-go/internal/state"
)

// UI is the surface the controller toggles between the signed-out and
// signed-in views.
type UI interface {
	ShowSignIn()
	HideSignIn()
}

// NopUI satisfies UI with no-ops, for headless use.
type NopUI struct{}

func (NopUI) ShowSignIn() {}
func (NopUI) HideSignIn() {}

// Controller owns the session lifecycle for one client instance.
type Controller struct {
	client *syncsvc.Client
	store  *state.Store
	ui     UI
	logger *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	identity   string
	subs       []gateway.Subscription
	removeAuth func()
}

// NewController creates a session controller. Start must be called before the
// controller reacts to anything.
func NewController(client *syncsvc.Client, store *state.Store, ui UI, logger *slog.Logger) *Controller {
	return &Controller{
		client: client,
		store:  store,
		ui:     ui,
		logger: logger.With(slog.String("component", "session")),
	}
}

// Start registers for auth state changes and probes for an existing session.
// A probe error means the gateway is unreachable and is returned as fatal;
// an absent session is the normal signed-out start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	removeAuth := c.client.OnAuthStateChange(c.OnAuthEvent)
	c.mu.Lock()
	c.removeAuth = removeAuth
	c.mu.Unlock()

	session, err := c.client.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("probing session: %w", err)
	}
	if session == nil {
		c.ui.ShowSignIn()
		return nil
	}
	c.signIn(ctx, session)
	return nil
}

// OnAuthEvent handles one session transition. Registered with the gateway by
// Start; exported so tests can drive transitions directly.
func (c *Controller) OnAuthEvent(event gateway.AuthEvent, session *gateway.Session) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	switch event {
	case gateway.AuthSignedIn, gateway.AuthTokenRefreshed:
		if session == nil {
			c.logger.Warn("ignoring sign-in event with no session")
			return
		}
		c.signIn(ctx, session)
	case gateway.AuthSignedOut:
		c.signOut()
	default:
		c.logger.Warn("ignoring unknown auth event", slog.String("event", string(event)))
	}
}

// Close releases the auth registration and any open subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	removeAuth := c.removeAuth
	c.removeAuth = nil
	c.releaseSubsLocked()
	c.mu.Unlock()

	if removeAuth != nil {
		removeAuth()
	}
}

// signIn brings the store to the signed-in state for the session's identity.
// Safe to run again for the same identity: existing subscriptions are
// released before new ones open, so each entity keeps exactly one channel.
func (c *Controller) signIn(ctx context.Context, session *gateway.Session) {
	userID := session.Identity.ID
	logger := c.logger.With(slog.String("user_id", userID))

	c.mu.Lock()
	c.releaseSubsLocked()
	if c.identity != "" && c.identity != userID {
		// A different account signed in without an intervening sign-out.
		c.store.Clear()
	}
	c.identity = userID
	c.mu.Unlock()

	profile, err := c.loadOrCreateProfile(ctx, session)
	if err != nil {
		logger.Error("profile load failed", slog.String("error", err.Error()))
		profile = c.store.Profile()
	}

	subs, err := c.subscribe(ctx, userID)
	if err != nil {
		logger.Error("subscription setup failed", slog.String("error", err.Error()))
	}
	c.mu.Lock()
	c.subs = subs
	c.mu.Unlock()

	themes, progress, activities, badges := c.bulkLoad(ctx, userID, logger)
	c.store.ReplaceAll(profile, themes, progress, activities, badges)

	c.ui.HideSignIn()
	logger.Info("session established")
}

func (c *Controller) signOut() {
	c.mu.Lock()
	c.releaseSubsLocked()
	c.identity = ""
	c.mu.Unlock()

	c.store.Clear()
	c.ui.ShowSignIn()
	c.logger.Info("session ended")
}

func (c *Controller) releaseSubsLocked() {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
}

// loadOrCreateProfile fetches the identity's profile, creating a missing one
// from the defaults of an in-flight sign-up, or from the email when the
// sign-in did not come through this client's SignUp.
func (c *Controller) loadOrCreateProfile(ctx context.Context, session *gateway.Session) (*model.Profile, error) {
	profile, err := c.client.GetProfile(ctx, session.Identity.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	defaults, ok := c.client.PendingSignUpDefaults(session.Identity.Email)
	if !ok {
		defaults = model.ProfileDefaults{Username: usernamePart(session.Identity.Email)}
	}
	profile, err = c.client.CreateProfile(ctx, session.Identity.ID, defaults)
	if err != nil {
		// Lost a creation race, or the write failed. Re-read either way.
		if errors.Is(err, model.ErrProfileExists) {
			return c.client.GetProfile(ctx, session.Identity.ID)
		}
		return nil, err
	}
	return profile, nil
}

func (c *Controller) subscribe(ctx context.Context, userID string) ([]gateway.Subscription, error) {
	var subs []gateway.Subscription

	progressSub, err := c.client.SubscribeProgress(ctx, userID, c.store.ApplyProgressEvent)
	if err != nil {
		return subs, fmt.Errorf("subscribing to progress: %w", err)
	}
	subs = append(subs, progressSub)

	activitySub, err := c.client.SubscribeActivities(ctx, userID, c.store.ApplyActivityEvent)
	if err != nil {
		return subs, fmt.Errorf("subscribing to activities: %w", err)
	}
	subs = append(subs, activitySub)

	badgeSub, err := c.client.SubscribeBadges(ctx, userID, c.applyBadgeEvent)
	if err != nil {
		return subs, fmt.Errorf("subscribing to badges: %w", err)
	}
	subs = append(subs, badgeSub)

	return subs, nil
}

// applyBadgeEvent joins the badge row onto an incoming award before applying
// it, so the store never holds a bare badge id the views cannot render.
func (c *Controller) applyBadgeEvent(award model.BadgeAward) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if award.Badge == nil {
		badges, err := c.client.GetBadges(ctx)
		if err != nil {
			c.logger.Warn("badge catalogue fetch failed", slog.String("error", err.Error()))
		} else {
			for i := range badges {
				if badges[i].ID == award.BadgeID {
					award.Badge = &badges[i]
					break
				}
			}
		}
	}
	c.store.ApplyBadgeEvent(award)
}

// bulkLoad fetches every entity for the user. A failing loader logs and keeps
// the store's previous value for that entity; the others still refresh.
func (c *Controller) bulkLoad(ctx context.Context, userID string, logger *slog.Logger) ([]model.Theme, []model.ProgressRecord, []model.ActivityEntry, []model.BadgeAward) {
	themes, err := c.client.GetThemes(ctx)
	if err != nil {
		logger.Warn("theme load failed", slog.String("error", err.Error()))
		themes = c.store.Themes()
	}

	progress, err := c.client.GetUserProgress(ctx, userID)
	if err != nil {
		logger.Warn("progress load failed", slog.String("error", err.Error()))
		progress = progressSlice(c.store.Progress())
	}

	activities, err := c.client.GetUserActivities(ctx, userID, state.MaxActivities)
	if err != nil {
		logger.Warn("activity load failed", slog.String("error", err.Error()))
		activities = c.store.Activities()
	}

	badges, err := c.client.GetUserBadges(ctx, userID)
	if err != nil {
		logger.Warn("badge load failed", slog.String("error", err.Error()))
		badges = c.store.Badges()
	}

	return themes, progress, activities, badges
}

func progressSlice(m map[string]model.ProgressRecord) []model.ProgressRecord {
	records := make([]model.ProgressRecord, 0, len(m))
	for _, rec := range m {
		records = append(records, rec)
	}
	return records
}

func usernamePart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
