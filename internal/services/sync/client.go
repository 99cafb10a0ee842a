// Package sync is the typed client over the gateway: it validates writes,
// performs the client-side joins reads need, and exposes typed change-feed
// subscriptions.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

// DefaultActivityLimit is the activity page size when the caller does not ask
// for a specific limit.
const DefaultActivityLimit = 10

// Client is the typed sync client.
type Client struct {
	gw     gateway.Gateway
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]model.ProfileDefaults
}

// New creates a sync client over the given gateway.
func New(gw gateway.Gateway, logger *slog.Logger) *Client {
	return &Client{
		gw:      gw,
		logger:  logger.With(slog.String("component", "sync")),
		pending: make(map[string]model.ProfileDefaults),
	}
}

// Auth

// SignUp registers a new account and creates its profile row from the given
// defaults, filling the username from the email when one is not supplied.
//
// Gateways fire their sign-in callbacks before SignUp returns, and a running
// session controller creates the missing profile from inside that callback.
// The defaults are published first so the controller uses the caller's values;
// the duplicate insert that follows is then expected and harmless. Any other
// insert failure leaves the account signed in without a profile, which the
// controller repairs on its next load.
func (c *Client) SignUp(ctx context.Context, email, password string, defaults model.ProfileDefaults) (*gateway.Session, error) {
	if defaults.Username == "" {
		defaults.Username = usernameFromEmail(email)
	}
	c.mu.Lock()
	c.pending[email] = defaults
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, email)
		c.mu.Unlock()
	}()

	session, err := c.gw.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		ID:       session.Identity.ID,
		Username: defaults.Username,
		FullName: defaults.FullName,
		Class:    defaults.Class,
		Level:    defaults.Level,
	}
	if err := c.gw.InsertProfile(ctx, profile); err != nil && !errors.Is(err, model.ErrProfileExists) {
		c.logger.Warn("profile creation failed after signup",
			slog.String("user_id", session.Identity.ID),
			slog.String("error", err.Error()))
	}
	return session, nil
}

// PendingSignUpDefaults returns the profile defaults of a SignUp that is
// still in flight for the given email. The session controller consults this
// when it observes the sign-in before SignUp has inserted the profile.
func (c *Client) PendingSignUpDefaults(email string) (model.ProfileDefaults, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defaults, ok := c.pending[email]
	return defaults, ok
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	return c.gw.SignIn(ctx, email, password)
}

// SignOut ends the current session.
func (c *Client) SignOut(ctx context.Context) error {
	return c.gw.SignOut(ctx)
}

// GetSession returns the current session, or (nil, nil) when signed out.
func (c *Client) GetSession(ctx context.Context) (*gateway.Session, error) {
	return c.gw.GetSession(ctx)
}

// OnAuthStateChange registers a callback for session transitions.
func (c *Client) OnAuthStateChange(fn gateway.AuthCallback) (remove func()) {
	return c.gw.OnAuthStateChange(fn)
}

// Profiles

// GetProfile fetches one profile row. Missing profiles surface as
// model.ErrProfileNotFound.
func (c *Client) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return c.gw.GetProfile(ctx, id)
}

// CreateProfile inserts a profile row for the given identity.
func (c *Client) CreateProfile(ctx context.Context, id string, defaults model.ProfileDefaults) (*model.Profile, error) {
	profile := &model.Profile{
		ID:       id,
		Username: defaults.Username,
		FullName: defaults.FullName,
		Class:    defaults.Class,
		Level:    defaults.Level,
	}
	if err := c.gw.InsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies a partial update and returns the updated row.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) (*model.Profile, error) {
	if err := c.gw.UpdateProfile(ctx, id, patch); err != nil {
		return nil, err
	}
	return c.gw.GetProfile(ctx, id)
}

// Reference data

// GetThemes returns the theme catalogue in display order.
func (c *Client) GetThemes(ctx context.Context) ([]model.Theme, error) {
	return c.gw.ListThemes(ctx)
}

// GetBadges returns the badge catalogue.
func (c *Client) GetBadges(ctx context.Context) ([]model.Badge, error) {
	return c.gw.ListBadges(ctx)
}

// GetExercises returns the exercise bank for one theme, or the whole bank
// when themeID is empty.
func (c *Client) GetExercises(ctx context.Context, themeID string) ([]model.Exercise, error) {
	return c.gw.ListExercises(ctx, themeID)
}

// Progress

// GetUserProgress returns the user's progress records with the theme row
// joined onto each. Records referencing an unknown theme keep a nil Theme.
func (c *Client) GetUserProgress(ctx context.Context, userID string) ([]model.ProgressRecord, error) {
	records, err := c.gw.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	themes, err := c.gw.ListThemes(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Theme, len(themes))
	for _, theme := range themes {
		byID[theme.ID] = theme
	}
	for i := range records {
		if theme, ok := byID[records[i].ThemeID]; ok {
			records[i].Theme = &theme
		}
	}
	return records, nil
}

// UpsertProgress writes one progress record for a (user, theme) pair,
// overwriting any existing record. The percentage must be in [0, 100].
func (c *Client) UpsertProgress(ctx context.Context, record *model.ProgressRecord) error {
	if record.ProgressPercentage < 0 || record.ProgressPercentage > 100 {
		return fmt.Errorf("%w: %d", model.ErrInvalidProgress, record.ProgressPercentage)
	}
	return c.gw.UpsertProgress(ctx, record)
}

// Activities

// AddActivity appends one entry to the user's activity log. Unknown activity
// types are rejected before reaching the gateway.
func (c *Client) AddActivity(ctx context.Context, entry *model.ActivityEntry) error {
	if !entry.Type.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidActivityType, entry.Type)
	}
	if entry.Title == "" {
		entry.Title = entry.Type.Label()
	}
	return c.gw.InsertActivity(ctx, entry)
}

// GetUserActivities returns the user's most recent activity entries, newest
// first. A non-positive limit means DefaultActivityLimit.
func (c *Client) GetUserActivities(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return c.gw.ListActivities(ctx, userID, limit)
}

// Badges

// GetUserBadges returns the user's badge awards with the badge row joined
// onto each, newest first.
func (c *Client) GetUserBadges(ctx context.Context, userID string) ([]model.BadgeAward, error) {
	awards, err := c.gw.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := c.gw.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Badge, len(badges))
	for _, badge := range badges {
		byID[badge.ID] = badge
	}
	for i := range awards {
		if badge, ok := byID[awards[i].BadgeID]; ok {
			awards[i].Badge = &badge
		}
	}
	return awards, nil
}

// AwardBadge grants a badge to a user. Awarding a badge the user already
// holds returns model.ErrBadgeAlreadyAwarded; callers may treat that as
// success.
func (c *Client) AwardBadge(ctx context.Context, userID, badgeID string) (*model.BadgeAward, error) {
	award := &model.BadgeAward{
		UserID:  userID,
		BadgeID: badgeID,
	}
	if err := c.gw.InsertUserBadge(ctx, award); err != nil {
		return nil, err
	}
	return award, nil
}

// Results

// SaveExerciseResult records one exercise attempt.
func (c *Client) SaveExerciseResult(ctx context.Context, result *model.ExerciseResult) error {
	return c.gw.InsertExerciseResult(ctx, result)
}

// SaveDiagnosticResult records one completed diagnostic test.
func (c *Client) SaveDiagnosticResult(ctx context.Context, result *model.DiagnosticResult) error {
	return c.gw.InsertDiagnosticResult(ctx, result)
}

func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
