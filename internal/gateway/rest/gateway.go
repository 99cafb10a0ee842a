package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

// Auth operations

func (g *Gateway) SignUp(ctx context.Context, email, password string) (*gateway.Session, error) {
	return g.authenticate(ctx, "/auth/signup", email, password)
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	return g.authenticate(ctx, "/auth/signin", email, password)
}

func (g *Gateway) authenticate(ctx context.Context, path, email, password string) (*gateway.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session gateway.Session
	if err := g.post(ctx, path, body, &session); err != nil {
		return nil, err
	}
	g.setSession(&session)
	return &session, nil
}

func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	sess := g.session
	g.mu.Unlock()
	if sess == nil {
		return nil
	}

	if err := g.post(ctx, "/auth/signout", nil, nil); err != nil {
		// An already-dead token still counts as signed out.
		if !errors.Is(err, model.ErrNotAuthenticated) && !errors.Is(err, model.ErrSessionExpired) {
			return err
		}
	}

	g.mu.Lock()
	g.session = nil
	callbacks := g.authCallbacksLocked()
	g.mu.Unlock()

	for _, fn := range callbacks {
		fn(gateway.AuthSignedOut, nil)
	}
	return nil
}

// GetSession validates the held token against the server. A rejected token
// reads as signed out; a transport failure is returned as an error.
func (g *Gateway) GetSession(ctx context.Context) (*gateway.Session, error) {
	g.mu.Lock()
	sess := g.session
	g.mu.Unlock()
	if sess == nil {
		return nil, nil
	}

	var current gateway.Session
	if err := g.get(ctx, "/auth/session", &current); err != nil {
		if errors.Is(err, model.ErrNotAuthenticated) || errors.Is(err, model.ErrSessionExpired) {
			g.mu.Lock()
			g.session = nil
			g.mu.Unlock()
			return nil, nil
		}
		return nil, err
	}
	return &current, nil
}

func (g *Gateway) OnAuthStateChange(fn gateway.AuthCallback) func() {
	g.mu.Lock()
	id := g.nextAuthID
	g.nextAuthID++
	g.authCallbacks[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.authCallbacks, id)
		g.mu.Unlock()
	}
}

// SetToken resumes a session from a stored access token, validating it with
// the server. Used by CLI clients that persist tokens across invocations.
func (g *Gateway) SetToken(ctx context.Context, token string) (*gateway.Session, error) {
	g.mu.Lock()
	g.session = &gateway.Session{AccessToken: token}
	g.mu.Unlock()

	session, err := g.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.ErrNotAuthenticated
	}

	g.mu.Lock()
	g.session = session
	g.mu.Unlock()
	return session, nil
}

func (g *Gateway) setSession(sess *gateway.Session) {
	g.mu.Lock()
	g.session = sess
	callbacks := g.authCallbacksLocked()
	g.mu.Unlock()

	for _, fn := range callbacks {
		copied := *sess
		fn(gateway.AuthSignedIn, &copied)
	}
}

func (g *Gateway) authCallbacksLocked() []gateway.AuthCallback {
	callbacks := make([]gateway.AuthCallback, 0, len(g.authCallbacks))
	for _, fn := range g.authCallbacks {
		callbacks = append(callbacks, fn)
	}
	return callbacks
}

// Profile operations

func (g *Gateway) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := g.get(ctx, "/rest/profiles/"+url.PathEscape(id), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (g *Gateway) InsertProfile(ctx context.Context, profile *model.Profile) error {
	return g.post(ctx, "/rest/profiles", profile, profile)
}

func (g *Gateway) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	return g.patch(ctx, "/rest/profiles/"+url.PathEscape(id), patch, nil)
}

// Reference data operations

func (g *Gateway) ListThemes(ctx context.Context) ([]model.Theme, error) {
	var themes []model.Theme
	if err := g.get(ctx, "/rest/themes", &themes); err != nil {
		return nil, err
	}
	return themes, nil
}

func (g *Gateway) ListBadges(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	if err := g.get(ctx, "/rest/badges", &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

func (g *Gateway) ListExercises(ctx context.Context, themeID string) ([]model.Exercise, error) {
	path := "/rest/exercises"
	if themeID != "" {
		path += "?theme_id=" + url.QueryEscape(themeID)
	}
	var exercises []model.Exercise
	if err := g.get(ctx, path, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Progress operations

func (g *Gateway) ListProgress(ctx context.Context, userID string) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	path := "/rest/user_progress?user_id=" + url.QueryEscape(userID)
	if err := g.get(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g *Gateway) UpsertProgress(ctx context.Context, record *model.ProgressRecord) error {
	return g.post(ctx, "/rest/user_progress", record, record)
}

// Activity operations

func (g *Gateway) InsertActivity(ctx context.Context, entry *model.ActivityEntry) error {
	return g.post(ctx, "/rest/activities", entry, entry)
}

func (g *Gateway) ListActivities(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	path := fmt.Sprintf("/rest/activities?user_id=%s&limit=%s",
		url.QueryEscape(userID), strconv.Itoa(limit))
	var entries []model.ActivityEntry
	if err := g.get(ctx, path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Badge award operations

func (g *Gateway) ListUserBadges(ctx context.Context, userID string) ([]model.BadgeAward, error) {
	var awards []model.BadgeAward
	path := "/rest/user_badges?user_id=" + url.QueryEscape(userID)
	if err := g.get(ctx, path, &awards); err != nil {
		return nil, err
	}
	return awards, nil
}

func (g *Gateway) InsertUserBadge(ctx context.Context, award *model.BadgeAward) error {
	return g.post(ctx, "/rest/user_badges", award, award)
}

// Result operations

func (g *Gateway) InsertExerciseResult(ctx context.Context, result *model.ExerciseResult) error {
	return g.post(ctx, "/rest/user_exercise_results", result, result)
}

func (g *Gateway) InsertDiagnosticResult(ctx context.Context, result *model.DiagnosticResult) error {
	return g.post(ctx, "/rest/diagnostic_results", result, result)
}
