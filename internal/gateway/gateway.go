// Package gateway defines the boundary to the hosted backend service:
// email/password authentication with session issuance, a row-oriented data
// store, and change feeds pushing row-level events filtered to one user.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

// Table names in the hosted store.
const (
	TableProfiles          = "profiles"
	TableThemes            = "themes"
	TableProgress          = "user_progress"
	TableActivities        = "activities"
	TableBadges            = "badges"
	TableUserBadges        = "user_badges"
	TableExercises         = "exercises"
	TableExerciseResults   = "user_exercise_results"
	TableDiagnosticResults = "diagnostic_results"
)

// Session is the authenticated session issued by the gateway.
type Session struct {
	AccessToken string         `json:"access_token"`
	Identity    model.Identity `json:"user"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// AuthEvent identifies a session state transition.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthCallback receives session state transitions. The session is nil when
// signed out.
type AuthCallback func(event AuthEvent, session *Session)

// Auth is the authentication surface of the gateway.
type Auth interface {
	// SignUp registers a new account and signs it in.
	SignUp(ctx context.Context, email, password string) (*Session, error)
	// SignIn authenticates with email and password.
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignOut ends the current session. A no-op when signed out.
	SignOut(ctx context.Context) error
	// GetSession returns the current session, or (nil, nil) when there is
	// none. An error means the gateway could not be reached.
	GetSession(ctx context.Context) (*Session, error)
	// OnAuthStateChange registers a callback for session transitions on this
	// gateway instance. The returned function removes the registration.
	OnAuthStateChange(fn AuthCallback) (remove func())
}

// Store is the row-store surface of the gateway. Reads never depend on the
// current session; callers pass explicit ids.
type Store interface {
	// Profiles
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	InsertProfile(ctx context.Context, profile *model.Profile) error
	UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error

	// Reference data
	ListThemes(ctx context.Context) ([]model.Theme, error)
	ListBadges(ctx context.Context) ([]model.Badge, error)
	ListExercises(ctx context.Context, themeID string) ([]model.Exercise, error)

	// Progress
	ListProgress(ctx context.Context, userID string) ([]model.ProgressRecord, error)
	UpsertProgress(ctx context.Context, record *model.ProgressRecord) error

	// Activities
	InsertActivity(ctx context.Context, entry *model.ActivityEntry) error
	ListActivities(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error)

	// Badge awards
	ListUserBadges(ctx context.Context, userID string) ([]model.BadgeAward, error)
	InsertUserBadge(ctx context.Context, award *model.BadgeAward) error

	// Results
	InsertExerciseResult(ctx context.Context, result *model.ExerciseResult) error
	InsertDiagnosticResult(ctx context.Context, result *model.DiagnosticResult) error
}

// ChangeType identifies the kind of row change carried by a feed event.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
)

// ChangeEvent is one row-level change delivered by a feed. Row is the full
// new row as JSON; feed events carry no joins.
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  ChangeType      `json:"type"`
	Row   json.RawMessage `json:"row"`
}

// ChangeCallback receives change events for one subscription.
type ChangeCallback func(event ChangeEvent)

// Subscription is an open change-feed channel. Unsubscribe stops delivery and
// releases the server-side resources; it is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// Feed is the change-feed surface of the gateway.
type Feed interface {
	// Subscribe opens a long-lived channel delivering events of the given
	// types for rows in table belonging to userID. Delivery order within the
	// channel is the gateway's commit order; no cross-channel ordering is
	// guaranteed.
	Subscribe(ctx context.Context, table, userID string, types []ChangeType, fn ChangeCallback) (Subscription, error)
}

// Gateway is the full boundary to the hosted backend service.
type Gateway interface {
	Auth
	Store
	Feed
}
