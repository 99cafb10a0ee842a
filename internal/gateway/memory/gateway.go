// Package memory is an in-memory implementation of the gateway interface.
// It backs tests, demo mode, and the dev gateway server.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/clock"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

const (
	sessionDuration   = 24 * time.Hour
	minPasswordLength = 6
)

type account struct {
	userID       string
	email        string
	passwordHash string
	createdAt    time.Time
}

type progressKey struct {
	userID  string
	themeID string
}

type awardKey struct {
	userID  string
	badgeID string
}

// Gateway is an in-memory gateway. Rows are shared across everything holding
// the same instance; the current session and auth callbacks belong to the
// instance itself, mirroring a client handle onto the hosted service.
type Gateway struct {
	clock  clock.Clock
	logger *slog.Logger

	mu                sync.RWMutex
	accounts          map[string]*account         // keyed by email
	tokens            map[string]*gateway.Session // keyed by access token
	profiles          map[string]*model.Profile
	themes            []model.Theme
	badges            []model.Badge
	exercises         []model.Exercise
	progress          map[progressKey]*model.ProgressRecord
	activities        map[string][]model.ActivityEntry // per user, oldest first
	awards            map[string][]model.BadgeAward    // per user, oldest first
	awardSet          map[awardKey]struct{}
	exerciseResults   []model.ExerciseResult
	diagnosticResults []model.DiagnosticResult

	subs      map[int]*subscription
	nextSubID int

	session       *gateway.Session
	authCallbacks map[int]gateway.AuthCallback
	nextAuthID    int
}

// New creates a new in-memory gateway instance
func New(clk clock.Clock, logger *slog.Logger) *Gateway {
	return &Gateway{
		clock:         clk,
		logger:        logger.With(slog.String("component", "gateway-memory")),
		accounts:      make(map[string]*account),
		tokens:        make(map[string]*gateway.Session),
		profiles:      make(map[string]*model.Profile),
		progress:      make(map[progressKey]*model.ProgressRecord),
		activities:    make(map[string][]model.ActivityEntry),
		awards:        make(map[string][]model.BadgeAward),
		awardSet:      make(map[awardKey]struct{}),
		subs:          make(map[int]*subscription),
		authCallbacks: make(map[int]gateway.AuthCallback),
	}
}

// Ensure Gateway implements the interface
var _ gateway.Gateway = (*Gateway)(nil)

// Seed loads the reference data tables. Called once at setup; reference data
// is immutable afterwards.
func (g *Gateway) Seed(ctx context.Context, themes []model.Theme, badges []model.Badge, exercises []model.Exercise) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.themes = append([]model.Theme(nil), themes...)
	g.badges = append([]model.Badge(nil), badges...)
	g.exercises = append([]model.Exercise(nil), exercises...)
	return nil
}

// Account operations. These are the server-side surface used by the dev
// gateway; the client-facing Auth methods build on them.

// Register creates an account and issues a session for it.
func (g *Gateway) Register(ctx context.Context, email, password string) (*gateway.Session, error) {
	if len(password) < minPasswordLength {
		return nil, model.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.accounts[email]; ok {
		return nil, model.ErrEmailTaken
	}

	acc := &account{
		userID:       uuid.NewString(),
		email:        email,
		passwordHash: string(hash),
		createdAt:    g.clock.Now(),
	}
	g.accounts[email] = acc

	return g.issueSessionLocked(acc), nil
}

// Authenticate verifies credentials and issues a session.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*gateway.Session, error) {
	g.mu.RLock()
	acc, ok := g.accounts[email]
	g.mu.RUnlock()

	if !ok {
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issueSessionLocked(acc), nil
}

// SessionByToken resolves an access token to its session.
func (g *Gateway) SessionByToken(ctx context.Context, token string) (*gateway.Session, error) {
	g.mu.RLock()
	sess, ok := g.tokens[token]
	g.mu.RUnlock()

	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	if g.clock.Now().After(sess.ExpiresAt) {
		g.mu.Lock()
		delete(g.tokens, token)
		g.mu.Unlock()
		return nil, model.ErrSessionExpired
	}

	copied := *sess
	return &copied, nil
}

// Revoke invalidates an access token.
func (g *Gateway) Revoke(ctx context.Context, token string) error {
	g.mu.Lock()
	delete(g.tokens, token)
	g.mu.Unlock()
	return nil
}

func (g *Gateway) issueSessionLocked(acc *account) *gateway.Session {
	now := g.clock.Now()
	sess := &gateway.Session{
		AccessToken: "tok_" + uuid.NewString(),
		Identity:    model.Identity{ID: acc.userID, Email: acc.email},
		ExpiresAt:   now.Add(sessionDuration),
	}
	g.tokens[sess.AccessToken] = sess
	return sess
}

// Auth operations

func (g *Gateway) SignUp(ctx context.Context, email, password string) (*gateway.Session, error) {
	sess, err := g.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.setSession(sess)
	return sess, nil
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	sess, err := g.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.setSession(sess)
	return sess, nil
}

func (g *Gateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	sess := g.session
	g.session = nil
	if sess != nil {
		delete(g.tokens, sess.AccessToken)
	}
	callbacks := g.authCallbacksLocked()
	g.mu.Unlock()

	if sess == nil {
		return nil
	}
	for _, fn := range callbacks {
		fn(gateway.AuthSignedOut, nil)
	}
	return nil
}

func (g *Gateway) GetSession(ctx context.Context) (*gateway.Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil {
		return nil, nil
	}
	copied := *g.session
	return &copied, nil
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
	g.mu.RLock()
	defer g.mu.RUnlock()
	profile, ok := g.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (g *Gateway) InsertProfile(ctx context.Context, profile *model.Profile) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.profiles[profile.ID]; ok {
		return model.ErrProfileExists
	}
	now := g.clock.Now()
	copied := *profile
	copied.CreatedAt = now
	copied.UpdatedAt = now
	g.profiles[copied.ID] = &copied
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return nil
}

func (g *Gateway) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	profile, ok := g.profiles[id]
	if !ok {
		return model.ErrProfileNotFound
	}
	if patch.Username != nil {
		profile.Username = *patch.Username
	}
	if patch.FullName != nil {
		profile.FullName = *patch.FullName
	}
	if patch.Class != nil {
		profile.Class = *patch.Class
	}
	if patch.Level != nil {
		profile.Level = *patch.Level
	}
	profile.UpdatedAt = g.clock.Now()
	return nil
}

// Reference data operations

func (g *Gateway) ListThemes(ctx context.Context) ([]model.Theme, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	themes := append([]model.Theme(nil), g.themes...)
	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].OrderIndex < themes[j].OrderIndex
	})
	return themes, nil
}

func (g *Gateway) ListBadges(ctx context.Context) ([]model.Badge, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]model.Badge(nil), g.badges...), nil
}

func (g *Gateway) ListExercises(ctx context.Context, themeID string) ([]model.Exercise, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var exercises []model.Exercise
	for _, ex := range g.exercises {
		if themeID == "" || ex.ThemeID == themeID {
			exercises = append(exercises, ex)
		}
	}
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].OrderIndex < exercises[j].OrderIndex
	})
	return exercises, nil
}

// Progress operations

func (g *Gateway) ListProgress(ctx context.Context, userID string) ([]model.ProgressRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var records []model.ProgressRecord
	for key, rec := range g.progress {
		if key.userID == userID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ThemeID < records[j].ThemeID
	})
	return records, nil
}

func (g *Gateway) UpsertProgress(ctx context.Context, record *model.ProgressRecord) error {
	g.mu.Lock()
	key := progressKey{userID: record.UserID, themeID: record.ThemeID}
	changeType := gateway.ChangeInsert
	if _, ok := g.progress[key]; ok {
		changeType = gateway.ChangeUpdate
	}
	now := g.clock.Now()
	copied := *record
	copied.Theme = nil
	copied.LastActivity = now
	copied.UpdatedAt = now
	g.progress[key] = &copied
	record.LastActivity = now
	record.UpdatedAt = now
	callbacks := g.matchSubsLocked(gateway.TableProgress, record.UserID, changeType)
	g.mu.Unlock()

	deliver(callbacks, gateway.TableProgress, changeType, copied, g.logger)
	return nil
}

// Activity operations

func (g *Gateway) InsertActivity(ctx context.Context, entry *model.ActivityEntry) error {
	g.mu.Lock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = g.clock.Now()
	g.activities[entry.UserID] = append(g.activities[entry.UserID], *entry)
	callbacks := g.matchSubsLocked(gateway.TableActivities, entry.UserID, gateway.ChangeInsert)
	g.mu.Unlock()

	deliver(callbacks, gateway.TableActivities, gateway.ChangeInsert, *entry, g.logger)
	return nil
}

func (g *Gateway) ListActivities(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stored := g.activities[userID]
	if limit <= 0 || limit > len(stored) {
		limit = len(stored)
	}
	// Newest first: walk the append-ordered slice backwards.
	entries := make([]model.ActivityEntry, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, stored[i])
	}
	return entries, nil
}

// Badge award operations

func (g *Gateway) ListUserBadges(ctx context.Context, userID string) ([]model.BadgeAward, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stored := g.awards[userID]
	awards := make([]model.BadgeAward, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		awards = append(awards, stored[i])
	}
	return awards, nil
}

func (g *Gateway) InsertUserBadge(ctx context.Context, award *model.BadgeAward) error {
	g.mu.Lock()
	key := awardKey{userID: award.UserID, badgeID: award.BadgeID}
	if _, ok := g.awardSet[key]; ok {
		g.mu.Unlock()
		return model.ErrBadgeAlreadyAwarded
	}
	g.awardSet[key] = struct{}{}
	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	award.EarnedAt = g.clock.Now()
	copied := *award
	copied.Badge = nil
	g.awards[award.UserID] = append(g.awards[award.UserID], copied)
	callbacks := g.matchSubsLocked(gateway.TableUserBadges, award.UserID, gateway.ChangeInsert)
	g.mu.Unlock()

	deliver(callbacks, gateway.TableUserBadges, gateway.ChangeInsert, copied, g.logger)
	return nil
}

// Result operations

func (g *Gateway) InsertExerciseResult(ctx context.Context, result *model.ExerciseResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CompletedAt = g.clock.Now()
	g.exerciseResults = append(g.exerciseResults, *result)
	return nil
}

func (g *Gateway) InsertDiagnosticResult(ctx context.Context, result *model.DiagnosticResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CompletedAt = g.clock.Now()
	g.diagnosticResults = append(g.diagnosticResults, *result)
	return nil
}
