// Package redis is a Redis-backed implementation of the gateway interface.
// Rows live in Redis so multiple processes can share one backend; change
// feeds ride on Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mathmaster/mathmaster-go/internal/dependencies/clock"
	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
)

const minPasswordLength = 6

type account struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Gateway is a Redis-backed gateway. Rows are shared through Redis; the
// current session and auth callbacks belong to the instance, mirroring a
// client handle onto the hosted service.
type Gateway struct {
	client *redis.Client
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	mu            sync.Mutex
	session       *gateway.Session
	authCallbacks map[int]gateway.AuthCallback
	nextAuthID    int
}

// New creates a Redis gateway, verifying the connection.
func New(cfg Config, clk clock.Clock, logger *slog.Logger) (*Gateway, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg, clk, logger), nil
}

// NewWithClient creates a Redis gateway with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, clk clock.Clock, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:        client,
		cfg:           cfg,
		clock:         clk,
		logger:        logger.With(slog.String("component", "gateway-redis")),
		authCallbacks: make(map[int]gateway.AuthCallback),
	}
}

// Close closes the Redis connection
func (g *Gateway) Close() error {
	return g.client.Close()
}

// Ensure Gateway implements the interface
var _ gateway.Gateway = (*Gateway)(nil)

// Seed loads the reference data tables.
func (g *Gateway) Seed(ctx context.Context, themes []model.Theme, badges []model.Badge, exercises []model.Exercise) error {
	themeData, err := json.Marshal(themes)
	if err != nil {
		return err
	}
	badgeData, err := json.Marshal(badges)
	if err != nil {
		return err
	}
	exerciseData, err := json.Marshal(exercises)
	if err != nil {
		return err
	}

	pipe := g.client.Pipeline()
	pipe.Set(ctx, themesKey(), themeData, 0)
	pipe.Set(ctx, badgesKey(), badgeData, 0)
	pipe.Set(ctx, exercisesKey(), exerciseData, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Account operations

// Register creates an account and issues a session for it.
func (g *Gateway) Register(ctx context.Context, email, password string) (*gateway.Session, error) {
	if len(password) < minPasswordLength {
		return nil, model.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	acc := account{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    g.clock.Now(),
	}
	data, err := json.Marshal(acc)
	if err != nil {
		return nil, err
	}

	created, err := g.client.SetNX(ctx, accountKey(email), data, 0).Result()
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, model.ErrEmailTaken
	}

	return g.issueSession(ctx, acc)
}

// Authenticate verifies credentials and issues a session.
func (g *Gateway) Authenticate(ctx context.Context, email, password string) (*gateway.Session, error) {
	data, err := g.client.Get(ctx, accountKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	var acc account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return g.issueSession(ctx, acc)
}

// SessionByToken resolves an access token to its session.
func (g *Gateway) SessionByToken(ctx context.Context, token string) (*gateway.Session, error) {
	data, err := g.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotAuthenticated
		}
		return nil, err
	}

	var sess gateway.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if g.clock.Now().After(sess.ExpiresAt) {
		_ = g.client.Del(ctx, sessionKey(token)).Err()
		return nil, model.ErrSessionExpired
	}
	return &sess, nil
}

// Revoke invalidates an access token.
func (g *Gateway) Revoke(ctx context.Context, token string) error {
	return g.client.Del(ctx, sessionKey(token)).Err()
}

func (g *Gateway) issueSession(ctx context.Context, acc account) (*gateway.Session, error) {
	sess := &gateway.Session{
		AccessToken: "tok_" + uuid.NewString(),
		Identity:    model.Identity{ID: acc.UserID, Email: acc.Email},
		ExpiresAt:   g.clock.Now().Add(g.cfg.SessionTTL),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := g.client.Set(ctx, sessionKey(sess.AccessToken), data, g.cfg.SessionTTL).Err(); err != nil {
		return nil, err
	}
	return sess, nil
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
	callbacks := g.authCallbacksLocked()
	g.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := g.Revoke(ctx, sess.AccessToken); err != nil {
		return err
	}
	for _, fn := range callbacks {
		fn(gateway.AuthSignedOut, nil)
	}
	return nil
}

func (g *Gateway) GetSession(ctx context.Context) (*gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
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
	data, err := g.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (g *Gateway) InsertProfile(ctx context.Context, profile *model.Profile) error {
	now := g.clock.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	created, err := g.client.SetNX(ctx, profileKey(profile.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrProfileExists
	}
	return nil
}

func (g *Gateway) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	profile, err := g.GetProfile(ctx, id)
	if err != nil {
		return err
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

	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return g.client.Set(ctx, profileKey(id), data, 0).Err()
}

// Reference data operations

func (g *Gateway) ListThemes(ctx context.Context) ([]model.Theme, error) {
	var themes []model.Theme
	if err := g.getJSONList(ctx, themesKey(), &themes); err != nil {
		return nil, err
	}
	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].OrderIndex < themes[j].OrderIndex
	})
	return themes, nil
}

func (g *Gateway) ListBadges(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	if err := g.getJSONList(ctx, badgesKey(), &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

func (g *Gateway) ListExercises(ctx context.Context, themeID string) ([]model.Exercise, error) {
	var all []model.Exercise
	if err := g.getJSONList(ctx, exercisesKey(), &all); err != nil {
		return nil, err
	}
	var exercises []model.Exercise
	for _, ex := range all {
		if themeID == "" || ex.ThemeID == themeID {
			exercises = append(exercises, ex)
		}
	}
	sort.SliceStable(exercises, func(i, j int) bool {
		return exercises[i].OrderIndex < exercises[j].OrderIndex
	})
	return exercises, nil
}

// getJSONList reads a whole-catalogue key; a missing key is an empty list.
func (g *Gateway) getJSONList(ctx context.Context, key string, out any) error {
	data, err := g.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// Progress operations

func (g *Gateway) ListProgress(ctx context.Context, userID string) ([]model.ProgressRecord, error) {
	themeIDs, err := g.client.SMembers(ctx, progressIndexKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	var records []model.ProgressRecord
	for _, themeID := range themeIDs {
		data, err := g.client.Get(ctx, progressKey(userID, themeID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var rec model.ProgressRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ThemeID < records[j].ThemeID
	})
	return records, nil
}

func (g *Gateway) UpsertProgress(ctx context.Context, record *model.ProgressRecord) error {
	now := g.clock.Now()
	record.LastActivity = now
	record.UpdatedAt = now

	copied := *record
	copied.Theme = nil
	data, err := json.Marshal(copied)
	if err != nil {
		return err
	}

	// SADD tells us whether the theme is new for this user, which decides
	// the change type published.
	added, err := g.client.SAdd(ctx, progressIndexKey(record.UserID), record.ThemeID).Result()
	if err != nil {
		return err
	}
	changeType := gateway.ChangeUpdate
	if added == 1 {
		changeType = gateway.ChangeInsert
	}

	if err := g.client.Set(ctx, progressKey(record.UserID, record.ThemeID), data, 0).Err(); err != nil {
		return err
	}
	return g.publish(ctx, gateway.TableProgress, record.UserID, changeType, data)
}

// Activity operations

func (g *Gateway) InsertActivity(ctx context.Context, entry *model.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = g.clock.Now()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := g.client.LPush(ctx, activitiesKey(entry.UserID), data).Err(); err != nil {
		return err
	}
	return g.publish(ctx, gateway.TableActivities, entry.UserID, gateway.ChangeInsert, data)
}

func (g *Gateway) ListActivities(ctx context.Context, userID string, limit int) ([]model.ActivityEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	values, err := g.client.LRange(ctx, activitiesKey(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.ActivityEntry, 0, len(values))
	for _, v := range values {
		var entry model.ActivityEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Badge award operations

func (g *Gateway) ListUserBadges(ctx context.Context, userID string) ([]model.BadgeAward, error) {
	values, err := g.client.LRange(ctx, awardsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	awards := make([]model.BadgeAward, 0, len(values))
	for _, v := range values {
		var award model.BadgeAward
		if err := json.Unmarshal([]byte(v), &award); err != nil {
			return nil, err
		}
		awards = append(awards, award)
	}
	return awards, nil
}

func (g *Gateway) InsertUserBadge(ctx context.Context, award *model.BadgeAward) error {
	added, err := g.client.SAdd(ctx, awardSetKey(award.UserID), award.BadgeID).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return model.ErrBadgeAlreadyAwarded
	}

	if award.ID == "" {
		award.ID = uuid.NewString()
	}
	award.EarnedAt = g.clock.Now()

	copied := *award
	copied.Badge = nil
	data, err := json.Marshal(copied)
	if err != nil {
		return err
	}
	if err := g.client.LPush(ctx, awardsKey(award.UserID), data).Err(); err != nil {
		return err
	}
	return g.publish(ctx, gateway.TableUserBadges, award.UserID, gateway.ChangeInsert, data)
}

// Result operations

func (g *Gateway) InsertExerciseResult(ctx context.Context, result *model.ExerciseResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CompletedAt = g.clock.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return g.client.LPush(ctx, exerciseResultsKey(result.UserID), data).Err()
}

func (g *Gateway) InsertDiagnosticResult(ctx context.Context, result *model.DiagnosticResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CompletedAt = g.clock.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return g.client.LPush(ctx, diagnosticResultsKey(result.UserID), data).Err()
}
