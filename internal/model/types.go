package model

import "time"

// Identity is the authenticated user for the current session, as reported by
// the gateway's session object. Replaced wholesale on sign-in and sign-out.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the per-user profile row. Exactly one exists per identity;
// Profile.ID is the identity id.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Class     string    `json:"class"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged;
// the gateway stamps updated_at.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Class    *string `json:"class,omitempty"`
	Level    *string `json:"level,omitempty"`
}

// ProfileDefaults holds the values used when creating a profile for a fresh
// account.
type ProfileDefaults struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Class    string `json:"class"`
	Level    string `json:"level"`
}

// Theme is read-only curriculum reference data, ordered for display by
// OrderIndex.
type Theme struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index"`
}

// ProgressRecord tracks a user's progress in one theme. At most one record
// exists per (user, theme) pair; repeated writes overwrite.
type ProgressRecord struct {
	UserID             string    `json:"user_id"`
	ThemeID            string    `json:"theme_id"`
	ProgressPercentage int       `json:"progress_percentage"`
	ExercisesCompleted int       `json:"exercises_completed"`
	TotalExercises     int       `json:"total_exercises"`
	LastActivity       time.Time `json:"last_activity"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Theme is the joined theme row, populated by reads that request the
	// join. Nil on change-feed events.
	Theme *Theme `json:"theme,omitempty"`
}

// ActivityEntry is one entry in the user's append-only activity log.
type ActivityEntry struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Score       *int         `json:"score,omitempty"`
	Duration    string       `json:"duration,omitempty"`
	ThemeID     string       `json:"theme_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Badge is an entry in the badge catalogue.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// BadgeAward records that a user earned a badge. The (user, badge) pair is
// unique; a second award of the same badge is rejected by the gateway.
type BadgeAward struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`

	// Badge is the joined badge row, populated by reads that request the
	// join. Nil on change-feed events.
	Badge *Badge `json:"badge,omitempty"`
}

// Exercise is an entry in the exercise bank, ordered within a theme by
// OrderIndex.
type Exercise struct {
	ID         string `json:"id"`
	ThemeID    string `json:"theme_id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Duration   int    `json:"duration"`
	OrderIndex int    `json:"order_index"`
}

// ExerciseResult is one submitted exercise attempt.
type ExerciseResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ExerciseID  string    `json:"exercise_id"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// DiagnosticResult is one completed diagnostic test.
type DiagnosticResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Level       string    `json:"level"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}
