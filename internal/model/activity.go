package model

// ActivityType classifies an activity log entry.
type ActivityType string

const (
	ActivityExercise   ActivityType = "exercise"
	ActivityCourse     ActivityType = "course"
	ActivityBadge      ActivityType = "badge"
	ActivityDiagnostic ActivityType = "diagnostic"
)

// Label returns the display label for the activity type. Unknown types get
// the generic label.
func (t ActivityType) Label() string {
	switch t {
	case ActivityExercise:
		return "Exercice réussi"
	case ActivityCourse:
		return "Cours consulté"
	case ActivityBadge:
		return "Badge débloqué"
	case ActivityDiagnostic:
		return "Diagnostic terminé"
	default:
		return "Activité"
	}
}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityExercise, ActivityCourse, ActivityBadge, ActivityDiagnostic:
		return true
	}
	return false
}
