package state

// MasteryThreshold is the progress percentage at or above which a theme
// counts as mastered.
const MasteryThreshold = 80

// Summary is a derived view of the store for dashboard rendering.
type Summary struct {
	OverallProgress int `json:"overall_progress"`
	ThemesStarted   int `json:"themes_started"`
	ThemesMastered  int `json:"themes_mastered"`
	ExercisesDone   int `json:"exercises_done"`
	BadgeCount      int `json:"badge_count"`
}

// Summarize computes the dashboard aggregates from the current snapshot.
// Overall progress is the mean percentage over themes that have a progress
// record; themes without a record do not drag the average down.
func (s *Store) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{
		BadgeCount: len(s.badges),
	}
	total := 0
	for _, rec := range s.progress {
		summary.ThemesStarted++
		total += rec.ProgressPercentage
		if rec.ProgressPercentage >= MasteryThreshold {
			summary.ThemesMastered++
		}
		summary.ExercisesDone += rec.ExercisesCompleted
	}
	if summary.ThemesStarted > 0 {
		summary.OverallProgress = total / summary.ThemesStarted
	}
	return summary
}
