package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/model"
	"github.com/mathmaster/mathmaster-go/internal/state"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *gateway.Session:
		o.printSession(v)
	case WhoamiResult:
		o.printWhoami(v)
	case *model.Profile:
		o.printProfile(v)
	case []model.ProgressRecord:
		o.printProgress(v)
	case []model.ActivityEntry:
		o.printActivities(v)
	case []model.Badge:
		o.printBadgeCatalogue(v)
	case []model.BadgeAward:
		o.printAwards(v)
	case *model.BadgeAward:
		o.printAward(v)
	case []model.Exercise:
		o.printExercises(v)
	case Dashboard:
		o.printDashboard(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// WhoamiResult combines the session with the user's profile
type WhoamiResult struct {
	Session *gateway.Session `json:"session"`
	Profile *model.Profile   `json:"profile"`
}

// Dashboard is the aggregate view a signed-in user sees
type Dashboard struct {
	Profile    *model.Profile         `json:"profile"`
	Summary    state.Summary          `json:"summary"`
	Progress   []model.ProgressRecord `json:"progress"`
	Activities []model.ActivityEntry  `json:"activities"`
	Badges     []model.BadgeAward     `json:"badges"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printSession(s *gateway.Session) {
	fmt.Printf("Signed in: %s (%s)\n", s.Identity.Email, s.Identity.ID)
	fmt.Printf("Expires: %s\n", s.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("Token: %s\n", s.AccessToken)
}

func (o *Output) printWhoami(w WhoamiResult) {
	o.printSession(w.Session)
	if w.Profile != nil {
		fmt.Println()
		o.printProfile(w.Profile)
	}
}

func (o *Output) printProfile(p *model.Profile) {
	fmt.Printf("Profile: %s (%s)\n", p.Username, p.ID)
	if p.FullName != "" {
		fmt.Printf("Name: %s\n", p.FullName)
	}
	if p.Class != "" {
		fmt.Printf("Class: %s\n", p.Class)
	}
	if p.Level != "" {
		fmt.Printf("Level: %s\n", p.Level)
	}
}

func (o *Output) printProgress(records []model.ProgressRecord) {
	if len(records) == 0 {
		fmt.Println("No progress recorded yet")
		return
	}
	for _, r := range records {
		title := r.ThemeID
		if r.Theme != nil {
			title = r.Theme.Title
		}
		fmt.Printf("%-30s %3d%%  (%d/%d exercises)\n",
			title, r.ProgressPercentage, r.ExercisesCompleted, r.TotalExercises)
	}
}

func (o *Output) printActivities(entries []model.ActivityEntry) {
	if len(entries) == 0 {
		fmt.Println("No activity yet")
		return
	}
	for _, e := range entries {
		scoreStr := ""
		if e.Score != nil {
			scoreStr = fmt.Sprintf(" - %d%%", *e.Score)
		}
		fmt.Printf("[%s] %s%s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Title, scoreStr)
		if e.Description != "" {
			fmt.Printf("    %s\n", e.Description)
		}
	}
}

func (o *Output) printBadgeCatalogue(badges []model.Badge) {
	for _, b := range badges {
		fmt.Printf("%-12s %s - %s\n", b.ID, b.Name, b.Description)
	}
}

func (o *Output) printAwards(awards []model.BadgeAward) {
	if len(awards) == 0 {
		fmt.Println("No badges earned yet")
		return
	}
	for _, a := range awards {
		name := a.BadgeID
		if a.Badge != nil {
			name = a.Badge.Name
		}
		fmt.Printf("%-12s earned %s\n", name, a.EarnedAt.Format("2006-01-02"))
	}
}

func (o *Output) printAward(a *model.BadgeAward) {
	name := a.BadgeID
	if a.Badge != nil {
		name = a.Badge.Name
	}
	fmt.Printf("Badge earned: %s\n", name)
}

func (o *Output) printExercises(exercises []model.Exercise) {
	for _, e := range exercises {
		fmt.Printf("%-16s %-35s %-10s %d min\n", e.ID, e.Title, e.Difficulty, e.Duration)
	}
}

func (o *Output) printDashboard(d Dashboard) {
	if d.Profile != nil {
		fmt.Printf("Bonjour %s !\n\n", d.Profile.Username)
	}
	fmt.Printf("Overall progress: %d%%\n", d.Summary.OverallProgress)
	fmt.Printf("Themes started: %d (mastered: %d)\n", d.Summary.ThemesStarted, d.Summary.ThemesMastered)
	fmt.Printf("Exercises done: %d\n", d.Summary.ExercisesDone)
	fmt.Printf("Badges: %d\n", d.Summary.BadgeCount)

	if len(d.Progress) > 0 {
		fmt.Println("\nProgress:")
		o.printProgress(d.Progress)
	}
	if len(d.Activities) > 0 {
		fmt.Println("\nRecent activity:")
		o.printActivities(d.Activities)
	}
	if len(d.Badges) > 0 {
		fmt.Println("\nBadges:")
		o.printAwards(d.Badges)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
