package devgateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

type handlers struct {
	backend Backend
	logger  *slog.Logger
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return NewInvalidRequestError("invalid request body")
	}
	return nil
}

// Auth handlers

// signUp handles POST /auth/signup
func (h *handlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	session, err := h.backend.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// signIn handles POST /auth/signin
func (h *handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.backend.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// signOut handles POST /auth/signout
func (h *handlers) signOut(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		WriteError(w, NewUnauthorizedError())
		return
	}
	if err := h.backend.Revoke(r.Context(), token); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session handles GET /auth/session
func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		WriteError(w, NewUnauthorizedError())
		return
	}
	session, err := h.backend.SessionByToken(r.Context(), token)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Profile handlers

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.backend.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handlers) insertProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decodeBody(r, &profile); err != nil {
		WriteError(w, err)
		return
	}
	if profile.ID == "" {
		WriteError(w, NewInvalidRequestError("id is required"))
		return
	}
	if err := h.backend.InsertProfile(r.Context(), &profile); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if err := decodeBody(r, &patch); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.backend.UpdateProfile(r.Context(), mux.Vars(r)["id"], patch); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reference data handlers

func (h *handlers) listThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.backend.ListThemes(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

func (h *handlers) listBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.backend.ListBadges(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *handlers) listExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.backend.ListExercises(r.Context(), r.URL.Query().Get("theme_id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercises)
}

// Progress handlers

func (h *handlers) listProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredQuery(r, "user_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	records, err := h.backend.ListProgress(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) upsertProgress(w http.ResponseWriter, r *http.Request) {
	var record model.ProgressRecord
	if err := decodeBody(r, &record); err != nil {
		WriteError(w, err)
		return
	}
	if record.UserID == "" || record.ThemeID == "" {
		WriteError(w, NewInvalidRequestError("user_id and theme_id are required"))
		return
	}
	if err := h.backend.UpsertProgress(r.Context(), &record); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Activity handlers

func (h *handlers) listActivities(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredQuery(r, "user_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			WriteError(w, NewInvalidRequestError("limit must be an integer"))
			return
		}
	}
	entries, err := h.backend.ListActivities(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) insertActivity(w http.ResponseWriter, r *http.Request) {
	var entry model.ActivityEntry
	if err := decodeBody(r, &entry); err != nil {
		WriteError(w, err)
		return
	}
	if entry.UserID == "" {
		WriteError(w, NewInvalidRequestError("user_id is required"))
		return
	}
	if err := h.backend.InsertActivity(r.Context(), &entry); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Badge award handlers

func (h *handlers) listUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := requiredQuery(r, "user_id")
	if err != nil {
		WriteError(w, err)
		return
	}
	awards, err := h.backend.ListUserBadges(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, awards)
}

func (h *handlers) insertUserBadge(w http.ResponseWriter, r *http.Request) {
	var award model.BadgeAward
	if err := decodeBody(r, &award); err != nil {
		WriteError(w, err)
		return
	}
	if award.UserID == "" || award.BadgeID == "" {
		WriteError(w, NewInvalidRequestError("user_id and badge_id are required"))
		return
	}
	if err := h.backend.InsertUserBadge(r.Context(), &award); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, award)
}

// Result handlers

func (h *handlers) insertExerciseResult(w http.ResponseWriter, r *http.Request) {
	var result model.ExerciseResult
	if err := decodeBody(r, &result); err != nil {
		WriteError(w, err)
		return
	}
	if result.UserID == "" || result.ExerciseID == "" {
		WriteError(w, NewInvalidRequestError("user_id and exercise_id are required"))
		return
	}
	if err := h.backend.InsertExerciseResult(r.Context(), &result); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handlers) insertDiagnosticResult(w http.ResponseWriter, r *http.Request) {
	var result model.DiagnosticResult
	if err := decodeBody(r, &result); err != nil {
		WriteError(w, err)
		return
	}
	if result.UserID == "" {
		WriteError(w, NewInvalidRequestError("user_id is required"))
		return
	}
	if err := h.backend.InsertDiagnosticResult(r.Context(), &result); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func requiredQuery(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", NewInvalidRequestError(name + " is required")
	}
	return value, nil
}
