// Package devgateway is a self-hostable stand-in for the hosted backend
// service: it serves the auth, row-store, and change-feed surfaces over HTTP
// so rest-gateway clients can run without the real thing.
package devgateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
	"github.com/mathmaster/mathmaster-go/internal/middleware"
)

// Backend is what the dev gateway serves: a row store with change feeds plus
// the server-side account operations. Both the memory and redis gateways
// satisfy it.
type Backend interface {
	gateway.Store
	gateway.Feed

	Register(ctx context.Context, email, password string) (*gateway.Session, error)
	Authenticate(ctx context.Context, email, password string) (*gateway.Session, error)
	SessionByToken(ctx context.Context, token string) (*gateway.Session, error)
	Revoke(ctx context.Context, token string) error
}

// NewRouter creates the dev gateway router with all routes configured.
func NewRouter(backend Backend, logger *slog.Logger) http.Handler {
	h := &handlers{backend: backend, logger: logger.With(slog.String("component", "devgateway"))}

	r := mux.NewRouter()
	r.Use(middleware.Recovery(logger, panicHandler))
	r.Use(middleware.Logging(logger))

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Auth surface
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", h.signUp).Methods(http.MethodPost)
	auth.HandleFunc("/signin", h.signIn).Methods(http.MethodPost)
	auth.HandleFunc("/signout", h.signOut).Methods(http.MethodPost)
	auth.HandleFunc("/session", h.session).Methods(http.MethodGet)

	// Row store, bearer-token protected
	rest := r.PathPrefix("/rest").Subrouter()
	rest.Use(h.requireAuth)
	rest.HandleFunc("/profiles", h.insertProfile).Methods(http.MethodPost)
	rest.HandleFunc("/profiles/{id}", h.getProfile).Methods(http.MethodGet)
	rest.HandleFunc("/profiles/{id}", h.updateProfile).Methods(http.MethodPatch)
	rest.HandleFunc("/themes", h.listThemes).Methods(http.MethodGet)
	rest.HandleFunc("/badges", h.listBadges).Methods(http.MethodGet)
	rest.HandleFunc("/exercises", h.listExercises).Methods(http.MethodGet)
	rest.HandleFunc("/user_progress", h.listProgress).Methods(http.MethodGet)
	rest.HandleFunc("/user_progress", h.upsertProgress).Methods(http.MethodPost)
	rest.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	rest.HandleFunc("/activities", h.insertActivity).Methods(http.MethodPost)
	rest.HandleFunc("/user_badges", h.listUserBadges).Methods(http.MethodGet)
	rest.HandleFunc("/user_badges", h.insertUserBadge).Methods(http.MethodPost)
	rest.HandleFunc("/user_exercise_results", h.insertExerciseResult).Methods(http.MethodPost)
	rest.HandleFunc("/diagnostic_results", h.insertDiagnosticResult).Methods(http.MethodPost)

	// Change feed, bearer-token protected
	feed := r.PathPrefix("/feed").Subrouter()
	feed.Use(h.requireAuth)
	feed.HandleFunc("", h.feed).Methods(http.MethodGet)

	return r
}

// requireAuth validates the bearer token against the backend before letting a
// request through.
func (h *handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			WriteError(w, NewUnauthorizedError())
			return
		}
		if _, err := h.backend.SessionByToken(r.Context(), token); err != nil {
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func panicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	WriteError(w, &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
