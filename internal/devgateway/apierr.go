package devgateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mathmaster/mathmaster-go/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeWeakPassword        = "WEAK_PASSWORD"
	CodeProfileNotFound     = "PROFILE_NOT_FOUND"
	CodeProfileExists       = "PROFILE_EXISTS"
	CodeBadgeAlreadyAwarded = "BADGE_ALREADY_AWARDED"
	CodeInvalidProgress     = "INVALID_PROGRESS"
	CodeInvalidActivityType = "INVALID_ACTIVITY_TYPE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password is too short"}}
	case errors.Is(err, model.ErrEmailTaken):
		return &httpError{http.StatusConflict, APIError{CodeEmailTaken, "Email is already registered"}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, model.ErrSessionExpired):
		return &httpError{http.StatusUnauthorized, APIError{CodeSessionExpired, "Session has expired"}}
	case errors.Is(err, model.ErrNotAuthenticated):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
	case errors.Is(err, model.ErrProfileNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeProfileNotFound, "Profile not found"}}
	case errors.Is(err, model.ErrProfileExists):
		return &httpError{http.StatusConflict, APIError{CodeProfileExists, "Profile already exists"}}
	case errors.Is(err, model.ErrBadgeAlreadyAwarded):
		return &httpError{http.StatusConflict, APIError{CodeBadgeAlreadyAwarded, "Badge already awarded"}}
	case errors.Is(err, model.ErrInvalidProgress):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidProgress, "Progress percentage out of range"}}
	case errors.Is(err, model.ErrInvalidActivityType):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidActivityType, "Unknown activity type"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}
