package model

import "errors"

// Common errors used across the application
var (
	// Auth errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrSessionExpired     = errors.New("session expired")

	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")

	// Progress errors
	ErrInvalidProgress = errors.New("progress percentage must be between 0 and 100")

	// Activity errors
	ErrInvalidActivityType = errors.New("invalid activity type")

	// Badge errors
	ErrBadgeNotFound       = errors.New("badge not found")
	ErrBadgeAlreadyAwarded = errors.New("badge already awarded")

	// Exercise errors
	ErrExerciseNotFound = errors.New("exercise not found")
)
