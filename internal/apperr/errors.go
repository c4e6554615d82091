// Package apperr holds sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrGestureRequired is returned when the audio pipeline would be built
	// outside of a user interaction.
	ErrGestureRequired = errors.New("user gesture required")
	ErrNoSource        = errors.New("no source loaded")
)
