package types

import "errors"

// Sentinel errors shared across handlers, services and repositories.
// Repositories translate driver errors into these; handlers translate
// them into HTTP status codes or redirects.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("requested item not found")

	// ErrDuplicateCredential is returned when a sign-up collides with an
	// existing email or username. The message stays generic on purpose so
	// callers cannot probe which accounts exist.
	ErrDuplicateCredential = errors.New("email or username unavailable")

	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password". The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means no resolvable session backs the request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrUnauthorized means the session is valid but the user lacks the
	// required role.
	ErrUnauthorized = errors.New("action forbidden")

	// ErrStoreUnavailable means the backing store could not be reached
	// within the configured deadline.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrBadRequest flags input that failed validation.
	ErrBadRequest = errors.New("invalid input")
)
