package errors

import (
	"errors"
)

// Common error types
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabaseError = errors.New("database error")
	ErrNotFound      = errors.New("not found")
	ErrInternal      = errors.New("internal error")
)

// Moderation workflow taxonomy. Handlers branch on these with errors.Is.
var (
	// ErrUserInput marks reporter input the intake flow did not recognize; the reporter is re-prompted.
	ErrUserInput = errors.New("unrecognized user input")
	// ErrResolution marks a reference that points at a guild, channel or message that does not exist.
	ErrResolution = errors.New("reference could not be resolved")
	// ErrCollaboratorUnavailable marks a failed or timed out call to the scorer, the store or the platform.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrInvariant marks a state the code never expects to reach.
	ErrInvariant = errors.New("invariant violated")
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}
