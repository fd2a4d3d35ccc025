package service

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced at the HTTP boundary. Everything the services return
// matches exactly one of them under errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("access denied")
	ErrNotFound           = errors.New("not found")
	ErrTransient          = errors.New("temporarily unavailable")
)

// ValidationError is a malformed-input failure whose message is safe to show
// to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrNameRequired      = &ValidationError{Message: "name is required"}
	ErrNameTooLong       = &ValidationError{Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	ErrEmailRequired     = &ValidationError{Message: "email is required"}
	ErrEmailTooLong      = &ValidationError{Message: fmt.Sprintf("email must be at most %d characters", MaxEmailLength)}
	ErrEmailInvalid      = &ValidationError{Message: "email is not a valid address"}
	ErrPasswordTooShort  = &ValidationError{Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	ErrRoleInvalid       = &ValidationError{Message: "role must be either user or admin"}
	ErrCredentialsFields = &ValidationError{Message: "email and password are required"}
	ErrTitleRequired     = &ValidationError{Message: "task title is required"}
	ErrTitleTooLong      = &ValidationError{Message: fmt.Sprintf("task title must be at most %d characters", MaxTitleLength)}
	ErrStatusInvalid     = &ValidationError{Message: "status must be one of pending, in-progress, completed"}
)

// transient wraps an infrastructure failure so callers can tell "can't tell"
// from "denied". The cause stays in the chain for logging.
func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}
