package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrInvalidID  = errors.New("invalid id")
	ErrEmailTaken = errors.New("email already registered")

	// Service-level errors.
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSelfDelete         = errors.New("cannot delete own account")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
)

// Error attaches a caller-facing message to one of the sentinel kinds above.
// errors.Is(err, Kind) keeps working through it.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// WithMessage wraps kind with a message that is safe to show to clients.
func WithMessage(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects field-level failures of one request payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
