// Package apperr defines the failure taxonomy shared by the store, the
// handlers and the client: authorization, validation, not-found and
// transient store failures.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuthorization = errors.New("authorization failed")
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrStore         = errors.New("store unavailable")
)

// Error carries a caller-facing message alongside its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns a validation failure with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found failure with a formatted message.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Authorization returns an authorization failure with the given message.
func Authorization(message string) error {
	return &Error{Kind: ErrAuthorization, Message: message}
}

// Store wraps an underlying driver error as a transient store failure. The
// driver error stays reachable through errors.Is and errors.As.
func Store(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Message returns the caller-facing text of err. Store failures and unknown
// errors collapse to a generic message so driver details never leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrAuthorization):
		return err.Error()
	default:
		return "internal server error"
	}
}
