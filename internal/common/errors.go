// Package common defines shared constants and sentinel errors used across
// the server, the HTTP gateway and the client. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Error kinds surfaced by services. Handlers map each kind to exactly
	// one transport status.
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("incorrect credentials")
	ErrInternal     = errors.New("internal error")

	// Token errors.
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTokenExpired     = errors.New("token expired")

	// Model serving errors.
	ErrModelNotReady   = errors.New("model not ready")
	ErrInferenceFailed = errors.New("inference failed")
)

// FieldError is a validation or conflict error tied to a single input field.
// It unwraps to its Kind, so errors.Is(err, ErrConflict) works as expected.
type FieldError struct {
	Kind    error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// NewValidationError returns a FieldError of kind ErrValidation.
func NewValidationError(field, message string) *FieldError {
	return &FieldError{Kind: ErrValidation, Field: field, Message: message}
}

// NewConflictError returns a FieldError of kind ErrConflict.
func NewConflictError(field, message string) *FieldError {
	return &FieldError{Kind: ErrConflict, Field: field, Message: message}
}
