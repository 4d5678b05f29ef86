package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. The message never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrValidation marks recoverable, form-level input errors.
	ErrValidation = errors.New("validation failed")
	// ErrSelfDeletion occurs when the signed-in identity tries to remove itself.
	ErrSelfDeletion = errors.New("cannot delete the signed-in user")
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UserSafeMessage returns a message suitable for API responses.
func UserSafeMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	case errors.Is(err, ErrSelfDeletion):
		return ErrSelfDeletion.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	default:
		return "internal error"
	}
}
