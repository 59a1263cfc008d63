package entities

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDepositNotFound = errors.New("deposit not found")

	ErrUserInactive            = errors.New("user account is inactive")
	ErrDepositNotManual        = errors.New("deposit is not a manual admin deposit")
	ErrDepositAlreadyCancelled = errors.New("deposit is already cancelled")
	ErrNonPositiveAmount       = errors.New("amount must be positive")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
