// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")

	// Text-generation errors.
	ErrServiceUnavailable  = errors.New("text-generation service unavailable")
	ErrUnparseableResponse = errors.New("no expense data found in response")

	// Request errors.
	ErrEmptyText = errors.New("expense text is required")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Unavailable wraps err so that it matches ErrServiceUnavailable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}

// Persistence wraps err so that it matches ErrPersistence.
func Persistence(op string, err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
