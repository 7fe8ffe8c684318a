// Package storage provides the SQLite persistence layer for expenses and sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrInvalidExpense  = errors.New("invalid expense")
	ErrInvalidLimit    = errors.New("limit must be positive")
	ErrInvalidIdentity = errors.New("id must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateExpense rejects the zero ValidatedExpense, which the validator never produces.
func validateExpense(expense model.ValidatedExpense) error {
	if strings.TrimSpace(expense.Category()) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidExpense)
	}
	if expense.RecordedAt().IsZero() {
		return fmt.Errorf("%w: missing recorded time", ErrInvalidExpense)
	}
	if expense.Amount().IsNegative() {
		return fmt.Errorf("%w: negative amount", ErrInvalidExpense)
	}
	return nil
}
