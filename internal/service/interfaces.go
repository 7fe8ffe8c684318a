// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/budgetbuddy/internal/model"
)

// ExpenseStore persists validated expenses.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, expense model.ValidatedExpense) (int64, error)
	GetExpense(ctx context.Context, id int64) (*model.Expense, error)
	RecentExpenses(ctx context.Context, limit int) ([]model.Expense, error)
}

// SessionStore persists per-user conversation state.
type SessionStore interface {
	// GetSessionState reports found=false, with no error, when the user has no state.
	GetSessionState(ctx context.Context, userID string) (model.SessionState, bool, error)
	PutSessionState(ctx context.Context, userID string, state model.SessionState) error
	DeleteSessionState(ctx context.Context, userID string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	ExpenseStore
	SessionStore

	// Maintenance
	Migrate(ctx context.Context) error
	Close() error
}
