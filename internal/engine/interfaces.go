package engine

import (
	"context"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/model"
)

// Extractor asks the text-generation service to describe an utterance.
type Extractor interface {
	Extract(ctx context.Context, utterance string) (string, error)
}

// CategoryResolver maps free-text categories onto the canonical set.
type CategoryResolver interface {
	Resolve(candidate string) model.ResolvedCategory
}

// Validator applies the expense rules to a draft.
type Validator interface {
	Validate(draft model.ExpenseDraft, resolved model.ResolvedCategory, suppliedAt *time.Time, runStart time.Time) (model.ValidatedExpense, *model.ClarificationRequest)
}

// SessionManager loads and saves per-user conversation state. Its errors
// already match common.ErrPersistence.
type SessionManager interface {
	Load(ctx context.Context, userID string) (model.SessionState, error)
	Save(ctx context.Context, userID string, state model.SessionState) error
}

// ExpenseWriter persists validated expenses.
type ExpenseWriter interface {
	InsertExpense(ctx context.Context, expense model.ValidatedExpense) (int64, error)
}
