// Package validation applies the domain rules that turn a draft into a
// persistable expense or a clarification request.
package validation

import (
	"log/slog"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/Veraticus/budgetbuddy/internal/prompts"
)

// Validator checks drafts against the expense rules.
type Validator struct {
	prompts *prompts.Set
	logger  *slog.Logger
}

// New creates a validator rendering its messages from set.
// A nil set uses the embedded templates.
func New(set *prompts.Set, logger *slog.Logger) *Validator {
	if set == nil {
		set = prompts.MustDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{prompts: set, logger: logger}
}

// Validate checks the amount first, then the category. Exactly one of the two
// return values is meaningful: a clarification request is non-nil only when
// validation failed.
//
// RecordedAt is suppliedAt when given, otherwise runStart.
func (v *Validator) Validate(
	draft model.ExpenseDraft,
	resolved model.ResolvedCategory,
	suppliedAt *time.Time,
	runStart time.Time,
) (model.ValidatedExpense, *model.ClarificationRequest) {
	if !draft.HasAmount() || draft.Amount.IsNegative() {
		v.logger.Debug("amount rejected",
			"amount", draft.AmountCandidate(),
			"present", draft.HasAmount())
		return model.ValidatedExpense{}, v.clarifyAmount(draft)
	}

	if !resolved.Resolved() {
		v.logger.Debug("category unresolved",
			"category", draft.Category,
			"options", len(resolved.Options))
		return model.ValidatedExpense{}, v.clarifyCategory(draft, resolved)
	}

	recordedAt := runStart
	if suppliedAt != nil && !suppliedAt.IsZero() {
		recordedAt = *suppliedAt
	}

	expense, err := model.NewValidatedExpense(*draft.Amount, resolved.Canonical, draft.Note, recordedAt)
	if err != nil {
		// Only reachable with a zero runStart.
		v.logger.Warn("failed to build validated expense", "error", err)
		return model.ValidatedExpense{}, v.clarifyAmount(draft)
	}

	return expense, nil
}

func (v *Validator) clarifyAmount(draft model.ExpenseDraft) *model.ClarificationRequest {
	subject := draft.Category
	if subject == "" {
		subject = draft.RawText
	}
	msg := v.render(prompts.ClarifyAmount, prompts.ClarifyData{
		Text:     subject,
		Amount:   draft.AmountCandidate(),
		Category: draft.Category,
	}, "What amount did you want to add?")

	return &model.ClarificationRequest{
		Reason:  model.ReasonInvalidAmount,
		Message: msg,
		Options: []string{},
	}
}

func (v *Validator) clarifyCategory(draft model.ExpenseDraft, resolved model.ResolvedCategory) *model.ClarificationRequest {
	options := append([]string{}, resolved.Options...)
	msg := v.render(prompts.ClarifyCategory, prompts.ClarifyData{
		Text:     draft.RawText,
		Amount:   draft.AmountCandidate(),
		Category: draft.Category,
		Options:  options,
	}, "Which category should this go in?")

	return &model.ClarificationRequest{
		Reason:  model.ReasonAmbiguousCategory,
		Message: msg,
		Options: options,
	}
}

func (v *Validator) render(name string, data any, fallback string) string {
	msg, err := v.prompts.Render(name, data)
	if err != nil || msg == "" {
		v.logger.Warn("failed to render clarification message", "template", name, "error", err)
		return fallback
	}
	return msg
}
