// Package model defines the core domain types for expense capture.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision amounts are stored with.
const CurrencyPlaces = 2

// ExpenseDraft is the unvalidated data recovered from a text-generation response.
type ExpenseDraft struct {
	// Amount is nil when the response carried no numeric amount.
	Amount *decimal.Decimal
	// AmountText keeps a present but non-numeric amount token (e.g. "thirty").
	AmountText string
	RawText    string
	Category   string
	Note       string
}

// HasAmount reports whether the draft carries a numeric amount.
func (d ExpenseDraft) HasAmount() bool {
	return d.Amount != nil
}

// AmountCandidate renders whatever amount the draft carried, numeric or not.
func (d ExpenseDraft) AmountCandidate() string {
	if d.Amount != nil {
		return d.Amount.String()
	}
	return d.AmountText
}

// Errors returned when constructing a ValidatedExpense.
var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrMissingCategory = errors.New("category is required")
	ErrMissingTime     = errors.New("recorded time is required")
)

// ValidatedExpense is an expense that passed domain validation and may be persisted.
// Its fields are unexported so that a value, once built, cannot change.
type ValidatedExpense struct {
	recordedAt time.Time
	amount     decimal.Decimal
	category   string
	note       string
}

// NewValidatedExpense builds a ValidatedExpense, rounding amount to currency precision.
func NewValidatedExpense(amount decimal.Decimal, category, note string, recordedAt time.Time) (ValidatedExpense, error) {
	if amount.IsNegative() {
		return ValidatedExpense{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if category == "" {
		return ValidatedExpense{}, ErrMissingCategory
	}
	if recordedAt.IsZero() {
		return ValidatedExpense{}, ErrMissingTime
	}

	return ValidatedExpense{
		amount:     amount.Round(CurrencyPlaces),
		category:   category,
		note:       note,
		recordedAt: recordedAt,
	}, nil
}

// Amount returns the amount rounded to currency precision.
func (e ValidatedExpense) Amount() decimal.Decimal { return e.amount }

// Category returns the canonical category.
func (e ValidatedExpense) Category() string { return e.category }

// Note returns the optional note.
func (e ValidatedExpense) Note() string { return e.note }

// RecordedAt returns when the expense happened.
func (e ValidatedExpense) RecordedAt() time.Time { return e.recordedAt }

// FormattedAmount renders the amount as dollars, e.g. "$30.00".
func (e ValidatedExpense) FormattedAmount() string {
	return FormatCurrency(e.amount)
}

// Expense is a persisted expense record.
type Expense struct {
	RecordedAt time.Time       `json:"recorded_at"`
	CreatedAt  time.Time       `json:"created_at"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category"`
	Note       string          `json:"note,omitempty"`
	ID         int64           `json:"id"`
}

// FormatCurrency renders an amount with two decimals and a dollar sign.
func FormatCurrency(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Abs().StringFixed(CurrencyPlaces)
	}
	return "$" + amount.StringFixed(CurrencyPlaces)
}
