package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/shopspring/decimal"
)

// InsertExpense stores a validated expense and returns its assigned ID.
func (s *SQLiteStorage) InsertExpense(ctx context.Context, expense model.ValidatedExpense) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateExpense(expense); err != nil {
		return 0, err
	}

	var note sql.NullString
	if expense.Note() != "" {
		note = sql.NullString{String: expense.Note(), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (amount, category, note, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		expense.Amount().StringFixed(model.CurrencyPlaces),
		expense.Category(),
		note,
		formatTime(expense.RecordedAt()),
		formatTime(s.now().UTC()),
	)
	if err != nil {
		return 0, common.Persistence("insert expense", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, common.Persistence("read expense id", err)
	}

	s.logger.Debug("Inserted expense",
		"id", id,
		"amount", expense.FormattedAmount(),
		"category", expense.Category())

	return id, nil
}

// GetExpense retrieves an expense by ID. Missing rows return common.ErrNotFound.
func (s *SQLiteStorage) GetExpense(ctx context.Context, id int64) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIdentity, id)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, amount, category, note, recorded_at, created_at
		FROM expenses
		WHERE id = ?
	`, id)

	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.Persistence("get expense", err)
	}
	return expense, nil
}

// RecentExpenses returns up to limit expenses, newest first.
func (s *SQLiteStorage) RecentExpenses(ctx context.Context, limit int) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, category, note, recorded_at, created_at
		FROM expenses
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, common.Persistence("list expenses", err)
	}
	defer func() { _ = rows.Close() }()

	expenses := []model.Expense{}
	for rows.Next() {
		expense, scanErr := scanExpense(rows)
		if scanErr != nil {
			return nil, common.Persistence("scan expense", scanErr)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Persistence("list expenses", err)
	}

	return expenses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*model.Expense, error) {
	var (
		expense    model.Expense
		amount     decimal.Decimal
		note       sql.NullString
		recordedAt string
		createdAt  string
	)

	if err := row.Scan(&expense.ID, &amount, &expense.Category, &note, &recordedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if expense.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, err
	}
	if expense.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	expense.Amount = amount
	expense.Note = note.String

	return &expense, nil
}
