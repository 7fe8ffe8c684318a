package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/spf13/cobra"
)

func expensesCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "List recorded expenses",
		Long:  `Show the most recently recorded expenses, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListExpenses(cmd.Context(), cmd.OutOrStdout(), settings, limit, asJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of expenses to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print expenses as JSON")

	cmd.AddCommand(showExpenseCmd())
	return cmd
}

func showExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid expense id %q", args[0])
			}
			return runShowExpense(cmd.Context(), cmd.OutOrStdout(), settings, id)
		},
	}
}

func runListExpenses(ctx context.Context, out io.Writer, s config.Settings, limit int, asJSON bool) error {
	store, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expenses, err := store.RecentExpenses(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list expenses: %w", err)
	}

	if asJSON {
		return writeJSON(out, expenses)
	}
	return cli.WriteExpenses(out, expenses)
}

func runShowExpense(ctx context.Context, out io.Writer, s config.Settings, id int64) error {
	store, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	expense, err := store.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get expense %d: %w", id, err)
	}

	content := fmt.Sprintf("Amount:    %s\nCategory:  %s\nRecorded:  %s\nCreated:   %s",
		model.FormatCurrency(expense.Amount),
		expense.Category,
		expense.RecordedAt.Format("2006-01-02 15:04:05 -0700"),
		expense.CreatedAt.Format("2006-01-02 15:04:05 -0700"))
	if expense.Note != "" {
		content += "\nNote:      " + expense.Note
	}

	_, err = fmt.Fprintln(out, cli.RenderBox(fmt.Sprintf("Expense #%d", expense.ID), content))
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
