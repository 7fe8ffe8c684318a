package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/spf13/cobra"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("expense not recorded")

func addCmd() *cobra.Command {
	var (
		userID    string
		timestamp string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Record an expense described in plain language",
		Long: `Parse a sentence such as "add thirty dollars for groceries" and store the
expense. When the amount or category is unclear a follow-up question is printed
instead and nothing is stored.`,
		Example: `  budgetbuddy add add thirty dollars for groceries
  budgetbuddy add --timestamp 2025-10-22T00:00:00Z 12.50 lunch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := parseTimestamp(timestamp)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return runAdd(ctx, cmd.OutOrStdout(), a, engine.Request{
				Text:      strings.Join(args, " "),
				UserID:    userID,
				Timestamp: ts,
			}, asJSON)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (default: engine.default_user_id)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "ISO-8601 time to record the expense at")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func runAdd(ctx context.Context, out io.Writer, a *app, req engine.Request, asJSON bool) error {
	req.UserID = a.userID(req.UserID)
	return printResult(out, a.engine.Process(ctx, req), asJSON)
}

func printResult(out io.Writer, result engine.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else if _, err := fmt.Fprintln(out, cli.FormatResult(result)); err != nil {
		return err
	}

	if result.Status == model.StatusError {
		return errReported
	}
	return nil
}

func parseTimestamp(value string) (*time.Time, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	ts, err := common.ParseTimestamp(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --timestamp %q: expected ISO-8601 like 2025-10-22 or 2025-10-22T00:00:00Z", value)
	}
	return &ts, nil
}
