package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/Veraticus/budgetbuddy/internal/session"
	"github.com/spf13/cobra"
)

func sessionCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear conversation state",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "user id (default: engine.default_user_id)")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the pending clarification and recent history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShowSession(cmd.Context(), cmd.OutOrStdout(), settings, userID)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResetSession(cmd.Context(), cmd.OutOrStdout(), settings, userID)
		},
	})

	return cmd
}

func withSessions(ctx context.Context, s config.Settings, fn func(*session.Manager) error) error {
	store, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(session.NewManager(store, s.Engine.MaxHistory, slog.Default()))
}

func sessionUser(s config.Settings, userID string) string {
	if userID == "" {
		return s.Engine.DefaultUserID
	}
	return userID
}

func runShowSession(ctx context.Context, out io.Writer, s config.Settings, userID string) error {
	userID = sessionUser(s, userID)
	return withSessions(ctx, s, func(m *session.Manager) error {
		state, err := m.Load(ctx, userID)
		if err != nil {
			return err
		}
		return cli.WriteSession(out, userID, state)
	})
}

func runResetSession(ctx context.Context, out io.Writer, s config.Settings, userID string) error {
	userID = sessionUser(s, userID)
	return withSessions(ctx, s, func(m *session.Manager) error {
		if err := m.Reset(ctx, userID); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, cli.FormatSuccess("Session cleared for "+userID))
		return err
	})
}
