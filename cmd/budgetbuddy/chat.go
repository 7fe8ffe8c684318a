package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Log expenses interactively",
		Long: `Read one expense per line until "quit" or end of input. Follow-up questions are
answered by typing a new, complete sentence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a, userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (default: engine.default_user_id)")
	return cmd
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, a *app, userID string) error {
	reader := cli.NewLineReader(in)
	userID = a.userID(userID)

	fmt.Fprintln(out, cli.FormatTitle("budgetbuddy"))
	fmt.Fprintln(out, cli.SubtleStyle.Render(`Type an expense, or "quit" to leave.`))

	for {
		fmt.Fprint(out, cli.FormatPrompt("expense"))

		line, err := reader.ReadLine(ctx)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, cli.ErrInputCancelled):
			fmt.Fprintln(out)
			return nil
		case err != nil:
			return fmt.Errorf("failed to read input: %w", err)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		result := a.engine.Process(ctx, engine.Request{Text: line, UserID: userID})
		fmt.Fprintln(out, cli.FormatResult(result))
	}
}
