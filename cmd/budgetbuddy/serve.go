package main

import (
	"context"
	"log/slog"

	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/Veraticus/budgetbuddy/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the expense API over HTTP",
		Long: `Start the HTTP API:

  POST /api/expenses   {"text": "...", "timestamp": "...", "user_id": "..."}
  GET  /api/expenses   recent expenses, ?limit=N
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			srv, err := newServer(a, settings)
			if err != nil {
				return err
			}
			return runServer(ctx, srv, settings)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func newServer(a *app, s config.Settings) (*server.Server, error) {
	return server.New(server.Config{
		Processor:       a.engine,
		Expenses:        a.store,
		Logger:          slog.Default(),
		Addr:            s.Server.Addr,
		Mode:            s.Server.Mode,
		DefaultUserID:   s.Engine.DefaultUserID,
		Version:         version,
		AllowedOrigins:  s.Server.AllowedOrigins,
		ReadTimeout:     s.Server.ReadTimeout,
		WriteTimeout:    s.Server.WriteTimeout,
		ShutdownTimeout: s.Server.ShutdownTimeout,
		RateLimit:       s.Server.RateLimit,
		RateBurst:       s.Server.RateBurst,
	})
}

func runServer(ctx context.Context, srv *server.Server, s config.Settings) error {
	slog.Info("starting budgetbuddy API",
		"addr", s.Server.Addr,
		"provider", s.LLM.Provider,
		"database", s.Database.Path)
	return srv.Run(ctx)
}
