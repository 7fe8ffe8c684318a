package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/budgetbuddy/internal/category"
	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/llm"
	"github.com/Veraticus/budgetbuddy/internal/prompts"
	"github.com/Veraticus/budgetbuddy/internal/session"
	"github.com/Veraticus/budgetbuddy/internal/storage"
	"github.com/Veraticus/budgetbuddy/internal/validation"
)

// app is the fully wired expense workflow.
type app struct {
	store    *storage.SQLiteStorage
	client   llm.Client
	sessions *session.Manager
	resolver *category.Resolver
	engine   *engine.Engine
	settings config.Settings
}

// openStore opens the configured database and brings its schema up to date.
func openStore(ctx context.Context, s config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(s.Database.Path, storage.WithLogger(slog.Default()))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newApp wires the workflow against the configured text-generation provider.
func newApp(ctx context.Context, s config.Settings) (*app, error) {
	client, err := llm.NewClient(ctx, s.LLMConfig())
	if errors.Is(err, common.ErrMissingConfig) {
		return nil, common.NewUserError(
			fmt.Sprintf("No API key for %s. Set llm.api_key in the config file or export %s_LLM_API_KEY.", s.LLM.Provider, config.EnvPrefix),
			err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	a, err := buildApp(ctx, s, client)
	if err != nil {
		_ = llm.Close(client)
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, s config.Settings, client llm.Client) (*app, error) {
	logger := slog.Default()

	set, err := prompts.New(s.Prompts)
	if err != nil {
		return nil, err
	}
	resolver, err := category.NewResolver(s.ResolverConfig())
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, s)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(store, s.Engine.MaxHistory, logger)
	eng := engine.NewWithConfig(engine.Dependencies{
		Extractor: llm.NewExtractor(client, set, resolver.Categories(), logger),
		Resolver:  resolver,
		Validator: validation.New(set, logger),
		Sessions:  sessions,
		Expenses:  store,
		Prompts:   set,
		Logger:    logger,
	}, engine.Config{
		GenerateTimeout: s.Engine.GenerateTimeout,
		StoreTimeout:    s.Engine.StoreTimeout,
	})

	return &app{
		settings: s,
		store:    store,
		client:   client,
		sessions: sessions,
		resolver: resolver,
		engine:   eng,
	}, nil
}

// userID applies the configured default to a blank user id.
func (a *app) userID(id string) string {
	return sessionUser(a.settings, id)
}

func (a *app) Close() error {
	return errors.Join(llm.Close(a.client), a.store.Close())
}
