// Package server exposes the expense workflow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/gin-gonic/gin"
)

// Processor runs one expense request.
type Processor interface {
	Process(ctx context.Context, req engine.Request) engine.Result
}

// ExpenseLister returns recently saved expenses.
type ExpenseLister interface {
	RecentExpenses(ctx context.Context, limit int) ([]model.Expense, error)
}

// Config is the dependency bag passed to New.
type Config struct {
	Processor       Processor
	Expenses        ExpenseLister
	Logger          *slog.Logger
	Addr            string
	Mode            string
	DefaultUserID   string
	Version         string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       int
	RateBurst       int
}

// Server serves the HTTP API.
type Server struct {
	gin    *gin.Engine
	logger *slog.Logger
	cfg    Config
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "me"
	}

	gin.SetMode(cfg.Mode)

	srv := &Server{
		gin:    gin.New(),
		logger: cfg.Logger.With("component", "server"),
		cfg:    cfg,
	}
	srv.mapHandlers()

	return srv, nil
}

func validate(cfg Config) error {
	if cfg.Processor == nil {
		return errors.New("processor is required")
	}
	if cfg.Expenses == nil {
		return errors.New("expense lister is required")
	}
	if cfg.Mode == "" {
		return errors.New("mode is required")
	}
	if cfg.Addr == "" {
		return errors.New("addr is required")
	}
	return nil
}

func (srv *Server) mapHandlers() {
	srv.gin.Use(gin.Recovery())
	srv.gin.Use(requestID())
	srv.gin.Use(requestLogger(srv.logger))
	srv.gin.Use(cors(srv.cfg.AllowedOrigins))

	srv.gin.GET("/health", srv.healthCheck)

	api := srv.gin.Group("/api")
	if srv.cfg.RateLimit > 0 {
		api.Use(rateLimit(newClientLimiter(srv.cfg.RateLimit, srv.cfg.RateBurst)))
	}
	api.POST("/expenses", srv.createExpense)
	api.GET("/expenses", srv.listExpenses)
	api.OPTIONS("/expenses", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

// Handler returns the router, for tests and embedding.
func (srv *Server) Handler() http.Handler {
	return srv.gin
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              srv.cfg.Addr,
		Handler:           srv.gin,
		ReadHeaderTimeout: srv.cfg.ReadTimeout,
		ReadTimeout:       srv.cfg.ReadTimeout,
		WriteTimeout:      srv.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("HTTP server listening", "addr", srv.cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := srv.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	srv.logger.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
