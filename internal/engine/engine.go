// Package engine orchestrates a single expense request: it extracts, resolves,
// validates and persists, or returns a clarification.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/Veraticus/budgetbuddy/internal/parser"
	"github.com/Veraticus/budgetbuddy/internal/prompts"
	"github.com/Veraticus/budgetbuddy/internal/session"
)

// User-facing error messages.
const (
	msgEmptyText   = "Please tell me what you spent, e.g. 'add 30 dollars for groceries'."
	msgUnavailable = "The expense assistant is unavailable right now. Please try again shortly."
	msgPersistence = "Something went wrong saving your expense. Please try again."
	msgInternal    = "Something went wrong processing that request."
)

// Request is one inbound utterance.
type Request struct {
	// Timestamp, when set, becomes the expense's recorded time verbatim.
	Timestamp *time.Time
	Text      string
	UserID    string
}

// Config holds engine tuning.
type Config struct {
	// Now is the clock used for run start times. Defaults to time.Now.
	Now             func() time.Time
	GenerateTimeout time.Duration
	StoreTimeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		GenerateTimeout: 30 * time.Second,
		StoreTimeout:    5 * time.Second,
		Now:             time.Now,
	}
}

// Dependencies are the collaborators the engine drives.
type Dependencies struct {
	Extractor Extractor
	Resolver  CategoryResolver
	Validator Validator
	Sessions  SessionManager
	Expenses  ExpenseWriter
	Prompts   *prompts.Set
	Logger    *slog.Logger
}

// Engine runs the expense workflow. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	deps   Dependencies
	config Config
}

// New creates an engine with the default configuration.
func New(deps Dependencies) *Engine {
	return NewWithConfig(deps, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(deps Dependencies, config Config) *Engine {
	if deps.Prompts == nil {
		deps.Prompts = prompts.MustDefault()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "engine")
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Engine{deps: deps, config: config}
}

// run carries the per-request values through the workflow.
type run struct {
	start    time.Time
	logger   *slog.Logger
	machine  *machine
	req      Request
	state    model.SessionState
	draft    model.ExpenseDraft
	resolved model.ResolvedCategory
}

// Process drives req to a terminal state and returns the outbound result.
// It never panics on bad input and always returns one of the three result shapes.
func (e *Engine) Process(ctx context.Context, req Request) Result {
	req.UserID = session.UserID(req.UserID)
	req.Text = strings.TrimSpace(req.Text)

	r := &run{
		req:    req,
		start:  e.config.Now(),
		logger: e.deps.Logger.With("user_id", req.UserID),
	}
	r.machine = newMachine(r.logger)

	if req.Text == "" {
		return e.fail(ctx, r, common.ErrEmptyText, msgEmptyText, false)
	}

	state, err := e.loadSession(ctx, req.UserID)
	if err != nil {
		return e.fail(ctx, r, err, msgPersistence, false)
	}
	r.state = state

	return e.parse(ctx, r)
}

func (e *Engine) parse(ctx context.Context, r *run) Result {
	if err := r.machine.to(StateParsing); err != nil {
		return e.fail(ctx, r, err, msgInternal, true)
	}

	raw, err := e.generate(ctx, r.req.Text)
	if err != nil {
		return e.fail(ctx, r, common.Unavailable(err), msgUnavailable, true)
	}

	draft, strategy, err := parser.ExtractWithStrategy(raw)
	if err != nil {
		r.logger.Info("no expense data in response", "response_length", len(raw))
		return e.clarify(ctx, r, &model.ClarificationRequest{
			Reason:  model.ReasonUnparseableResponse,
			Message: e.message(prompts.Unparseable, nil, "I couldn't understand that. Please try again."),
			Options: []string{},
		})
	}
	draft.RawText = r.req.Text
	r.draft = draft
	r.resolved = e.deps.Resolver.Resolve(draft.Category)

	r.logger.Debug("draft extracted",
		"strategy", strategy,
		"amount", draft.AmountCandidate(),
		"category", draft.Category,
		"match", r.resolved.Kind)

	return e.validate(ctx, r)
}

func (e *Engine) validate(ctx context.Context, r *run) Result {
	if err := r.machine.to(StateValidating); err != nil {
		return e.fail(ctx, r, err, msgInternal, true)
	}

	expense, clarification := e.deps.Validator.Validate(r.draft, r.resolved, r.req.Timestamp, r.start)
	if clarification != nil {
		return e.clarify(ctx, r, clarification)
	}

	return e.save(ctx, r, expense)
}

func (e *Engine) save(ctx context.Context, r *run, expense model.ValidatedExpense) Result {
	if err := r.machine.to(StateSaving); err != nil {
		return e.fail(ctx, r, err, msgInternal, true)
	}

	storeCtx, cancel := e.storeContext(ctx)
	id, err := e.deps.Expenses.InsertExpense(storeCtx, expense)
	cancel()
	if err != nil {
		return e.fail(ctx, r, common.Persistence("insert expense", err), msgPersistence, true)
	}

	amount := expense.Amount().StringFixed(model.CurrencyPlaces)
	r.state.Pending = nil
	r.state.Append(model.HistoryEntry{
		At:        r.start,
		Text:      r.req.Text,
		Status:    model.StatusSuccess,
		Amount:    amount,
		Category:  expense.Category(),
		ExpenseID: id,
	})

	if err := e.saveSession(ctx, r); err != nil {
		r.logger.Error("expense saved but session update failed", "expense_id", id, "error", err)
		return e.terminal(r, StateFailed, Result{
			Status:  model.StatusError,
			Message: msgPersistence,
			Err:     err,
		})
	}

	r.logger.Info("expense saved",
		"expense_id", id,
		"amount", amount,
		"category", expense.Category())

	return e.terminal(r, StateSuccess, Result{
		Status: model.StatusSuccess,
		Message: e.message(prompts.Saved, prompts.SavedData{
			Amount:   expense.FormattedAmount(),
			Category: expense.Category(),
		}, "Expense saved."),
		ExpenseID: id,
		Amount:    amount,
		Category:  expense.Category(),
	})
}

func (e *Engine) clarify(ctx context.Context, r *run, c *model.ClarificationRequest) Result {
	if err := r.machine.to(StateClarifying); err != nil {
		return e.fail(ctx, r, err, msgInternal, true)
	}

	category := r.draft.Category
	if r.resolved.Resolved() {
		category = r.resolved.Canonical
	}
	options := append([]string{}, c.Options...)

	r.state.Pending = &model.PendingClarification{
		OriginalText:      r.req.Text,
		AmountCandidate:   r.draft.AmountCandidate(),
		CategoryCandidate: category,
		Reason:            c.Reason,
		Options:           options,
	}
	r.state.Append(model.HistoryEntry{
		At:       r.start,
		Text:     r.req.Text,
		Status:   model.StatusClarification,
		Amount:   r.draft.AmountCandidate(),
		Category: category,
		Reason:   c.Reason,
	})

	if err := e.saveSession(ctx, r); err != nil {
		return e.terminal(r, StateFailed, Result{
			Status:  model.StatusError,
			Message: msgPersistence,
			Err:     err,
		})
	}

	r.logger.Info("clarification needed", "reason", c.Reason, "options", len(options))

	return e.terminal(r, StateClarificationReturned, Result{
		Status:  model.StatusClarification,
		Message: c.Message,
		Reason:  c.Reason,
		Options: options,
	})
}

// fail ends the run in StateFailed. When persist is set the session, which
// was loaded successfully, records the failure.
func (e *Engine) fail(ctx context.Context, r *run, cause error, message string, persist bool) Result {
	r.logger.Warn("request failed", "state", r.machine.state, "error", cause)

	if persist {
		r.state.Append(model.HistoryEntry{
			At:     r.start,
			Text:   r.req.Text,
			Status: model.StatusError,
		})
		if err := e.saveSession(ctx, r); err != nil {
			r.logger.Error("failed to record failure in session", "error", err)
		}
	}

	return e.terminal(r, StateFailed, Result{
		Status:  model.StatusError,
		Message: message,
		Err:     cause,
	})
}

// terminal moves to the final state and stamps the result with it.
func (e *Engine) terminal(r *run, final State, result Result) Result {
	if err := r.machine.to(final); err != nil {
		r.logger.Error("workflow bug", "error", err)
		r.machine.state = StateFailed
		r.machine.trace = append(r.machine.trace, StateFailed)
		if result.Status != model.StatusError {
			result = Result{Status: model.StatusError, Message: msgInternal, Err: err}
		}
	}
	result.State = r.machine.state
	result.Trace = r.machine.trace
	return result
}

func (e *Engine) generate(ctx context.Context, text string) (string, error) {
	if e.config.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.GenerateTimeout)
		defer cancel()
	}
	return e.deps.Extractor.Extract(ctx, text)
}

func (e *Engine) loadSession(ctx context.Context, userID string) (model.SessionState, error) {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()
	return e.deps.Sessions.Load(storeCtx, userID)
}

func (e *Engine) saveSession(ctx context.Context, r *run) error {
	storeCtx, cancel := e.storeContext(ctx)
	defer cancel()
	return e.deps.Sessions.Save(storeCtx, r.req.UserID, r.state)
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.StoreTimeout > 0 {
		return context.WithTimeout(ctx, e.config.StoreTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) message(name string, data any, fallback string) string {
	msg, err := e.deps.Prompts.Render(name, data)
	if err != nil || msg == "" {
		e.deps.Logger.Warn("failed to render message", "template", name, "error", err)
		return fallback
	}
	return msg
}
