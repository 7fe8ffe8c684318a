package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/category"
	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/llm"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/Veraticus/budgetbuddy/internal/session"
	"github.com/Veraticus/budgetbuddy/internal/storage"
	"github.com/Veraticus/budgetbuddy/internal/testutil"
	"github.com/Veraticus/budgetbuddy/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	engine   *Engine
	client   *testutil.FakeClient
	store    *testutil.FlakyStorage
	db       *storage.SQLiteStorage
	sessions *session.Manager
}

func newHarness(t *testing.T, responses ...string) *harness {
	t.Helper()
	return newHarnessWithConfig(t, Config{Now: func() time.Time { return runStart }}, responses...)
}

func newHarnessWithConfig(t *testing.T, cfg Config, responses ...string) *harness {
	t.Helper()

	logger := common.DiscardLogger()
	db := testutil.SetupTestDB(t)
	store := testutil.NewFlakyStorage(db)
	client := testutil.NewFakeClient(responses...)

	resolver, err := category.NewResolver(category.Config{Categories: category.DefaultCategories})
	require.NoError(t, err)

	sessions := session.NewManager(store, 0, logger)
	eng := NewWithConfig(Dependencies{
		Extractor: llm.NewExtractor(client, nil, resolver.Categories(), logger),
		Resolver:  resolver,
		Validator: validation.New(nil, logger),
		Sessions:  sessions,
		Expenses:  store,
		Logger:    logger,
	}, cfg)

	return &harness{engine: eng, client: client, store: store, db: db, sessions: sessions}
}

func (h *harness) process(t *testing.T, text string) Result {
	t.Helper()
	return h.engine.Process(context.Background(), Request{Text: text})
}

func (h *harness) sessionState(t *testing.T) model.SessionState {
	t.Helper()
	state, err := h.sessions.Load(context.Background(), session.DefaultUserID)
	require.NoError(t, err)
	return state
}

func (h *harness) expenses(t *testing.T) []model.Expense {
	t.Helper()
	expenses, err := h.db.RecentExpenses(context.Background(), 100)
	require.NoError(t, err)
	return expenses
}

func TestProcess_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		response     string
		wantStatus   model.InteractionStatus
		wantState    State
		wantReason   model.ClarificationReason
		wantCategory string
		wantAmount   string
		wantOptions  []string
	}{
		{
			name:         "exact category",
			text:         "add thirty dollars for groceries",
			response:     `{"amount": 30, "category": "groceries"}`,
			wantStatus:   model.StatusSuccess,
			wantState:    StateSuccess,
			wantCategory: "groceries",
			wantAmount:   "30.00",
		},
		{
			name:         "typo resolves fuzzily",
			text:         "forty five dollars dinning",
			response:     `{"amount": 45, "category": "dinning"}`,
			wantStatus:   model.StatusSuccess,
			wantState:    StateSuccess,
			wantCategory: "dining",
			wantAmount:   "45.00",
		},
		{
			name:         "case-insensitive match in fenced block",
			text:         "12.5 on Health",
			response:     "Sure!\n```json\n{\"action\": \"add\", \"amount\": \"$12.50\", \"category\": \"Health\"}\n```",
			wantStatus:   model.StatusSuccess,
			wantState:    StateSuccess,
			wantCategory: "health",
			wantAmount:   "12.50",
		},
		{
			name:       "prose without JSON",
			text:       "what's the weather",
			response:   "I can only help with expenses.",
			wantStatus: model.StatusClarification,
			wantState:  StateClarificationReturned,
			wantReason: model.ReasonUnparseableResponse,
		},
		{
			name:       "negative amount",
			text:       "minus five for groceries",
			response:   `{"amount": -5, "category": "groceries"}`,
			wantStatus: model.StatusClarification,
			wantState:  StateClarificationReturned,
			wantReason: model.ReasonInvalidAmount,
		},
		{
			name:       "missing amount wins over bad category",
			text:       "some stuff",
			response:   `{"amount": null, "category": "stuff"}`,
			wantStatus: model.StatusClarification,
			wantState:  StateClarificationReturned,
			wantReason: model.ReasonInvalidAmount,
		},
		{
			name:        "unknown category",
			text:        "twenty on stuff",
			response:    `{"amount": 20, "category": "stuff"}`,
			wantStatus:  model.StatusClarification,
			wantState:   StateClarificationReturned,
			wantReason:  model.ReasonAmbiguousCategory,
			wantOptions: category.DefaultCategories,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.response)

			result := h.process(t, tt.text)

			assert.Equal(t, tt.wantStatus, result.Status, "message: %s err: %v", result.Message, result.Err)
			assert.Equal(t, tt.wantState, result.State)
			assert.NotEmpty(t, result.Message)

			expenses := h.expenses(t)
			state := h.sessionState(t)
			require.Len(t, state.History, 1)
			assert.Equal(t, tt.wantStatus, state.History[0].Status)

			if tt.wantStatus == model.StatusSuccess {
				require.Len(t, expenses, 1)
				assert.Equal(t, result.ExpenseID, expenses[0].ID)
				assert.Equal(t, tt.wantAmount, expenses[0].Amount.StringFixed(2))
				assert.Equal(t, tt.wantCategory, expenses[0].Category)
				assert.Equal(t, tt.wantAmount, result.Amount)
				assert.Equal(t, tt.wantCategory, result.Category)
				assert.True(t, expenses[0].RecordedAt.Equal(runStart))
				assert.Nil(t, state.Pending)
				assert.Equal(t, result.ExpenseID, state.History[0].ExpenseID)
				assert.Equal(t, []State{StateStart, StateParsing, StateValidating, StateSaving, StateSuccess}, result.Trace)
				return
			}

			assert.Empty(t, expenses)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.NotNil(t, result.Options)
			if tt.wantOptions != nil {
				assert.Equal(t, tt.wantOptions, result.Options)
			} else {
				assert.Empty(t, result.Options)
			}
			require.NotNil(t, state.Pending)
			assert.Equal(t, tt.text, state.Pending.OriginalText)
			assert.Equal(t, tt.wantReason, state.Pending.Reason)
			assert.Equal(t, tt.wantReason, state.History[0].Reason)
		})
	}
}

func TestProcess_SuccessMessage(t *testing.T) {
	h := newHarness(t, `{"amount": 30, "category": "groceries"}`)
	result := h.process(t, "add thirty dollars for groceries")
	assert.Equal(t, "$30.00 added to groceries", result.Message)
}

func TestProcess_MissingCategoryFilesUnderOther(t *testing.T) {
	h := newHarness(t, `{"amount": 12}`)

	result := h.process(t, "spent 12 dollars")
	require.Equal(t, model.StatusSuccess, result.Status, result.Message)
	assert.Equal(t, "12.00", result.Amount)
	assert.Equal(t, "other", result.Category)

	expenses := h.expenses(t)
	require.Len(t, expenses, 1)
	assert.Equal(t, "other", expenses[0].Category)
	assert.Nil(t, h.sessionState(t).Pending)
}

func TestProcess_ExtractionPromptIncludesCategories(t *testing.T) {
	h := newHarness(t, `{"amount": 1, "category": "other"}`)
	h.process(t, "one dollar misc")

	require.Len(t, h.client.Prompts, 1)
	assert.Contains(t, h.client.Prompts[0], "one dollar misc")
	assert.Contains(t, h.client.Prompts[0], "groceries, dining, entertainment")
}

func TestProcess_SuppliedTimestamp(t *testing.T) {
	h := newHarness(t, `{"amount": 9.99, "category": "shopping"}`)
	at := time.Date(2024, 2, 14, 18, 45, 0, 0, time.FixedZone("", 2*3600))

	result := h.engine.Process(context.Background(), Request{Text: "9.99 shopping", Timestamp: &at})
	require.Equal(t, model.StatusSuccess, result.Status)

	expense, err := h.db.GetExpense(context.Background(), result.ExpenseID)
	require.NoError(t, err)
	assert.True(t, expense.RecordedAt.Equal(at))
	_, offset := expense.RecordedAt.Zone()
	assert.Equal(t, 2*3600, offset)
}

func TestProcess_EmptyText(t *testing.T) {
	h := newHarness(t, `{"amount": 1, "category": "other"}`)

	result := h.process(t, "   ")

	assert.Equal(t, model.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, common.ErrEmptyText)
	assert.Equal(t, []State{StateStart, StateFailed}, result.Trace)
	assert.Equal(t, 0, h.client.Calls())
	assert.Equal(t, 0, h.store.SessionWrites())
}

func TestProcess_ServiceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.client.Err = fmt.Errorf("dial tcp: connection refused")

	result := h.process(t, "add 5 for coffee")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, StateFailed, result.State)
	assert.ErrorIs(t, result.Err, common.ErrServiceUnavailable)
	assert.Equal(t, []State{StateStart, StateParsing, StateFailed}, result.Trace)
	assert.Empty(t, h.expenses(t))

	state := h.sessionState(t)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.StatusError, state.History[0].Status)
}

type slowExtractor struct{}

func (slowExtractor) Extract(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", common.Unavailable(ctx.Err())
}

func TestProcess_GenerateTimeout(t *testing.T) {
	h := newHarnessWithConfig(t, Config{
		Now:             func() time.Time { return runStart },
		GenerateTimeout: 20 * time.Millisecond,
	})
	h.engine.deps.Extractor = slowExtractor{}

	result := h.process(t, "add 5 for coffee")

	assert.Equal(t, model.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
	assert.ErrorIs(t, result.Err, common.ErrServiceUnavailable)
}

func TestProcess_InsertFailure(t *testing.T) {
	h := newHarness(t, `{"amount": 30, "category": "groceries"}`)
	h.store.FailInsert = true

	result := h.process(t, "add 30 for groceries")

	assert.Equal(t, model.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, common.ErrPersistence)
	assert.Equal(t, []State{StateStart, StateParsing, StateValidating, StateSaving, StateFailed}, result.Trace)
	assert.Empty(t, h.expenses(t))

	state := h.sessionState(t)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.StatusError, state.History[0].Status)
}

func TestProcess_SessionLoadFailure(t *testing.T) {
	h := newHarness(t, `{"amount": 30, "category": "groceries"}`)
	h.store.FailGetSession = true

	result := h.process(t, "add 30 for groceries")

	assert.Equal(t, model.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, common.ErrPersistence)
	assert.Equal(t, []State{StateStart, StateFailed}, result.Trace)
	assert.Equal(t, 0, h.client.Calls())
	assert.Equal(t, 0, h.store.SessionWrites())
	assert.Equal(t, 0, h.store.Inserts())
}

func TestProcess_SessionSaveFailureKeepsExpense(t *testing.T) {
	h := newHarness(t, `{"amount": 30, "category": "groceries"}`)
	h.store.FailPutSession = true

	result := h.process(t, "add 30 for groceries")

	assert.Equal(t, model.StatusError, result.Status)
	assert.ErrorIs(t, result.Err, common.ErrPersistence)
	assert.Equal(t, 1, strings.Count(result.Err.Error(), "save session"))
	assert.Equal(t, StateFailed, result.State)
	assert.Len(t, h.expenses(t), 1, "inserted expense is not undone")
	assert.Equal(t, 1, h.store.SessionWrites())
}

func TestProcess_SessionSaveFailureOnClarification(t *testing.T) {
	h := newHarness(t, `{"amount": 30, "category": "stuff"}`)
	h.store.FailPutSession = true

	result := h.process(t, "30 on stuff")

	assert.Equal(t, model.StatusError, result.Status)
	assert.Equal(t, []State{StateStart, StateParsing, StateValidating, StateClarifying, StateFailed}, result.Trace)
}

func TestProcess_HistoryIsBounded(t *testing.T) {
	h := newHarness(t, `{"amount": 1, "category": "other"}`)

	for i := 0; i < 12; i++ {
		result := h.process(t, fmt.Sprintf("run %d", i))
		require.Equal(t, model.StatusSuccess, result.Status)
	}

	assert.Len(t, h.expenses(t), 12)
	state := h.sessionState(t)
	require.Len(t, state.History, model.MaxHistory)
	assert.Equal(t, "run 2", state.History[0].Text)
	assert.Equal(t, "run 11", state.History[model.MaxHistory-1].Text)
}

func TestProcess_PendingClarificationLifecycle(t *testing.T) {
	h := newHarness(t,
		`{"amount": 15, "category": "stuff"}`,
		`{"amount": 15, "category": "shopping"}`,
	)

	first := h.process(t, "15 for stuff")
	require.Equal(t, model.StatusClarification, first.Status)
	state := h.sessionState(t)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "15", state.Pending.AmountCandidate)
	assert.Equal(t, "stuff", state.Pending.CategoryCandidate)
	assert.Equal(t, category.DefaultCategories, state.Pending.Options)

	// A follow-up must restate the expense; it is not merged with the pending turn.
	second := h.process(t, "15 for shopping")
	require.Equal(t, model.StatusSuccess, second.Status)
	assert.NotContains(t, h.client.Prompts[1], "stuff")

	state = h.sessionState(t)
	assert.Nil(t, state.Pending)
	require.Len(t, state.History, 2)
	assert.Equal(t, model.StatusClarification, state.History[0].Status)
	assert.Equal(t, model.StatusSuccess, state.History[1].Status)
}

func TestProcess_FailureKeepsPending(t *testing.T) {
	h := newHarness(t, `{"amount": 15, "category": "stuff"}`)

	require.Equal(t, model.StatusClarification, h.process(t, "15 for stuff").Status)

	h.client.Err = fmt.Errorf("boom")
	require.Equal(t, model.StatusError, h.process(t, "15 for shopping").Status)

	state := h.sessionState(t)
	require.NotNil(t, state.Pending)
	assert.Equal(t, "15 for stuff", state.Pending.OriginalText)
}

func TestProcess_UsersAreIsolated(t *testing.T) {
	h := newHarness(t, `{"amount": 2, "category": "dining"}`)
	ctx := context.Background()

	h.engine.Process(ctx, Request{Text: "coffee 2", UserID: "alice"})

	alice, err := h.sessions.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice.History, 1)
	assert.Empty(t, h.sessionState(t).History)
}

func TestProcess_Concurrent(t *testing.T) {
	h := newHarness(t, `{"amount": 3, "category": "dining"}`)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.engine.Process(context.Background(), Request{
				Text:   "3 on lunch",
				UserID: fmt.Sprintf("user-%d", i),
			})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, model.StatusSuccess, r.Status, "err: %v", r.Err)
	}
	assert.Len(t, h.expenses(t), len(results))
}

func TestProcess_ResultJSON(t *testing.T) {
	h := newHarness(t, "no json here")
	result := h.process(t, "hello")

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "clarification_needed", body["status"])
	assert.Equal(t, "unparseable_response", body["reason"])
	assert.Equal(t, []any{}, body["options"])
}
