package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	result   engine.Result
	requests []engine.Request
	mu       sync.Mutex
}

func (f *fakeProcessor) Process(_ context.Context, req engine.Request) engine.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result
}

type fakeLister struct {
	err       error
	expenses  []model.Expense
	lastLimit int
}

func (f *fakeLister) RecentExpenses(_ context.Context, limit int) ([]model.Expense, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.expenses) {
		return f.expenses[:limit], nil
	}
	return f.expenses, nil
}

func newTestServer(t *testing.T, proc *fakeProcessor, lister *fakeLister, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Processor:      proc,
		Expenses:       lister,
		Logger:         common.DiscardLogger(),
		Addr:           ":0",
		Mode:           gin.TestMode,
		DefaultUserID:  "me",
		Version:        "test",
		AllowedOrigins: []string{"*"},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Mode: gin.TestMode, Addr: ":0"})
	assert.Error(t, err)

	_, err = New(Config{Processor: &fakeProcessor{}, Expenses: &fakeLister{}, Addr: ":0"})
	assert.Error(t, err)

	_, err = New(Config{Processor: &fakeProcessor{}, Expenses: &fakeLister{}, Mode: gin.TestMode})
	assert.Error(t, err)
}

func TestCreateExpense(t *testing.T) {
	proc := &fakeProcessor{result: engine.Result{
		Status:    model.StatusSuccess,
		Message:   "$30.00 added to groceries",
		ExpenseID: 1,
		Amount:    "30.00",
		Category:  "groceries",
	}}
	srv := newTestServer(t, proc, &fakeLister{})

	rec := do(t, srv, http.MethodPost, "/api/expenses",
		`{"text": "  add thirty dollars for groceries ", "timestamp": "2025-10-22T00:00:00Z"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["expense_id"])
	assert.Equal(t, "30.00", body["amount"])

	require.Len(t, proc.requests, 1)
	req := proc.requests[0]
	assert.Equal(t, "add thirty dollars for groceries", req.Text)
	assert.Equal(t, "me", req.UserID)
	require.NotNil(t, req.Timestamp)
	assert.True(t, req.Timestamp.Equal(time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC)))
}

func TestCreateExpense_TimestampWithoutOffset(t *testing.T) {
	tests := []struct {
		want  time.Time
		name  string
		value string
	}{
		{name: "date-time", value: "2025-10-22T10:00:00", want: time.Date(2025, 10, 22, 10, 0, 0, 0, time.UTC)},
		{name: "date only", value: "2025-10-22", want: time.Date(2025, 10, 22, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{result: engine.Result{Status: model.StatusSuccess, Message: "ok"}}
			srv := newTestServer(t, proc, &fakeLister{})

			rec := do(t, srv, http.MethodPost, "/api/expenses",
				`{"text": "5 coffee", "timestamp": "`+tt.value+`"}`)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, proc.requests, 1)
			require.NotNil(t, proc.requests[0].Timestamp)
			assert.True(t, proc.requests[0].Timestamp.Equal(tt.want))
		})
	}
}

func TestCreateExpense_PassesUserAndShapes(t *testing.T) {
	tests := []struct {
		name   string
		result engine.Result
		want   string
	}{
		{
			name: "clarification",
			result: engine.Result{
				Status:  model.StatusClarification,
				Message: "Choose",
				Reason:  model.ReasonAmbiguousCategory,
				Options: []string{"groceries"},
			},
			want: `{"status":"clarification_needed","message":"Choose","reason":"ambiguous_category","options":["groceries"]}`,
		},
		{
			name: "error",
			result: engine.Result{
				Status:  model.StatusError,
				Message: "unavailable",
				Err:     errors.New("dial tcp"),
			},
			want: `{"status":"error","message":"unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{result: tt.result}
			srv := newTestServer(t, proc, &fakeLister{})

			rec := do(t, srv, http.MethodPost, "/api/expenses", `{"text": "x", "user_id": "alice"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, "alice", proc.requests[0].UserID)
			assert.Nil(t, proc.requests[0].Timestamp)
		})
	}
}

func TestCreateExpense_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"text": `},
		{name: "missing text", body: `{}`},
		{name: "blank text", body: `{"text": "   "}`},
		{name: "bad timestamp", body: `{"text": "5 coffee", "timestamp": "yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{}
			srv := newTestServer(t, proc, &fakeLister{})

			rec := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["message"])
			assert.Empty(t, proc.requests)
		})
	}
}

func TestListExpenses(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{expenses: []model.Expense{
		{ID: 2, Amount: decimal.RequireFromString("12.5"), Category: "dining", RecordedAt: at, CreatedAt: at},
		{ID: 1, Amount: decimal.RequireFromString("30"), Category: "groceries", Note: "weekly", RecordedAt: at, CreatedAt: at},
	}}
	srv := newTestServer(t, &fakeProcessor{}, lister)

	rec := do(t, srv, http.MethodGet, "/api/expenses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultListLimit, lister.lastLimit)

	var body struct {
		Expenses []expenseView `json:"expenses"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "12.50", body.Expenses[0].Amount)
	assert.Equal(t, "weekly", body.Expenses[1].Note)

	rec = do(t, srv, http.MethodGet, "/api/expenses?limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxListLimit, lister.lastLimit)

	rec = do(t, srv, http.MethodGet, "/api/expenses?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lister.err = errors.New("disk on fire")
	rec = do(t, srv, http.MethodGet, "/api/expenses", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, &fakeLister{})

	rec := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, &fakeLister{})

	rec := do(t, srv, http.MethodGet, "/health", "")
	generated := rec.Header().Get(requestIDHeader)
	assert.Len(t, generated, 36)

	rec = do(t, srv, http.MethodGet, "/health", "", requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		srv := newTestServer(t, &fakeProcessor{}, &fakeLister{})

		rec := do(t, srv, http.MethodOptions, "/api/expenses", "", "Origin", "https://app.example")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	})

	t.Run("allow list", func(t *testing.T) {
		srv := newTestServer(t, &fakeProcessor{}, &fakeLister{}, func(c *Config) {
			c.AllowedOrigins = []string{"https://app.example"}
		})

		rec := do(t, srv, http.MethodGet, "/health", "", "Origin", "https://app.example")
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = do(t, srv, http.MethodGet, "/health", "", "Origin", "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, &fakeLister{}, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec := do(t, srv, http.MethodGet, "/api/expenses", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, srv, http.MethodGet, "/api/expenses", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])

	// Health is outside the limited group.
	rec = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientLimiter_PerClient(t *testing.T) {
	l := newClientLimiter(60, 1)
	require.NoError(t, l.Allow("10.0.0.1"))
	assert.Error(t, l.Allow("10.0.0.1"))
	assert.NoError(t, l.Allow("10.0.0.2"))

	assert.Equal(t, 1, newClientLimiter(5, 0).burst)
}

func TestRun_Shutdown(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, &fakeLister{}, func(c *Config) {
		c.Addr = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
