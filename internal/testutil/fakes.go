package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/Veraticus/budgetbuddy/internal/service"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FakeClient is a scripted text-generation client.
type FakeClient struct {
	Err       error
	Responses []string
	Prompts   []string
	mu        sync.Mutex
}

// NewFakeClient returns a client that answers with responses in order,
// repeating the last one once exhausted.
func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{Responses: responses}
}

// Generate records the prompt and returns the next scripted response.
func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Prompts = append(f.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	idx := len(f.Prompts) - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return f.Responses[idx], nil
}

// Calls returns how many times Generate was invoked.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// FlakyStorage wraps a real store and fails selected operations.
type FlakyStorage struct {
	service.Storage
	FailInsert     bool
	FailGetSession bool
	FailPutSession bool
	FailDelete     bool

	mu      sync.Mutex
	inserts int
	puts    int
}

// NewFlakyStorage wraps inner with no failures enabled.
func NewFlakyStorage(inner service.Storage) *FlakyStorage {
	return &FlakyStorage{Storage: inner}
}

// InsertExpense fails when FailInsert is set.
func (f *FlakyStorage) InsertExpense(ctx context.Context, expense model.ValidatedExpense) (int64, error) {
	f.mu.Lock()
	f.inserts++
	fail := f.FailInsert
	f.mu.Unlock()

	if fail {
		return 0, ErrInjected
	}
	return f.Storage.InsertExpense(ctx, expense)
}

// GetSessionState fails when FailGetSession is set.
func (f *FlakyStorage) GetSessionState(ctx context.Context, userID string) (model.SessionState, bool, error) {
	if f.FailGetSession {
		return model.SessionState{}, false, ErrInjected
	}
	return f.Storage.GetSessionState(ctx, userID)
}

// PutSessionState fails when FailPutSession is set.
func (f *FlakyStorage) PutSessionState(ctx context.Context, userID string, state model.SessionState) error {
	f.mu.Lock()
	f.puts++
	fail := f.FailPutSession
	f.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return f.Storage.PutSessionState(ctx, userID, state)
}

// DeleteSessionState fails when FailDelete is set.
func (f *FlakyStorage) DeleteSessionState(ctx context.Context, userID string) error {
	if f.FailDelete {
		return ErrInjected
	}
	return f.Storage.DeleteSessionState(ctx, userID)
}

// Inserts returns how many inserts were attempted.
func (f *FlakyStorage) Inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

// SessionWrites returns how many session writes were attempted.
func (f *FlakyStorage) SessionWrites() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}
