// Package session loads and persists per-user conversation state.
package session

import (
	"context"
	"log/slog"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/Veraticus/budgetbuddy/internal/service"
)

// DefaultUserID is used when a request does not name a user.
const DefaultUserID = "me"

// Manager reads and writes session state through a service.SessionStore.
type Manager struct {
	store      service.SessionStore
	logger     *slog.Logger
	maxHistory int
}

// NewManager creates a session manager. A non-positive maxHistory uses model.MaxHistory.
func NewManager(store service.SessionStore, maxHistory int, logger *slog.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = model.MaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		maxHistory: maxHistory,
		logger:     logger.With("component", "session"),
	}
}

// UserID returns id, or DefaultUserID when id is blank.
func UserID(id string) string {
	if id == "" {
		return DefaultUserID
	}
	return id
}

// Load returns the state for userID, or an empty state when none exists.
func (m *Manager) Load(ctx context.Context, userID string) (model.SessionState, error) {
	userID = UserID(userID)

	state, found, err := m.store.GetSessionState(ctx, userID)
	if err != nil {
		return model.SessionState{}, common.Persistence("load session", err)
	}
	if !found {
		m.logger.Debug("no session state, starting fresh", "user_id", userID)
		return model.NewSessionState(), nil
	}
	if state.History == nil {
		state.History = []model.HistoryEntry{}
	}

	return state, nil
}

// Save trims history to the configured bound and upserts the state.
func (m *Manager) Save(ctx context.Context, userID string, state model.SessionState) error {
	userID = UserID(userID)
	state.History = append([]model.HistoryEntry{}, state.History...)
	state.Trim(m.maxHistory)

	if err := m.store.PutSessionState(ctx, userID, state); err != nil {
		return common.Persistence("save session", err)
	}

	m.logger.Debug("saved session state",
		"user_id", userID,
		"history", len(state.History),
		"pending", state.Pending != nil)
	return nil
}

// Reset deletes the state for userID.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	userID = UserID(userID)
	if err := m.store.DeleteSessionState(ctx, userID); err != nil {
		return common.Persistence("reset session", err)
	}
	m.logger.Info("session reset", "user_id", userID)
	return nil
}
