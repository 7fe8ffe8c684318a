package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
)

// GetSessionState loads the state for userID. found is false when no row exists.
func (s *SQLiteStorage) GetSessionState(ctx context.Context, userID string) (model.SessionState, bool, error) {
	if err := validateContext(ctx); err != nil {
		return model.SessionState{}, false, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return model.SessionState{}, false, err
	}

	var stateJSON, lastUpdated string
	err := s.db.QueryRowContext(ctx, `
		SELECT state_json, last_updated
		FROM sessions
		WHERE user_id = ?
	`, userID).Scan(&stateJSON, &lastUpdated)

	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionState{}, false, nil
	}
	if err != nil {
		return model.SessionState{}, false, common.Persistence("get session", err)
	}

	state := model.NewSessionState()
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return model.SessionState{}, false, common.Persistence("decode session", err)
	}
	if state.History == nil {
		state.History = []model.HistoryEntry{}
	}
	if state.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return model.SessionState{}, false, common.Persistence("decode session", err)
	}

	return state, true, nil
}

// PutSessionState upserts the state for userID and stamps last_updated.
func (s *SQLiteStorage) PutSessionState(ctx context.Context, userID string, state model.SessionState) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	if state.History == nil {
		state.History = []model.HistoryEntry{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, state_json, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			state_json = excluded.state_json,
			last_updated = excluded.last_updated
	`, userID, string(data), formatTime(s.now().UTC()))
	if err != nil {
		return common.Persistence("put session", err)
	}

	return nil
}

// DeleteSessionState removes the state for userID. Deleting a missing row is not an error.
func (s *SQLiteStorage) DeleteSessionState(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return common.Persistence("delete session", err)
	}
	return nil
}
