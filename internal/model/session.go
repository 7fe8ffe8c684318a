package model

import "time"

// MaxHistory bounds the number of interaction summaries kept per user.
const MaxHistory = 10

// InteractionStatus is the terminal outcome of one workflow run.
type InteractionStatus string

const (
	StatusSuccess       InteractionStatus = "success"
	StatusClarification InteractionStatus = "clarification_needed"
	StatusError         InteractionStatus = "error"
)

// HistoryEntry summarizes one past interaction.
type HistoryEntry struct {
	At        time.Time           `json:"at"`
	Text      string              `json:"text"`
	Status    InteractionStatus   `json:"status"`
	Amount    string              `json:"amount,omitempty"`
	Category  string              `json:"category,omitempty"`
	Reason    ClarificationReason `json:"reason,omitempty"`
	ExpenseID int64               `json:"expense_id,omitempty"`
}

// PendingClarification describes an unresolved prior turn.
type PendingClarification struct {
	OriginalText      string              `json:"original_text"`
	AmountCandidate   string              `json:"amount_candidate,omitempty"`
	CategoryCandidate string              `json:"category_candidate,omitempty"`
	Reason            ClarificationReason `json:"reason"`
	Options           []string            `json:"options,omitempty"`
}

// SessionState is the durable per-user conversation context.
type SessionState struct {
	LastUpdated time.Time             `json:"-"`
	Pending     *PendingClarification `json:"pending_clarification,omitempty"`
	History     []HistoryEntry        `json:"history"`
}

// NewSessionState returns the empty default state.
func NewSessionState() SessionState {
	return SessionState{History: []HistoryEntry{}}
}

// Append adds an entry and evicts the oldest ones beyond MaxHistory.
func (s *SessionState) Append(entry HistoryEntry) {
	s.History = append(s.History, entry)
	s.Trim(MaxHistory)
}

// Trim keeps only the most recent limit entries.
func (s *SessionState) Trim(limit int) {
	if limit < 0 {
		limit = 0
	}
	if len(s.History) <= limit {
		return
	}
	kept := make([]HistoryEntry, limit)
	copy(kept, s.History[len(s.History)-limit:])
	s.History = kept
}
