package engine

import (
	"encoding/json"

	"github.com/Veraticus/budgetbuddy/internal/model"
)

// Result is the outbound answer to one request.
type Result struct {
	// Err is the cause of an error result. It is never serialized.
	Err       error
	Status    model.InteractionStatus
	Message   string
	Amount    string
	Category  string
	Reason    model.ClarificationReason
	State     State
	Options   []string
	// Trace lists the states the run visited, starting with StateStart.
	Trace     []State
	ExpenseID int64
}

type successBody struct {
	Status    model.InteractionStatus `json:"status"`
	Message   string                  `json:"message"`
	Amount    string                  `json:"amount"`
	Category  string                  `json:"category"`
	ExpenseID int64                   `json:"expense_id"`
}

type clarificationBody struct {
	Status  model.InteractionStatus   `json:"status"`
	Message string                    `json:"message"`
	Reason  model.ClarificationReason `json:"reason"`
	Options []string                  `json:"options"`
}

type errorBody struct {
	Status  model.InteractionStatus `json:"status"`
	Message string                  `json:"message"`
}

// MarshalJSON emits exactly the fields of the result's status.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Status {
	case model.StatusSuccess:
		return json.Marshal(successBody{
			Status:    r.Status,
			Message:   r.Message,
			ExpenseID: r.ExpenseID,
			Amount:    r.Amount,
			Category:  r.Category,
		})
	case model.StatusClarification:
		options := r.Options
		if options == nil {
			options = []string{}
		}
		return json.Marshal(clarificationBody{
			Status:  r.Status,
			Message: r.Message,
			Reason:  r.Reason,
			Options: options,
		})
	default:
		return json.Marshal(errorBody{
			Status:  model.StatusError,
			Message: r.Message,
		})
	}
}
