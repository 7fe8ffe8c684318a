package model

// ClarificationReason explains why the workflow could not produce an expense.
type ClarificationReason string

const (
	// ReasonAmbiguousCategory means the category matched zero or several canonical categories.
	ReasonAmbiguousCategory ClarificationReason = "ambiguous_category"
	// ReasonInvalidAmount means the amount was missing, non-numeric, or negative.
	ReasonInvalidAmount ClarificationReason = "invalid_amount"
	// ReasonUnparseableResponse means no expense data could be recovered from the generated text.
	ReasonUnparseableResponse ClarificationReason = "unparseable_response"
)

// ClarificationRequest asks the user for missing or disambiguating information.
type ClarificationRequest struct {
	Reason  ClarificationReason
	Message string
	// Options is only populated for ReasonAmbiguousCategory.
	Options []string
}
