package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/budgetbuddy/internal/engine"
	"github.com/Veraticus/budgetbuddy/internal/model"
)

// FormatResult renders a workflow outcome as one styled line, with the
// category options on a second line when the result carries any.
func FormatResult(r engine.Result) string {
	switch r.Status {
	case model.StatusSuccess:
		return FormatSuccess(r.Message)
	case model.StatusClarification:
		out := FormatQuestion(r.Message)
		if len(r.Options) > 0 {
			out += "\n" + SubtleStyle.Render("  options: "+strings.Join(r.Options, ", "))
		}
		return out
	default:
		return FormatError(r.Message)
	}
}

// WriteExpenses prints expenses as an aligned table.
func WriteExpenses(w io.Writer, expenses []model.Expense) error {
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No expenses recorded yet."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("Recorded"),
		TableHeaderStyle.Render("Category"),
		TableHeaderStyle.Render("Amount"))

	for _, e := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			e.ID,
			e.RecordedAt.Format("2006-01-02 15:04"),
			e.Category,
			AmountStyle.Render(model.FormatCurrency(e.Amount)))
	}
	return tw.Flush()
}

// WriteSession prints a session's pending clarification and history.
func WriteSession(w io.Writer, userID string, state model.SessionState) error {
	var b strings.Builder

	if state.Pending != nil {
		p := state.Pending
		fmt.Fprintf(&b, "Pending (%s): %q\n", p.Reason, p.OriginalText)
		if len(p.Options) > 0 {
			fmt.Fprintf(&b, "  options: %s\n", strings.Join(p.Options, ", "))
		}
	} else {
		b.WriteString(SubtleStyle.Render("No pending clarification") + "\n")
	}

	if len(state.History) == 0 {
		b.WriteString(SubtleStyle.Render("No history"))
	}
	for _, h := range state.History {
		line := fmt.Sprintf("%s  %-20s  %s", h.At.Format("2006-01-02 15:04"), h.Status, h.Text)
		if h.Amount != "" {
			line += fmt.Sprintf("  (%s %s)", h.Amount, h.Category)
		}
		b.WriteString("\n" + line)
	}

	_, err := fmt.Fprintln(w, RenderBox("Session "+userID, strings.TrimRight(b.String(), "\n")))
	return err
}
