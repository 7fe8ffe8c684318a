package prompts

import (
	"testing"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)

	prompt, err := s.Render(ParseExpense, ParseData{
		Text:       "add thirty dollars for groceries",
		Categories: []string{"groceries", "dining"},
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Valid categories: groceries, dining")
	assert.Contains(t, prompt, "User message: add thirty dollars for groceries")

	msg, err := s.Render(ClarifyAmount, ClarifyData{Text: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, `What amount did you want to add for "groceries"?`, msg)

	msg, err = s.Render(ClarifyCategory, ClarifyData{Category: "stuff", Options: []string{"groceries", "dining"}})
	require.NoError(t, err)
	assert.Equal(t, "'stuff' isn't a category I can use. Choose from: groceries, dining", msg)

	msg, err = s.Render(ClarifyCategory, ClarifyData{Options: []string{"other"}})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't tell which category that was. Choose from: other", msg)

	msg, err = s.Render(Saved, SavedData{Amount: "$30.00", Category: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, "$30.00 added to groceries", msg)

	msg, err = s.Render(Unparseable, nil)
	require.NoError(t, err)
	assert.Contains(t, msg, "couldn't understand")
}

func TestOverrides(t *testing.T) {
	s, err := New(map[string]string{Saved: "Logged {{.Amount}} under {{upper .Category}}"})
	require.NoError(t, err)

	msg, err := s.Render(Saved, SavedData{Amount: "$5.00", Category: "dining"})
	require.NoError(t, err)
	assert.Equal(t, "Logged $5.00 under DINING", msg)

	// Blank overrides fall back to the embedded template.
	s, err = New(map[string]string{Saved: "  "})
	require.NoError(t, err)
	msg, err = s.Render(Saved, SavedData{Amount: "$5.00", Category: "dining"})
	require.NoError(t, err)
	assert.Equal(t, "$5.00 added to dining", msg)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(map[string]string{"greeting": "hi"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = New(map[string]string{Saved: "{{.Amount"})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := MustDefault().Render("missing", nil)
	assert.Error(t, err)
}
