// Package prompts renders the text-generation prompt and user-facing messages.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Veraticus/budgetbuddy/internal/common"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names. Each may be overridden from configuration.
const (
	ParseExpense    = "parse_expense"
	ClarifyAmount   = "clarify_amount"
	ClarifyCategory = "clarify_category"
	Unparseable     = "unparseable"
	Saved           = "saved"
)

// Names lists every template in a stable order.
var Names = []string{ParseExpense, ClarifyAmount, ClarifyCategory, Unparseable, Saved}

// ParseData feeds the parse_expense template.
type ParseData struct {
	Text       string
	Categories []string
}

// ClarifyData feeds the clarification templates.
type ClarifyData struct {
	Text     string
	Amount   string
	Category string
	Options  []string
}

// SavedData feeds the saved template.
type SavedData struct {
	Amount   string
	Category string
}

var funcMap = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Set holds parsed templates. It is immutable after construction.
type Set struct {
	templates map[string]*template.Template
}

// New loads the embedded templates, replacing any named in overrides.
func New(overrides map[string]string) (*Set, error) {
	s := &Set{templates: make(map[string]*template.Template, len(Names))}

	for name := range overrides {
		if !known(name) {
			return nil, fmt.Errorf("%w: unknown prompt %q", common.ErrInvalidConfig, name)
		}
	}

	for _, name := range Names {
		var (
			tmpl *template.Template
			err  error
		)
		if text := strings.TrimSpace(overrides[name]); text != "" {
			tmpl, err = template.New(name).Funcs(funcMap).Parse(text)
		} else {
			filename := fmt.Sprintf("templates/%s.tmpl", name)
			tmpl, err = template.New(name + ".tmpl").Funcs(funcMap).ParseFS(templateFS, filename)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse template %s: %w", common.ErrInvalidConfig, name, err)
		}
		s.templates[name] = tmpl
	}

	return s, nil
}

// MustDefault returns the embedded templates and panics if they do not parse.
func MustDefault() *Set {
	s, err := New(nil)
	if err != nil {
		panic(err)
	}
	return s
}

// Render executes the named template with data.
func (s *Set) Render(name string, data any) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}
