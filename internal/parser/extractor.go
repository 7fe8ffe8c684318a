// Package parser recovers expense-shaped JSON objects from noisy text-generation output.
//
// Extraction tries a fixed sequence of strategies, each a pure function over the
// raw response, and the first one that yields an expense object wins:
//
//  1. the whole trimmed response as a JSON object
//  2. the contents of a fenced code block
//  3. the first flat {...} span found by brace matching
//
// The brace scan is not nested-JSON-aware. An expense object that itself
// contains objects or arrays may fail to parse or be truncated.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/shopspring/decimal"
)

// Strategy proposes candidate JSON texts found in a raw response, in preference order.
type Strategy struct {
	Find func(raw string) []string
	Name string
}

// Strategies is the fixed extraction order.
var Strategies = []Strategy{
	{Name: "whole", Find: wholeResponse},
	{Name: "fenced", Find: fencedBlocks},
	{Name: "braces", Find: braceSpans},
}

// Extract recovers an ExpenseDraft from a raw response.
// It returns common.ErrUnparseableResponse when every strategy fails.
func Extract(raw string) (model.ExpenseDraft, error) {
	draft, _, err := ExtractWithStrategy(raw)
	return draft, err
}

// ExtractWithStrategy is Extract that also reports which strategy succeeded.
func ExtractWithStrategy(raw string) (model.ExpenseDraft, string, error) {
	for _, s := range Strategies {
		for _, candidate := range s.Find(raw) {
			draft, ok := decodeDraft(candidate)
			if ok {
				return draft, s.Name, nil
			}
		}
	}
	return model.ExpenseDraft{}, "", fmt.Errorf("%w: tried %d strategies", common.ErrUnparseableResponse, len(Strategies))
}

func wholeResponse(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

// fencedBlocks returns the bodies of ``` fences, skipping an optional language tag.
func fencedBlocks(raw string) []string {
	const fence = "```"

	var blocks []string
	rest := raw
	for {
		start := strings.Index(rest, fence)
		if start < 0 {
			return blocks
		}
		body := rest[start+len(fence):]

		// A language tag runs to the end of the opening line.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && isLanguageTag(body[:nl]) {
			body = body[nl+1:]
		}

		end := strings.Index(body, fence)
		if end < 0 {
			return blocks
		}
		if block := strings.TrimSpace(body[:end]); block != "" {
			blocks = append(blocks, block)
		}
		rest = body[end+len(fence):]
	}
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// braceSpans returns every flat {...} span: an opening brace, then the first
// closing brace with no other brace in between.
func braceSpans(raw string) []string {
	var spans []string
	open := -1
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			open = i
		case '}':
			if open >= 0 {
				spans = append(spans, raw[open:i+1])
				open = -1
			}
		}
	}
	return spans
}

// expenseKeys are the fields that make an object expense-shaped.
var expenseKeys = []string{"amount", "category", "note", "description"}

func decodeDraft(candidate string) (model.ExpenseDraft, bool) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return model.ExpenseDraft{}, false
	}
	// Trailing data means the candidate was not a single object.
	if dec.More() {
		return model.ExpenseDraft{}, false
	}

	lowered := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}

	shaped := false
	for _, key := range expenseKeys {
		if _, ok := lowered[key]; ok {
			shaped = true
			break
		}
	}
	if !shaped {
		return model.ExpenseDraft{}, false
	}

	var draft model.ExpenseDraft
	draft.Amount, draft.AmountText = decodeAmount(lowered["amount"])
	draft.Category = strings.TrimSpace(decodeString(lowered["category"]))
	draft.Note = strings.TrimSpace(decodeString(lowered["note"]))
	if draft.Note == "" {
		draft.Note = strings.TrimSpace(decodeString(lowered["description"]))
	}
	return draft, true
}

var nullLiteral = []byte("null")

var thousandsPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// decodeAmount accepts a JSON number or a numeric string such as "$1,250.50".
// A present but non-numeric value is returned as text.
func decodeAmount(raw json.RawMessage) (*decimal.Decimal, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullLiteral) {
		return nil, ""
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, string(raw)
		}
	} else {
		text = string(raw)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(text))
	if cleaned == "" {
		return nil, ""
	}
	if strings.Contains(cleaned, ",") {
		// Commas only group thousands; "1,50" is not 150.
		if !thousandsPattern.MatchString(cleaned) {
			return nil, strings.TrimSpace(text)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, strings.TrimSpace(text)
	}
	return &amount, ""
}

func decodeString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, nullLiteral) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
