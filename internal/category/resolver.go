// Package category maps free-text category names onto the configured canonical set.
package category

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/model"
	"github.com/agnivade/levenshtein"
)

// DefaultMinFuzzyLength is the shortest term allowed to take part in substring matching.
const DefaultMinFuzzyLength = 3

// FallbackCategory receives expenses that name no category, when it is configured.
const FallbackCategory = "other"

// DefaultCategories is used when no category list is configured.
var DefaultCategories = []string{
	"groceries",
	"dining",
	"entertainment",
	"transportation",
	"utilities",
	"shopping",
	"health",
	"other",
}

// Config holds the canonical categories and their synonyms.
type Config struct {
	// Synonyms maps a canonical category to extra terms that resolve to it.
	Synonyms       map[string][]string
	Categories     []string
	MinFuzzyLength int
}

type entry struct {
	name  string
	terms []string // lower-cased canonical name followed by synonyms
}

// Resolver resolves category candidates. It is immutable and safe for concurrent use.
type Resolver struct {
	exact          map[string]int
	entries        []entry
	minFuzzyLength int
}

// NewResolver validates cfg and builds a resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", common.ErrInvalidConfig)
	}

	r := &Resolver{
		exact:          make(map[string]int),
		minFuzzyLength: cfg.MinFuzzyLength,
	}
	if r.minFuzzyLength <= 0 {
		r.minFuzzyLength = DefaultMinFuzzyLength
	}

	index := make(map[string]int, len(cfg.Categories))
	for _, name := range cfg.Categories {
		name = strings.TrimSpace(name)
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("%w: empty category name", common.ErrInvalidConfig)
		}
		if _, dup := r.exact[key]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", common.ErrInvalidConfig, name)
		}
		r.exact[key] = len(r.entries)
		index[key] = len(r.entries)
		r.entries = append(r.entries, entry{name: name, terms: []string{key}})
	}

	for canonical, synonyms := range cfg.Synonyms {
		i, ok := index[normalize(canonical)]
		if !ok {
			return nil, fmt.Errorf("%w: synonyms for unknown category %q", common.ErrInvalidConfig, canonical)
		}
		for _, syn := range synonyms {
			key := normalize(syn)
			if key == "" {
				continue
			}
			if owner, dup := r.exact[key]; dup && owner != i {
				return nil, fmt.Errorf("%w: synonym %q used by %q and %q",
					common.ErrInvalidConfig, syn, r.entries[owner].name, r.entries[i].name)
			}
			if _, dup := r.exact[key]; !dup {
				r.exact[key] = i
				r.entries[i].terms = append(r.entries[i].terms, key)
			}
		}
	}

	return r, nil
}

// Categories returns the canonical categories in configured order.
func (r *Resolver) Categories() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Resolve maps candidate onto a canonical category.
//
// Passes run in order: exact match, substring match, then typo tolerance.
// A pass that matches exactly one category resolves it. A pass that matches
// several stops resolution with those categories as options. When nothing
// matches the options are the full canonical set. A blank candidate resolves
// to FallbackCategory if it is a canonical category.
func (r *Resolver) Resolve(candidate string) model.ResolvedCategory {
	key := normalize(candidate)
	if key == "" {
		if i, ok := r.exact[FallbackCategory]; ok && r.entries[i].terms[0] == FallbackCategory {
			return model.ResolvedCategory{Canonical: r.entries[i].name, Kind: model.MatchDefault}
		}
		return r.unresolved(nil)
	}

	if i, ok := r.exact[key]; ok {
		return model.ResolvedCategory{Canonical: r.entries[i].name, Kind: model.MatchExact}
	}

	for _, pass := range []func(string, string) bool{r.substringMatch, r.typoMatch} {
		matches := r.matchAll(key, pass)
		switch len(matches) {
		case 0:
			continue
		case 1:
			return model.ResolvedCategory{Canonical: matches[0], Kind: model.MatchFuzzy}
		default:
			return r.unresolved(matches)
		}
	}

	return r.unresolved(nil)
}

func (r *Resolver) unresolved(options []string) model.ResolvedCategory {
	if len(options) == 0 {
		options = r.Categories()
	}
	return model.ResolvedCategory{Kind: model.MatchNone, Options: options}
}

func (r *Resolver) matchAll(key string, match func(candidate, term string) bool) []string {
	var matches []string
	for _, e := range r.entries {
		for _, term := range e.terms {
			if match(key, term) {
				matches = append(matches, e.name)
				break
			}
		}
	}
	return matches
}

// substringMatch matches when either side contains the other, on the raw
// terms or on their singular forms ("grocery" vs "groceries").
func (r *Resolver) substringMatch(candidate, term string) bool {
	if r.contains(candidate, term) {
		return true
	}
	return r.contains(singular(candidate), singular(term))
}

func (r *Resolver) contains(a, b string) bool {
	if min(utf8.RuneCountInString(a), utf8.RuneCountInString(b)) < r.minFuzzyLength {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// typoMatch tolerates one edit, or two for terms of eight runes or more.
func (r *Resolver) typoMatch(candidate, term string) bool {
	n := utf8.RuneCountInString(candidate)
	if n < r.minFuzzyLength {
		return false
	}
	allowed := 1
	if n >= 8 {
		allowed = 2
	}
	return levenshtein.ComputeDistance(candidate, term) <= allowed
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// singular strips common English plural suffixes.
func singular(s string) string {
	switch {
	case len(s) > 4 && strings.HasSuffix(s, "ies"):
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ss"):
		return s
	case len(s) > 3 && strings.HasSuffix(s, "s"):
		return s[:len(s)-1]
	default:
		return s
	}
}
