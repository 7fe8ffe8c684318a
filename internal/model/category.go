package model

// MatchKind records how a free-text category was mapped onto the canonical set.
type MatchKind string

const (
	// MatchExact means the candidate equals a canonical name or synonym, ignoring case.
	MatchExact MatchKind = "exact"
	// MatchFuzzy means exactly one canonical category matched by substring or typo tolerance.
	MatchFuzzy MatchKind = "fuzzy"
	// MatchDefault means the candidate was blank and the fallback category was used.
	MatchDefault MatchKind = "default"
	// MatchNone means the candidate matched zero or several canonical categories.
	MatchNone MatchKind = "none"
)

// ResolvedCategory is the result of category resolution.
type ResolvedCategory struct {
	Canonical string
	Kind      MatchKind
	// Options lists the canonical categories to offer the user when Kind is
	// MatchNone: every ambiguous match, or the full set when nothing matched.
	Options []string
}

// Resolved reports whether a canonical category was found.
func (r ResolvedCategory) Resolved() bool {
	return r.Kind != MatchNone && r.Canonical != ""
}
