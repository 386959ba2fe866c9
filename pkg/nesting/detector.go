// Package nesting classifies the relationship between two categorical
// factors as nested or crossed using a substring name-matching heuristic:
// sample labels like "WT_rep1" tend to embed the name of the condition they
// belong to, while labels of an independent factor do not.
package nesting

import "strings"

// Tag is the two-valued classification outcome.
type Tag string

const (
	// Nested means the child factor's levels occur within specific levels of
	// the parent factor.
	Nested Tag = "nested"

	// Crossed means the factors are treated as independent.
	Crossed Tag = "crossed"
)

// Result carries the classification plus the underlying match counts so
// callers can build confidence-aware behavior on top of the binary tag.
type Result struct {
	Tag        Tag `json:"tag"`
	MatchCount int `json:"match_count"`
	Total      int `json:"total"`
}

// Ratio returns MatchCount/Total, or 0 for an empty child set.
func (r Result) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.MatchCount) / float64(r.Total)
}

// Classify decides whether child's categories are nested within parent's.
//
// Each child label is tested for case-insensitive substring containment of
// any parent label. The result is Nested when strictly more than half of the
// child labels match (integer division, so exactly 50% is Crossed). Empty
// inputs yield Crossed: there is no evidence of containment.
//
// The heuristic is deliberately simple. Very short parent labels will match
// almost anything; the match counts are exposed so callers can inspect
// borderline outcomes.
func Classify(parent, child []string) Result {
	res := Result{Tag: Crossed, Total: len(child)}
	if len(parent) == 0 || len(child) == 0 {
		return res
	}

	lowered := make([]string, len(parent))
	for i, p := range parent {
		lowered[i] = strings.ToLower(p)
	}

	for _, c := range child {
		lc := strings.ToLower(c)
		for _, p := range lowered {
			if strings.Contains(lc, p) {
				res.MatchCount++
				break
			}
		}
	}

	if res.MatchCount > res.Total/2 {
		res.Tag = Nested
	}
	return res
}
