package grammar

import (
	"strconv"
	"strings"

	"github.com/vals/anndata-design-inspector/pkg/domain"
)

// CamelCase normalizes a factor name for the grammar: underscore- or
// space-delimited segments are capitalized and concatenated, so "cell_type"
// becomes "CellType" and "time point" becomes "TimePoint".
func CamelCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(strings.ToUpper(w[:1]))
		sb.WriteString(strings.ToLower(w[1:]))
	}
	return sb.String()
}

// FormatCount renders a single count. With approximate set, counts of 1000
// and above collapse to "~Nk" / "~N.Nm" with trailing zeros stripped.
func FormatCount(count int, approximate bool) string {
	if !approximate || count < 1000 {
		return strconv.Itoa(count)
	}
	var val float64
	var suffix string
	if count >= 1_000_000 {
		val = float64(count) / 1_000_000
		suffix = "m"
	} else {
		val = float64(count) / 1000
		suffix = "k"
	}
	s := strconv.FormatFloat(val, 'f', 1, 64)
	s = strings.TrimSuffix(s, ".0")
	return "~" + s + suffix
}

// Balanced reports whether counts are approximately equal: every count lies
// within tolerance (relative) of the mean. Empty and single-element slices
// are balanced by definition.
func Balanced(counts []int, tolerance float64) bool {
	if len(counts) <= 1 {
		return true
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	avg := float64(sum) / float64(len(counts))
	if avg == 0 {
		return true
	}
	for _, c := range counts {
		dev := float64(c) - avg
		if dev < 0 {
			dev = -dev
		}
		if dev/avg > tolerance {
			return false
		}
	}
	return true
}

// Token renders one factor reference with its size specification: balanced
// factors as Name(levels), unbalanced ones as Name[n1|n2|...] listing counts
// in category order.
func Token(f *domain.Factor, opts Options) string {
	name := CamelCase(f.Name)
	if Balanced(f.Counts, opts.BalanceTolerance) {
		return name + "(" + strconv.Itoa(f.Levels()) + ")"
	}
	approx := opts.ApproximateCounts && f.Kind == domain.KindClassification
	parts := make([]string, len(f.Counts))
	for i, c := range f.Counts {
		parts[i] = FormatCount(c, approx)
	}
	return name + "[" + strings.Join(parts, "|") + "]"
}
