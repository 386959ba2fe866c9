// Package grammar renders a domain.Design into the compact design-grammar
// string, e.g. "Genotype(2) > Sample(4) : CellType(3)". Operators bind
// tightest-first as ()/[], then ":" (classify), ">" (nest), "×" (cross).
package grammar

import (
	"strconv"
	"strings"

	"github.com/vals/anndata-design-inspector/pkg/domain"
)

// DefaultBalanceTolerance is the relative deviation from the mean below
// which per-category counts are rendered with the balanced (n) notation.
const DefaultBalanceTolerance = 0.1

// Options tune serialization.
type Options struct {
	// BalanceTolerance is the relative tolerance for Balanced; zero means
	// DefaultBalanceTolerance.
	BalanceTolerance float64

	// ApproximateCounts renders large unbalanced counts of classification
	// factors as ~Nk / ~N.Nm.
	ApproximateCounts bool
}

func (o Options) withDefaults() Options {
	if o.BalanceTolerance == 0 {
		o.BalanceTolerance = DefaultBalanceTolerance
	}
	return o
}

// Serialize renders the design with default options.
func Serialize(d *domain.Design) (string, error) {
	return SerializeWith(d, Options{})
}

// SerializeWith renders the design into a single-line grammar string. The
// design is validated first; on failure a *domain.InvalidDesignError is
// returned and no partial output is produced.
func SerializeWith(d *domain.Design, opts Options) (string, error) {
	opts = opts.withDefaults()
	if err := Validate(d); err != nil {
		return "", err
	}

	roots := Roots(d)
	if len(roots) == 0 {
		return "", &domain.InvalidDesignError{
			Rule:   domain.RuleNoRoot,
			Reason: "no root factors found, possible circular dependency",
		}
	}

	parts := make([]string, 0, len(roots))
	for _, root := range roots {
		parts = append(parts, renderChain(d, root, opts))
	}
	return strings.Join(parts, " × "), nil
}

// Roots returns, in declaration order, the factors that are neither a nested
// child nor a classifier. These form the left-to-right crossed segments of
// the rendered grammar.
func Roots(d *domain.Design) []string {
	excluded := make(map[string]bool)
	for _, rel := range d.Relationships {
		switch rel.Type {
		case domain.RelNested:
			excluded[rel.Child] = true
		case domain.RelClassification:
			excluded[rel.Classifier] = true
		}
	}
	var roots []string
	for _, name := range d.Order() {
		if !excluded[name] {
			roots = append(roots, name)
		}
	}
	return roots
}

func renderChain(d *domain.Design, name string, opts Options) string {
	f := d.Factors[name]
	var sb strings.Builder
	sb.WriteString(Token(f, opts))

	for _, child := range children(d, name) {
		sb.WriteString(" > ")
		sb.WriteString(renderChain(d, child, opts))
	}

	if classifier := classifierOf(d, name); classifier != "" {
		// Classification annotates with the number of labels only; the count
		// distribution of a classifier is not part of the design size.
		cf := d.Factors[classifier]
		sb.WriteString(" : ")
		sb.WriteString(CamelCase(classifier))
		sb.WriteString("(")
		sb.WriteString(strconv.Itoa(cf.Levels()))
		sb.WriteString(")")
	}
	return sb.String()
}

func children(d *domain.Design, parent string) []string {
	var out []string
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelNested && rel.Parent == parent {
			out = append(out, rel.Child)
		}
	}
	return out
}

func classifierOf(d *domain.Design, name string) string {
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelClassification && rel.Factor == name {
			return rel.Classifier
		}
	}
	return ""
}
