// Package inference assembles a domain.Design from a flat list of extracted
// factors: it guesses each factor's role from its name and labels, runs the
// nesting classifier over candidate pairs, and declares the surviving
// structure as relationships.
package inference

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vals/anndata-design-inspector/internal/logging"
	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/nesting"
)

// ambiguity band around the nesting threshold that triggers a design note.
const (
	ambiguousLow  = 0.4
	ambiguousHigh = 0.6
)

// classificationHints mark obs columns that are observed labels rather than
// design variables.
var classificationHints = []string{"cell_type", "celltype", "cluster", "annotation", "leiden", "louvain"}

// Result bundles the inferred design with human-readable notes about
// assumptions and borderline classifier outcomes.
type Result struct {
	Design *domain.Design
	Notes  []string
}

// Inferrer derives design structure from factors.
type Inferrer struct {
	log *slog.Logger
}

// New creates an Inferrer. A nil logger gets a no-op logger.
func New(logger *slog.Logger) *Inferrer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Inferrer{log: logger}
}

// Infer builds a design from factors, preserving their given order.
//
// Roles are guessed first: name hints mark classification and batch factors,
// and replicate-looking labels (rep/sample patterns) mark replicate factors.
// Then every ordered pair of non-classification factors where the candidate
// parent has strictly fewer levels is run through the nesting classifier;
// each child keeps the matching parent with the highest match ratio.
// Classification factors attach to the deepest nested factor.
func (inf *Inferrer) Infer(factors []*domain.Factor) Result {
	d := domain.NewDesign()
	var notes []string

	for _, f := range factors {
		if f.Kind == "" {
			f.Kind = guessKind(f)
		}
		d.AddFactor(f)
	}

	// Candidate design factors, smallest level count first so parents are
	// considered before their children.
	var design []*domain.Factor
	for _, name := range d.Order() {
		f := d.Factors[name]
		if f.Kind != domain.KindClassification {
			design = append(design, f)
		}
	}
	sort.SliceStable(design, func(i, j int) bool {
		return design[i].Levels() < design[j].Levels()
	})

	nested := make(map[string]bool)
	for _, child := range design {
		best := ""
		bestRatio := 0.0
		for _, parent := range design {
			if parent.Name == child.Name || parent.Levels() >= child.Levels() {
				continue
			}
			res := nesting.Classify(parent.Categories, child.Categories)
			inf.log.Debug("classified factor pair",
				"parent", parent.Name, "child", child.Name,
				"tag", res.Tag, "matched", res.MatchCount, "total", res.Total)
			if ratio := res.Ratio(); ratio >= ambiguousLow && ratio <= ambiguousHigh {
				notes = append(notes, fmt.Sprintf(
					"Nesting of %s within %s is ambiguous: %d of %d labels matched (threshold is a strict majority).",
					child.Name, parent.Name, res.MatchCount, res.Total))
			}
			if res.Tag == nesting.Nested && res.Ratio() > bestRatio {
				best = parent.Name
				bestRatio = res.Ratio()
			}
		}
		if best != "" {
			d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: best, Child: child.Name})
			nested[child.Name] = true
		}
	}

	// Classifiers annotate the deepest design factor: the one with the most
	// levels among nested children, falling back to the largest factor.
	subject := deepest(design, nested)
	if subject != "" {
		for _, name := range d.Order() {
			f := d.Factors[name]
			if f.Kind == domain.KindClassification {
				d.AddRelationship(domain.Relationship{
					Type:       domain.RelClassification,
					Factor:     subject,
					Classifier: f.Name,
				})
			}
		}
	}

	return Result{Design: d, Notes: notes}
}

func deepest(design []*domain.Factor, nested map[string]bool) string {
	best := ""
	bestLevels := -1
	for _, f := range design {
		if nested[f.Name] && f.Levels() > bestLevels {
			best = f.Name
			bestLevels = f.Levels()
		}
	}
	if best != "" {
		return best
	}
	for _, f := range design {
		if f.Levels() > bestLevels {
			best = f.Name
			bestLevels = f.Levels()
		}
	}
	return best
}

func guessKind(f *domain.Factor) domain.FactorKind {
	name := strings.ToLower(f.Name)
	for _, hint := range classificationHints {
		if strings.Contains(name, hint) {
			return domain.KindClassification
		}
	}
	if strings.Contains(name, "batch") || strings.Contains(name, "lane") || strings.Contains(name, "run") {
		return domain.KindBatch
	}
	if strings.Contains(name, "sample") || strings.Contains(name, "replicate") || replicateLabels(f.Categories) {
		return domain.KindReplicate
	}
	return domain.KindExperimental
}

// replicateLabels reports whether most labels look like replicate IDs
// (contain "rep" or end in _<digits>).
func replicateLabels(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	hits := 0
	for _, l := range labels {
		ll := strings.ToLower(l)
		if strings.Contains(ll, "rep") || trailingDigits(ll) {
			hits++
		}
	}
	return hits > len(labels)/2
}

func trailingDigits(s string) bool {
	idx := strings.LastIndexByte(s, '_')
	if idx < 0 || idx == len(s)-1 {
		return false
	}
	for _, r := range s[idx+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
