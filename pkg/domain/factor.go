package domain

// FactorKind categorizes the role a factor plays in an experimental design.
type FactorKind string

const (
	// KindExperimental marks a deliberately manipulated condition (genotype, treatment).
	KindExperimental FactorKind = "experimental"

	// KindReplicate marks a biological or technical replicate unit (sample, mouse).
	KindReplicate FactorKind = "replicate"

	// KindClassification marks an observed label assigned after measurement (cell type).
	// Classification factors terminate a rendering chain.
	KindClassification FactorKind = "classification"

	// KindBatch marks a technical grouping (sequencing run, lane).
	KindBatch FactorKind = "batch"
)

// Factor is a named categorical variable extracted from an experiment's
// observation metadata. Categories and Counts are parallel slices: Counts[i]
// is the number of observations carrying Categories[i].
type Factor struct {
	Name       string     `json:"name,omitempty" mapstructure:"name"`
	Categories []string   `json:"categories" mapstructure:"categories"`
	Counts     []int      `json:"counts" mapstructure:"counts"`
	Kind       FactorKind `json:"type,omitempty" mapstructure:"type"`
}

// Levels returns the number of distinct categories.
func (f *Factor) Levels() int {
	return len(f.Categories)
}

// TotalCount returns the number of observations across all categories.
func (f *Factor) TotalCount() int {
	total := 0
	for _, c := range f.Counts {
		total += c
	}
	return total
}

// Validate checks the internal consistency of the factor.
func (f *Factor) Validate() error {
	if f.Name == "" {
		return &InvalidDesignError{Rule: RuleFactorIntegrity, Reason: "factor has no name"}
	}
	if len(f.Categories) != len(f.Counts) {
		return &InvalidDesignError{
			Rule:   RuleFactorIntegrity,
			Factor: f.Name,
			Reason: "categories and counts must have the same length",
		}
	}
	seen := make(map[string]bool, len(f.Categories))
	for _, cat := range f.Categories {
		if seen[cat] {
			return &InvalidDesignError{
				Rule:   RuleFactorIntegrity,
				Factor: f.Name,
				Reason: "duplicate category " + cat,
			}
		}
		seen[cat] = true
	}
	for _, c := range f.Counts {
		if c < 0 {
			return &InvalidDesignError{
				Rule:   RuleFactorIntegrity,
				Factor: f.Name,
				Reason: "counts must be non-negative",
			}
		}
	}
	return nil
}
