package domain

// RelationshipType discriminates the two kinds of structural relationships
// between factors.
type RelationshipType string

const (
	// RelNested declares that the child factor's levels only occur within
	// specific levels of the parent factor.
	RelNested RelationshipType = "nested"

	// RelClassification declares that the classifier factor labels the
	// observations of the subject factor. Classification is terminal: a
	// classifier never participates in further nesting.
	RelClassification RelationshipType = "classification"
)

// Relationship connects two factors. For RelNested, Parent and Child are set.
// For RelClassification, Factor (the subject) and Classifier are set.
type Relationship struct {
	Type       RelationshipType `json:"type" mapstructure:"type"`
	Parent     string           `json:"parent,omitempty" mapstructure:"parent"`
	Child      string           `json:"child,omitempty" mapstructure:"child"`
	Factor     string           `json:"factor,omitempty" mapstructure:"factor"`
	Classifier string           `json:"classifier,omitempty" mapstructure:"classifier"`
}

// References returns the factor names this relationship mentions.
func (r Relationship) References() []string {
	switch r.Type {
	case RelNested:
		return []string{r.Parent, r.Child}
	case RelClassification:
		return []string{r.Factor, r.Classifier}
	}
	return nil
}
