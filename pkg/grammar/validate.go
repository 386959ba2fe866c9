package grammar

import (
	"fmt"

	"github.com/vals/anndata-design-inspector/pkg/domain"
)

// Validate checks the structural constraints a design must satisfy before it
// can be rendered:
//
//  1. every factor referenced by a relationship exists in the factor mapping;
//  2. every factor is internally consistent (parallel categories/counts,
//     unique categories, non-negative counts);
//  3. classification is terminal: a classifier never appears in a nesting
//     relationship, is never itself classified, and a classified factor may
//     not nest further children (the classifier ends its chain).
//
// The first violation found is returned as a *domain.InvalidDesignError.
func Validate(d *domain.Design) error {
	for _, rel := range d.Relationships {
		switch rel.Type {
		case domain.RelNested:
			if rel.Parent == "" || rel.Child == "" {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleBadRelationship,
					Reason: "nested relationship must name parent and child",
				}
			}
		case domain.RelClassification:
			if rel.Factor == "" || rel.Classifier == "" {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleBadRelationship,
					Reason: "classification relationship must name factor and classifier",
				}
			}
		default:
			return &domain.InvalidDesignError{
				Rule:   domain.RuleBadRelationship,
				Reason: fmt.Sprintf("unknown relationship type %q", rel.Type),
			}
		}
		for _, name := range rel.References() {
			if _, ok := d.Factors[name]; !ok {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleUnknownFactor,
					Factor: name,
					Reason: fmt.Sprintf("relationship references %q which is not in the factor mapping", name),
				}
			}
		}
	}

	for _, name := range d.Order() {
		f := d.Factors[name]
		if f.Name == "" {
			f.Name = name
		}
		if err := f.Validate(); err != nil {
			return err
		}
	}

	return validateClassifiersTerminal(d)
}

// validateClassifiersTerminal enforces that classification ends a chain: the
// classifier side of a classification relationship may not be the parent or
// child of any nesting relationship, nor the subject of another
// classification, and the classified factor itself may not be a nesting
// parent (the classifier would otherwise read as attached to the deepest
// child instead).
func validateClassifiersTerminal(d *domain.Design) error {
	classifiers := make(map[string]bool)
	subjects := make(map[string]bool)
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelClassification {
			classifiers[rel.Classifier] = true
			subjects[rel.Factor] = true
		}
	}
	for _, rel := range d.Relationships {
		switch rel.Type {
		case domain.RelNested:
			if classifiers[rel.Parent] {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleClassifierNotTerminal,
					Factor: rel.Parent,
					Reason: "classification must be terminal: classifier nests further factors",
				}
			}
			if classifiers[rel.Child] {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleClassifierNotTerminal,
					Factor: rel.Child,
					Reason: "classification must be terminal: classifier is nested under another factor",
				}
			}
			if subjects[rel.Parent] {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleClassifierNotTerminal,
					Factor: rel.Parent,
					Reason: "classification must be terminal: classified factor nests further children",
				}
			}
		case domain.RelClassification:
			if classifiers[rel.Factor] {
				return &domain.InvalidDesignError{
					Rule:   domain.RuleClassifierNotTerminal,
					Factor: rel.Factor,
					Reason: "classification must be terminal: classifier is itself classified",
				}
			}
		}
	}
	return nil
}
