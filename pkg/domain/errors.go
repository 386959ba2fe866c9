package domain

import (
	"errors"
	"fmt"
)

// Validation rule identifiers carried by InvalidDesignError.
const (
	// RuleUnknownFactor fires when a relationship references a factor that is
	// not present in the design's factor mapping.
	RuleUnknownFactor = "unknown-factor"

	// RuleClassifierNotTerminal fires when a classifier also participates in
	// nesting or classifies another classifier.
	RuleClassifierNotTerminal = "classifier-not-terminal"

	// RuleFactorIntegrity fires on malformed factor data (length mismatch,
	// duplicate categories, negative counts).
	RuleFactorIntegrity = "factor-integrity"

	// RuleNoRoot fires when every factor is a child or classifier, which
	// indicates a circular dependency.
	RuleNoRoot = "no-root-factor"

	// RuleBadRelationship fires on a relationship with an unknown type or
	// missing endpoints.
	RuleBadRelationship = "bad-relationship"
)

// ErrFactorNotFound is returned when a named factor cannot be located in a
// data file's observation metadata.
var ErrFactorNotFound = errors.New("factor not found")

// InvalidDesignError reports a structural validation failure. Rule is one of
// the Rule* constants; Factor names the offending factor when known.
type InvalidDesignError struct {
	Rule   string
	Factor string
	Reason string
}

func (e *InvalidDesignError) Error() string {
	if e.Factor == "" {
		return fmt.Sprintf("invalid design (%s): %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("invalid design (%s): factor %q: %s", e.Rule, e.Factor, e.Reason)
}

// AsInvalidDesign unwraps err into an *InvalidDesignError if possible.
func AsInvalidDesign(err error) (*InvalidDesignError, bool) {
	var ide *InvalidDesignError
	if errors.As(err, &ide) {
		return ide, true
	}
	return nil, false
}
