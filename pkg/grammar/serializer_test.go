package grammar_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
)

func exampleDesign() *domain.Design {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{
		Name:       "genotype",
		Categories: []string{"WT", "KO"},
		Counts:     []int{5000, 5000},
		Kind:       domain.KindExperimental,
	})
	d.AddFactor(&domain.Factor{
		Name:       "sample",
		Categories: []string{"WT_rep1", "WT_rep2", "KO_rep1", "KO_rep2"},
		Counts:     []int{2500, 2500, 2500, 2500},
		Kind:       domain.KindReplicate,
	})
	d.AddFactor(&domain.Factor{
		Name:       "cell_type",
		Categories: []string{"T_cells", "B_cells", "Macrophages"},
		Counts:     []int{4000, 3500, 2500},
		Kind:       domain.KindClassification,
	})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "genotype", Child: "sample"})
	d.AddRelationship(domain.Relationship{Type: domain.RelClassification, Factor: "sample", Classifier: "cell_type"})
	return d
}

func TestSerializeNestedWithClassification(t *testing.T) {
	got, err := grammar.Serialize(exampleDesign())
	require.NoError(t, err)
	assert.Equal(t, "Genotype(2) > Sample(4) : CellType(3)", got)
}

func TestSerializeDeterministic(t *testing.T) {
	first, err := grammar.Serialize(exampleDesign())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := grammar.Serialize(exampleDesign())
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestSerializeCrossedRoots(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{500, 500}})
	d.AddFactor(&domain.Factor{Name: "treatment", Categories: []string{"ctrl", "drug"}, Counts: []int{500, 500}})

	got, err := grammar.Serialize(d)
	require.NoError(t, err)
	assert.Equal(t, "Genotype(2) × Treatment(2)", got)
}

func TestSerializeUnknownFactor(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{500, 500}})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "genotype", Child: "sample"})

	out, err := grammar.Serialize(d)
	require.Error(t, err)
	assert.Empty(t, out)

	ide, ok := domain.AsInvalidDesign(err)
	require.True(t, ok)
	assert.Equal(t, domain.RuleUnknownFactor, ide.Rule)
	assert.Equal(t, "sample", ide.Factor)
}

func TestSerializeClassifierMustBeTerminal(t *testing.T) {
	d := exampleDesign()
	d.AddFactor(&domain.Factor{
		Name:       "subcluster",
		Categories: []string{"c1", "c2"},
		Counts:     []int{100, 100},
	})
	// cell_type classifies sample above; nesting anything under it is invalid.
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "cell_type", Child: "subcluster"})

	out, err := grammar.Serialize(d)
	require.Error(t, err)
	assert.Empty(t, out)

	ide, ok := domain.AsInvalidDesign(err)
	require.True(t, ok)
	assert.Equal(t, domain.RuleClassifierNotTerminal, ide.Rule)
	assert.Equal(t, "cell_type", ide.Factor)
}

func TestSerializeClassifiedFactorCannotNestChildren(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "sample", Categories: []string{"s1", "s2"}, Counts: []int{200, 200}})
	d.AddFactor(&domain.Factor{Name: "rep", Categories: []string{"s1_a", "s2_a"}, Counts: []int{100, 100}})
	d.AddFactor(&domain.Factor{
		Name:       "cell_type",
		Categories: []string{"T_cells", "B_cells"},
		Counts:     []int{250, 150},
		Kind:       domain.KindClassification,
	})
	// sample is classified, so it may not also nest rep: the ":" segment
	// would otherwise read as attached to the deepest child.
	d.AddRelationship(domain.Relationship{Type: domain.RelClassification, Factor: "sample", Classifier: "cell_type"})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "sample", Child: "rep"})

	out, err := grammar.Serialize(d)
	require.Error(t, err)
	assert.Empty(t, out)

	ide, ok := domain.AsInvalidDesign(err)
	require.True(t, ok)
	assert.Equal(t, domain.RuleClassifierNotTerminal, ide.Rule)
	assert.Equal(t, "sample", ide.Factor)
}

func TestSerializeCountMismatch(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{500}})

	_, err := grammar.Serialize(d)
	require.Error(t, err)
	ide, ok := domain.AsInvalidDesign(err)
	require.True(t, ok)
	assert.Equal(t, domain.RuleFactorIntegrity, ide.Rule)
}

func TestSerializeCycleHasNoRoot(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "a", Categories: []string{"x"}, Counts: []int{1}})
	d.AddFactor(&domain.Factor{Name: "b", Categories: []string{"y"}, Counts: []int{1}})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "a", Child: "b"})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "b", Child: "a"})

	_, err := grammar.Serialize(d)
	require.Error(t, err)
	ide, ok := domain.AsInvalidDesign(err)
	require.True(t, ok)
	assert.Equal(t, domain.RuleNoRoot, ide.Rule)
}

func TestSerializeFromJSON(t *testing.T) {
	input := `{
		"factors": {
			"genotype": {"categories": ["WT", "KO"], "counts": [5000, 5000], "type": "experimental"},
			"sample": {"categories": ["WT_rep1", "WT_rep2", "KO_rep1", "KO_rep2"], "counts": [2500, 2500, 2500, 2500], "type": "replicate"},
			"cell_type": {"categories": ["T_cells", "B_cells", "Macrophages"], "counts": [4000, 3500, 2500], "type": "classification"}
		},
		"relationships": [
			{"parent": "genotype", "child": "sample", "type": "nested"},
			{"factor": "sample", "classifier": "cell_type", "type": "classification"}
		]
	}`

	var d domain.Design
	require.NoError(t, json.Unmarshal([]byte(input), &d))

	got, err := grammar.Serialize(&d)
	require.NoError(t, err)
	assert.Equal(t, "Genotype(2) > Sample(4) : CellType(3)", got)
}

func TestToken(t *testing.T) {
	tests := []struct {
		name   string
		factor domain.Factor
		opts   grammar.Options
		want   string
	}{
		{
			name:   "balanced",
			factor: domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{5000, 5000}},
			want:   "Genotype(2)",
		},
		{
			name:   "unbalanced",
			factor: domain.Factor{Name: "sample", Categories: []string{"s1", "s2"}, Counts: []int{2500, 1500}},
			want:   "Sample[2500|1500]",
		},
		{
			name: "near-balanced within tolerance",
			factor: domain.Factor{
				Name:       "sample",
				Categories: []string{"s1", "s2", "s3", "s4"},
				Counts:     []int{5354, 5354, 5354, 5355},
			},
			want: "Sample(4)",
		},
		{
			name: "approximate classification counts",
			factor: domain.Factor{
				Name:       "cell_type",
				Categories: []string{"T_cells", "B_cells"},
				Counts:     []int{21000, 1200000},
				Kind:       domain.KindClassification,
			},
			opts: grammar.Options{ApproximateCounts: true},
			want: "CellType[~21k|~1.2m]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if opts.BalanceTolerance == 0 {
				opts.BalanceTolerance = grammar.DefaultBalanceTolerance
			}
			assert.Equal(t, tt.want, grammar.Token(&tt.factor, opts))
		})
	}
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "Genotype", grammar.CamelCase("genotype"))
	assert.Equal(t, "CellType", grammar.CamelCase("cell_type"))
	assert.Equal(t, "TimePoint", grammar.CamelCase("time point"))
	assert.Equal(t, "Wt", grammar.CamelCase("WT"))
	assert.Equal(t, "", grammar.CamelCase(""))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "4", grammar.FormatCount(4, false))
	assert.Equal(t, "4", grammar.FormatCount(4, true))
	assert.Equal(t, "21000", grammar.FormatCount(21000, false))
	assert.Equal(t, "~21k", grammar.FormatCount(21000, true))
	assert.Equal(t, "~1.2m", grammar.FormatCount(1200000, true))
	assert.Equal(t, "~1.5k", grammar.FormatCount(1500, true))
}

func TestBalanced(t *testing.T) {
	assert.True(t, grammar.Balanced(nil, 0.1))
	assert.True(t, grammar.Balanced([]int{7}, 0.1))
	assert.True(t, grammar.Balanced([]int{100, 100, 100}, 0.1))
	assert.True(t, grammar.Balanced([]int{0, 0}, 0.1))
	assert.False(t, grammar.Balanced([]int{2500, 1500}, 0.1))
	assert.True(t, grammar.Balanced([]int{105, 95}, 0.1))
}
