package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vals/anndata-design-inspector/pkg/domain"
)

func TestDesignUnmarshalPreservesFactorOrder(t *testing.T) {
	input := `{
		"factors": {
			"zeta": {"categories": ["a"], "counts": [1]},
			"alpha": {"categories": ["b"], "counts": [2]},
			"mid": {"categories": ["c"], "counts": [3]}
		},
		"relationships": []
	}`

	var d domain.Design
	require.NoError(t, json.Unmarshal([]byte(input), &d))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, d.Order())

	// Name is backfilled from the object key.
	f, ok := d.Factor("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", f.Name)
	assert.Equal(t, []string{"b"}, f.Categories)
	assert.Equal(t, []int{2}, f.Counts)
}

func TestDesignMarshalRoundTrip(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{5, 5}, Kind: domain.KindExperimental})
	d.AddFactor(&domain.Factor{Name: "sample", Categories: []string{"s1"}, Counts: []int{10}})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "genotype", Child: "sample"})

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var back domain.Design
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, d.Order(), back.Order())
	assert.Equal(t, d.Relationships, back.Relationships)

	g, ok := back.Factor("genotype")
	require.True(t, ok)
	assert.Equal(t, domain.KindExperimental, g.Kind)
	assert.Equal(t, []string{"WT", "KO"}, g.Categories)
}

func TestDesignAddFactorKeepsPositionOnReplace(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "a"})
	d.AddFactor(&domain.Factor{Name: "b"})
	d.AddFactor(&domain.Factor{Name: "a", Categories: []string{"x"}, Counts: []int{1}})

	assert.Equal(t, []string{"a", "b"}, d.Order())
	f, _ := d.Factor("a")
	assert.Equal(t, []string{"x"}, f.Categories)
}

func TestFactorValidate(t *testing.T) {
	tests := []struct {
		name    string
		factor  domain.Factor
		wantErr bool
	}{
		{
			name:   "valid",
			factor: domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{1, 2}},
		},
		{
			name:    "missing name",
			factor:  domain.Factor{Categories: []string{"WT"}, Counts: []int{1}},
			wantErr: true,
		},
		{
			name:    "length mismatch",
			factor:  domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{1}},
			wantErr: true,
		},
		{
			name:    "duplicate category",
			factor:  domain.Factor{Name: "genotype", Categories: []string{"WT", "WT"}, Counts: []int{1, 2}},
			wantErr: true,
		},
		{
			name:    "negative count",
			factor:  domain.Factor{Name: "genotype", Categories: []string{"WT"}, Counts: []int{-1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.factor.Validate()
			if tt.wantErr {
				require.Error(t, err)
				ide, ok := domain.AsInvalidDesign(err)
				require.True(t, ok)
				assert.Equal(t, domain.RuleFactorIntegrity, ide.Rule)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFactorAccessors(t *testing.T) {
	f := domain.Factor{Name: "sample", Categories: []string{"a", "b", "c"}, Counts: []int{10, 20, 30}}
	assert.Equal(t, 3, f.Levels())
	assert.Equal(t, 60, f.TotalCount())
}
