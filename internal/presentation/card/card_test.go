package card_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vals/anndata-design-inspector/internal/presentation/card"
	"github.com/vals/anndata-design-inspector/pkg/domain"
)

func cardInput() card.Input {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{
		Name:       "genotype",
		Categories: []string{"WT", "KO"},
		Counts:     []int{6500, 6000},
		Kind:       domain.KindExperimental,
	})
	d.AddFactor(&domain.Factor{
		Name:       "sample",
		Categories: []string{"WT_rep1", "WT_rep2", "KO_rep1", "KO_rep2"},
		Counts:     []int{3300, 3200, 3100, 2900},
		Kind:       domain.KindReplicate,
	})
	d.AddFactor(&domain.Factor{
		Name:       "cell_type",
		Categories: []string{"T_cells", "B_cells", "Macrophages"},
		Counts:     []int{5000, 4500, 3000},
		Kind:       domain.KindClassification,
	})
	d.AddRelationship(domain.Relationship{Type: domain.RelNested, Parent: "genotype", Child: "sample"})
	d.AddRelationship(domain.Relationship{Type: domain.RelClassification, Factor: "sample", Classifier: "cell_type"})

	return card.Input{
		File:        "test_experiment.h5ad",
		Species:     "mouse",
		TotalCells:  12500,
		DesignType:  "nested",
		Grammar:     "Genotype(2) > Sample(4) : CellType(3)",
		Diagram:     "Genotype\n├── WT\n└── KO",
		Design:      d,
		Notes:       []string{"Sample assignment inferred from label prefixes."},
		ToolVersion: "0.1.0",
		Now:         time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestGenerate(t *testing.T) {
	got, err := card.Generate(cardInput())
	require.NoError(t, err)

	for _, want := range []string{
		"2026-08-31",
		"h5ad_file: test_experiment.h5ad",
		"design_grammar:",
		"# Experimental Design Card",
		"**Species:** Mouse (Mus musculus)",
		"**Total Cells:** 12,500",
		"| Genotype | 2 | Treatment |",
		"| Sample | 4 | Replicate |",
		"| Cell Type | 3 | Observation |",
		"**nested design**",
		"Genotype(2) > Sample(4) : CellType(3)",
		"Random Effects Modeling",
		"(1|sample)",
		"pseudobulk",
		"## Design Notes",
		"Sample assignment inferred from label prefixes.",
	} {
		assert.Contains(t, got, want)
	}
}

func TestGenerateFrontmatterDelimited(t *testing.T) {
	got, err := card.Generate(cardInput())
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(got, "---\n"))
	rest := got[4:]
	assert.Greater(t, strings.Index(rest, "\n---\n"), 0)
}

func TestGenerateCrossedAnalysis(t *testing.T) {
	d := domain.NewDesign()
	d.AddFactor(&domain.Factor{Name: "genotype", Categories: []string{"WT", "KO"}, Counts: []int{500, 500}, Kind: domain.KindExperimental})
	d.AddFactor(&domain.Factor{Name: "treatment", Categories: []string{"ctrl", "drug"}, Counts: []int{500, 500}, Kind: domain.KindExperimental})

	got, err := card.Generate(card.Input{
		File:       "crossed.h5ad",
		TotalCells: 1000,
		DesignType: "crossed",
		Grammar:    "Genotype(2) × Treatment(2)",
		Design:     d,
	})
	require.NoError(t, err)

	assert.Contains(t, got, "factorial crossed design")
	assert.Contains(t, got, "~ genotype * treatment")
	assert.Contains(t, got, "Multiple Testing")
}

func TestGenerateMissingDesign(t *testing.T) {
	_, err := card.Generate(card.Input{File: "x.h5ad"})
	require.Error(t, err)
}

func TestGenerateDistribution(t *testing.T) {
	got, err := card.Generate(cardInput())
	require.NoError(t, err)
	assert.Contains(t, got, "**Cells per sample:** 2,900 - 3,300 (mean: 3,125)")
}
