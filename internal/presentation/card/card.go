// Package card generates the Markdown "experiment card" documenting an
// inspected design: YAML frontmatter, dataset info, factor table, design
// classification prose, diagrams, cell-distribution stats, and analysis
// guidance keyed on the design type.
package card

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vals/anndata-design-inspector/pkg/domain"
)

// Input is everything the card needs. Design carries factors in declaration
// order plus relationships; the remaining fields are presentation data.
type Input struct {
	File        string         `json:"h5ad_file"`
	Species     string         `json:"species,omitempty"`
	TotalCells  int            `json:"total_cells"`
	DesignType  string         `json:"design_type"`
	Grammar     string         `json:"grammar"`
	Diagram     string         `json:"diagram,omitempty"`
	Design      *domain.Design `json:"design"`
	Notes       []string       `json:"design_notes,omitempty"`
	ToolVersion string         `json:"tool_version,omitempty"`

	// Now overrides the analysis date; zero means time.Now().
	Now time.Time `json:"-"`
}

type frontmatter struct {
	AnalysisDate string   `yaml:"analysis_date"`
	File         string   `yaml:"h5ad_file"`
	Species      string   `yaml:"species"`
	TotalCells   int      `yaml:"total_cells"`
	DesignType   string   `yaml:"design_type"`
	Grammar      string   `yaml:"design_grammar"`
	Factors      []string `yaml:"factors"`
	ToolVersion  string   `yaml:"tool_version"`
}

var speciesNames = map[string]string{
	"human":      "Human (Homo sapiens)",
	"mouse":      "Mouse (Mus musculus)",
	"zebrafish":  "Zebrafish (Danio rerio)",
	"drosophila": "Fruit fly (Drosophila melanogaster)",
}

var kindDisplay = map[domain.FactorKind]string{
	domain.KindExperimental:   "Treatment",
	domain.KindReplicate:      "Replicate",
	domain.KindClassification: "Observation",
	domain.KindBatch:          "Batch",
}

// Generate renders the experiment card as Markdown.
func Generate(in Input) (string, error) {
	if in.Design == nil {
		return "", fmt.Errorf("experiment card requires a design")
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	date := now.Format("2006-01-02")

	fm, err := yaml.Marshal(frontmatter{
		AnalysisDate: date,
		File:         in.File,
		Species:      orUnknown(in.Species),
		TotalCells:   in.TotalCells,
		DesignType:   in.DesignType,
		Grammar:      in.Grammar,
		Factors:      in.Design.Order(),
		ToolVersion:  orUnknown(in.ToolVersion),
	})
	if err != nil {
		return "", fmt.Errorf("rendering frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fm)
	sb.WriteString("---\n\n")

	sb.WriteString("# Experimental Design Card\n\n")
	sb.WriteString("## Dataset Information\n\n")
	fmt.Fprintf(&sb, "**File:** %s  \n", in.File)
	fmt.Fprintf(&sb, "**Analysis Date:** %s  \n", date)
	fmt.Fprintf(&sb, "**Species:** %s  \n", speciesDisplay(in.Species))
	fmt.Fprintf(&sb, "**Total Cells:** %s\n", formatNumber(in.TotalCells))

	sb.WriteString("\n## Design Structure\n")
	writeFactorTable(&sb, in.Design)
	writeClassification(&sb, in)
	writeDiagramSections(&sb, in)
	writeDistribution(&sb, in.Design)
	writeAnalysis(&sb, in)

	if len(in.Notes) > 0 {
		sb.WriteString("\n## Design Notes\n\n")
		for _, note := range in.Notes {
			sb.WriteString(note + "\n\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

func writeFactorTable(sb *strings.Builder, d *domain.Design) {
	sb.WriteString("\n### Identified Factors\n\n")
	sb.WriteString("| Factor | Levels | Type |\n")
	sb.WriteString("|--------|--------|------|\n")
	for _, name := range d.Order() {
		f := d.Factors[name]
		display := kindDisplay[f.Kind]
		if display == "" {
			display = "Factor"
		}
		fmt.Fprintf(sb, "| %s | %d | %s |\n", titleCase(name), f.Levels(), display)
	}
}

func writeClassification(sb *strings.Builder, in Input) {
	sb.WriteString("\n### Design Classification\n\n")

	nested := relsOfType(in.Design, domain.RelNested)
	classified := relsOfType(in.Design, domain.RelClassification)

	switch {
	case len(nested) == 1:
		parent, child := nested[0].Parent, nested[0].Child
		fmt.Fprintf(sb,
			"This dataset exhibits a **nested design**. The factor `%s` is nested within `%s`, meaning each %s belongs to exactly one %s condition.",
			child, parent, strings.ToLower(titleCase(child)), parent)
		if len(classified) > 0 {
			fmt.Fprintf(sb,
				" %ss are observed across all %ss, creating a crossed relationship with the nested structure.",
				titleCase(classified[0].Classifier), child)
		}
	case len(nested) > 1:
		sb.WriteString("This dataset exhibits a **hierarchical nested design** with multiple levels of nesting.")
	default:
		experimental := experimentalFactors(in.Design)
		if len(experimental) >= 2 {
			quoted := make([]string, len(experimental))
			for i, f := range experimental {
				quoted[i] = "`" + f + "`"
			}
			fmt.Fprintf(sb,
				"This dataset exhibits a **factorial crossed design** where %s are fully crossed, meaning all combinations of factor levels are present.",
				strings.Join(quoted, " and "))
		} else {
			sb.WriteString("This dataset represents a simple experimental design.")
		}
	}
	sb.WriteString("\n")
}

func writeDiagramSections(sb *strings.Builder, in Input) {
	sb.WriteString("\n### Design Diagram\n\n```\n")
	if in.Diagram != "" {
		sb.WriteString(strings.TrimRight(in.Diagram, "\n"))
	} else {
		sb.WriteString("(Diagram not available)")
	}
	sb.WriteString("\n```\n")

	sb.WriteString("\n### Grammar Notation\n\n```\n")
	if in.Grammar != "" {
		sb.WriteString(in.Grammar)
	} else {
		sb.WriteString("(Grammar not available)")
	}
	sb.WriteString("\n```\n")
}

func writeDistribution(sb *strings.Builder, d *domain.Design) {
	sb.WriteString("\n## Cell Distribution\n\n")
	for _, name := range d.Order() {
		f := d.Factors[name]
		if len(f.Counts) == 0 {
			continue
		}
		fmt.Fprintf(sb, "**Cells per %s:** %s  \n", name, formatRange(f.Counts))
	}
}

func writeAnalysis(sb *strings.Builder, in Input) {
	sb.WriteString("\n## Analysis Considerations\n\n")
	sb.WriteString("This design structure has implications for statistical analysis:\n\n")

	nested := relsOfType(in.Design, domain.RelNested)
	classified := relsOfType(in.Design, domain.RelClassification)

	switch {
	case len(nested) > 0:
		parent, child := nested[0].Parent, nested[0].Child
		fmt.Fprintf(sb,
			"**Random Effects Modeling:** The nesting of `%s` within `%s` indicates that %s-specific variation should be modeled as a random effect. When testing for %s effects, use mixed-effects models with random intercepts for %s (e.g., `~ %s + (1|%s)` in lme4 notation).\n\n",
			child, parent, child, parent, child, parent, child)
		if len(classified) > 0 {
			classifier := classified[0].Classifier
			fmt.Fprintf(sb,
				"**Aggregation Strategy:** For differential expression testing, pseudobulking to the %s level preserves the experimental unit structure. Aggregate cells to %s-by-%s pseudobulk profiles before applying standard DE methods, treating %ss as biological replicates.\n\n",
				child, child, classifier, child)
		} else {
			fmt.Fprintf(sb,
				"**Aggregation Strategy:** For differential expression testing, pseudobulking to the %s level preserves the experimental unit structure. Aggregate cells to the %s level before applying standard DE methods.\n\n",
				child, child)
		}
		fmt.Fprintf(sb,
			"**Contrast Specification:** When comparing %ss, ensure contrasts are computed at the %s level, not the cell level, to avoid pseudoreplication and inflated Type I error rates.\n",
			parent, child)

	case strings.Contains(strings.ToLower(in.DesignType), "crossed"):
		experimental := experimentalFactors(in.Design)
		if len(experimental) >= 2 {
			fmt.Fprintf(sb,
				"**Factorial Analysis:** This crossed design allows testing main effects of %s and %s, as well as their interaction. Use a full factorial model (e.g., `~ %s * %s`) to capture all experimental effects.\n\n",
				experimental[0], experimental[1], experimental[0], experimental[1])
		}
		if len(classified) > 0 {
			fmt.Fprintf(sb,
				"**Cell-Level Analysis:** For cell-type-specific analyses, model the factorial structure while accounting for %s labels. Consider using mixed-effects models with %s-specific random effects if cell counts vary substantially.\n\n",
				classified[0].Classifier, classified[0].Classifier)
		}
		sb.WriteString("**Multiple Testing:** With multiple factors and their interactions, carefully control for multiple testing using appropriate correction methods (e.g., FDR, Bonferroni).\n")

	default:
		sb.WriteString("**Statistical Modeling:** Consider the hierarchical structure of your data when choosing statistical models. Account for within-sample correlation using appropriate methods (mixed-effects models, GEE, etc.).\n\n")
		if len(classified) > 0 {
			fmt.Fprintf(sb,
				"**Classification Analysis:** The `%s` labels provide a natural stratification for subgroup analyses. Consider both cell-type-specific and cell-type-aggregated analyses.\n\n",
				classified[0].Classifier)
		}
		sb.WriteString("**Replication:** Ensure that biological replicates are properly identified and accounted for in the analysis to enable valid statistical inference.\n")
	}
}

func relsOfType(d *domain.Design, t domain.RelationshipType) []domain.Relationship {
	var out []domain.Relationship
	for _, r := range d.Relationships {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func experimentalFactors(d *domain.Design) []string {
	var out []string
	for _, name := range d.Order() {
		if d.Factors[name].Kind == domain.KindExperimental {
			out = append(out, name)
		}
	}
	return out
}

func formatRange(counts []int) string {
	stats := summarize(counts)
	if stats.min == stats.max {
		return formatNumber(stats.min)
	}
	return fmt.Sprintf("%s - %s (mean: %s)",
		formatNumber(stats.min), formatNumber(stats.max), formatNumber(stats.mean))
}

type summary struct {
	min, max, mean, median int
}

func summarize(counts []int) summary {
	if len(counts) == 0 {
		return summary{}
	}
	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return summary{
		min:    sorted[0],
		max:    sorted[len(sorted)-1],
		mean:   sum / len(sorted),
		median: median,
	}
}

// formatNumber renders n with thousands separators (12500 -> "12,500").
func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

// titleCase turns "cell_type" into "Cell Type" for display prose.
func titleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func speciesDisplay(species string) string {
	if species == "" {
		return "Unknown"
	}
	if display, ok := speciesNames[strings.ToLower(species)]; ok {
		return display
	}
	return titleCase(species)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
