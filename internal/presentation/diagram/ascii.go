// Package diagram renders a domain.Design into human-readable diagrams: an
// ASCII tree for nested hierarchies, a grid for crossed factors, and a
// Mermaid graph for embedding in documents.
package diagram

import (
	"fmt"
	"strings"

	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
)

// Render picks a diagram for the design: a tree when any nesting exists, a
// grid for exactly two crossed roots, and a flat factor list otherwise. A
// grid can only show two axes, so designs with more crossed roots fall back
// to the list rather than dropping factors.
func Render(d *domain.Design) string {
	if err := grammar.Validate(d); err != nil {
		return fmt.Sprintf("(invalid design: %v)", err)
	}
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelNested {
			return Tree(d)
		}
	}
	if roots := grammar.Roots(d); len(roots) == 2 {
		return Grid(d.Factors[roots[0]], d.Factors[roots[1]])
	}
	return flatList(d)
}

// Tree renders the nesting hierarchy with per-category fan-out. Child
// categories are attached to the parent category whose label they contain
// (the same substring heuristic the nesting classifier uses).
func Tree(d *domain.Design) string {
	var sb strings.Builder
	for _, root := range grammar.Roots(d) {
		f := d.Factors[root]
		if f.Kind == domain.KindClassification {
			continue
		}
		sb.WriteString(grammar.CamelCase(f.Name))
		sb.WriteString("\n")
		writeCategories(&sb, d, f, "")
	}
	if legend := classificationLegend(d); legend != "" {
		sb.WriteString("\n")
		sb.WriteString(legend)
	}
	return sb.String()
}

func writeCategories(sb *strings.Builder, d *domain.Design, f *domain.Factor, indent string) {
	child := childFactor(d, f.Name)
	for i, cat := range f.Categories {
		last := i == len(f.Categories)-1
		branch, cont := "├── ", "│   "
		if last {
			branch, cont = "└── ", "    "
		}
		sb.WriteString(indent + branch + cat)
		if child == nil && i < len(f.Counts) {
			fmt.Fprintf(sb, " (%d)", f.Counts[i])
		}
		sb.WriteString("\n")
		if child != nil {
			writeChildCategories(sb, d, child, cat, indent+cont)
		}
	}
}

func writeChildCategories(sb *strings.Builder, d *domain.Design, child *domain.Factor, parentCat, indent string) {
	var cats []string
	var counts []int
	lp := strings.ToLower(parentCat)
	for i, cc := range child.Categories {
		if strings.Contains(strings.ToLower(cc), lp) {
			cats = append(cats, cc)
			if i < len(child.Counts) {
				counts = append(counts, child.Counts[i])
			} else {
				counts = append(counts, 0)
			}
		}
	}
	sub := &domain.Factor{Name: child.Name, Categories: cats, Counts: counts}
	writeCategories(sb, d, sub, indent)
}

// Grid renders a crossed-design grid with factor A levels as rows and factor
// B levels as columns.
func Grid(a, b *domain.Factor) string {
	var sb strings.Builder
	colWidth := len(grammar.CamelCase(a.Name))
	for _, c := range b.Categories {
		if len(c) > colWidth {
			colWidth = len(c)
		}
	}
	for _, c := range a.Categories {
		if len(c) > colWidth {
			colWidth = len(c)
		}
	}
	colWidth += 2

	cell := func(s string) string {
		return " " + s + strings.Repeat(" ", colWidth-len(s)-1)
	}

	// Header row: factor A name in the corner, B categories as columns.
	sb.WriteString(cell(grammar.CamelCase(a.Name)))
	for _, c := range b.Categories {
		sb.WriteString("|" + cell(c))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", colWidth))
	for range b.Categories {
		sb.WriteString("+" + strings.Repeat("-", colWidth))
	}
	sb.WriteString("\n")
	for _, c := range a.Categories {
		sb.WriteString(cell(c))
		for range b.Categories {
			sb.WriteString("|" + cell("x"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func flatList(d *domain.Design) string {
	var sb strings.Builder
	for _, name := range d.Order() {
		f := d.Factors[name]
		fmt.Fprintf(&sb, "%s (%d levels, %d observations)\n",
			grammar.CamelCase(name), f.Levels(), f.TotalCount())
	}
	return sb.String()
}

func classificationLegend(d *domain.Design) string {
	var lines []string
	for _, rel := range d.Relationships {
		if rel.Type != domain.RelClassification {
			continue
		}
		cf := d.Factors[rel.Classifier]
		lines = append(lines, fmt.Sprintf("%s : %s labels each %s (%s)",
			grammar.CamelCase(rel.Factor),
			grammar.CamelCase(rel.Classifier),
			rel.Factor,
			strings.Join(cf.Categories, ", ")))
	}
	return strings.Join(lines, "\n")
}

func childFactor(d *domain.Design, parent string) *domain.Factor {
	for _, rel := range d.Relationships {
		if rel.Type == domain.RelNested && rel.Parent == parent {
			return d.Factors[rel.Child]
		}
	}
	return nil
}
