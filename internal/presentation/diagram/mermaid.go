package diagram

import (
	"fmt"
	"strings"

	"github.com/vals/anndata-design-inspector/pkg/domain"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
)

// GenerateMermaid produces a Mermaid flowchart (graph TD) of the design.
// It applies semantic styling:
// - Experimental factors: [Rectangle]
// - Replicate factors: ([Stadium])
// - Classification factors: {{Hexagon}}
// - Batch factors: [[Subroutine]]
// Nesting renders as a solid labeled arrow, classification as a dotted one.
func GenerateMermaid(d *domain.Design) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range d.Order() {
		f := d.Factors[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch f.Kind {
		case domain.KindReplicate:
			opener, closer = "([", "])"
		case domain.KindClassification:
			opener, closer = "{{", "}}"
		case domain.KindBatch:
			opener, closer = "[[", "]]"
		}

		label := fmt.Sprintf("%s, %d levels", grammar.CamelCase(name), f.Levels())
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, rel := range d.Relationships {
		switch rel.Type {
		case domain.RelNested:
			sb.WriteString(fmt.Sprintf("    %s -- \"nests\" --> %s\n",
				sanitizeMermaidID(rel.Parent), sanitizeMermaidID(rel.Child)))
		case domain.RelClassification:
			sb.WriteString(fmt.Sprintf("    %s -. \"classified by\" .-> %s\n",
				sanitizeMermaidID(rel.Factor), sanitizeMermaidID(rel.Classifier)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
