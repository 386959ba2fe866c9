/*
Package inspector infers and describes the experimental design of single-cell
genomics datasets.

It extracts categorical factors from an AnnData (.h5ad) file's observation
metadata, classifies pairs of factors as nested or crossed using a substring
name-matching heuristic, and renders the result as a compact design-grammar
string (e.g. "Genotype(2) > Sample(4) : CellType(3)") together with ASCII and
Mermaid diagrams and a Markdown experiment card.

The Engine type is the high-level entry point. The underlying algorithms are
exposed as small, pure packages: pkg/nesting (the nested-vs-crossed
classifier), pkg/grammar (the design-grammar serializer) and pkg/domain (the
shared value types). File access goes through the FactorSource port so hosts
can substitute their own extraction; the bundled implementation scrapes the
output of the standard HDF5 command-line tools.

The same engine is exposed on three surfaces: the adi command-line tool, a
JSON HTTP API, and an MCP server for AI-agent integration.
*/
package inspector
