package h5ad

import (
	"fmt"
	"strconv"
	"strings"
)

// parseObsColumns extracts categorical obs column names from `h5ls -r`
// output. AnnData encodes a categorical column as a group holding two
// datasets:
//
//	/obs/genotype/categories Dataset {2}
//	/obs/genotype/codes      Dataset {1000}
//
// A column counts as categorical only when its categories dataset is listed.
func parseObsColumns(listing string) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "Dataset" {
			continue
		}
		path := fields[0]
		if !strings.HasPrefix(path, "/obs/") || !strings.HasSuffix(path, "/categories") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "/obs/"), "/categories")
		if name == "" || strings.Contains(name, "/") || seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, name)
	}
	return cols
}

// parseStringData scrapes the quoted strings out of the DATA block of an
// h5dump of a string dataset:
//
//	DATA {
//	(0): "KO", "WT"
//	}
func parseStringData(dump string) ([]string, error) {
	block, err := dataBlock(dump)
	if err != nil {
		return nil, err
	}
	var out []string
	for {
		start := strings.IndexByte(block, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(block[start+1:], '"')
		if end < 0 {
			return nil, fmt.Errorf("unterminated string in DATA block")
		}
		out = append(out, block[start+1:start+1+end])
		block = block[start+end+2:]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no string values found in DATA block")
	}
	return out, nil
}

// parseIntData scrapes integers out of the DATA block of an h5dump of an
// integer dataset. Index prefixes like "(0):" are discarded.
func parseIntData(dump string) ([]int, error) {
	block, err := dataBlock(dump)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, line := range strings.Split(block, "\n") {
		if idx := strings.Index(line, "):"); idx >= 0 {
			line = line[idx+2:]
		}
		for _, tok := range strings.Split(line, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("unexpected token %q in DATA block", tok)
			}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no integer values found in DATA block")
	}
	return out, nil
}

// dataBlock isolates the text between "DATA {" and its closing brace.
// h5dump nests DATATYPE/DATASPACE blocks before DATA, so we search for the
// exact "DATA {" marker rather than tracking brace depth across the dump.
func dataBlock(dump string) (string, error) {
	idx := strings.Index(dump, "DATA {")
	if idx < 0 {
		return "", fmt.Errorf("no DATA block found in dump output")
	}
	rest := dump[idx+len("DATA {"):]
	depth := 1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated DATA block in dump output")
}

// countCodes tallies how many observations carry each category. codes holds
// one category index per observation; levels is the number of categories.
// Out-of-range codes (e.g. -1 for missing values) are ignored.
func countCodes(codes []int, levels int) []int {
	counts := make([]int, levels)
	for _, c := range codes {
		if c >= 0 && c < levels {
			counts[c]++
		}
	}
	return counts
}
