package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Design is a full description of an experimental design: a set of factors
// plus the declared relationships between them. Factors not referenced as a
// child in any nesting relationship are implicitly mutually crossed.
type Design struct {
	Factors       map[string]*Factor `json:"factors"`
	Relationships []Relationship     `json:"relationships"`

	// order preserves factor declaration order so rendering is deterministic.
	order []string
}

// NewDesign returns an empty design ready for AddFactor calls.
func NewDesign() *Design {
	return &Design{Factors: make(map[string]*Factor)}
}

// AddFactor registers a factor under its name, preserving insertion order.
// Adding a factor with a duplicate name replaces the previous entry but
// keeps its original position.
func (d *Design) AddFactor(f *Factor) {
	if d.Factors == nil {
		d.Factors = make(map[string]*Factor)
	}
	if _, exists := d.Factors[f.Name]; !exists {
		d.order = append(d.order, f.Name)
	}
	d.Factors[f.Name] = f
}

// AddRelationship appends a relationship declaration.
func (d *Design) AddRelationship(r Relationship) {
	d.Relationships = append(d.Relationships, r)
}

// Factor looks up a factor by name.
func (d *Design) Factor(name string) (*Factor, bool) {
	f, ok := d.Factors[name]
	return f, ok
}

// Order returns factor names in declaration order. Factors present in the
// map but never recorded in the order (e.g. after manual map mutation) are
// appended in sorted order so the result is still deterministic.
func (d *Design) Order() []string {
	names := make([]string, 0, len(d.Factors))
	seen := make(map[string]bool, len(d.Factors))
	for _, name := range d.order {
		if _, ok := d.Factors[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range d.Factors {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// UnmarshalJSON decodes the canonical design JSON:
//
//	{"factors": {"genotype": {...}, ...}, "relationships": [{...}, ...]}
//
// Object key order of "factors" is preserved, matching the order-sensitive
// rendering contract.
func (d *Design) UnmarshalJSON(data []byte) error {
	var raw struct {
		Factors       json.RawMessage `json:"factors"`
		Relationships []Relationship  `json:"relationships"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding design: %w", err)
	}

	d.Factors = make(map[string]*Factor)
	d.order = nil
	d.Relationships = raw.Relationships

	if len(raw.Factors) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Factors))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding factors: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding factors: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding factors: %w", err)
		}
		name := keyTok.(string)
		var f Factor
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("decoding factor %q: %w", name, err)
		}
		f.Name = name
		d.AddFactor(&f)
	}
	return nil
}

// MarshalJSON emits the canonical design JSON. Factor map ordering follows
// Order() via an intermediate encoding, so output is stable.
func (d *Design) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"factors":{`)
	for i, name := range d.Order() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		// Name is redundant with the key; strip it for round-trip symmetry.
		f := *d.Factors[name]
		f.Name = ""
		val, err := json.Marshal(&f)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteString(`},"relationships":`)
	rels := d.Relationships
	if rels == nil {
		rels = []Relationship{}
	}
	relJSON, err := json.Marshal(rels)
	if err != nil {
		return nil, err
	}
	buf.Write(relJSON)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
