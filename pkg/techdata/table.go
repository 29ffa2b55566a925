package techdata

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrEmptyID is returned by [NewTable] when a tech has no ID.
	ErrEmptyID = errors.New("tech ID must not be empty")

	// ErrDuplicateID is returned by [NewTable] when two techs share an ID.
	ErrDuplicateID = errors.New("duplicate tech ID")

	// ErrEmptyTable is returned by the loaders when a file defines no techs.
	ErrEmptyTable = errors.New("tech table is empty")
)

// Settings carries the optional layout section of a tech table file. Nil
// fields keep the engine defaults.
type Settings struct {
	Pinned        map[string]int `toml:"pinned,omitempty" yaml:"pinned,omitempty" json:"pinned,omitempty"`
	MaxRows       *int           `toml:"max_rows,omitempty" yaml:"max_rows,omitempty" json:"max_rows,omitempty"`
	DefaultRow    *int           `toml:"default_row,omitempty" yaml:"default_row,omitempty" json:"default_row,omitempty"`
	NodeWidth     *float64       `toml:"node_width,omitempty" yaml:"node_width,omitempty" json:"node_width,omitempty"`
	NodeHeight    *float64       `toml:"node_height,omitempty" yaml:"node_height,omitempty" json:"node_height,omitempty"`
	ColSpacing    *float64       `toml:"col_spacing,omitempty" yaml:"col_spacing,omitempty" json:"col_spacing,omitempty"`
	TopPadding    *float64       `toml:"top_padding,omitempty" yaml:"top_padding,omitempty" json:"top_padding,omitempty"`
	BottomPadding *float64       `toml:"bottom_padding,omitempty" yaml:"bottom_padding,omitempty" json:"bottom_padding,omitempty"`
	XOffset       *float64       `toml:"x_offset,omitempty" yaml:"x_offset,omitempty" json:"x_offset,omitempty"`
	ScrollMargin  *float64       `toml:"scroll_margin,omitempty" yaml:"scroll_margin,omitempty" json:"scroll_margin,omitempty"`
}

// Table is an ordered, immutable set of tech definitions.
//
// The zero value is an empty table. Use [NewTable] or the loaders to build
// one. Table is safe for concurrent reads.
type Table struct {
	techs    []Tech
	index    map[string]int
	settings Settings
}

// NewTable builds a table from techs in declaration order.
// Returns ErrEmptyID or ErrDuplicateID (wrapped with the offending ID) on
// structural violations. Requirements naming unknown IDs are accepted;
// use [Validate] to report them.
func NewTable(techs []Tech) (*Table, error) {
	t := &Table{
		techs: make([]Tech, 0, len(techs)),
		index: make(map[string]int, len(techs)),
	}
	for i, tech := range techs {
		if tech.ID == "" {
			return nil, fmt.Errorf("tech #%d: %w", i+1, ErrEmptyID)
		}
		if _, dup := t.index[tech.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, tech.ID)
		}
		tech.Requires = slices.Clone(tech.Requires)
		tech.Cost = maps.Clone(tech.Cost)
		t.index[tech.ID] = len(t.techs)
		t.techs = append(t.techs, tech)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and
// static tables.
func MustTable(techs ...Tech) *Table {
	t, err := NewTable(techs)
	if err != nil {
		panic(err)
	}
	return t
}

// WithSettings returns a copy of the table carrying s.
func (t *Table) WithSettings(s Settings) *Table {
	c := *t
	c.settings = s
	return &c
}

// Settings returns the layout section the table was loaded with.
func (t *Table) Settings() Settings { return t.settings }

// Len returns the number of techs.
func (t *Table) Len() int { return len(t.techs) }

// Techs returns the techs in declaration order. The slice is a copy; the
// Tech values share their Requires and Cost backing storage with the table
// and must not be modified.
func (t *Table) Techs() []Tech { return slices.Clone(t.techs) }

// At returns the i-th tech in declaration order.
func (t *Table) At(i int) Tech { return t.techs[i] }

// IDs returns tech IDs in declaration order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.techs))
	for i, tech := range t.techs {
		ids[i] = tech.ID
	}
	return ids
}

// Lookup returns the tech with the given ID.
func (t *Table) Lookup(id string) (Tech, bool) {
	i, ok := t.index[id]
	if !ok {
		return Tech{}, false
	}
	return t.techs[i], true
}

// Index returns the declaration index of id, or -1 if id is unknown.
func (t *Table) Index(id string) int {
	i, ok := t.index[id]
	if !ok {
		return -1
	}
	return i
}

// Has reports whether id is defined.
func (t *Table) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Requires returns the requirement list of id, or nil if id is unknown.
// The returned slice must not be modified.
func (t *Table) Requires(id string) []string {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return t.techs[i].Requires
}

// Edges returns every prerequisite edge whose target is defined, ordered by
// target declaration order and then by position in its requirement list.
// Edges from unknown IDs are included; consumers decide how to treat them.
func (t *Table) Edges() []Edge {
	var edges []Edge
	for _, tech := range t.techs {
		for _, req := range tech.Requires {
			edges = append(edges, Edge{From: req, To: tech.ID})
		}
	}
	return edges
}

// Dependents returns the IDs of techs that directly require id, in
// declaration order.
func (t *Table) Dependents(id string) []string {
	var out []string
	for _, tech := range t.techs {
		if slices.Contains(tech.Requires, id) {
			out = append(out, tech.ID)
		}
	}
	return out
}

// Roots returns the IDs of techs without requirements, in declaration order.
func (t *Table) Roots() []string {
	var out []string
	for _, tech := range t.techs {
		if len(tech.Requires) == 0 {
			out = append(out, tech.ID)
		}
	}
	return out
}
