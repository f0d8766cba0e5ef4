package storage

// PrimaryKey is the column every node table is keyed by.
const PrimaryKey = "id"

// Column describes a single node-table column. All semantic-convention
// columns are strings; optional columns carry a default applied on insert.
type Column struct {
	Name       string `json:"name"`
	HasDefault bool   `json:"has_default,omitempty"`
	Default    string `json:"default,omitempty"`
}

// Required reports whether the column must be present on every insert.
// The primary key is always required.
func (c Column) Required() bool {
	return !c.HasDefault
}

// NodeTableDef declares a node table: a name, its columns and the implicit
// string primary key "id". The id column does not appear in Columns.
type NodeTableDef struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column returns the column with the given name, if declared.
func (d NodeTableDef) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Pair is one allowed (from-table, to-table) endpoint combination for a
// relationship table. A single relationship table may carry several pairs.
type Pair struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RelTableDef declares a relationship table. Relationship rows reference
// node rows by primary key and may carry free-form string properties
// (requirement_level, condition, and the like).
type RelTableDef struct {
	Name  string `json:"name"`
	Pairs []Pair `json:"pairs"`
}

// Allows reports whether the (from, to) table pair is declared for this
// relationship table.
func (d RelTableDef) Allows(from, to string) bool {
	for _, p := range d.Pairs {
		if p.From == from && p.To == to {
			return true
		}
	}
	return false
}

// Targets returns the distinct target tables reachable from the given
// source table over this relationship.
func (d RelTableDef) Targets(from string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range d.Pairs {
		if p.From == from && !seen[p.To] {
			seen[p.To] = true
			out = append(out, p.To)
		}
	}
	return out
}

// Row is a single node or relationship record. Node rows always contain
// the primary key; relationship rows never do.
type Row map[string]string

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RelRecord is one relationship row with its resolved endpoints.
type RelRecord struct {
	Rel       string
	FromTable string
	FromID    string
	ToID      string
	Props     Row
}

// TableInfo is a catalog listing entry (the show_tables surface).
type TableInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "NODE" or "REL"
}
