// Package storage describes target tables independently of any SQL dialect
// and renders them through per-dialect packages.
//
// The types live here so that internal/ddl and every dialect package can
// import them without import cycles. Dialect packages register themselves
// from init(); import internal/storage/all to get every dialect.
package storage

// Constraint kinds understood by every dialect.
const (
	ConstraintUnique     = "unique"
	ConstraintPrimaryKey = "primary_key"
)

// TableSpec is one target table.
type TableSpec struct {
	// Name may be schema-qualified ("sales.customers").
	Name string `json:"name"`
	// PrimaryKey adds a surrogate key column in front of Columns.
	PrimaryKey  *PrimaryKeySpec  `json:"primary_key,omitempty"`
	Columns     []ColumnSpec     `json:"columns"`
	Constraints []ConstraintSpec `json:"constraints,omitempty"`
}

// PrimaryKeySpec is a generated surrogate key.
type PrimaryKeySpec struct {
	Name string `json:"name"`
	// Type is "serial", "bigserial" or a verbatim column type.
	Type string `json:"type"`
}

// ColumnSpec is one column. Type is already dialect-specific.
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Nullable nil or true allows NULL; false renders NOT NULL.
	Nullable *bool `json:"nullable,omitempty"`
}

// NotNull reports whether the column must render NOT NULL.
func (c ColumnSpec) NotNull() bool {
	return c.Nullable != nil && !*c.Nullable
}

// ConstraintSpec is a table-level constraint over existing columns.
type ConstraintSpec struct {
	Kind    string   `json:"kind"` // "unique" | "primary_key"
	Columns []string `json:"columns"`
}

// KeyColumns returns the set of columns that take part in a unique or
// primary key constraint.
func (t TableSpec) KeyColumns() map[string]bool {
	out := make(map[string]bool)
	for _, c := range t.Constraints {
		for _, col := range c.Columns {
			out[col] = true
		}
	}
	return out
}
