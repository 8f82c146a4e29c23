package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRows is returned by RenderInsert when there is nothing to insert.
var ErrNoRows = errors.New("storage: no rows to insert")

// Quoter quotes identifiers and string literals for one dialect.
type Quoter interface {
	Ident(name string) string
	Literal(value string) string
}

// QuoteString renders s as a standard SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SplitQualifiedName splits "schema.table" into its parts. Only a single
// dot is understood; anything else is treated as an unqualified name.
func SplitQualifiedName(name string) (schema, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// QualifiedIdent quotes a possibly schema-qualified table name.
func QualifiedIdent(q Quoter, name string) string {
	schema, table := SplitQualifiedName(name)
	if schema == "" {
		return q.Ident(table)
	}
	return q.Ident(schema) + "." + q.Ident(table)
}

// Validate checks the parts of t every dialect relies on: a table name,
// named and typed columns without duplicates, and constraints over known
// columns. At most one primary key may be declared.
func Validate(t TableSpec) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("storage: table name is empty")
	}
	if len(t.Columns) == 0 && t.PrimaryKey == nil {
		return fmt.Errorf("storage: table %s: no columns", t.Name)
	}

	seen := make(map[string]bool, len(t.Columns)+1)
	if pk := t.PrimaryKey; pk != nil {
		if strings.TrimSpace(pk.Name) == "" || strings.TrimSpace(pk.Type) == "" {
			return fmt.Errorf("storage: table %s: primary_key.name and primary_key.type are required", t.Name)
		}
		seen[strings.ToLower(pk.Name)] = true
	}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("storage: table %s: column name/type must be set", t.Name)
		}
		k := strings.ToLower(c.Name)
		if seen[k] {
			return fmt.Errorf("storage: table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[k] = true
	}

	primaries := 0
	if t.PrimaryKey != nil {
		primaries++
	}
	for _, con := range t.Constraints {
		switch con.Kind {
		case ConstraintUnique:
		case ConstraintPrimaryKey:
			primaries++
		default:
			return fmt.Errorf("storage: table %s: unsupported constraint kind %q", t.Name, con.Kind)
		}
		if len(con.Columns) == 0 {
			return fmt.Errorf("storage: table %s: %s constraint requires columns", t.Name, con.Kind)
		}
		for _, col := range con.Columns {
			if !seen[strings.ToLower(col)] {
				return fmt.Errorf("storage: table %s: %s constraint on unknown column %q", t.Name, con.Kind, col)
			}
		}
	}
	if primaries > 1 {
		return fmt.Errorf("storage: table %s: more than one primary key", t.Name)
	}
	return nil
}

// RenderConstraints renders table-level PRIMARY KEY and UNIQUE clauses.
func RenderConstraints(q Quoter, t TableSpec) []string {
	out := make([]string, 0, len(t.Constraints))
	for _, con := range t.Constraints {
		cols := make([]string, len(con.Columns))
		for i, c := range con.Columns {
			cols[i] = q.Ident(c)
		}
		clause := "UNIQUE"
		if con.Kind == ConstraintPrimaryKey {
			clause = "PRIMARY KEY"
		}
		out = append(out, fmt.Sprintf("%s (%s)", clause, strings.Join(cols, ", ")))
	}
	return out
}

// RenderInsert builds one multi-row INSERT with inline literals. Empty
// values are written as NULL. Every row must have len(columns) values.
func RenderInsert(q Quoter, table string, columns []string, rows [][]string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("storage: insert: table name is empty")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("storage: insert into %s: no columns", table)
	}
	if len(rows) == 0 {
		return "", ErrNoRows
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(QualifiedIdent(q, table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(q.Ident(c))
	}
	b.WriteString(") VALUES")

	for i, row := range rows {
		if len(row) != len(columns) {
			return "", fmt.Errorf("storage: insert into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  (")
		for j, v := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			if v == "" {
				b.WriteString("NULL")
				continue
			}
			b.WriteString(q.Literal(v))
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), nil
}
