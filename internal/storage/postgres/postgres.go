// Package postgres renders PostgreSQL DDL. Identifiers are quoted with
// pgx's own sanitizer so the output matches what pgx would send.
package postgres

import (
	"fmt"
	"strings"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"

	"github.com/jackc/pgx/v5"
)

const Kind = "postgres"

func init() {
	storage.Register(Dialect{})
}

// Dialect implements storage.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Kind() string { return Kind }

// Ident quotes a single identifier.
func (Dialect) Ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Literal renders a string literal (standard_conforming_strings=on).
func (Dialect) Literal(v string) string {
	return storage.QuoteString(v)
}

func (Dialect) ColumnType(t ingest.DataType) string {
	switch t {
	case ingest.TypeInteger:
		return "BIGINT"
	case ingest.TypeDecimal:
		return "NUMERIC(18,4)"
	case ingest.TypeBoolean:
		return "BOOLEAN"
	case ingest.TypeDate:
		return "DATE"
	case ingest.TypeEmail:
		return "VARCHAR(255)"
	default:
		return "TEXT"
	}
}

// tableIdent quotes a possibly schema-qualified name as one pgx.Identifier.
func tableIdent(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// CreateTableSQL returns an optional CREATE SCHEMA for qualified names and
// the CREATE TABLE IF NOT EXISTS statement.
func (d Dialect) CreateTableSQL(t storage.TableSpec) ([]string, error) {
	if err := storage.Validate(t); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	var stmts []string
	if schema, _ := storage.SplitQualifiedName(t.Name); schema != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", d.Ident(schema)))
	}

	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	if pk := t.PrimaryKey; pk != nil {
		defs = append(defs, fmt.Sprintf("%s %s PRIMARY KEY", d.Ident(pk.Name), primaryKeyType(pk.Type)))
	}
	for _, c := range t.Columns {
		def := d.Ident(c.Name) + " " + c.Type
		if c.NotNull() {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, storage.RenderConstraints(d, t)...)

	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		tableIdent(t.Name), strings.Join(defs, ",\n  ")))
	return stmts, nil
}

func primaryKeyType(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "serial":
		return "SERIAL"
	case "bigserial":
		return "BIGSERIAL"
	default:
		return typ
	}
}

func (d Dialect) InsertSQL(table string, columns []string, rows [][]string) (string, error) {
	return storage.RenderInsert(d, table, columns, rows)
}

var _ storage.Dialect = Dialect{}
