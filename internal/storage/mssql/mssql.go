// Package mssql renders SQL Server DDL.
package mssql

import (
	"fmt"
	"strings"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"
)

const Kind = "mssql"

func init() {
	storage.Register(Dialect{})
}

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

func (Dialect) Kind() string { return Kind }

// Ident quotes an identifier with brackets.
func (Dialect) Ident(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Literal renders a Unicode string literal.
func (Dialect) Literal(v string) string {
	return "N" + storage.QuoteString(v)
}

func (Dialect) ColumnType(t ingest.DataType) string {
	switch t {
	case ingest.TypeInteger:
		return "BIGINT"
	case ingest.TypeDecimal:
		return "DECIMAL(18,4)"
	case ingest.TypeBoolean:
		return "BIT"
	case ingest.TypeDate:
		return "DATE"
	case ingest.TypeEmail:
		return "NVARCHAR(255)"
	default:
		return "NVARCHAR(MAX)"
	}
}

// CreateTableSQL returns the CREATE TABLE wrapped in an OBJECT_ID guard,
// preceded by a guarded CREATE SCHEMA for qualified names outside dbo.
//
// NVARCHAR(MAX) cannot be a key column; keys of that type become
// NVARCHAR(450).
func (d Dialect) CreateTableSQL(t storage.TableSpec) ([]string, error) {
	if err := storage.Validate(t); err != nil {
		return nil, fmt.Errorf("mssql: %w", err)
	}

	var stmts []string
	if schema, _ := storage.SplitQualifiedName(t.Name); schema != "" && !strings.EqualFold(schema, "dbo") {
		stmts = append(stmts, fmt.Sprintf("IF SCHEMA_ID(%s) IS NULL EXEC(%s);",
			d.Literal(schema), d.Literal("CREATE SCHEMA "+d.Ident(schema))))
	}

	keys := t.KeyColumns()
	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	if pk := t.PrimaryKey; pk != nil {
		defs = append(defs, d.Ident(pk.Name)+" "+primaryKeyDef(pk.Type))
	}
	for _, c := range t.Columns {
		typ := c.Type
		if keys[c.Name] && strings.EqualFold(typ, "NVARCHAR(MAX)") {
			typ = "NVARCHAR(450)"
		}
		def := d.Ident(c.Name) + " " + typ
		if c.NotNull() {
			def += " NOT NULL"
		} else {
			def += " NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, storage.RenderConstraints(d, t)...)

	stmts = append(stmts, wrapCreateIfMissing(d, t.Name, strings.Join(defs, ",\n  ")))
	return stmts, nil
}

// wrapCreateIfMissing guards CREATE TABLE with OBJECT_ID; SQL Server has no
// CREATE TABLE IF NOT EXISTS.
func wrapCreateIfMissing(d Dialect, tableName, defs string) string {
	return fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NULL\nCREATE TABLE %s (\n  %s\n);",
		d.Literal(tableName), storage.QualifiedIdent(d, tableName), defs)
}

func primaryKeyDef(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "serial", "identity":
		return "INT IDENTITY(1,1) PRIMARY KEY"
	case "bigserial":
		return "BIGINT IDENTITY(1,1) PRIMARY KEY"
	default:
		return typ + " PRIMARY KEY"
	}
}

func (d Dialect) InsertSQL(table string, columns []string, rows [][]string) (string, error) {
	return storage.RenderInsert(d, table, columns, rows)
}

var _ storage.Dialect = Dialect{}
