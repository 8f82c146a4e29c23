// Package sqlite renders SQLite DDL and can dry-run statements against an
// in-memory database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"

	_ "modernc.org/sqlite"
)

const Kind = "sqlite"

func init() {
	storage.Register(Dialect{})
}

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Kind() string { return Kind }

// Ident quotes an identifier with double quotes.
func (Dialect) Ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) Literal(v string) string {
	return storage.QuoteString(v)
}

// ColumnType maps to SQLite storage classes. Dates stay TEXT (ISO strings);
// booleans are INTEGER.
func (Dialect) ColumnType(t ingest.DataType) string {
	switch t {
	case ingest.TypeInteger, ingest.TypeBoolean:
		return "INTEGER"
	case ingest.TypeDecimal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (d Dialect) CreateTableSQL(t storage.TableSpec) ([]string, error) {
	if err := storage.Validate(t); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	if pk := t.PrimaryKey; pk != nil {
		switch strings.ToLower(strings.TrimSpace(pk.Type)) {
		case "serial", "bigserial", "identity":
			// INTEGER PRIMARY KEY aliases the rowid and auto-generates values.
			defs = append(defs, d.Ident(pk.Name)+" INTEGER PRIMARY KEY AUTOINCREMENT")
		default:
			defs = append(defs, fmt.Sprintf("%s %s PRIMARY KEY", d.Ident(pk.Name), pk.Type))
		}
	}
	for _, c := range t.Columns {
		def := d.Ident(c.Name) + " " + c.Type
		if c.NotNull() {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, storage.RenderConstraints(d, t)...)

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		d.Ident(TableName(t.Name)), strings.Join(defs, ",\n  "))
	return []string{stmt}, nil
}

func (d Dialect) InsertSQL(table string, columns []string, rows [][]string) (string, error) {
	return storage.RenderInsert(d, TableName(table), columns, rows)
}

// TableName flattens a schema-qualified name ("sales.customers" becomes
// "sales_customers"). SQLite only knows attached databases, not schemas.
func TableName(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return table
	}
	return schema + "_" + table
}

// Validate executes stmts, in order, against a fresh in-memory database and
// reports the first failure. Nothing is persisted.
func Validate(ctx context.Context, stmts []string) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("sqlite: open in-memory database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Each connection gets its own :memory: database.
	db.SetMaxOpenConns(1)

	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite: statement %d: %w", i+1, err)
		}
	}
	return nil
}

var _ storage.Dialect = Dialect{}
