// Package mysql renders MySQL/MariaDB DDL. It is the default dialect: the
// sync target of the dashboard is MySQL.
package mysql

import (
	"fmt"
	"strings"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"
)

const Kind = "mysql"

// tableOptions is appended to every CREATE TABLE.
const tableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

func init() {
	storage.Register(Dialect{})
}

// Dialect implements storage.Dialect for MySQL.
type Dialect struct{}

func (Dialect) Kind() string { return Kind }

// Ident quotes an identifier with backticks.
func (Dialect) Ident(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

// Literal renders a string literal. Backslashes are escaped because MySQL
// treats them as escape characters unless NO_BACKSLASH_ESCAPES is set.
func (Dialect) Literal(v string) string {
	return "'" + literalEscaper.Replace(v) + "'"
}

func (Dialect) ColumnType(t ingest.DataType) string {
	switch t {
	case ingest.TypeInteger:
		return "BIGINT"
	case ingest.TypeDecimal:
		return "DECIMAL(18,4)"
	case ingest.TypeBoolean:
		return "TINYINT(1)"
	case ingest.TypeDate:
		return "DATE"
	case ingest.TypeEmail:
		return "VARCHAR(255)"
	default:
		return "TEXT"
	}
}

// CreateTableSQL returns a single CREATE TABLE IF NOT EXISTS statement.
//
// TEXT columns cannot be indexed without a prefix length, so key columns
// of type TEXT are rendered as VARCHAR(255).
func (d Dialect) CreateTableSQL(t storage.TableSpec) ([]string, error) {
	if err := storage.Validate(t); err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}

	keys := t.KeyColumns()
	defs := make([]string, 0, len(t.Columns)+len(t.Constraints)+1)
	if pk := t.PrimaryKey; pk != nil {
		defs = append(defs, d.Ident(pk.Name)+" "+primaryKeyDef(pk.Type))
	}
	for _, c := range t.Columns {
		typ := c.Type
		if keys[c.Name] && strings.EqualFold(typ, "TEXT") {
			typ = "VARCHAR(255)"
		}
		def := d.Ident(c.Name) + " " + typ
		if c.NotNull() {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, storage.RenderConstraints(d, t)...)

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) %s;",
		storage.QualifiedIdent(d, t.Name), strings.Join(defs, ",\n  "), tableOptions)
	return []string{stmt}, nil
}

func primaryKeyDef(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "serial":
		return "INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case "bigserial":
		return "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	default:
		return typ + " NOT NULL PRIMARY KEY"
	}
}

func (d Dialect) InsertSQL(table string, columns []string, rows [][]string) (string, error) {
	return storage.RenderInsert(d, table, columns, rows)
}

var _ storage.Dialect = Dialect{}
