package postgres

import (
	"strings"
	"testing"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"
)

func boolPtr(v bool) *bool { return &v }

func TestCreateTableSQL_QualifiedNameCreatesSchema(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name:       "public.countries",
		PrimaryKey: &storage.PrimaryKeySpec{Name: "id", Type: "bigserial"},
		Columns: []storage.ColumnSpec{
			{Name: "name", Type: "VARCHAR(100)", Nullable: boolPtr(false)},
			{Name: "iso", Type: "TEXT"},
		},
		Constraints: []storage.ConstraintSpec{{Kind: storage.ConstraintUnique, Columns: []string{"name"}}},
	}

	stmts, err := Dialect{}.CreateTableSQL(spec)
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected schema + table statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != `CREATE SCHEMA IF NOT EXISTS "public";` {
		t.Fatalf("schema stmt=%q", stmts[0])
	}

	want := "CREATE TABLE IF NOT EXISTS \"public\".\"countries\" (\n" +
		"  \"id\" BIGSERIAL PRIMARY KEY,\n" +
		"  \"name\" VARCHAR(100) NOT NULL,\n" +
		"  \"iso\" TEXT,\n" +
		"  UNIQUE (\"name\")\n" +
		");"
	if stmts[1] != want {
		t.Fatalf("table stmt:\n%s\nwant:\n%s", stmts[1], want)
	}
}

func TestCreateTableSQL_UnqualifiedNaturalKey(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name:        "people",
		Columns:     []storage.ColumnSpec{{Name: "email", Type: "VARCHAR(255)", Nullable: boolPtr(false)}},
		Constraints: []storage.ConstraintSpec{{Kind: storage.ConstraintPrimaryKey, Columns: []string{"email"}}},
	}
	stmts, err := Dialect{}.CreateTableSQL(spec)
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], `PRIMARY KEY ("email")`) {
		t.Fatalf("unexpected stmts: %q", stmts)
	}
}

func TestCreateTableSQL_InvalidSpec(t *testing.T) {
	t.Parallel()

	if _, err := (Dialect{}).CreateTableSQL(storage.TableSpec{}); err == nil {
		t.Fatalf("expected error for empty spec")
	}
}

func TestIdentEscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := (Dialect{}).Ident(`we"ird`); got != `"we""ird"` {
		t.Fatalf("Ident=%q", got)
	}
}

func TestColumnType(t *testing.T) {
	t.Parallel()

	want := map[ingest.DataType]string{
		ingest.TypeInteger: "BIGINT",
		ingest.TypeDecimal: "NUMERIC(18,4)",
		ingest.TypeBoolean: "BOOLEAN",
		ingest.TypeDate:    "DATE",
		ingest.TypeEmail:   "VARCHAR(255)",
		ingest.TypeText:    "TEXT",
	}
	for typ, w := range want {
		if got := (Dialect{}).ColumnType(typ); got != w {
			t.Fatalf("ColumnType(%s)=%q, want %q", typ, got, w)
		}
	}
}

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	got, err := Dialect{}.InsertSQL("s.t", []string{"a", "b"}, [][]string{{"1", ""}})
	if err != nil {
		t.Fatalf("InsertSQL: %v", err)
	}
	want := "INSERT INTO \"s\".\"t\" (\"a\", \"b\") VALUES\n  ('1', NULL);"
	if got != want {
		t.Fatalf("InsertSQL=%q, want %q", got, want)
	}
}

func TestRegistered(t *testing.T) {
	d, err := storage.Lookup("postgresql")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if d.Kind() != Kind {
		t.Fatalf("Kind=%q", d.Kind())
	}
}
