// Package ddl turns a parse result into a target table and renders it as a
// CREATE TABLE preview for one of the storage dialects.
package ddl

import (
	"errors"
	"fmt"
	"strings"

	"sherlouk/internal/ingest"
	"sherlouk/internal/storage"
)

// Primary key modes. Any other value names a column.
const (
	KeyAuto    = "auto"
	KeyNone    = "none"
	KeySuggest = "suggest"
)

const (
	DefaultTable   = "imported_data"
	DefaultDialect = "mysql"
)

var (
	ErrNoResult         = errors.New("ddl: nil parse result")
	ErrUnknownKeyColumn = errors.New("ddl: unknown key column")
)

// Options controls table generation.
type Options struct {
	Table   string
	Dialect string
	// PrimaryKey is "auto", "none", "suggest" or a column name.
	PrimaryKey string
	// Overrides replaces inferred types, keyed by column name as parsed
	// or as normalized.
	Overrides   map[string]ingest.DataType
	WithInserts bool
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Table) == "" {
		o.Table = DefaultTable
	}
	if strings.TrimSpace(o.Dialect) == "" {
		o.Dialect = DefaultDialect
	}
	if strings.TrimSpace(o.PrimaryKey) == "" {
		o.PrimaryKey = KeyAuto
	}
	return o
}

// BuildTable derives a table spec from res for opt.Dialect.
func BuildTable(res *ingest.Result, opt Options) (storage.TableSpec, error) {
	if res == nil {
		return storage.TableSpec{}, ErrNoResult
	}
	opt = opt.withDefaults()

	d, err := storage.Lookup(opt.Dialect)
	if err != nil {
		return storage.TableSpec{}, err
	}

	names := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		names[i] = c.Name
	}
	idents := columnIdents(names)

	stats := ingest.Profile(res)
	spec := storage.TableSpec{Name: tableIdent(opt.Table)}

	for i, c := range res.Columns {
		typ, err := overrideType(opt.Overrides, c.Name, idents[i], c.DataType)
		if err != nil {
			return storage.TableSpec{}, err
		}
		col := storage.ColumnSpec{Name: idents[i], Type: d.ColumnType(typ)}
		if i < len(stats) && stats[i].Empty == 0 && stats[i].NonEmpty > 0 {
			col.Nullable = boolPtr(false)
		}
		spec.Columns = append(spec.Columns, col)
	}

	if err := applyKey(&spec, res, opt.PrimaryKey, idents, stats); err != nil {
		return storage.TableSpec{}, err
	}
	if err := storage.Validate(spec); err != nil {
		return storage.TableSpec{}, err
	}
	return spec, nil
}

// Statements returns the CREATE statements for res and, with
// opt.WithInserts, a trailing INSERT of the preview rows. Boolean and date
// cells are rewritten to literals the column type accepts.
func Statements(res *ingest.Result, opt Options) ([]string, error) {
	opt = opt.withDefaults()

	spec, err := BuildTable(res, opt)
	if err != nil {
		return nil, err
	}
	d, err := storage.Lookup(opt.Dialect)
	if err != nil {
		return nil, err
	}

	stmts, err := d.CreateTableSQL(spec)
	if err != nil {
		return nil, err
	}

	if !opt.WithInserts || len(res.Preview) == 0 {
		return stmts, nil
	}

	cols := make([]string, 0, len(res.Columns))
	types := make([]ingest.DataType, 0, len(res.Columns))
	for i, c := range spec.Columns[:len(res.Columns)] {
		cols = append(cols, c.Name)
		// BuildTable already rejected bad overrides.
		typ, _ := overrideType(opt.Overrides, res.Columns[i].Name, c.Name, res.Columns[i].DataType)
		types = append(types, typ)
	}

	insert, err := d.InsertSQL(spec.Name, cols, insertRows(res, types))
	if err != nil {
		return nil, err
	}
	return append(stmts, insert), nil
}

// Preview renders Statements as one script.
func Preview(res *ingest.Result, opt Options) (string, error) {
	stmts, err := Statements(res, opt)
	if err != nil {
		return "", err
	}
	return strings.Join(stmts, "\n\n") + "\n", nil
}

func overrideType(overrides map[string]ingest.DataType, name, ident string, inferred ingest.DataType) (ingest.DataType, error) {
	t, ok := overrides[name]
	if !ok {
		t, ok = overrides[ident]
	}
	if !ok {
		return inferred, nil
	}
	if !t.Valid() {
		return "", fmt.Errorf("ddl: column %q: unknown type %q", name, t)
	}
	return t, nil
}

func applyKey(spec *storage.TableSpec, res *ingest.Result, mode string, idents []string, stats []ingest.ColumnStats) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case KeyNone:
		return nil
	case KeyAuto:
		spec.PrimaryKey = surrogateKey(idents)
		return nil
	case KeySuggest:
		col, ok := ingest.SuggestKeyColumn(res)
		if !ok {
			spec.PrimaryKey = surrogateKey(idents)
			return nil
		}
		naturalKey(spec, col.Index)
		return nil
	}

	idx := -1
	for i, c := range res.Columns {
		if c.Name == mode || idents[i] == mode {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownKeyColumn, mode)
	}
	if idx < len(stats) && stats[idx].Empty > 0 {
		return fmt.Errorf("ddl: key column %q has empty values", mode)
	}
	naturalKey(spec, idx)
	return nil
}

func naturalKey(spec *storage.TableSpec, idx int) {
	spec.Columns[idx].Nullable = boolPtr(false)
	spec.Constraints = append(spec.Constraints, storage.ConstraintSpec{
		Kind:    storage.ConstraintPrimaryKey,
		Columns: []string{spec.Columns[idx].Name},
	})
}

// surrogateKey picks "id", then "row_id", then row_id_2... so the key never
// shadows a data column.
func surrogateKey(idents []string) *storage.PrimaryKeySpec {
	taken := make(map[string]bool, len(idents))
	for _, n := range idents {
		taken[n] = true
	}
	name := "id"
	if taken[name] {
		name = "row_id"
		for k := 2; taken[name]; k++ {
			name = fmt.Sprintf("row_id_%d", k)
		}
	}
	return &storage.PrimaryKeySpec{Name: name, Type: "bigserial"}
}

func boolPtr(b bool) *bool { return &b }
