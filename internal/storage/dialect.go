package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"sherlouk/internal/ingest"
)

// Dialect renders table specs and preview inserts for one SQL flavour.
//
// Implementations are pure: they build statements and never connect to a
// database.
type Dialect interface {
	Kind() string
	// ColumnType maps an inferred type to a column type of this dialect.
	ColumnType(t ingest.DataType) string
	// CreateTableSQL returns the statements that create t, in order.
	CreateTableSQL(t TableSpec) ([]string, error)
	// InsertSQL renders a literal multi-row INSERT. Empty values become NULL.
	InsertSQL(table string, columns []string, rows [][]string) (string, error)
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

var aliases = map[string]string{
	"postgresql": "postgres",
	"pg":         "postgres",
	"sqlserver":  "mssql",
	"mariadb":    "mysql",
	"sqlite3":    "sqlite",
}

// CanonicalKind lowercases kind and resolves aliases.
func CanonicalKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if a, ok := aliases[k]; ok {
		return a
	}
	return k
}

// Register makes d available under d.Kind().
//
// Call it from an init() function in the dialect package. It panics on an
// empty kind, a nil dialect or a duplicate registration.
func Register(d Dialect) {
	if d == nil {
		panic("storage: Register called with nil dialect")
	}
	kind := CanonicalKind(d.Kind())
	if kind == "" {
		panic("storage: Register called with empty kind")
	}

	dialectMu.Lock()
	defer dialectMu.Unlock()

	if _, exists := dialects[kind]; exists {
		panic(fmt.Sprintf("storage: dialect already registered for kind=%q", kind))
	}
	dialects[kind] = d
}

// Lookup returns the dialect registered for kind or one of its aliases.
func Lookup(kind string) (Dialect, error) {
	k := CanonicalKind(kind)
	if k == "" {
		return nil, fmt.Errorf("storage: missing dialect kind")
	}

	dialectMu.RLock()
	d := dialects[k]
	dialectMu.RUnlock()

	if d == nil {
		return nil, fmt.Errorf("storage: unsupported dialect %q (have %s)", kind, strings.Join(Kinds(), ", "))
	}
	return d, nil
}

// Kinds lists registered dialect kinds, sorted.
func Kinds() []string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()

	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
