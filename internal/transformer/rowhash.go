// Package transformer holds per-row transforms applied while exporting.
package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultSeparator is ASCII Unit Separator.
const DefaultSeparator = "\x1f"

// RowHash computes a deterministic SHA-256 fingerprint of selected columns,
// usable as a non-null dedupe key when natural key columns can be empty.
//
// Canonical form:
//   - Values are joined in column order using Separator.
//   - With IncludeNames, each component is "name=value".
//   - Empty values are encoded as a single NUL byte so that an empty cell
//     differs from a cell holding the literal text "".
//   - Output is lowercase hex (64 characters).
type RowHash struct {
	// Columns restricts the hash to these column names, in this order.
	// Empty means every column.
	Columns      []string
	IncludeNames bool
	Separator    string
	TrimSpace    bool
}

// Bind resolves h.Columns against header and returns a function hashing
// rows aligned to header. Unknown column names are reported.
func (h RowHash) Bind(header []string) (func(values []string) string, error) {
	idx := make([]int, 0, len(header))
	names := make([]string, 0, len(header))

	if len(h.Columns) == 0 {
		for i, n := range header {
			idx = append(idx, i)
			names = append(names, n)
		}
	} else {
		pos := make(map[string]int, len(header))
		for i, n := range header {
			if _, dup := pos[n]; !dup {
				pos[n] = i
			}
		}
		for _, c := range h.Columns {
			i, ok := pos[c]
			if !ok {
				return nil, &UnknownColumnError{Column: c}
			}
			idx = append(idx, i)
			names = append(names, c)
		}
	}

	sep := h.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	return func(values []string) string {
		sum := h.sum(values, idx, names, sep)
		return hex.EncodeToString(sum[:])
	}, nil
}

func (h RowHash) sum(values []string, idx []int, names []string, sep string) [sha256.Size]byte {
	var b strings.Builder
	b.Grow(len(idx) * 20)

	for n, i := range idx {
		if n > 0 {
			b.WriteString(sep)
		}
		if h.IncludeNames {
			b.WriteString(names[n])
			b.WriteByte('=')
		}

		v := ""
		if i < len(values) {
			v = values[i]
		}
		if h.TrimSpace && hasEdgeSpace(v) {
			v = strings.TrimSpace(v)
		}
		if v == "" {
			b.WriteByte('\x00')
			continue
		}
		b.WriteString(v)
	}

	return sha256.Sum256([]byte(b.String()))
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// UnknownColumnError is returned by Bind for a column not in the header.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return "transformer: unknown hash column " + `"` + e.Column + `"`
}
