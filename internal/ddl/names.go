package ddl

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxIdentLen is PostgreSQL's identifier limit, the smallest among the
// supported dialects.
const maxIdentLen = 63

// truncateIdent cuts s to maxIdentLen bytes without splitting a UTF-8
// sequence.
func truncateIdent(s string) string {
	if len(s) <= maxIdentLen {
		return s
	}
	cut := maxIdentLen
	for cut > 0 && !utf8.ValidString(s[:cut]) {
		cut--
	}
	return s[:cut]
}

// normalizeIdent turns arbitrary header text into a lowercase identifier
// made of [a-z0-9_]. Separators collapse into one underscore; everything
// else is dropped. A leading digit gets a "c_" prefix. The result may be
// empty.
func normalizeIdent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' || r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		}
	}

	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "c_" + out
	}
	return truncateIdent(out)
}

// columnIdents normalizes every name and resolves collisions with _2, _3,
// ... suffixes. Names that normalize to nothing become column_<n>.
// reserved names (for example a surrogate key) are never produced.
func columnIdents(names []string, reserved ...string) []string {
	taken := make(map[string]bool, len(names)+len(reserved))
	for _, r := range reserved {
		taken[r] = true
	}

	out := make([]string, len(names))
	for i, n := range names {
		base := normalizeIdent(n)
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		name := base
		for k := 2; taken[name]; k++ {
			suffix := fmt.Sprintf("_%d", k)
			name = truncateIdent(base[:min(len(base), maxIdentLen-len(suffix))] + suffix)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// tableIdent normalizes a possibly schema-qualified table name.
func tableIdent(name string) string {
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) > 2 {
		parts = []string{strings.Join(parts, "_")}
	}
	for i, p := range parts {
		parts[i] = normalizeIdent(p)
	}
	if len(parts) == 2 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) == 2 && parts[1] == "" {
		parts = parts[:1]
	}
	out := strings.Join(parts, ".")
	if out == "" {
		return DefaultTable
	}
	return out
}
