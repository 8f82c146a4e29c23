package ingest

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns, one per inferable type.
var (
	reInteger = regexp.MustCompile(`^-?\d+$`)
	reDecimal = regexp.MustCompile(`^-?\d+\.\d+$`)
	reBoolean = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
	reDateISO = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateDMY = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	reEmail   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// typeMatchers is the fixed inference priority. TypeText has no matcher;
// it is the fallback.
var typeMatchers = []struct {
	typ   DataType
	match func(string) bool
}{
	{TypeInteger, reInteger.MatchString},
	{TypeDecimal, reDecimal.MatchString},
	{TypeBoolean, reBoolean.MatchString},
	{TypeDate, func(s string) bool { return reDateISO.MatchString(s) || reDateDMY.MatchString(s) }},
	{TypeEmail, reEmail.MatchString},
}

// InferType assigns a type to a column from its sample values.
//
// Empty values are ignored. A type is chosen only if every remaining
// sample matches it (strict consensus, not majority); the first such type
// in priority order wins. No samples, or no unanimous type, yields text.
func InferType(samples []string) DataType {
	vals := make([]string, 0, len(samples))
	for _, s := range samples {
		if s = strings.TrimSpace(s); s != "" {
			vals = append(vals, s)
		}
	}
	if len(vals) == 0 {
		return TypeText
	}

	for _, m := range typeMatchers {
		all := true
		for _, v := range vals {
			if !m.match(v) {
				all = false
				break
			}
		}
		if all {
			return m.typ
		}
	}
	return TypeText
}

// columnSamples collects the preview values of column i.
func columnSamples(cells [][]string, i int) []string {
	out := make([]string, 0, len(cells))
	for _, row := range cells {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}
