package ingest

import (
	"fmt"
	"strings"
)

// ColumnStats holds bounded per-column statistics over the preview.
//
// NonEmpty is the denominator for uniqueness ratios; rows where the column
// is blank do not count towards it.
type ColumnStats struct {
	Column   Column
	NonEmpty int
	Empty    int
	Distinct int
}

// Ratio is Distinct/NonEmpty, or 0 when the column has no values.
func (s ColumnStats) Ratio() float64 {
	if s.NonEmpty == 0 {
		return 0
	}
	return float64(s.Distinct) / float64(s.NonEmpty)
}

// Profile computes ColumnStats for every column of res, in column order.
// Only the preview window is examined.
func Profile(res *Result) []ColumnStats {
	if res == nil || len(res.Columns) == 0 {
		return nil
	}

	out := make([]ColumnStats, len(res.Columns))
	sets := make([]map[string]struct{}, len(res.Columns))
	for i, c := range res.Columns {
		out[i].Column = c
		sets[i] = make(map[string]struct{})
	}

	for _, row := range res.cells {
		for i := range res.Columns {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			if strings.TrimSpace(v) == "" {
				out[i].Empty++
				continue
			}
			out[i].NonEmpty++
			sets[i][v] = struct{}{}
		}
	}

	for i := range out {
		out[i].Distinct = len(sets[i])
	}
	return out
}

// SuggestKeyColumn returns the first column whose preview values are all
// present and all distinct. Columns with fewer than two values are not
// considered; one row says nothing about uniqueness.
func SuggestKeyColumn(res *Result) (Column, bool) {
	for _, s := range Profile(res) {
		if s.Empty > 0 || s.NonEmpty < 2 {
			continue
		}
		if s.Distinct == s.NonEmpty {
			return s.Column, true
		}
	}
	return Column{}, false
}

// FormatReport renders a plain-text schema and uniqueness summary.
func FormatReport(res *Result) string {
	if res == nil {
		return "no result"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "delimiter=%q encoding=%s total_rows=%d preview_rows=%d\n",
		res.Delimiter, res.Encoding, res.TotalRows, len(res.Preview))
	fmt.Fprintf(&b, "%-20s\t%-8s\t%-7s\t%-7s\tratio\n", "column", "type", "unique", "rows")

	for _, s := range Profile(res) {
		fmt.Fprintf(&b, "%-20s\t%-8s\t%-7d\t%-7d\t%.1f%%\n",
			s.Column.Name, s.Column.DataType, s.Distinct, s.NonEmpty, s.Ratio()*100)
	}

	if key, ok := SuggestKeyColumn(res); ok {
		fmt.Fprintf(&b, "suggested key: %s\n", key.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
