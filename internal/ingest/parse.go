// Package ingest parses uploaded delimited text into a column schema, a
// bounded row preview and per-column inferred types.
//
// The pipeline is:
//   - line preparation (blank lines dropped anywhere in the text)
//   - delimiter resolution (explicit, or detected from the first line)
//   - skip rows
//   - header/column construction
//   - preview materialization (first PreviewLimit data rows)
//   - strict-consensus type inference over the preview
//
// Parse is pure: the same input and config always produce the same
// result, and nothing is logged or persisted. Decoding bytes into text
// happens before Parse (see internal/decode).
package ingest

import (
	"fmt"
	"strings"
)

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

// Parse runs the full pipeline over raw and returns the schema and
// preview, or an *Error tagged EmptyInput or NoDataAfterSkip.
//
// Splitting is a plain split on the delimiter; quoted fields containing
// the delimiter are not treated specially.
func Parse(raw string, cfg ParseConfig) (*Result, error) {
	lines := prepareLines(raw)
	if len(lines) == 0 {
		return nil, emptyInput()
	}

	delim := resolveDelimiter(cfg.Delimiter, lines[0])

	skip := cfg.SkipRows
	if skip < 0 {
		skip = 0
	}
	if skip >= len(lines) {
		return nil, noDataAfterSkip(skip)
	}
	lines = lines[skip:]

	columns := buildColumns(lines[0], delim, cfg.HasHeaders)
	applyDuplicatePolicy(columns, cfg.Duplicates)

	dataStart := 0
	if cfg.HasHeaders {
		dataStart = 1
	}

	cells := previewCells(lines[dataStart:], delim, len(columns))
	for i := range columns {
		columns[i].DataType = InferType(columnSamples(cells, i))
	}

	res := &Result{
		Columns:    columns,
		Preview:    materialize(columns, cells),
		TotalRows:  len(lines) - dataStart,
		Delimiter:  delim,
		Encoding:   cfg.Encoding,
		cells:      cells,
		hasHeaders: cfg.HasHeaders,
		skipRows:   skip,
	}
	return res, nil
}

// prepareLines splits on '\n' and drops every empty or whitespace-only
// line, wherever it occurs.
func prepareLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitFields splits a line and cleans every field: surrounding
// whitespace is trimmed and single/double quote characters are removed.
func splitFields(line, delim string) []string {
	fields := strings.Split(line, delim)
	for i, f := range fields {
		fields[i] = cleanField(f)
	}
	return fields
}

func cleanField(s string) string {
	return quoteStripper.Replace(strings.TrimSpace(s))
}

func positionalName(i int) string {
	return fmt.Sprintf("Column_%d", i+1)
}

// buildColumns turns the first remaining line into columns. Without
// headers the line only fixes the column count; it is still data.
func buildColumns(first, delim string, hasHeaders bool) []Column {
	fields := splitFields(first, delim)
	cols := make([]Column, len(fields))
	for i, f := range fields {
		col := Column{Index: i, Name: positionalName(i), DataType: TypeText}
		if hasHeaders {
			orig := f
			col.OriginalName = &orig
			if f != "" {
				col.Name = f
			}
		}
		cols[i] = col
	}
	return cols
}

// previewCells splits up to PreviewLimit data lines into rows of exactly
// width cells. Short rows are padded with "", long rows are cut.
func previewCells(data []string, delim string, width int) [][]string {
	n := len(data)
	if n > PreviewLimit {
		n = PreviewLimit
	}
	out := make([][]string, 0, n)
	for _, line := range data[:n] {
		out = append(out, alignFields(splitFields(line, delim), width))
	}
	return out
}

func alignFields(fields []string, width int) []string {
	row := make([]string, width)
	copy(row, fields)
	return row
}

// materialize builds the name-keyed preview rows. With duplicate names the
// later column overwrites the earlier one.
func materialize(cols []Column, cells [][]string) []ParsedRow {
	rows := make([]ParsedRow, 0, len(cells))
	for i, c := range cells {
		vals := make(map[string]string, len(cols))
		for j, col := range cols {
			vals[col.Name] = c[j]
		}
		rows = append(rows, ParsedRow{RowIndex: i, Values: vals})
	}
	return rows
}
