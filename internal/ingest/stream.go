package ingest

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// Row is one data row aligned to Result.Columns.
type Row struct {
	// Line is the 1-based line number in the original text.
	Line   int
	Values []string
}

// StreamRows emits every data row of raw (not only the preview window)
// using the delimiter, skip count and header setting resolved by res.
//
// Rows are cleaned and aligned exactly like preview rows. A row whose
// field count differs from the column count is still emitted (padded or
// cut) and reported through onErr, which may be nil.
//
// On ctx cancellation StreamRows returns ctx.Err(). It never closes out.
func StreamRows(
	ctx context.Context,
	raw string,
	res *Result,
	out chan<- Row,
	onErr func(line int, err error),
) error {
	if res == nil {
		return fmt.Errorf("stream rows: nil result")
	}

	width := len(res.Columns)
	skip := res.skipRows
	if res.hasHeaders {
		skip++
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), len(raw)+1)

	line := 0
	kept := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		kept++
		if kept <= skip {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fields := splitFields(text, res.Delimiter)
		if len(fields) != width && onErr != nil {
			onErr(line, fmt.Errorf("expected %d fields, got %d", width, len(fields)))
		}

		select {
		case out <- Row{Line: line, Values: alignFields(fields, width)}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}
