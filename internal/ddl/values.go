package ddl

import (
	"strings"

	"sherlouk/internal/ingest"
)

// insertValue rewrites a raw cell into a literal the column type accepts in
// every dialect. Booleans become 1 or 0, dd/mm/yyyy dates become
// yyyy-mm-dd. Anything else is passed through for the database to reject.
func insertValue(typ ingest.DataType, raw string) string {
	switch typ {
	case ingest.TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "yes", "1":
			return "1"
		case "false", "no", "0":
			return "0"
		}
	case ingest.TypeDate:
		s := strings.TrimSpace(raw)
		if len(s) == 10 && s[2] == '/' && s[5] == '/' {
			return s[6:] + "-" + s[3:5] + "-" + s[:2]
		}
	}
	return raw
}

// insertRows returns the preview cells of res with each value normalized
// for its column type.
func insertRows(res *ingest.Result, types []ingest.DataType) [][]string {
	rows := make([][]string, 0, len(res.Preview))
	for i := range res.Preview {
		cells := append([]string(nil), res.Cells(i)...)
		for j, v := range cells {
			if j < len(types) {
				cells[j] = insertValue(types[j], v)
			}
		}
		rows = append(rows, cells)
	}
	return rows
}
