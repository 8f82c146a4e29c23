package ingest

// DataType is the inferred type of a column. The set is closed.
type DataType string

const (
	TypeInteger DataType = "integer"
	TypeDecimal DataType = "decimal"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeEmail   DataType = "email"
	TypeText    DataType = "text"
)

// DataTypes lists every DataType in inference priority order, text last.
var DataTypes = []DataType{TypeInteger, TypeDecimal, TypeBoolean, TypeDate, TypeEmail, TypeText}

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	for _, d := range DataTypes {
		if d == t {
			return true
		}
	}
	return false
}

// Delimiter values accepted by ParseConfig.Delimiter.
const (
	DelimiterAuto      = "auto"
	DelimiterComma     = ","
	DelimiterSemicolon = ";"
	DelimiterTab       = "\t"
	DelimiterPipe      = "|"
)

// delimiterCandidates is the fixed detection order. The order is the
// tie-break: on equal counts the earlier candidate wins.
var delimiterCandidates = []string{DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe}

// DuplicatePolicy controls how repeated header names are handled.
type DuplicatePolicy string

const (
	// DuplicateSuffix renames later occurrences to name_2, name_3, ...
	DuplicateSuffix DuplicatePolicy = "suffix"
	// DuplicateOverwrite keeps duplicate names; the later column wins in
	// name-keyed preview rows.
	DuplicateOverwrite DuplicatePolicy = "overwrite"
)

// PreviewLimit is the size of the preview window. Type inference never
// looks past it.
const PreviewLimit = 10

// Column describes one column of the parsed input.
type Column struct {
	Name string `json:"name"`
	// OriginalName is the trimmed header text, nil when the input has no
	// header row.
	OriginalName *string  `json:"originalName"`
	Index        int      `json:"index"`
	DataType     DataType `json:"dataType"`
}

// ParsedRow is one preview row keyed by column name. Values are the raw
// trimmed strings, never coerced. The JSON form is flat, see MarshalJSON.
type ParsedRow struct {
	RowIndex int
	Values   map[string]string
}

// ParseConfig is supplied by the caller on every parse.
type ParseConfig struct {
	// Delimiter is one of "," ";" "\t" "|" or "auto".
	Delimiter string `json:"delimiter"`
	// Encoding names the text encoding of the input. Parse echoes it; the
	// decode step applies it before Parse is called.
	Encoding   string `json:"encoding"`
	HasHeaders bool   `json:"hasHeaders"`
	SkipRows   int    `json:"skipRows"`
	// Duplicates defaults to DuplicateSuffix when empty.
	Duplicates DuplicatePolicy `json:"duplicates,omitempty"`
}

// DefaultParseConfig mirrors the upload form defaults.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		Delimiter:  DelimiterAuto,
		Encoding:   "utf-8",
		HasHeaders: true,
		SkipRows:   0,
		Duplicates: DuplicateSuffix,
	}
}

// Result is a successful parse.
type Result struct {
	Columns   []Column    `json:"columns"`
	Preview   []ParsedRow `json:"preview"`
	TotalRows int         `json:"totalRows"`
	// Delimiter is the resolved delimiter, never "auto".
	Delimiter string `json:"delimiter"`
	Encoding  string `json:"encoding"`

	// cells holds the preview as positional slices, aligned with Columns.
	// Name-keyed rows can lose values under DuplicateOverwrite; profiling
	// and inference read from here instead.
	cells [][]string
	// hasHeaders and skipRows are kept so StreamRows can walk the same
	// data window as the preview.
	hasHeaders bool
	skipRows   int
}

// Cells returns the preview values of row i in column order.
func (r *Result) Cells(i int) []string {
	if r == nil || i < 0 || i >= len(r.cells) {
		return nil
	}
	return r.cells[i]
}
