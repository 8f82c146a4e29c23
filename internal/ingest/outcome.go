package ingest

import "encoding/json"

// Outcome is the tagged result handed to presentation code: either a
// populated success or an error string with its kind. There is no
// partial result.
type Outcome struct {
	Success   bool        `json:"success"`
	Columns   []Column    `json:"columns"`
	Preview   []ParsedRow `json:"preview"`
	TotalRows int         `json:"totalRows"`
	Delimiter string      `json:"delimiter"`
	Encoding  string      `json:"encoding"`
	Error     string      `json:"error,omitempty"`
	Kind      ErrorKind   `json:"kind,omitempty"`

	// Result is the parse result behind a success, kept for downstream
	// collaborators (DDL preview, export). Not serialized.
	Result *Result `json:"-"`
}

// NewOutcome folds a Parse return pair into an Outcome. Errors that are
// not *Error are reported as ReadFailure.
func NewOutcome(res *Result, err error) Outcome {
	if err != nil {
		kind := KindOf(err)
		msg := err.Error()
		if kind == "" {
			rf := ReadFailure(err)
			kind, msg = rf.Kind, rf.Msg
		}
		return Outcome{Success: false, Error: msg, Kind: kind}
	}
	if res == nil {
		return Outcome{Success: false, Error: ErrEmptyInput.Error(), Kind: KindEmptyInput}
	}
	return Outcome{
		Success:   true,
		Columns:   res.Columns,
		Preview:   res.Preview,
		TotalRows: res.TotalRows,
		Delimiter: res.Delimiter,
		Encoding:  res.Encoding,
		Result:    res,
	}
}

// MarshalJSON emits only success, error and kind for failures.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Success {
		return json.Marshal(struct {
			Success bool      `json:"success"`
			Error   string    `json:"error"`
			Kind    ErrorKind `json:"kind"`
		}{false, o.Error, o.Kind})
	}
	type plain Outcome
	p := plain(o)
	if p.Columns == nil {
		p.Columns = []Column{}
	}
	if p.Preview == nil {
		p.Preview = []ParsedRow{}
	}
	return json.Marshal(p)
}

// MarshalJSON flattens the row into one object: the cells keyed by column
// name plus "rowIndex". The index owns that key, so a column named
// rowIndex is only reachable through Values.
func (r ParsedRow) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		obj[k] = v
	}
	obj["rowIndex"] = r.RowIndex
	return json.Marshal(obj)
}
