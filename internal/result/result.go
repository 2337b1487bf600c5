package result

import (
	"encoding/json"
	"fmt"
)

// Column describes one result column.
type Column struct {
	Name         string        `json:"name"`
	FriendlyName string        `json:"friendly_name"`
	Type         CanonicalType `json:"type"`
}

// Row maps column name to value.
type Row map[string]any

// Result is the canonical tabular result. Columns follow the cursor's
// description order; Rows follow the cursor's fetch order.
type Result struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New returns an empty result with the given columns.
func New(columns []Column) *Result {
	return &Result{Columns: columns, Rows: make([]Row, 0)}
}

// ColumnNames returns the column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// AppendValues adds a row built by zipping the column names with values.
// When two columns share a name the later value wins.
func (r *Result) AppendValues(values []any) error {
	if len(values) != len(r.Columns) {
		return fmt.Errorf("row has %d values for %d columns", len(values), len(r.Columns))
	}
	row := make(Row, len(values))
	for i, c := range r.Columns {
		row[c.Name] = values[i]
	}
	r.Rows = append(r.Rows, row)
	return nil
}

// Marshal serializes r into the JSON document handed to the host.
func Marshal(r *Result) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal parses a document produced by Marshal.
func Unmarshal(data string) (*Result, error) {
	var r Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	if r.Rows == nil {
		r.Rows = make([]Row, 0)
	}
	return &r, nil
}
