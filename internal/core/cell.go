package core

// cell.go decodes raw source values into typed cells.
//
// A cell is either an Integer or Text. Decoding always tries Integer first and
// falls back to Text, so an unquoted numeric token becomes an Integer while a
// quoted one stays Text. Sources that only hand out strings (xlsx, csv) go
// through DecodeText, which applies the same order to the string form.

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// CellKind tags the variant held by a CellValue.
type CellKind int

const (
	CellText CellKind = iota
	CellInteger
)

// String returns the kind name used in logs and errors.
func (k CellKind) String() string {
	switch k {
	case CellInteger:
		return "integer"
	default:
		return "text"
	}
}

// CellValue is a tagged union of Integer(int64) or Text(string).
// The zero value is Text("") which is the empty cell.
type CellValue struct {
	kind CellKind
	i    int64
	s    string
}

// Integer returns an Integer cell.
func Integer(i int64) CellValue {
	return CellValue{kind: CellInteger, i: i}
}

// Text returns a Text cell.
func Text(s string) CellValue {
	return CellValue{kind: CellText, s: s}
}

// Kind reports which variant the cell holds.
func (c CellValue) Kind() CellKind { return c.kind }

// Int returns the integer payload and true if the cell is an Integer.
func (c CellValue) Int() (int64, bool) {
	return c.i, c.kind == CellInteger
}

// IsEmpty reports whether the cell is Text(""). Integers are never empty.
func (c CellValue) IsEmpty() bool {
	return c.kind == CellText && c.s == ""
}

// String returns the cell as text. Integers render in base 10.
func (c CellValue) String() string {
	if c.kind == CellInteger {
		return strconv.FormatInt(c.i, 10)
	}
	return c.s
}

// MarshalJSON writes Integer cells as JSON numbers and Text cells as strings,
// the inverse of DecodeCell.
func (c CellValue) MarshalJSON() ([]byte, error) {
	if c.kind == CellInteger {
		return []byte(strconv.FormatInt(c.i, 10)), nil
	}
	return json.Marshal(c.s)
}

// UnmarshalJSON decodes with the same ordered attempt as DecodeCell.
func (c *CellValue) UnmarshalJSON(data []byte) error {
	v, err := DecodeCell(data)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Row is one source row. Rows may be shorter than the layout; missing trailing
// cells are absent rather than empty.
type Row []CellValue

// Cell returns the cell at idx and whether the row reaches that column.
func (r Row) Cell(idx int) (CellValue, bool) {
	if idx < 0 || idx >= len(r) {
		return CellValue{}, false
	}
	return r[idx], true
}

// Strings returns the text form of every cell, for failure reports.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

var jsonNull = []byte("null")

// DecodeCell decodes one raw JSON scalar. Integer is attempted first, then
// Text; anything else (null, bool, fractional number, array, object) is a
// type mismatch.
func DecodeCell(raw json.RawMessage) (CellValue, error) {
	trimmed := bytes.TrimSpace(raw)
	// json.Unmarshal accepts null into any type without error.
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return CellValue{}, newMismatch(trimmed)
	}

	var i int64
	if err := json.Unmarshal(trimmed, &i); err == nil {
		return Integer(i), nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return Text(s), nil
	}

	return CellValue{}, newMismatch(trimmed)
}

func newMismatch(raw []byte) *DecodeError {
	return &DecodeError{Kind: DecodeTypeMismatch, Row: -1, Column: -1, Raw: string(raw)}
}

// DecodeRow decodes a raw row, reporting the column of the first bad cell.
func DecodeRow(raw []json.RawMessage) (Row, error) {
	row := make(Row, len(raw))
	for i, v := range raw {
		c, err := DecodeCell(v)
		if err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.Column = i
			}
			return nil, err
		}
		row[i] = c
	}
	return row, nil
}

// DecodeText applies the Integer-then-Text order to a string value.
func DecodeText(s string) CellValue {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Integer(i)
	}
	return Text(s)
}

// DecodeTextRow converts a row of strings with DecodeText.
func DecodeTextRow(cells []string) Row {
	row := make(Row, len(cells))
	for i, s := range cells {
		row[i] = DecodeText(s)
	}
	return row
}
