package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// CellKind describes how a cell value was stored in its source.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

// Cell is a single raw value read from a tabular source. CSV cells are
// always strings; spreadsheet cells keep the type stored in the workbook.
type Cell struct {
	Value string
	Kind  CellKind
}

// StringCell returns a string cell, or an empty cell for "".
func StringCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Value: s, Kind: CellString}
}

// NumberCell returns a numeric cell.
func NumberCell(s string) Cell {
	return Cell{Value: s, Kind: CellNumber}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || c.Value == ""
}

// IsNumeric reports whether the cell is stored as a number or its text is a
// pure number.
func (c Cell) IsNumeric() bool {
	return c.Kind == CellNumber || IsPureNumber(c.Value)
}

// Float parses the cell value as a float64, ignoring surrounding whitespace.
func (c Cell) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
}

func (c Cell) String() string {
	return c.Value
}

// Field is a named value inside a Record.
type Field struct {
	Name  string
	Value Cell
}

// Record maps header names to cell values, preserving header order.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord zips header names with row cells. Extra cells or names on either
// side are dropped.
func NewRecord(headers []string, row []Cell) Record {
	n := min(len(headers), len(row))
	r := Record{
		fields: make([]Field, 0, n),
		index:  make(map[string]int, n),
	}
	for i := 0; i < n; i++ {
		r.Set(headers[i], row[i])
	}
	return r
}

// Set assigns value to name. An existing name keeps its position.
func (r *Record) Set(name string, value Cell) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Cell, bool) {
	i, ok := r.index[name]
	if !ok {
		return Cell{}, false
	}
	return r.fields[i].Value, true
}

// Value returns the text stored under name, or "" when absent.
func (r Record) Value(name string) string {
	c, _ := r.Get(name)
	return c.Value
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// RenameKeys replaces the keys of every record positionally with keys.
// Every record must have exactly len(keys) fields.
func RenameKeys(records []Record, keys []string) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for i, rec := range records {
		if rec.Len() != len(keys) {
			return nil, fmt.Errorf("record %d has %d fields, expected %d keys", i, rec.Len(), len(keys))
		}
		row := make([]Cell, len(rec.fields))
		for j, f := range rec.fields {
			row[j] = f.Value
		}
		out = append(out, NewRecord(keys, row))
	}
	return out, nil
}

// DuplicateHeaders returns header names that occur more than once, in order
// of first appearance.
func DuplicateHeaders(headers []string) []string {
	seen := make(map[string]int, len(headers))
	var dups []string
	for _, h := range headers {
		seen[h]++
		if seen[h] == 2 {
			dups = append(dups, h)
		}
	}
	return dups
}
