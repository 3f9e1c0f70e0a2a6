package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/gwconvert/internal/textio"
)

// Index file column names.
const (
	ColGenesetName = "GW Name"
	ColGenesetID   = "GW gene set id"
	ColDisease     = "disease name"
	ColUberonID    = "UBERON id"
)

// RequiredIndexColumns must be present for indexed conversion.
var RequiredIndexColumns = []string{ColGenesetName, ColGenesetID, ColDisease, ColUberonID}

// Index is a column-major table read from a tab-separated index file.
type Index struct {
	columns []string
	data    map[string][]string
	rows    int
}

// IndexEntry is the indexed-conversion view of one index row.
type IndexEntry struct {
	Row       int
	Name      string
	GenesetID string
	Disease   string
	UberonID  string
}

// ReadIndexFile reads a tab-separated index file with a header row.
// Invalid UTF-8 bytes are replaced rather than rejected.
func ReadIndexFile(path string) (*Index, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer in.Close()

	idx, err := ParseIndex(in)
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", path, err)
	}
	return idx, nil
}

// ParseIndex reads a tab-separated table with a header row. Short rows are
// padded with empty strings; cells beyond the header width are dropped.
// A repeated column name keeps the values of its last occurrence.
func ParseIndex(r io.Reader) (*Index, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty index: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}

	idx := &Index{data: make(map[string][]string, len(header))}
	position := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if _, ok := position[col]; !ok {
			idx.columns = append(idx.columns, col)
			idx.data[col] = []string{}
		}
		position[col] = i
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read index row %d: %w", idx.rows+1, err)
		}
		for _, col := range idx.columns {
			var v string
			if i := position[col]; i < len(rec) {
				v = rec[i]
			}
			idx.data[col] = append(idx.data[col], v)
		}
		idx.rows++
	}
	return idx, nil
}

// Columns returns the column names in file order.
func (x *Index) Columns() []string {
	out := make([]string, len(x.columns))
	copy(out, x.columns)
	return out
}

// Column returns all values of a column.
func (x *Index) Column(name string) ([]string, bool) {
	vals, ok := x.data[name]
	return vals, ok
}

// Len returns the number of data rows.
func (x *Index) Len() int {
	return x.rows
}

// Value returns the cell at row of column, or "" when out of range.
func (x *Index) Value(column string, row int) string {
	vals := x.data[column]
	if row < 0 || row >= len(vals) {
		return ""
	}
	return vals[row]
}

// Require checks that every named column exists.
func (x *Index) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := x.data[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("index is missing required column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// Lookup returns the first row whose GW Name equals name.
func (x *Index) Lookup(name string) (IndexEntry, bool) {
	for i, v := range x.data[ColGenesetName] {
		if v == name {
			return IndexEntry{
				Row:       i,
				Name:      v,
				GenesetID: x.Value(ColGenesetID, i),
				Disease:   x.Value(ColDisease, i),
				UberonID:  x.Value(ColUberonID, i),
			}, true
		}
	}
	return IndexEntry{}, false
}
