package tabular

import (
	"fmt"
	"iter"
	"strings"
)

// MetadataDelimiter joins the non-empty cells of a preamble row.
const MetadataDelimiter = ","

func (s *Source) maxHeaderRows() int {
	if s.MaxHeaderRows > 0 {
		return s.MaxHeaderRows
	}
	return DefaultMaxHeaderRows
}

// Headers returns the inferred header row and its index, or (nil, -1) when
// no header is found.
func (s *Source) Headers() ([]string, int, error) {
	loc, err := s.FindHeader(s.maxHeaderRows())
	if err != nil {
		return nil, -1, err
	}
	if !loc.Found {
		return nil, -1, nil
	}

	row, err := s.ReadRow(loc.Row)
	if err != nil {
		return nil, -1, err
	}
	return cellValues(row), loc.Row, nil
}

// ReadRow returns the cells of row index (0-based).
func (s *Source) ReadRow(index int) ([]Cell, error) {
	if index < 0 {
		return nil, &RowNotFoundError{Path: s.String(), Index: index}
	}

	sc, err := s.scan()
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	for i := 0; ; i++ {
		row, err := nextRow(sc)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, &RowNotFoundError{Path: s.String(), Index: index}
		}
		if i == index {
			return row, nil
		}
	}
}

// ReadMetadata returns one line per row preceding headerRow. Each line joins
// the row's non-empty cells, with byte-order marks and surrounding
// whitespace removed, using MetadataDelimiter.
func (s *Source) ReadMetadata(headerRow int) ([]string, error) {
	if headerRow <= 0 {
		return nil, nil
	}

	sc, err := s.scan()
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	lines := make([]string, 0, headerRow)
	for i := 0; i < headerRow; i++ {
		row, err := nextRow(sc)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, &RowNotFoundError{Path: s.String(), Index: i}
		}
		lines = append(lines, metadataLine(row))
	}
	return lines, nil
}

func metadataLine(row []Cell) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		v := strings.TrimSpace(strings.ReplaceAll(c.Value, "\ufeff", ""))
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, MetadataDelimiter)
}

// Records streams the rows after the inferred header as header-keyed records.
// Without an inferred header, row 0 is used as the header. The file is open
// only while the sequence is being iterated; iterate again to restart.
func (s *Source) Records() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		loc, err := s.FindHeader(s.maxHeaderRows())
		if err != nil {
			yield(Record{}, err)
			return
		}
		start := max(loc.Row, 0)

		_, err = s.eachRecord(start, -1, func(r Record) bool {
			return yield(r, nil)
		})
		if err != nil {
			yield(Record{}, err)
		}
	}
}

// ReadAllRecords collects Records into a slice.
func (s *Source) ReadAllRecords() ([]Record, error) {
	var out []Record
	for rec, err := range s.Records() {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadNRecords reads at most n records, using startRow as the header row.
// A window that yields no records is an *EmptyFileError.
func (s *Source) ReadNRecords(n, startRow int) ([]Record, error) {
	empty := &EmptyFileError{Path: s.String(), StartRow: startRow, N: n}
	if n <= 0 || startRow < 0 {
		return nil, empty
	}

	var out []Record
	found, err := s.eachRecord(startRow, n, func(r Record) bool {
		out = append(out, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	if !found || len(out) == 0 {
		return nil, empty
	}
	return out, nil
}

// eachRecord reads row headerRow as the header and calls fn for up to limit
// following non-blank rows (limit < 0 means no limit). It reports whether
// the header row exists.
func (s *Source) eachRecord(headerRow, limit int, fn func(Record) bool) (bool, error) {
	sc, err := s.scan()
	if err != nil {
		return false, err
	}
	defer sc.Close()

	var header []string
	for i := 0; i <= headerRow; i++ {
		row, err := nextRow(sc)
		if err != nil {
			return false, err
		}
		if row == nil {
			return false, nil
		}
		if i == headerRow {
			header = cellValues(row)
		}
	}

	emitted := 0
	for limit < 0 || emitted < limit {
		row, err := nextRow(sc)
		if err != nil {
			return true, err
		}
		if row == nil {
			break
		}
		if isBlankRow(row) {
			continue
		}
		emitted++
		if !fn(NewRecord(header, row)) {
			break
		}
	}
	return true, nil
}

func isBlankRow(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func cellValues(row []Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Value
	}
	return out
}

// Summary describes one sheet (or a whole CSV file).
type Summary struct {
	Sheet     string
	Headers   []string
	HeaderRow int
	Metadata  []string
}

// Summaries describes every sheet of a spreadsheet, or the single table of a
// CSV file. Metadata is only read for sheets with an inferred header.
func Summaries(path string, maxHeaderRows int) ([]Summary, error) {
	format, err := Classify(path)
	if err != nil {
		return nil, err
	}

	sheets := []string{""}
	if format == FormatSpreadsheet {
		if sheets, err = SheetNames(path); err != nil {
			return nil, err
		}
	}

	out := make([]Summary, 0, len(sheets))
	for _, sheet := range sheets {
		src := &Source{Path: path, Format: format, Sheet: sheet, MaxHeaderRows: maxHeaderRows}
		headers, idx, err := src.Headers()
		if err != nil {
			return nil, fmt.Errorf("read headers of %s: %w", src, err)
		}
		sum := Summary{Sheet: sheet, Headers: headers, HeaderRow: idx}
		if idx > 0 {
			if sum.Metadata, err = src.ReadMetadata(idx); err != nil {
				return nil, fmt.Errorf("read metadata of %s: %w", src, err)
			}
		}
		out = append(out, sum)
	}
	return out, nil
}
