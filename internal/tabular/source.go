package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/inodb/gwconvert/internal/textio"
)

// Source identifies a tabular file and, for spreadsheets, the sheet to read.
// A Source holds no open handles: every operation opens the file, reads what
// it needs and closes it before returning.
type Source struct {
	Path   string
	Format Format

	// Sheet selects a worksheet. Empty means the active sheet. Ignored for CSV.
	Sheet string

	// MaxHeaderRows bounds header inference. Zero uses DefaultMaxHeaderRows.
	MaxHeaderRows int
}

// NewSource classifies path and returns a Source for it.
func NewSource(path, sheet string) (*Source, error) {
	format, err := Classify(path)
	if err != nil {
		return nil, err
	}
	return &Source{Path: path, Format: format, Sheet: sheet}, nil
}

func (s *Source) String() string {
	if s.Format == FormatSpreadsheet && s.Sheet != "" {
		return s.Path + "[" + s.Sheet + "]"
	}
	return s.Path
}

// rowScanner yields rows in file order. Next returns io.EOF after the last row.
// Empty rows are returned as zero-length, non-nil slices.
type rowScanner interface {
	Next() ([]Cell, error)
	Close() error
}

func (s *Source) scan() (rowScanner, error) {
	switch s.Format {
	case FormatCSV:
		return openCSV(s.Path)
	case FormatSpreadsheet:
		return openSheet(s.Path, s.Sheet)
	}
	return nil, &UnsupportedFormatError{Suffix: string(s.Format)}
}

// nextRow wraps rowScanner.Next, mapping io.EOF to a nil row.
func nextRow(sc rowScanner) ([]Cell, error) {
	row, err := sc.Next()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return row, err
}

// csvScanner streams a CSV file. encoding/csv silently skips blank lines;
// they are reinstated as empty rows so row indices match file lines.
type csvScanner struct {
	file     *os.File
	reader   *csv.Reader
	nextLine int
	blanks   int
	held     []string
}

func openCSV(path string) (*csvScanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	r := csv.NewReader(textio.NewDecodingReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	return &csvScanner{file: f, reader: r, nextLine: 1}, nil
}

func (s *csvScanner) Next() ([]Cell, error) {
	if s.blanks > 0 {
		s.blanks--
		return []Cell{}, nil
	}
	if s.held != nil {
		rec := s.held
		s.held = nil
		return stringCells(rec), nil
	}

	rec, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read csv row: %w", err)
	}

	start, _ := s.reader.FieldPos(0)
	last := len(rec) - 1
	lastLine, _ := s.reader.FieldPos(last)
	gap := start - s.nextLine
	s.nextLine = lastLine + strings.Count(rec[last], "\n") + 1

	if gap > 0 {
		s.blanks = gap - 1
		s.held = rec
		return []Cell{}, nil
	}
	return stringCells(rec), nil
}

func (s *csvScanner) Close() error {
	return s.file.Close()
}

func stringCells(rec []string) []Cell {
	cells := make([]Cell, len(rec))
	for i, v := range rec {
		cells[i] = StringCell(v)
	}
	return cells
}

// sheetScanner serves rows of one worksheet. The workbook is read and closed
// when the scanner is opened; rows are padded to the widest row so every row
// of a sheet has the same column count.
type sheetScanner struct {
	rows [][]Cell
	pos  int
}

func openSheet(path, sheet string) (*sheetScanner, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("find sheet %q: %w", sheet, err)
	}
	if idx == -1 {
		return nil, fmt.Errorf("sheet %q not found in %s", sheet, path)
	}

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	width := 0
	for _, r := range raw {
		width = max(width, len(r))
	}

	rows := make([][]Cell, len(raw))
	for i, r := range raw {
		cells := make([]Cell, 0, width)
		if len(r) == 0 {
			// Keep fully empty rows empty, like blank CSV lines.
			rows[i] = cells
			continue
		}
		for j := 0; j < width; j++ {
			if j >= len(r) || r[j] == "" {
				cells = append(cells, Cell{})
				continue
			}
			cells = append(cells, sheetCell(f, sheet, j+1, i+1, r[j]))
		}
		rows[i] = cells
	}

	return &sheetScanner{rows: rows}, nil
}

// sheetCell types a non-empty worksheet value. Cells stored without an
// explicit string type whose raw value parses as a float are numbers.
func sheetCell(f *excelize.File, sheet string, col, row int, value string) Cell {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return StringCell(value)
	}
	t, err := f.GetCellType(sheet, name)
	if err != nil {
		return StringCell(value)
	}
	switch t {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return NumberCell(value)
		}
	}
	return StringCell(value)
}

func (s *sheetScanner) Next() ([]Cell, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sheetScanner) Close() error {
	return nil
}

// SheetNames lists the worksheets of a spreadsheet in workbook order.
func SheetNames(path string) ([]string, error) {
	format, err := Classify(path)
	if err != nil {
		return nil, err
	}
	if format != FormatSpreadsheet {
		return nil, fmt.Errorf("%s is not a spreadsheet", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}
