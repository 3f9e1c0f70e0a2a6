// Package tabular reads CSV and spreadsheet files through one row-oriented
// contract: header inference, random row access, metadata preamble and
// header-keyed record streams.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the container format of a tabular file.
type Format string

// Supported formats.
const (
	FormatCSV         Format = "csv"
	FormatSpreadsheet Format = "spreadsheet"
)

// Classify determines the format of a file from its extension
// (case-insensitive). Only .csv and .xlsx are recognized.
func Classify(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatSpreadsheet, nil
	}
	return "", &UnsupportedFormatError{Suffix: ext}
}

// UnsupportedFormatError is returned for files with an unrecognized suffix.
type UnsupportedFormatError struct {
	Suffix string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Suffix == "" {
		return "unsupported file type: no extension"
	}
	return fmt.Sprintf("unsupported file type %s", e.Suffix)
}

// EmptyFileError is returned when a bounded read window yields no records.
type EmptyFileError struct {
	Path     string
	StartRow int
	N        int
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("%s -> selected start row (%d) and n (%d) yielded no results", e.Path, e.StartRow, e.N)
}

// RowNotFoundError is returned when a requested row index is past the end of
// the source.
type RowNotFoundError struct {
	Path  string
	Index int
}

func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("%s does not contain a row at index %d", e.Path, e.Index)
}
