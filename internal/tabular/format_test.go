package tabular

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"genes.csv", FormatCSV},
		{"/data/GENES.CSV", FormatCSV},
		{"expression.xlsx", FormatSpreadsheet},
		{"dir.v2/Expression.XLSX", FormatSpreadsheet},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Classify(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	tests := []struct {
		path   string
		suffix string
	}{
		{"genes.tsv", ".tsv"},
		{"book.xls", ".xls"},
		{"README", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := Classify(tt.path)
			var ufe *UnsupportedFormatError
			require.True(t, errors.As(err, &ufe))
			assert.Equal(t, tt.suffix, ufe.Suffix)
		})
	}
}

func TestNewSource_Unsupported(t *testing.T) {
	_, err := NewSource("genes.txt", "")
	var ufe *UnsupportedFormatError
	assert.ErrorAs(t, err, &ufe)
}

func TestEmptyFileError_Message(t *testing.T) {
	err := &EmptyFileError{Path: "a.csv", StartRow: 12, N: 3}
	assert.Equal(t, "a.csv -> selected start row (12) and n (3) yielded no results", err.Error())
}
