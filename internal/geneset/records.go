package geneset

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/inodb/gwconvert/internal/tabular"
)

// RowSkip describes a tabular record that could not be turned into a
// GeneValue. Index is the 0-based position of the record in its stream.
type RowSkip struct {
	Index  int
	Reason string
}

// FromRecords extracts gene values from header-keyed records. Records
// without an identifier or with a non-numeric value are skipped and
// reported; the remaining values keep record order.
func FromRecords(records []tabular.Record, idHeader, valueHeader string) ([]GeneValue, []RowSkip) {
	var (
		values []GeneValue
		skips  []RowSkip
	)
	for i, rec := range records {
		gv, err := geneValue(rec, idHeader, valueHeader)
		if err != nil {
			skips = append(skips, RowSkip{Index: i, Reason: err.Error()})
			continue
		}
		values = append(values, gv)
	}
	return values, skips
}

func geneValue(rec tabular.Record, idHeader, valueHeader string) (GeneValue, error) {
	id, ok := rec.Get(idHeader)
	if !ok {
		return GeneValue{}, fmt.Errorf("no %q column", idHeader)
	}
	symbol := strings.TrimSpace(id.Value)
	if symbol == "" {
		return GeneValue{}, fmt.Errorf("empty %q", idHeader)
	}

	cell, ok := rec.Get(valueHeader)
	if !ok {
		return GeneValue{}, fmt.Errorf("no %q column", valueHeader)
	}
	v, err := cell.Float()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return GeneValue{}, fmt.Errorf("value %q of %s is not a number", cell.Value, symbol)
	}
	return GeneValue{Symbol: symbol, Value: v}, nil
}

// Abbreviate derives an abbreviation from a geneset name: spaces removed,
// hyphens turned into underscores, first letter upper-cased and the rest
// lower-cased.
func Abbreviate(name string) string {
	s := strings.ReplaceAll(name, " ", "")
	s = strings.ReplaceAll(s, "-", "_")
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Describe builds a description from a geneset name and the metadata lines
// found above the table header.
func Describe(name string, metadata []string) string {
	var parts []string
	for _, m := range metadata {
		if m != "" {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return name
	}
	return name + " " + strings.Join(parts, ", ")
}
