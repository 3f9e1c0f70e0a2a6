package ortholog

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/gwconvert/internal/tabular"
	"github.com/inodb/gwconvert/internal/textio"
)

// headerNames are first-column names that mark a mapping table header row.
var headerNames = map[string]bool{
	"from_gene":       true,
	"from":            true,
	"source":          true,
	"original_ref_id": true,
	"symbol":          true,
}

// TableOptions controls mapping table parsing.
type TableOptions struct {
	// Algorithm keeps only rows whose third column names this algorithm.
	// Rows without a third column are kept. Empty keeps every row.
	Algorithm Algorithm
}

// LoadTable reads a mapping table file ("-" for stdin, gzip allowed).
func LoadTable(path string, opts TableOptions) ([]Mapping, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping table: %w", err)
	}
	defer in.Close()

	mappings, err := ParseTable(in, opts)
	if err != nil {
		return nil, fmt.Errorf("mapping table %s: %w", path, err)
	}
	return mappings, nil
}

// ParseTable reads source/target pairs, one per line, separated by a tab or
// a comma. Blank lines and '#' comments are ignored. A first row that names
// its columns (from_gene,to_gene or similar) is treated as a header. An
// optional third column holds the ortholog algorithm.
func ParseTable(r io.Reader, opts TableOptions) ([]Mapping, error) {
	scanner := bufio.NewScanner(r)

	var (
		mappings   []Mapping
		lineNumber int
		first      = true
		sep        string
		pending    []string
		pendingAt  int
	)

	emit := func(fields []string, line int) error {
		if len(fields) < 2 {
			return fmt.Errorf("line %d: expected source and target columns", line)
		}
		src, dst := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if src == "" || dst == "" {
			return fmt.Errorf("line %d: empty source or target", line)
		}
		if opts.Algorithm != "" && len(fields) > 2 && !opts.Algorithm.Matches(fields[2]) {
			return nil
		}
		mappings = append(mappings, Mapping{Source: src, Target: dst})
		return nil
	}

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if sep == "" {
			sep = ","
			if strings.Contains(line, "\t") {
				sep = "\t"
			}
		}
		fields := strings.Split(line, sep)

		if first {
			// Hold the first row until the next one decides whether it is a header.
			first = false
			pending, pendingAt = fields, lineNumber
			continue
		}
		if pending != nil {
			if !isHeader(pending, fields) {
				if err := emit(pending, pendingAt); err != nil {
					return nil, err
				}
			}
			pending = nil
		}
		if err := emit(fields, lineNumber); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mapping table: %w", err)
	}
	if pending != nil && !isHeader(pending, pending) {
		if err := emit(pending, pendingAt); err != nil {
			return nil, err
		}
	}
	return mappings, nil
}

func isHeader(row, next []string) bool {
	if len(row) == 0 || !headerNames[strings.ToLower(strings.TrimSpace(row[0]))] {
		return false
	}
	return tabular.IsHeaderCandidate(stringCells(row), stringCells(next))
}

func stringCells(fields []string) []tabular.Cell {
	out := make([]tabular.Cell, len(fields))
	for i, f := range fields {
		out[i] = tabular.StringCell(strings.TrimSpace(f))
	}
	return out
}
