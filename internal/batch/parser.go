// Package batch reads and writes the line-oriented batch geneset format and
// converts batch files into per-geneset CSV files.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/textio"
)

// ValuesMarker switches a record from metadata lines to value lines.
const ValuesMarker = "=values="

const maxLineSize = 16 * 1024 * 1024

// tagAliases maps alternate tag spellings onto geneset field names.
var tagAliases = map[string]string{
	"pubmed": geneset.FieldPubmedID,
	"pmid":   geneset.FieldPubmedID,
}

// SkipKind classifies content that was dropped while parsing.
type SkipKind int

const (
	// SkipValueLine is a malformed or non-numeric value line.
	SkipValueLine SkipKind = iota
	// SkipMetadataLine is an unrecognized line before the values marker.
	SkipMetadataLine
	// SkipRecord is a whole record missing required metadata or values.
	SkipRecord
)

func (k SkipKind) String() string {
	switch k {
	case SkipValueLine:
		return "value line"
	case SkipMetadataLine:
		return "metadata line"
	case SkipRecord:
		return "record"
	}
	return "unknown"
}

// RecordValidationError describes a line or record that failed validation.
type RecordValidationError struct {
	Line   int
	Text   string
	Reason string
}

func (e *RecordValidationError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Skip is content dropped during parsing. Record names the geneset the
// content belonged to, when known.
type Skip struct {
	Kind   SkipKind
	Record string
	Err    *RecordValidationError
}

func (s Skip) String() string {
	return fmt.Sprintf("skipped %s: %v", s.Kind, s.Err)
}

// ParseError is returned when the batch input itself cannot be read.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Message, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseResult holds the valid genesets of a batch input and everything that
// was skipped to produce them.
type ParseResult struct {
	Genesets []*geneset.Geneset
	Skipped  []Skip
}

// Parser reads genesets from batch input one record at a time.
type Parser struct {
	input      *textio.Reader
	scanner    *bufio.Scanner
	lineNumber int
	done       bool

	current   *geneset.Geneset
	seen      map[string]bool
	startLine int
	inValues  bool

	skipped []Skip
}

// NewParser creates a parser over r. Gzip-compressed input is detected and
// decompressed; invalid UTF-8 is replaced.
func NewParser(r io.Reader) (*Parser, error) {
	in, err := textio.Wrap(r)
	if err != nil {
		return nil, err
	}
	return newParser(in), nil
}

// OpenParser opens a batch file ("-" for stdin).
func OpenParser(path string) (*Parser, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	return newParser(in), nil
}

func newParser(in *textio.Reader) *Parser {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Parser{input: in, scanner: sc}
}

// Close releases the underlying input.
func (p *Parser) Close() error {
	return p.input.Close()
}

// Skipped returns the content skipped so far.
func (p *Parser) Skipped() []Skip {
	return p.skipped
}

// Next returns the next valid geneset, or nil at end of input.
func (p *Parser) Next() (*geneset.Geneset, error) {
	for !p.done {
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return nil, &ParseError{Line: p.lineNumber + 1, Message: "read batch input", Err: err}
			}
			p.done = true
			if g := p.finish(); g != nil {
				return g, nil
			}
			break
		}
		p.lineNumber++
		if g := p.consume(strings.TrimRight(p.scanner.Text(), "\r")); g != nil {
			return g, nil
		}
	}
	return nil, nil
}

// consume handles one line and returns a geneset completed by it, if any.
func (p *Parser) consume(raw string) *geneset.Geneset {
	line := strings.TrimSpace(raw)

	if field, value, ok := parseTag(line); ok {
		var done *geneset.Geneset
		if p.inValues || (p.current != nil && p.seen[field]) {
			done = p.finish()
		}
		p.setField(field, value)
		return done
	}

	if line == "" {
		return nil
	}

	if p.inValues {
		p.addValue(line)
		return nil
	}

	if strings.HasPrefix(line, "#") {
		return nil
	}
	if strings.EqualFold(line, ValuesMarker) {
		if p.current == nil {
			p.skip(SkipMetadataLine, line, "values marker without metadata")
			return nil
		}
		p.inValues = true
		return nil
	}
	p.skip(SkipMetadataLine, line, "unrecognized metadata line")
	return nil
}

func (p *Parser) setField(field, value string) {
	if p.current == nil {
		p.current = &geneset.Geneset{}
		p.seen = make(map[string]bool)
		p.startLine = p.lineNumber
	}
	p.current.Set(field, value)
	p.seen[field] = true
}

func (p *Parser) addValue(line string) {
	if strings.EqualFold(line, ValuesMarker) {
		p.skip(SkipValueLine, line, "repeated values marker")
		return
	}
	gv, reason := parseValueLine(line)
	if reason != "" {
		p.skip(SkipValueLine, line, reason)
		return
	}
	p.current.Values = append(p.current.Values, gv)
}

// finish closes the current record and returns it if it is valid.
func (p *Parser) finish() *geneset.Geneset {
	g := p.current
	p.current = nil
	p.seen = nil
	p.inValues = false
	if g == nil {
		return nil
	}

	if missing := g.Missing(); len(missing) > 0 {
		p.skipRecord(g, "missing required field(s): "+strings.Join(missing, ", "))
		return nil
	}
	if len(g.Values) == 0 {
		p.skipRecord(g, "no values")
		return nil
	}
	return g
}

func (p *Parser) skip(kind SkipKind, text, reason string) {
	var name string
	if p.current != nil {
		name = p.current.Name
	}
	p.skipped = append(p.skipped, Skip{
		Kind:   kind,
		Record: name,
		Err:    &RecordValidationError{Line: p.lineNumber, Text: text, Reason: reason},
	})
}

func (p *Parser) skipRecord(g *geneset.Geneset, reason string) {
	p.skipped = append(p.skipped, Skip{
		Kind:   SkipRecord,
		Record: g.Name,
		Err:    &RecordValidationError{Line: p.startLine, Text: g.Name, Reason: reason},
	})
}

// parseTag splits a "tag: value" line. Only known geneset fields are tags;
// matching is case-insensitive and treats '-' and ' ' like '_'.
func parseTag(line string) (field, value string, ok bool) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if alias, ok := tagAliases[key]; ok {
		key = alias
	}
	for _, f := range geneset.MetadataFields {
		if key == f {
			return f, strings.TrimSpace(value), true
		}
	}
	return "", "", false
}

// parseValueLine splits "symbol<TAB>value" or "symbol,value". With a tab the
// first tab separates; otherwise the last comma does.
func parseValueLine(line string) (geneset.GeneValue, string) {
	var symbol, value string
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		symbol, value = line[:i], line[i+1:]
	} else if i := strings.LastIndexByte(line, ','); i >= 0 {
		symbol, value = line[:i], line[i+1:]
	} else {
		return geneset.GeneValue{}, "missing value delimiter"
	}

	symbol = strings.TrimSpace(symbol)
	value = strings.TrimSpace(value)
	if symbol == "" {
		return geneset.GeneValue{}, "empty symbol"
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return geneset.GeneValue{}, "value is not a number"
	}
	return geneset.GeneValue{Symbol: symbol, Value: v}, ""
}

// Parse reads every record of a batch input.
func Parse(r io.Reader) (*ParseResult, error) {
	p, err := NewParser(r)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return collect(p)
}

// ParseString parses batch text held in memory.
func ParseString(s string) (*ParseResult, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses a batch file ("-" for stdin).
func ParseFile(path string) (*ParseResult, error) {
	p, err := OpenParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return collect(p)
}

func collect(p *Parser) (*ParseResult, error) {
	res := &ParseResult{}
	for {
		g, err := p.Next()
		if err != nil {
			return nil, err
		}
		if g == nil {
			break
		}
		res.Genesets = append(res.Genesets, g)
	}
	res.Skipped = p.Skipped()
	return res, nil
}
