package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/geneset"
)

// ErrIDCountMismatch is returned when external ids are supplied but their
// number differs from the number of valid genesets.
var ErrIDCountMismatch = errors.New("number of geneset ids does not match number of genesets")

// ErrInvalidFileName is returned by FileName when no usable file name can be
// built for a geneset.
var ErrInvalidFileName = errors.New("invalid file name")

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// CSV column names used after the metadata lines.
const (
	KeyUberonID  = "uberon_id"
	HeaderGeneID = "gene_id"
	HeaderValue  = "value"
)

// CSVOptions controls ToCSV.
type CSVOptions struct {
	// OutputDir receives the CSV files. Empty means the working directory.
	OutputDir string
	// Prefix is prepended to every file name as "<prefix>_".
	Prefix string
	// ExternalIDs name the files instead of abbreviations, one per valid
	// geneset in parse order.
	ExternalIDs []string
	// HashHeader prefixes metadata keys with '#'.
	HashHeader bool
}

// IndexLookupMiss reports a geneset whose name is absent from the index.
type IndexLookupMiss struct {
	Name string
}

func (m IndexLookupMiss) String() string {
	return fmt.Sprintf("could not find geneset %s in index file", m.Name)
}

// WriteFailure reports a geneset whose CSV file could not be written.
type WriteFailure struct {
	Name string
	Path string
	Err  error
}

func (f WriteFailure) String() string {
	return fmt.Sprintf("could not write geneset %s: %v", f.Name, f.Err)
}

// ConvertResult is the partial-success report of a conversion: the files
// written plus everything that was skipped.
type ConvertResult struct {
	Files    []string
	Skipped  []Skip
	Misses   []IndexLookupMiss
	Failures []WriteFailure
}

// Converter turns batch input into per-geneset CSV files.
type Converter struct {
	logger *zap.Logger
}

// NewConverter creates a Converter with a no-op logger.
func NewConverter() *Converter {
	return &Converter{logger: zap.NewNop()}
}

// SetLogger sets the logger for skip and miss warnings.
func (c *Converter) SetLogger(l *zap.Logger) {
	c.logger = l
}

// ToCSV parses batch input from r and writes one CSV per valid geneset.
func (c *Converter) ToCSV(r io.Reader, opts CSVOptions) (*ConvertResult, error) {
	parsed, err := Parse(r)
	if err != nil {
		return nil, err
	}
	c.logSkips(parsed.Skipped)

	if len(opts.ExternalIDs) > 0 && len(opts.ExternalIDs) != len(parsed.Genesets) {
		return nil, fmt.Errorf("%w: %d ids for %d genesets", ErrIDCountMismatch, len(opts.ExternalIDs), len(parsed.Genesets))
	}

	if err := ensureDir(opts.OutputDir); err != nil {
		return nil, err
	}

	res := &ConvertResult{Skipped: parsed.Skipped}
	for i, g := range parsed.Genesets {
		var id string
		if len(opts.ExternalIDs) > 0 {
			id = opts.ExternalIDs[i]
		}
		c.writeOne(res, g, opts.OutputDir, opts.Prefix, id, "", opts.HashHeader)
	}
	return res, nil
}

// ToCSVIndexed parses batch input from r and writes one CSV per geneset
// found in index. The file prefix comes from the disease name, the file
// name from the geneset id and the uberon_id line from the UBERON id.
// Genesets missing from the index are reported and skipped.
func (c *Converter) ToCSVIndexed(r io.Reader, index *Index, outputDir string) (*ConvertResult, error) {
	if err := index.Require(RequiredIndexColumns...); err != nil {
		return nil, err
	}

	parsed, err := Parse(r)
	if err != nil {
		return nil, err
	}
	c.logSkips(parsed.Skipped)

	if err := ensureDir(outputDir); err != nil {
		return nil, err
	}

	res := &ConvertResult{Skipped: parsed.Skipped}
	for _, g := range parsed.Genesets {
		entry, ok := index.Lookup(g.Name)
		if !ok {
			miss := IndexLookupMiss{Name: g.Name}
			c.logger.Warn(miss.String(), zap.String("name", g.Name))
			res.Misses = append(res.Misses, miss)
			continue
		}

		prefix := strings.ToLower(strings.ReplaceAll(entry.Disease, " ", "_"))
		c.writeOne(res, g, outputDir, prefix, entry.GenesetID, entry.UberonID, false)
	}
	return res, nil
}

// writeOne writes the CSV of one geneset and records the file or the failure
// in res. A failure never stops the batch.
func (c *Converter) writeOne(res *ConvertResult, g *geneset.Geneset, dir, prefix, id, uberonID string, hashHeader bool) {
	name, err := FileName(g, prefix, id)
	if err != nil {
		c.fail(res, WriteFailure{Name: g.Name, Err: err})
		return
	}
	path := filepath.Join(dir, name)
	if err := writeCSVFile(path, g, uberonID, hashHeader); err != nil {
		c.fail(res, WriteFailure{Name: g.Name, Path: path, Err: err})
		return
	}
	c.logger.Debug("wrote geneset csv",
		zap.String("name", g.Name),
		zap.String("id", id),
		zap.String("path", path))
	res.Files = append(res.Files, path)
}

func (c *Converter) fail(res *ConvertResult, f WriteFailure) {
	c.logger.Warn("skipped geneset", zap.String("name", f.Name), zap.Error(f.Err))
	res.Failures = append(res.Failures, f)
}

func (c *Converter) logSkips(skips []Skip) {
	for _, s := range skips {
		c.logger.Warn("skipped batch "+s.Kind.String(),
			zap.String("record", s.Record),
			zap.Int("line", s.Err.Line),
			zap.String("reason", s.Err.Reason))
	}
}

// FileName returns the CSV file name for a geneset: id when given, the
// file stem of the abbreviation otherwise, with an optional "<prefix>_".
// Path separators in any part become '_', so the name never leaves the
// output directory.
func FileName(g *geneset.Geneset, prefix, id string) (string, error) {
	name := strings.TrimSpace(id)
	if name == "" {
		name = g.FileStem()
	}
	name = pathSeparators.Replace(name)
	switch name {
	case "", ".", "..":
		return "", fmt.Errorf("%w: geneset %s: %q", ErrInvalidFileName, g.Name, name)
	}
	name += ".csv"
	if prefix != "" {
		name = pathSeparators.Replace(prefix) + "_" + name
	}
	return name, nil
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

func writeCSVFile(path string, g *geneset.Geneset, uberonID string, hashHeader bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := WriteGenesetCSV(f, g, uberonID, hashHeader); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// WriteGenesetCSV renders one geneset as CSV: a key,value line per metadata
// field, a uberon_id line, the gene_id,value header and the values.
func WriteGenesetCSV(w io.Writer, g *geneset.Geneset, uberonID string, hashHeader bool) error {
	keyPrefix := ""
	if hashHeader {
		keyPrefix = "#"
	}

	cw := csv.NewWriter(w)
	for _, f := range geneset.MetadataFields {
		cw.Write([]string{keyPrefix + f, g.Get(f)})
	}
	cw.Write([]string{keyPrefix + KeyUberonID, uberonID})
	cw.Write([]string{HeaderGeneID, HeaderValue})
	for _, gv := range g.Values {
		cw.Write([]string{gv.Symbol, FormatValue(gv.Value)})
	}
	cw.Flush()
	return cw.Error()
}
