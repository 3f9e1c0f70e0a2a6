// Package pipeline turns tabular files into genesets. Every sheet of a
// workbook becomes one geneset; a CSV file becomes a single geneset.
package pipeline

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/tabular"
)

// Options configures how tabular files become genesets.
type Options struct {
	// IDHeader and ValueHeader name the columns holding gene identifiers
	// and values. Both are required.
	IDHeader    string
	ValueHeader string

	// MaxHeaderRows bounds header inference. Zero uses the default.
	MaxHeaderRows int

	// Metadata applied to every produced geneset.
	Species        string
	ScoreType      string
	GeneIdentifier string
	Access         string
	Groups         []string
}

// SheetSkip reports a sheet (or CSV file) that produced no geneset.
type SheetSkip struct {
	Sheet  string
	Reason string
}

// FileResult holds the genesets built from one file.
type FileResult struct {
	Path     string
	Genesets []*geneset.Geneset
	Skipped  []SheetSkip

	// RowSkips counts records dropped per geneset name.
	RowSkips map[string]int
}

// Converter builds genesets from tabular files.
type Converter struct {
	opts   Options
	logger *zap.Logger
}

// NewConverter creates a Converter with the given options.
func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped sheets, rows and duplicate headers.
func (c *Converter) SetLogger(l *zap.Logger) {
	c.logger = l
}

// ConvertFile reads every table in path. A file whose format is unsupported
// or that cannot be read is an error; sheets without a header are skipped.
func (c *Converter) ConvertFile(path string) (*FileResult, error) {
	if c.opts.IDHeader == "" || c.opts.ValueHeader == "" {
		return nil, fmt.Errorf("id and value headers are required")
	}

	format, err := tabular.Classify(path)
	if err != nil {
		return nil, err
	}

	sheets := []string{""}
	if format == tabular.FormatSpreadsheet {
		if sheets, err = tabular.SheetNames(path); err != nil {
			return nil, err
		}
	}

	res := &FileResult{Path: path, RowSkips: make(map[string]int)}
	stem := FileStem(path)
	for _, sheet := range sheets {
		src := &tabular.Source{Path: path, Format: format, Sheet: sheet, MaxHeaderRows: c.opts.MaxHeaderRows}

		name := stem
		if format == tabular.FormatSpreadsheet {
			name = stem + " - " + sheet
		}

		g, skip, err := c.convertSource(src, name)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", src, err)
		}
		if skip != "" {
			c.logger.Warn("skipping sheet",
				zap.String("file", path),
				zap.String("sheet", sheet),
				zap.String("reason", skip))
			res.Skipped = append(res.Skipped, SheetSkip{Sheet: sheet, Reason: skip})
			continue
		}
		res.Genesets = append(res.Genesets, g.geneset)
		if g.rowSkips > 0 {
			res.RowSkips[g.geneset.Name] = g.rowSkips
		}
	}
	return res, nil
}

type built struct {
	geneset  *geneset.Geneset
	rowSkips int
}

func (c *Converter) convertSource(src *tabular.Source, name string) (built, string, error) {
	headers, headerRow, err := src.Headers()
	if err != nil {
		return built{}, "", err
	}
	if headerRow < 0 {
		return built{}, "no header row found", nil
	}
	if dups := tabular.DuplicateHeaders(headers); len(dups) > 0 {
		c.logger.Warn("possible duplicate headers",
			zap.String("source", src.String()),
			zap.Strings("headers", dups))
	}
	if !slices.Contains(headers, c.opts.IDHeader) {
		return built{}, fmt.Sprintf("no %q column", c.opts.IDHeader), nil
	}
	if !slices.Contains(headers, c.opts.ValueHeader) {
		return built{}, fmt.Sprintf("no %q column", c.opts.ValueHeader), nil
	}

	metadata, err := src.ReadMetadata(headerRow)
	if err != nil {
		return built{}, "", err
	}
	records, err := src.ReadAllRecords()
	if err != nil {
		return built{}, "", err
	}

	values, skips := geneset.FromRecords(records, c.opts.IDHeader, c.opts.ValueHeader)
	for _, s := range skips {
		c.logger.Debug("skipping row",
			zap.String("source", src.String()),
			zap.Int("record", s.Index),
			zap.String("reason", s.Reason))
	}

	g := &geneset.Geneset{
		Name:           name,
		Abbreviation:   geneset.Abbreviate(name),
		Description:    geneset.Describe(name, metadata),
		Species:        c.opts.Species,
		ScoreType:      c.opts.ScoreType,
		GeneIdentifier: c.opts.GeneIdentifier,
		Access:         c.opts.Access,
		Groups:         c.opts.Groups,
		Values:         values,
	}
	return built{geneset: g, rowSkips: len(skips)}, "", nil
}

// FileStem returns the base name of path up to its first dot.
func FileStem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}
