package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/batch"
	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/pipeline"
	"github.com/inodb/gwconvert/internal/store"
)

// Output formats of the convert command.
const (
	toBatch = "gw"
	toCSV   = "csv"
)

func newConvertCmd() *cobra.Command {
	var (
		opts     pipeline.Options
		to       string
		workers  int
		useStore bool
	)

	cmd := &cobra.Command{
		Use:   "convert [options] <file>...",
		Short: "Convert CSV and spreadsheet tables to genesets",
		Long: `Convert CSV and spreadsheet tables to genesets.

A CSV file becomes one geneset named after the file. Every sheet of a
workbook becomes one geneset named "<file> - <sheet>"; sheets without a
header row or without the id and value columns are skipped. Rows with an
empty id or a non-numeric value are dropped.

With --to gw (the default) each input file is written as <file>.gw in the
output directory; --species, --score-type and --gene-identifier are required
so the file can be read back, and genesets left without values are skipped.
With --to csv each geneset is written as its own CSV.`,
		Example: `  gwconvert convert --id-header Gene --value-header Score --species "Homo sapiens" \
      --score-type Effect --gene-identifier "Gene Symbol" liver.csv
  gwconvert convert --id-header Symbol --value-header logFC --to csv study.xlsx
  gwconvert convert --id-header Gene --value-header Score --species "Mus musculus" \
      --score-type p-value --gene-identifier MGI --store *.xlsx`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.IDHeader == "" || opts.ValueHeader == "" {
				return &usageError{fmt.Errorf("--id-header and --value-header are required")}
			}
			if to != toBatch && to != toCSV {
				return &usageError{fmt.Errorf("unknown output format %q (want %s or %s)", to, toBatch, toCSV)}
			}
			if to == toBatch && (opts.Species == "" || opts.ScoreType == "" || opts.GeneIdentifier == "") {
				return &usageError{fmt.Errorf("--to %s requires --species, --score-type and --gene-identifier", toBatch)}
			}
			opts.MaxHeaderRows = viper.GetInt(keyMaxHeaderRows)
			return runConvert(cmd, args, opts, to, workers, useStore)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.IDHeader, "id-header", "", "Column holding gene identifiers (required)")
	f.StringVar(&opts.ValueHeader, "value-header", "", "Column holding gene values (required)")
	f.StringVar(&opts.Species, "species", "", "Species of every geneset")
	f.StringVar(&opts.ScoreType, "score-type", "", "Score type of every geneset")
	f.StringVar(&opts.GeneIdentifier, "gene-identifier", "", "Gene identifier type of every geneset")
	f.StringVar(&opts.Access, "access", "", "Access level of every geneset")
	f.StringSliceVar(&opts.Groups, "groups", nil, "Groups of every geneset")
	f.StringVar(&to, "to", toBatch, "Output format: gw or csv")
	f.StringP("output-dir", "o", "", "Output directory (default: output.dir)")
	f.Bool("hash-header", false, "Prefix CSV metadata keys with '#' (default: csv.hash_header)")
	f.IntVar(&workers, "workers", 0, "Files converted in parallel (default: number of CPUs)")
	f.BoolVar(&useStore, "store", false, "Also import the genesets into the store")
	return cmd
}

func runConvert(cmd *cobra.Command, paths []string, opts pipeline.Options, to string, workers int, useStore bool) error {
	dir := outputDir(cmd)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var st *store.Store
	if useStore {
		var err error
		if st, err = store.Open(viper.GetString(keyStorePath)); err != nil {
			return err
		}
		defer st.Close()
	}

	conv := pipeline.NewConverter(opts)
	conv.SetLogger(logger)

	out := cmd.OutOrStdout()
	failed := 0
	err := conv.ConvertFiles(cmd.Context(), paths, workers, func(r pipeline.WorkResult) error {
		if r.Err != nil {
			failed++
			logger.Error("conversion failed", zap.String("file", r.Path), zap.Error(r.Err))
			return nil
		}
		for _, s := range r.Result.Skipped {
			fmt.Fprintf(out, "%s %s [%s]: %s\n", skippedLabel("Skipped"), r.Path, s.Sheet, s.Reason)
		}
		for _, g := range r.Result.Genesets {
			if n := r.Result.RowSkips[g.Name]; n > 0 {
				logger.Info("dropped rows", zap.String("geneset", g.Name), zap.Int("rows", n))
			}
			if err := g.Validate(); err != nil {
				logger.Warn("incomplete geneset metadata", zap.String("geneset", g.Name), zap.Error(err))
			}
		}
		genesets := r.Result.Genesets
		if to == toBatch {
			genesets = genesets[:0:0]
			for _, g := range r.Result.Genesets {
				if err := batch.Check(g); err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", skippedLabel("Skipped"), r.Path, err)
					continue
				}
				genesets = append(genesets, g)
			}
		}
		if len(genesets) == 0 {
			return nil
		}

		files, err := writeGenesets(dir, r.Path, genesets, to, hashHeader(cmd))
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(out, "%s %s\n", createdLabel("Created"), f)
		}

		if st != nil {
			fp, err := store.StatFile(r.Path)
			if err != nil {
				return err
			}
			if _, err := st.WriteGenesets(fp, genesets); err != nil {
				return fmt.Errorf("store genesets of %s: %w", r.Path, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to convert", failed, len(paths))
	}
	return nil
}

// writeGenesets writes the genesets of one input file and returns the
// created paths.
func writeGenesets(dir, input string, genesets []*geneset.Geneset, to string, hash bool) ([]string, error) {
	stem := pipeline.FileStem(input)

	if to == toBatch {
		path := filepath.Join(dir, stem+"."+toBatch)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create batch file: %w", err)
		}
		if err := batch.Write(f, genesets); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		return []string{path}, f.Close()
	}

	var files []string
	for _, g := range genesets {
		name, err := batch.FileName(g, stem, "")
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create csv file: %w", err)
		}
		if err := batch.WriteGenesetCSV(f, g, "", hash); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
