package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/batch"
	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/ortholog"
	"github.com/inodb/gwconvert/internal/output"
	"github.com/inodb/gwconvert/internal/store"
)

// storedTablePrefix selects a mapping table from the store instead of a file.
const storedTablePrefix = "store:"

func newMapCmd() *cobra.Command {
	var (
		tables         []string
		algorithm      string
		name           string
		to             string
		outPath        string
		species        string
		geneIdentifier string
	)

	cmd := &cobra.Command{
		Use:   "map [options] <batch-file>",
		Short: "Map geneset values through ortholog mapping tables",
		Long: `Map the values of every geneset in a batch file through one or more
symbol mapping tables, applied in the order given.

Each table maps source identifiers to target identifiers, one pair per line,
separated by a tab or a comma, with an optional third column naming the
ortholog algorithm. Sources missing from a geneset are ignored. When several
sources map onto one target, the value with the largest magnitude wins and
ties keep the first value.

A table named "store:<name>" is read from the store (see store
import-mappings). Stored tables are filtered by algorithm when imported, so
--algorithm only applies to table files.

With --to gw, mapped genesets left without values are skipped.`,
		Example: `  gwconvert map genesets.txt --table human_to_mouse.tsv
  gwconvert map genesets.txt --table hs_mm.tsv --table store:mgi_ensembl --to gw \
      --gene-identifier "Ensembl Gene" --species "Mus musculus"
  gwconvert map genesets.txt --table orthologs.tsv.gz --algorithm panther`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tables) == 0 {
				return &usageError{fmt.Errorf("at least one --table is required")}
			}
			if to != "tsv" && to != toBatch {
				return &usageError{fmt.Errorf("unknown output format %q (want tsv or %s)", to, toBatch)}
			}
			var opts ortholog.TableOptions
			if algorithm != "" {
				for _, t := range tables {
					if strings.HasPrefix(t, storedTablePrefix) {
						return &usageError{fmt.Errorf("--algorithm cannot filter stored table %s; use store import-mappings --algorithm", t)}
					}
				}
				a, err := ortholog.ParseAlgorithm(algorithm)
				if err != nil {
					return &usageError{err}
				}
				opts.Algorithm = a
			}

			chain, err := loadTables(tables, opts)
			if err != nil {
				return err
			}

			res, err := batch.ParseFile(args[0])
			if err != nil {
				return err
			}
			logSkips(res.Skipped)

			var mapped []*geneset.Geneset
			for _, g := range res.Genesets {
				if name != "" && g.Name != name {
					continue
				}
				m := *g
				m.Values = ortholog.Chain(g.ValueMap(), chain...).Pairs()
				if species != "" {
					m.Species = species
				}
				if geneIdentifier != "" {
					m.GeneIdentifier = geneIdentifier
				}
				logger.Debug("mapped geneset",
					zap.String("name", g.Name),
					zap.Int("before", len(g.Values)),
					zap.Int("after", len(m.Values)))
				if to == toBatch {
					if err := batch.Check(&m); err != nil {
						logger.Warn("skipping mapped geneset", zap.String("name", g.Name), zap.Error(err))
						continue
					}
				}
				mapped = append(mapped, &m)
			}
			if name != "" && len(mapped) == 0 {
				return fmt.Errorf("geneset %q not found in %s", name, args[0])
			}

			if outPath == "" {
				return writeMapped(cmd.OutOrStdout(), to, mapped)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			if err := writeMapped(f, to, mapped); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", outPath, err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&tables, "table", "t", nil, "Mapping table file or store:<name> (repeatable, applied in order)")
	f.StringVar(&algorithm, "algorithm", "", "Keep only table rows of this ortholog algorithm")
	f.StringVar(&name, "geneset", "", "Only map the geneset with this name")
	f.StringVar(&to, "to", "tsv", "Output format: tsv or gw")
	f.StringVarP(&outPath, "output", "o", "", "Output file (default: stdout)")
	f.StringVar(&species, "species", "", "Species of the mapped genesets (gw output)")
	f.StringVar(&geneIdentifier, "gene-identifier", "", "Gene identifier type of the mapped genesets (gw output)")

	return cmd
}

// loadTables reads mapping tables from files or, for store:<name>, from the
// store, keeping their order.
func loadTables(refs []string, opts ortholog.TableOptions) ([][]ortholog.Mapping, error) {
	var st *store.Store
	defer func() {
		if st != nil {
			st.Close()
		}
	}()

	chain := make([][]ortholog.Mapping, 0, len(refs))
	for _, ref := range refs {
		name, stored := strings.CutPrefix(ref, storedTablePrefix)
		if !stored {
			t, err := ortholog.LoadTable(ref, opts)
			if err != nil {
				return nil, err
			}
			chain = append(chain, t)
			continue
		}

		if st == nil {
			var err error
			if st, err = store.Open(viper.GetString(keyStorePath)); err != nil {
				return nil, err
			}
		}
		t, err := st.Mappings(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

func writeMapped(w io.Writer, to string, genesets []*geneset.Geneset) error {
	if to == toBatch {
		return batch.Write(w, genesets)
	}
	return writeMappedValues(w, genesets)
}

// writeMappedValues writes the symbol/value table of each geneset, preceded
// by a "# name" line when there is more than one.
func writeMappedValues(w io.Writer, genesets []*geneset.Geneset) error {
	vw := output.NewValueWriter(w)
	for _, g := range genesets {
		if len(genesets) > 1 {
			if err := vw.WriteComment(g.Name); err != nil {
				return err
			}
		}
		if err := vw.WriteHeader(); err != nil {
			return err
		}
		for _, v := range g.Values {
			if err := vw.Write(v.Symbol, v.Value); err != nil {
				return err
			}
		}
	}
	return vw.Flush()
}
