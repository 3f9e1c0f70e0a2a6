package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/batch"
	"github.com/inodb/gwconvert/internal/geneset"
	"github.com/inodb/gwconvert/internal/ortholog"
	"github.com/inodb/gwconvert/internal/output"
	"github.com/inodb/gwconvert/internal/store"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the local geneset and mapping table store",
		Long: `Manage the local DuckDB store of genesets and mapping tables.

The store lives at store.path (default ~/.gwconvert/gwconvert.duckdb).
Stored mapping tables can be used by "map" as --table store:<name>.`,
		Args: usageArgs(cobra.NoArgs),
	}

	cmd.AddCommand(newStoreImportBatchCmd())
	cmd.AddCommand(newStoreImportMappingsCmd())
	cmd.AddCommand(newStoreListCmd())
	cmd.AddCommand(newStoreShowCmd())
	cmd.AddCommand(newStoreRunsCmd())
	cmd.AddCommand(newStoreClearCmd())

	return cmd
}

func openStore() (*store.Store, error) {
	path := viper.GetString(keyStorePath)
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened store", zap.String("path", path))
	return s, nil
}

// sourceFingerprint stats path, or names a stream for stdin.
func sourceFingerprint(path string) (store.FileFingerprint, error) {
	if path == "-" {
		return store.StreamFingerprint("stdin"), nil
	}
	return store.StatFile(path)
}

func newStoreImportBatchCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import-batch [options] <batch-file>...",
		Short: "Import the genesets of batch files",
		Long: `Import the valid genesets of batch files into the store. A stored
geneset with the same name is replaced. Files already imported with the same
size and modification time are skipped unless --force is given.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			for _, path := range args {
				fp, err := sourceFingerprint(path)
				if err != nil {
					return err
				}
				if !force {
					done, err := st.Imported(store.KindGenesets, fp)
					if err != nil {
						return err
					}
					if done {
						fmt.Fprintf(out, "%s %s: already imported\n", skippedLabel("Skipped"), path)
						continue
					}
				}

				res, err := batch.ParseFile(path)
				if err != nil {
					return err
				}
				logSkips(res.Skipped)

				run, err := st.WriteGenesets(fp, res.Genesets)
				if err != nil {
					return err
				}
				logger.Debug("import run", zap.String("run_id", run.ID), zap.String("source", path))
				fmt.Fprintf(out, "%s %d genesets from %s (%d skipped)\n",
					createdLabel("Imported"), len(res.Genesets), path, len(res.Skipped))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Import files even if already imported")

	return cmd
}

func newStoreImportMappingsCmd() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "import-mappings [options] <name> <table-file>",
		Short: "Import a symbol mapping table",
		Long: `Import a symbol mapping table under a name, replacing any table with
that name. The table format is the one read by "map".`,
		Example: `  gwconvert store import-mappings hs_mm human_mouse.tsv.gz --algorithm HGNC
  gwconvert map genesets.txt --table store:hs_mm`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]

			var opts ortholog.TableOptions
			if algorithm != "" {
				a, err := ortholog.ParseAlgorithm(algorithm)
				if err != nil {
					return &usageError{err}
				}
				opts.Algorithm = a
			}

			mappings, err := ortholog.LoadTable(path, opts)
			if err != nil {
				return err
			}
			fp, err := sourceFingerprint(path)
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.WriteMappings(name, fp, mappings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d mappings as %s\n", createdLabel("Imported"), len(mappings), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "Keep only rows of this ortholog algorithm")

	return cmd
}

func newStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored genesets and mapping tables",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			genesets, err := st.Genesets()
			if err != nil {
				return err
			}
			counts, names, err := st.MappingTables()
			if err != nil {
				return err
			}

			pw := output.NewPreviewWriter(cmd.OutOrStdout())
			rows := make([][]string, 0, len(genesets))
			for _, g := range genesets {
				rows = append(rows, []string{g.Name, g.Abbreviation, g.Species, g.ScoreType, strconv.Itoa(g.Values)})
			}
			if err := pw.WriteTable([]string{"Geneset", "Abbreviation", "Species", "Score type", "Genes"}, rows); err != nil {
				return err
			}

			rows = rows[:0]
			for _, n := range names {
				rows = append(rows, []string{n, strconv.Itoa(counts[n])})
			}
			return pw.WriteTable([]string{"Mapping table", "Pairs"}, rows)
		},
	}
}

func newStoreShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <geneset-name>",
		Short: "Print a stored geneset in batch format",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			g, err := st.Geneset(args[0])
			if err != nil {
				return err
			}
			return batch.Write(cmd.OutOrStdout(), []*geneset.Geneset{g})
		},
	}
}

func newStoreRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List import runs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{r.ID, r.Kind, r.Source.Path, r.ImportedAt.Format("2006-01-02 15:04:05")})
			}
			return output.NewPreviewWriter(cmd.OutOrStdout()).
				WriteTable([]string{"Run", "Kind", "Source", "Imported"}, rows)
		},
	}
}

func newStoreClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove everything from the store",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", st.Path())
			return nil
		},
	}
}
