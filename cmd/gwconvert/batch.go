package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/gwconvert/internal/batch"
	"github.com/inodb/gwconvert/internal/textio"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Work with batch geneset files",
		Long: `Work with batch geneset files.

A batch file holds one or more genesets. Each record starts with
"key: value" metadata lines, followed by a "=values=" line and one
"symbol<TAB>value" (or "symbol,value") line per gene. A metadata line
after the values starts the next record. Invalid lines and records are
skipped and reported.`,
		Args: usageArgs(cobra.NoArgs),
	}

	cmd.AddCommand(newBatchToCSVCmd())
	cmd.AddCommand(newBatchToCSVIndexedCmd())
	cmd.AddCommand(newBatchFmtCmd())

	return cmd
}

func newBatchToCSVCmd() *cobra.Command {
	var (
		prefix  string
		ids     []string
		idsFile string
	)

	cmd := &cobra.Command{
		Use:   "to-csv [options] <batch-file>",
		Short: "Write one CSV file per geneset",
		Long: `Write one CSV file per geneset of a batch file ("-" reads stdin).

Files are named after the geneset abbreviation, or after the ids given with
--ids or --ids-file (one per valid geneset, in file order).`,
		Example: `  gwconvert batch to-csv genesets.txt -o out/
  gwconvert batch to-csv genesets.txt --prefix liver --ids GS1,GS2
  zcat genesets.txt.gz | gwconvert batch to-csv -`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) > 0 && idsFile != "" {
				return &usageError{fmt.Errorf("--ids and --ids-file are mutually exclusive")}
			}
			if idsFile != "" {
				var err error
				if ids, err = readLines(idsFile); err != nil {
					return err
				}
			}

			in, err := textio.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			conv := batch.NewConverter()
			conv.SetLogger(logger)
			res, err := conv.ToCSV(in, batch.CSVOptions{
				OutputDir:   outputDir(cmd),
				Prefix:      prefix,
				ExternalIDs: ids,
				HashHeader:  hashHeader(cmd),
			})
			if err != nil {
				return err
			}
			return printConvertResult(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringP("output-dir", "o", "", "Output directory (default: output.dir)")
	f.StringVar(&prefix, "prefix", "", "File name prefix")
	f.StringSliceVar(&ids, "ids", nil, "Geneset ids used as file names")
	f.StringVar(&idsFile, "ids-file", "", "File with one geneset id per line")
	f.Bool("hash-header", false, "Prefix metadata keys with '#' (default: csv.hash_header)")

	return cmd
}

func newBatchToCSVIndexedCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "to-csv-indexed [options] <batch-file>",
		Short: "Write one CSV file per geneset, named from an index file",
		Long: `Write one CSV file per geneset, named from a tab-separated index file.

The index needs the columns "` + strings.Join(batch.RequiredIndexColumns, `", "`) + `".
Each geneset is looked up by name; its file is named
<disease_name>_<geneset_id>.csv and gets the UBERON id as uberon_id.
Genesets missing from the index are reported and skipped.`,
		Example: `  gwconvert batch to-csv-indexed genesets.txt --index index.tsv -o out/`,
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexPath == "" {
				return &usageError{fmt.Errorf("--index is required")}
			}
			idx, err := batch.ReadIndexFile(indexPath)
			if err != nil {
				return err
			}

			in, err := textio.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			conv := batch.NewConverter()
			conv.SetLogger(logger)
			res, err := conv.ToCSVIndexed(in, idx, outputDir(cmd))
			if err != nil {
				return err
			}
			return printConvertResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&indexPath, "index", "", "Tab-separated index file (required)")
	cmd.Flags().StringP("output-dir", "o", "", "Output directory (default: output.dir)")

	return cmd
}

func newBatchFmtCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt [options] <batch-file>",
		Short: "Rewrite a batch file in canonical form",
		Long: `Parse a batch file and print its valid genesets in canonical form.
Skipped lines and records are reported on stderr.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && args[0] == "-" {
				return &usageError{fmt.Errorf("--write cannot be used with stdin")}
			}
			res, err := batch.ParseFile(args[0])
			if err != nil {
				return err
			}
			logSkips(res.Skipped)

			if !write {
				return batch.Write(cmd.OutOrStdout(), res.Genesets)
			}
			text, err := batch.Format(res.Genesets)
			if err != nil {
				return err
			}
			return writeFileAtomic(args[0], text)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the file in place")

	return cmd
}

// printConvertResult lists created, skipped and missing files. Genesets that
// could not be written are listed too and make the command fail once the
// rest of the batch is done.
func printConvertResult(w io.Writer, res *batch.ConvertResult) error {
	for _, f := range res.Files {
		fmt.Fprintf(w, "%s %s\n", createdLabel("Created"), f)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "%s %s\n", skippedLabel("Skipped"), s.Err)
	}
	for _, m := range res.Misses {
		fmt.Fprintf(w, "%s %s\n", missingLabel("Missing"), m)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "%s %s\n", missingLabel("Failed"), f)
	}
	if n := len(res.Failures); n > 0 {
		return fmt.Errorf("%d of %d genesets could not be written", n, n+len(res.Files))
	}
	return nil
}

func logSkips(skips []batch.Skip) {
	for _, s := range skips {
		logger.Warn("skipped batch "+s.Kind.String(),
			zap.String("record", s.Record),
			zap.Int("line", s.Err.Line),
			zap.String("reason", s.Err.Reason))
	}
}

// readLines returns the non-blank lines of path.
func readLines(path string) ([]string, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if l := strings.TrimSpace(scanner.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// writeFileAtomic replaces path with content via a temporary file.
func writeFileAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
