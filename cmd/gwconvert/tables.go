package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/gwconvert/internal/output"
	"github.com/inodb/gwconvert/internal/tabular"
)

// openSource classifies path and applies the configured header search depth.
func openSource(path, sheet string) (*tabular.Source, error) {
	src, err := tabular.NewSource(path, sheet)
	if err != nil {
		return nil, err
	}
	src.MaxHeaderRows = viper.GetInt(keyMaxHeaderRows)
	return src, nil
}

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <file>",
		Short: "Print the detected format of a tabular file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := tabular.Classify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), format)
			return nil
		},
	}
}

func newHeadersCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "headers <file>",
		Short: "Find the header row of a CSV file or sheet",
		Long: `Find the header row of a CSV file or sheet.

A header row has more than one column, no empty or numeric cells and the
same number of columns as the row after it. Only the first header.max_rows
rows are searched.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(args[0], sheet)
			if err != nil {
				return err
			}
			headers, idx, err := src.Headers()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if idx < 0 {
				fmt.Fprintf(out, "%s: no header row found in the first %d rows\n", src, viper.GetInt(keyMaxHeaderRows))
				return nil
			}
			fmt.Fprintf(out, "%s: header row %d\n", src, idx)
			for i, h := range headers {
				fmt.Fprintf(out, "  %d\t%s\n", i, h)
			}
			if dups := tabular.DuplicateHeaders(headers); len(dups) > 0 {
				fmt.Fprintf(out, "%s possible duplicate headers: %s\n", skippedLabel("Warning:"), strings.Join(dups, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: active sheet)")
	return cmd
}

func newSheetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <file>",
		Short: "Summarize every sheet of a workbook",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			sums, err := tabular.Summaries(args[0], viper.GetInt(keyMaxHeaderRows))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sums))
			for _, s := range sums {
				name := s.Sheet
				if name == "" {
					name = "-"
				}
				headerRow := "none"
				if s.HeaderRow >= 0 {
					headerRow = strconv.Itoa(s.HeaderRow)
				}
				rows = append(rows, []string{name, headerRow, strings.Join(s.Headers, ", "), strings.Join(s.Metadata, " | ")})
			}
			return output.NewPreviewWriter(cmd.OutOrStdout()).
				WriteTable([]string{"Sheet", "Header row", "Columns", "Metadata"}, rows)
		},
	}
}

func newMetadataCmd() *cobra.Command {
	var (
		sheet     string
		headerRow int
	)

	cmd := &cobra.Command{
		Use:   "metadata <file>",
		Short: "Print the metadata rows above the header",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := openSource(args[0], sheet)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("header-row") {
				loc, err := src.FindHeader(src.MaxHeaderRows)
				if err != nil {
					return err
				}
				if !loc.Found {
					return fmt.Errorf("%s: no header row found; use --header-row", src)
				}
				headerRow = loc.Row
			}
			lines, err := src.ReadMetadata(headerRow)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: active sheet)")
	cmd.Flags().IntVar(&headerRow, "header-row", 0, "Header row index (default: inferred)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var (
		sheet    string
		n        int
		startRow int
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the first records of a CSV file or sheet",
		Long: `Show the first records of a CSV file or sheet as a table.

Records are keyed by the inferred header row, or by --start-row when given.
Blank rows are skipped.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return &usageError{fmt.Errorf("--rows must be positive, got %d", n)}
			}
			src, err := openSource(args[0], sheet)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("start-row") {
				loc, err := src.FindHeader(src.MaxHeaderRows)
				if err != nil {
					return err
				}
				startRow = max(loc.Row, 0)
			}
			records, err := src.ReadNRecords(n, startRow)
			if err != nil {
				return err
			}
			return output.NewPreviewWriter(cmd.OutOrStdout()).WriteRecords(records[0].Keys(), records)
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: active sheet)")
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "Number of records")
	cmd.Flags().IntVar(&startRow, "start-row", 0, "Header row index (default: inferred)")
	return cmd
}
