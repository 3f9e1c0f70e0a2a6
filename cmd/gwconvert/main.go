// Package main provides the gwconvert command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/gwconvert/internal/tabular"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Configuration keys.
const (
	keyMaxHeaderRows = "header.max_rows"
	keyHashHeader    = "csv.hash_header"
	keyStorePath     = "store.path"
	keyOutputDir     = "output.dir"
	keyVerbose       = "log.verbose"
)

const configName = ".gwconvert"

// logger is configured by the root command before any subcommand runs.
var logger = zap.NewNop()

// Status line colors. fatih/color disables itself when stdout is not a terminal.
var (
	createdLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	skippedLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	missingLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs wraps an argument validator so its failures exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	viper.Reset()
	logger = zap.NewNop()

	root := newRootCmd(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "gwconvert",
		Short: "Tabular geneset ingestion and conversion",
		Long: `gwconvert reads CSV and spreadsheet tables, converts them to and from the
batch geneset format, writes per-geneset CSV files and maps gene values
across species through ortholog mapping tables.`,
		Example: `  gwconvert headers data.xlsx --sheet Liver
  gwconvert convert --id-header Gene --value-header Score study.xlsx
  gwconvert batch to-csv genesets.txt -o out/
  gwconvert map genesets.txt --table human_mouse.tsv`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			logger = newLogger(logOut, viper.GetBool(keyVerbose))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Help()
			return &usageError{errors.New("a command is required")}
		},
	}
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/"+configName+".yaml)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Int("max-header-rows", tabular.DefaultMaxHeaderRows, "Rows searched for a header row")
	viper.BindPFlag(keyVerbose, pf.Lookup("verbose"))
	viper.BindPFlag(keyMaxHeaderRows, pf.Lookup("max-header-rows"))

	cmd.AddCommand(
		newFormatCmd(),
		newHeadersCmd(),
		newSheetsCmd(),
		newMetadataCmd(),
		newPreviewCmd(),
		newConvertCmd(),
		newBatchCmd(),
		newMapCmd(),
		newStoreCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// initConfig loads the config file and GWCONVERT_ environment variables.
// A missing config file is not an error.
func initConfig(cfgFile string) error {
	viper.SetDefault(keyMaxHeaderRows, tabular.DefaultMaxHeaderRows)
	viper.SetDefault(keyHashHeader, false)
	viper.SetDefault(keyOutputDir, ".")
	viper.SetDefault(keyStorePath, defaultStorePath())

	viper.SetEnvPrefix("GWCONVERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// outputDir returns --output-dir when given, else the configured output.dir.
func outputDir(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("output-dir"); f != nil && f.Changed {
		return f.Value.String()
	}
	return viper.GetString(keyOutputDir)
}

// hashHeader returns --hash-header when given, else csv.hash_header.
func hashHeader(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("hash-header"); f != nil && f.Changed {
		return f.Value.String() == "true"
	}
	return viper.GetBool(keyHashHeader)
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gwconvert.duckdb"
	}
	return filepath.Join(home, ".gwconvert", "gwconvert.duckdb")
}

// newLogger builds a console logger for CLI diagnostics.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gwconvert version %s (%s) built %s\n", version, commit, date)
			return nil
		},
	}
}
