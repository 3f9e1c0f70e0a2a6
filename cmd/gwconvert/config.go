package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/gwconvert/internal/output"
)

// configKey describes a setting that "config set" accepts.
type configKey struct {
	key  string
	kind string // "int", "bool" or "string"
	flag string // persistent flag bound to the key, if any
	help string
}

var configKeys = []configKey{
	{keyMaxHeaderRows, "int", "max-header-rows", "Rows searched for a header row"},
	{keyHashHeader, "bool", "", "Prefix CSV metadata keys with '#'"},
	{keyOutputDir, "string", "", "Default output directory"},
	{keyStorePath, "string", "", "DuckDB store file"},
	{keyVerbose, "bool", "verbose", "Debug logging"},
}

func lookupConfigKey(key string) (configKey, bool) {
	i := slices.IndexFunc(configKeys, func(k configKey) bool { return k.key == key })
	if i < 0 {
		return configKey{}, false
	}
	return configKeys[i], true
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gwconvert configuration",
		Long: `Show, get, or set configuration values.

Settings come from flags, GWCONVERT_* environment variables (header.max_rows
is GWCONVERT_HEADER_MAX_ROWS), the config file ~/` + configName + `.yaml and
built-in defaults, in that order.`,
		Example: `  gwconvert config                            # show every setting and its source
  gwconvert config set header.max_rows 10     # look further for header rows
  gwconvert config set store.path /data/gw.duckdb
  gwconvert config get csv.hash_header`,
		Args: usageArgs(cobra.NoArgs),
		RunE: runConfigShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value in the config file",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a setting",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := viper.Get(args[0])
			if val == nil {
				return fmt.Errorf("key %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	})

	return cmd
}

// configSource names where the effective value of k comes from.
func configSource(cmd *cobra.Command, k configKey) string {
	if k.flag != "" {
		if f := cmd.Flags().Lookup(k.flag); f != nil && f.Changed {
			return "flag"
		}
	}
	env := "GWCONVERT_" + strings.ToUpper(strings.ReplaceAll(k.key, ".", "_"))
	if _, ok := os.LookupEnv(env); ok {
		return "env"
	}
	if viper.InConfig(k.key) {
		return "file"
	}
	return "default"
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Config file: %s\n", used)
	} else {
		fmt.Fprintf(out, "No config file; run \"gwconvert config set\" to create ~/%s.yaml\n", configName)
	}

	rows := make([][]string, 0, len(configKeys))
	for _, k := range configKeys {
		rows = append(rows, []string{k.key, viper.GetString(k.key), configSource(cmd, k), k.help})
	}
	return output.NewPreviewWriter(out).WriteTable([]string{"Key", "Value", "Source", "Description"}, rows)
}

// parseConfigValue converts value to the type of k.
func parseConfigValue(k configKey, value string) (any, error) {
	switch k.kind {
	case "int":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer, got %q", k.key, value)
		}
		return n, nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false, got %q", k.key, value)
		}
		return b, nil
	}
	return value, nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	k, ok := lookupConfigKey(key)
	if !ok {
		names := make([]string, len(configKeys))
		for i, c := range configKeys {
			names[i] = c.key
		}
		return &usageError{fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(names, ", "))}
	}
	v, err := parseConfigValue(k, value)
	if err != nil {
		return &usageError{err}
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}
	if err := writeConfigValue(cfgFile, key, v); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, v, cfgFile)
	return nil
}

// writeConfigValue sets one dotted key in the YAML file at path, keeping the
// file's other settings. Environment and default values are not written.
func writeConfigValue(path, key string, value any) error {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading config: %w", err)
	}

	parts := strings.Split(key, ".")
	m := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := m[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			m[p] = child
		}
		m = child
	}
	m[parts[len(parts)-1]] = value

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
