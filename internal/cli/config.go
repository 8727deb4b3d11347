package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/shipver/internal/config"
	clierrors "github.com/ariel-frischer/shipver/internal/errors"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		GroupID: GroupConfiguration,
		Short:   "Inspect and initialize shipver configuration",
		Long: `Inspect and initialize shipver configuration.

Configuration is loaded with the following priority (highest to lowest):
  1. Environment variables (SHIPVER_*, double underscore nests:
     SHIPVER_PUBLISH__TARGET=none)
  2. --config file
  3. Project config (.shipver/config.yml, or .shipver/config.json)
  4. User config (~/.config/shipver/config.yml)
  5. Built-in defaults`,
	}
	cmd.AddCommand(newConfigShowCmd(g), newConfigInitCmd(g))
	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := g.loadOptions()
			// Validate first so a bad file is reported the same way as in release.
			if _, err := config.LoadWithOptions(opts); err != nil {
				return clierrors.ConfigLoadFailed(err)
			}
			values, err := config.Flatten(opts)
			if err != nil {
				return clierrors.ConfigLoadFailed(err)
			}
			sources, err := config.Sources(opts)
			if err != nil {
				return clierrors.ConfigLoadFailed(err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(values)
			}
			printConfig(cmd.OutOrStdout(), values, sources)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the merged values as JSON")
	return cmd
}

func printConfig(out io.Writer, values map[string]any, sources map[string]config.ConfigSource) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		src := sources[k]
		if src == "" {
			src = config.SourceDefault
		}
		fmt.Fprintf(out, "%-28s = %-40v (%s)\n", k, formatValue(values[k]), src)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []any, []map[string]any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file",
		Long: `Write the default configuration, with comments, to .shipver/config.yml in
the repository (or the user config with --user). An existing file is left
unchanged unless --force is given.`,
		Example: `  shipver config init
  shipver config init --user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(g.repoDir, config.ProjectConfigPath())
			if user {
				p, err := config.UserConfigPath()
				if err != nil {
					return fmt.Errorf("locating user config: %w", err)
				}
				path = p
			}
			return writeConfigTemplate(cmd.OutOrStdout(), path, force)
		},
	}
	cmd.Flags().BoolVar(&user, "user", false, "Write the user-level config instead of the project config")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func writeConfigTemplate(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.GetDefaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}
