// Package cli implements the shipver command tree.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/git"
	"github.com/ariel-frischer/shipver/internal/logging"
)

// Command groups for help output.
const (
	GroupRelease       = "release"
	GroupConfiguration = "configuration"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
	logFormat  string
	noColor    bool
	repoDir    string

	logger zerolog.Logger
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "shipver",
		Short: "Semantic releases from conventional commits",
		Long: `shipver reads the commits since the last release tag, decides the next
semantic version from their conventional-commit types, renders release notes,
updates release artifacts, commits and tags the result, and publishes a
hosting release.

Stages run strictly in order and stop at the first failure. The exit code
tells CI which stage failed:
  0  released, or nothing to release
  2  configuration error (nothing changed)
  3  analysis error (nothing changed)
  4  artifact command failure (nothing committed)
  5  commit, tag or push failure (nothing published)
  6  publish failure (tag exists; run 'shipver publish <version>')`,
		Example: `  # Preview the next release
  shipver release --dry-run

  # Cut a release from main
  shipver release

  # Retry only the hosting release for an existing tag
  shipver publish 1.4.0`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	root.AddGroup(
		&cobra.Group{ID: GroupRelease, Title: "Release Commands:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration Commands:"},
	)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file loaded after .shipver/config.yml")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json (default from log_format)")
	pf.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	pf.StringVarP(&opts.repoDir, "repo", "C", ".", "Path to the git repository")

	root.AddCommand(
		newReleaseCmd(opts),
		newAnalyzeCmd(opts),
		newNotesCmd(opts),
		newPublishCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup applies --no-color and builds the logger. The log level comes from
// configuration, which commands load later; until then --debug decides.
func (o *globalOptions) setup(stderr io.Writer) error {
	if o.noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	return o.configureLogger(stderr, "", "")
}

func (o *globalOptions) configureLogger(stderr io.Writer, level, format string) error {
	if o.logFormat != "" {
		format = o.logFormat
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return clierrors.NewArgumentError(err.Error(), "Use --log-format console or --log-format json")
	}
	logger, err := logging.New(stderr, logging.Options{
		Level:   level,
		Format:  f,
		Debug:   o.debug,
		NoColor: color.NoColor,
	})
	if err != nil {
		return clierrors.NewConfigError(err.Error(), "Set log_level to one of trace, debug, info, warn, error")
	}
	o.logger = logger
	git.SetDebugLogger(logging.Printf(logger, "git"))
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	cliErr := toCLIError(err)
	clierrors.FprintError(stderr, cliErr)
	return ExitCodeFor(cliErr)
}
