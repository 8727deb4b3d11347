package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/shipver/internal/analyzer"
	"github.com/ariel-frischer/shipver/internal/output"
	"github.com/ariel-frischer/shipver/internal/pipeline"
)

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:     "analyze",
		GroupID: GroupRelease,
		Short:   "Show how each commit since the last release is classified",
		Long: `Read the commits since the last release tag and print the bump level each
one contributes, the rule that decided it, and the resulting next version.
Nothing is written.`,
		Example: `  shipver analyze
  shipver analyze --branch develop --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dryRun(cmd, g, branch)
			if err != nil {
				return err
			}
			printAnalysis(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to analyze (default from config)")
	return cmd
}

// dryRun runs the side-effect-free prefix of the pipeline.
func dryRun(cmd *cobra.Command, g *globalOptions, branch string) (*pipeline.Result, error) {
	s, err := g.loadSession(cmd.ErrOrStderr(), true)
	if err != nil {
		return nil, err
	}
	opts, err := s.pipelineOptions(branch, true)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline(true, false)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(cmd.Context(), opts)
	if err != nil {
		return nil, stageFailure(res, err)
	}
	return res, nil
}

func printAnalysis(out io.Writer, res *pipeline.Result) {
	pctx := res.Context
	cyan := color.New(color.FgCyan).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	from := "(none)"
	if last := pctx.LastRelease(); last != nil {
		from = last.Tag
	}
	fmt.Fprintf(out, "Last release: %s\n", from)
	fmt.Fprintf(out, "Commits:      %d\n\n", len(pctx.Commits()))

	for _, cb := range pctx.Decision().PerCommit {
		rule := dim("no matching rule")
		if cb.Matched {
			rule = cb.Rule.String()
		}
		fmt.Fprintf(out, "  %s  %-6s  %-40s  %s\n",
			cyan(cb.Commit.ShortHash()), levelLabel(cb.Level), truncateSubject(cb.Commit.Subject, 40), rule)
	}

	if pctx.NextVersion() == nil {
		fmt.Fprintln(out)
		output.PrintNoRelease(out, lastVersion(res), len(pctx.Commits()))
		return
	}
	fmt.Fprintf(out, "\nBump:         %s\n", pctx.Decision().Bump)
	fmt.Fprintf(out, "Next version: %s (%s)\n", cyan(pctx.NextVersion().String()), pctx.Tag())
}

func levelLabel(l analyzer.BumpLevel) string {
	switch l {
	case analyzer.Major:
		return color.New(color.FgRed, color.Bold).Sprint(l.String())
	case analyzer.Minor:
		return color.New(color.FgYellow).Sprint(l.String())
	case analyzer.Patch:
		return color.New(color.FgGreen).Sprint(l.String())
	default:
		return l.String()
	}
}

func truncateSubject(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
