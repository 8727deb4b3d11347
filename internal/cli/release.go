package cli

import (
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/history"
	"github.com/ariel-frischer/shipver/internal/output"
	"github.com/ariel-frischer/shipver/internal/pipeline"
)

type releaseFlags struct {
	branch     string
	dryRun     bool
	noPush     bool
	noProgress bool
}

func newReleaseCmd(g *globalOptions) *cobra.Command {
	var flags releaseFlags

	cmd := &cobra.Command{
		Use:     "release",
		GroupID: GroupRelease,
		Short:   "Compute, tag and publish the next release",
		Long: `Run the full release pipeline on the configured branch:

  1. read commits since the last release tag
  2. classify them with release_rules and compute the next version
  3. render release notes
  4. update the changelog and run prepare.command
  5. commit the assets, tag, and push
  6. create or update the hosting release

A branch with no release-worthy commits is not an error: shipver prints
why and exits 0.`,
		Example: `  # Preview without touching anything
  shipver release --dry-run

  # Release from a maintenance branch
  shipver release --branch release/1.x`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, g, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.branch, "branch", "b", "", "Branch to release (default from config)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Stop after rendering notes; change nothing")
	cmd.Flags().BoolVar(&flags.noPush, "no-push", false, "Commit and tag locally without pushing")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the stage progress display")
	return cmd
}

func runRelease(cmd *cobra.Command, g *globalOptions, flags releaseFlags) error {
	s, err := g.loadSession(cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	opts, err := s.pipelineOptions(flags.branch, flags.dryRun)
	if err != nil {
		return err
	}
	if flags.noPush {
		opts.Push = false
	}
	p, err := s.pipeline(flags.dryRun, !flags.noProgress)
	if err != nil {
		return err
	}

	start := time.Now()
	res, runErr := p.Run(cmd.Context(), opts)
	s.historyWriter().LogEntry(historyEntry("release", opts.Branch, res, runErr, time.Since(start)))
	if runErr != nil {
		return stageFailure(res, runErr)
	}

	out := cmd.OutOrStdout()
	pctx := res.Context
	if pctx.NextVersion() == nil {
		output.PrintNoRelease(out, lastVersion(res), len(pctx.Commits()))
		return nil
	}
	if res.DryRun {
		output.PrintNotes(out, pctx.Notes(), output.GetTerminalWidth())
	}
	output.PrintReleaseSummary(out, summaryOf(res))
	return nil
}

// stageFailure attaches the failed release's version and tag to the
// remediation advice.
func stageFailure(res *pipeline.Result, err error) error {
	se, ok := pipeline.AsStageError(err)
	if !ok {
		return err
	}
	var version, tag string
	if res != nil && res.Context.NextVersion() != nil {
		version = res.Context.NextVersion().String()
		tag = res.Context.Tag()
	}
	return clierrors.FromStageError(se, version, tag)
}

func lastVersion(res *pipeline.Result) string {
	if last := res.Context.LastRelease(); last != nil {
		return last.Version.String()
	}
	return ""
}

func summaryOf(res *pipeline.Result) output.Summary {
	pctx := res.Context
	s := output.Summary{
		LastVersion: lastVersion(res),
		Bump:        pctx.Decision().Bump.String(),
		Commits:     len(pctx.Commits()),
		Tag:         pctx.Tag(),
		DryRun:      res.DryRun,
	}
	if v := pctx.NextVersion(); v != nil {
		s.Version = v.String()
	}
	if rc := pctx.ReleaseCommit(); rc != nil {
		s.Commit = rc.Hash
	}
	if pub := pctx.Published(); pub != nil {
		s.URL = pub.URL
	}
	return s
}

// historyEntry records how far a run got.
func historyEntry(command, branch string, res *pipeline.Result, err error, elapsed time.Duration) history.Entry {
	e := history.Entry{
		Timestamp: time.Now(),
		Command:   command,
		Branch:    branch,
		ExitCode:  ExitCodeFor(err),
		Duration:  elapsed.Round(time.Millisecond).String(),
	}
	if res != nil {
		sum := summaryOf(res)
		e.Version = sum.Version
		e.Tag = sum.Tag
		e.Commit = sum.Commit
		e.URL = sum.URL
		if sum.Version != "" {
			e.Bump = sum.Bump
		}
	}

	switch {
	case err != nil:
		e.Status = history.StatusFailed
		e.Error = err.Error()
		if se, ok := pipeline.AsStageError(err); ok {
			e.Stage = se.Stage
		}
	case res == nil || e.Version == "":
		e.Status = history.StatusNoRelease
	case res.DryRun:
		e.Status = history.StatusDryRun
	case res.Context.Published() != nil:
		e.Status = history.StatusPublished
	default:
		e.Status = history.StatusCommitted
	}
	return e
}
