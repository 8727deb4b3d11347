package cli

import (
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/output"
)

func newPublishCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "publish <version>",
		GroupID: GroupRelease,
		Short:   "Publish the hosting release for an existing tag",
		Long: `Re-run only the publish stage for a release whose commit and tag already
exist, after a publish failure (exit code 6). Notes are regenerated from the
commits between the previous release tag and this one. Publishing is
idempotent: an existing hosting release for the tag is updated.`,
		Example: `  shipver publish 1.4.0`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return clierrors.MissingVersionArgument()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.loadSession(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			opts, err := s.pipelineOptions("", false)
			if err != nil {
				return err
			}
			p, err := s.pipeline(false, true)
			if err != nil {
				return err
			}

			start := time.Now()
			res, runErr := p.Republish(cmd.Context(), args[0], opts)
			s.historyWriter().LogEntry(historyEntry("publish", "", res, runErr, time.Since(start)))
			if runErr != nil {
				return stageFailure(res, runErr)
			}
			output.PrintReleaseSummary(cmd.OutOrStdout(), summaryOf(res))
			return nil
		},
	}
	return cmd
}
