package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotesCmd(g *globalOptions) *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:     "notes",
		GroupID: GroupRelease,
		Short:   "Print the release notes for the next release",
		Long: `Render the notes the next release would publish and print them to stdout
with no decoration, for piping into other tools. Prints nothing when no
release is due.`,
		Example: `  shipver notes > NOTES.md`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dryRun(cmd, g, branch)
			if err != nil {
				return err
			}
			if res.Context.NextVersion() == nil {
				g.logger.Info().Msg("no release due; no notes to print")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), res.Context.Notes())
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to render notes for (default from config)")
	return cmd
}
