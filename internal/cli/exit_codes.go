package cli

import (
	stderrors "errors"

	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/pipeline"
)

// Exit codes for the shipver CLI. Each failing stage kind has its own code
// so CI jobs can branch on what went wrong.
const (
	// ExitSuccess covers a published release and a run with nothing to release.
	ExitSuccess = 0

	// ExitFailure is any error outside the release stages.
	ExitFailure = 1

	// ExitConfiguration indicates invalid configuration or arguments. Nothing changed.
	ExitConfiguration = 2

	// ExitAnalysis indicates history could not be read or versioned. Nothing changed.
	ExitAnalysis = 3

	// ExitArtifact indicates the changelog write or prepare command failed.
	ExitArtifact = 4

	// ExitCommit indicates the commit, tag or push failed.
	ExitCommit = 5

	// ExitPublish indicates the hosting release failed after the tag was pushed.
	ExitPublish = 6
)

var exitCodes = map[clierrors.ErrorCategory]int{
	clierrors.Runtime:       ExitFailure,
	clierrors.Argument:      ExitConfiguration,
	clierrors.Configuration: ExitConfiguration,
	clierrors.Analysis:      ExitAnalysis,
	clierrors.Artifact:      ExitArtifact,
	clierrors.Commit:        ExitCommit,
	clierrors.Publish:       ExitPublish,
}

// ExitCodeFor returns the exit code for err. nil maps to ExitSuccess.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if code, ok := exitCodes[toCLIError(err).Category]; ok {
		return code
	}
	return ExitFailure
}

// toCLIError converts any command error into a CLIError. Stage errors get
// their category and remediation from the failing stage.
func toCLIError(err error) *clierrors.CLIError {
	if cliErr := clierrors.AsCLIError(err); cliErr != nil {
		return cliErr
	}
	var se *pipeline.StageError
	if stderrors.As(err, &se) {
		return clierrors.FromStageError(se, "", "")
	}
	return clierrors.Wrap(err, clierrors.Runtime)
}
