package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/ariel-frischer/shipver/internal/pipeline"
)

// categoryForKind maps pipeline failure kinds to CLI categories.
var categoryForKind = map[pipeline.Kind]ErrorCategory{
	pipeline.KindConfiguration:   Configuration,
	pipeline.KindAnalysis:        Analysis,
	pipeline.KindArtifactCommand: Artifact,
	pipeline.KindCommit:          Commit,
	pipeline.KindPublish:         Publish,
}

// FromStageError builds the user-facing error for a failed release stage.
// version and tag may be empty when the failure happened before they were
// known.
func FromStageError(se *pipeline.StageError, version, tag string) *CLIError {
	cat, ok := categoryForKind[se.Kind]
	if !ok {
		cat = Runtime
	}
	cliErr := &CLIError{
		Category: cat,
		Message:  se.Error(),
		Err:      se,
	}

	switch cat {
	case Configuration:
		cliErr.Remediation = []string{
			"Nothing was changed",
			"Fix the setting named above in .shipver/config.yml or the SHIPVER_* environment",
			"Inspect the merged configuration with: shipver config show",
		}
	case Analysis:
		cliErr.Remediation = []string{
			"Nothing was changed",
			"Check that the branch exists and the repository has full history (fetch-depth: 0 in CI)",
			"Run 'shipver analyze --debug' to see how each commit was classified",
		}
	case Artifact:
		var exitErr *pipeline.ExitError
		steps := []string{
			"No commit, tag or release was created",
			"Discard partial file changes (git checkout -- .) before retrying",
		}
		if stderrors.As(se, &exitErr) && exitErr.Stderr != "" {
			steps = append(steps, "Command stderr: "+truncate(exitErr.Stderr, 400))
		}
		steps = append(steps, "Fix prepare.command and re-run: shipver release")
		cliErr.Remediation = steps
	case Commit:
		cliErr.Remediation = []string{
			"No release was published",
			"If the tag was created locally but not pushed, delete it: git tag -d " + orPlaceholder(tag, "<tag>"),
			"Check push credentials (GITHUB_TOKEN, GIT_USERNAME/GIT_PASSWORD or an SSH agent) and re-run: shipver release",
		}
	case Publish:
		cliErr.Remediation = []string{
			fmt.Sprintf("The release commit and tag %s already exist; do NOT re-run the full release", orPlaceholder(tag, "<tag>")),
			"Fix the hosting credentials or outage, then publish only: shipver publish " + orPlaceholder(version, "<version>"),
		}
	}
	return cliErr
}

// MissingVersionArgument creates an error for 'shipver publish' without a version.
func MissingVersionArgument() *CLIError {
	return NewArgumentErrorWithUsage(
		"version is required",
		"shipver publish <version>",
		"Pass the version whose tag already exists, e.g. shipver publish 1.4.0",
	)
}

// MissingToken creates an error for a github target without credentials.
func MissingToken(envName string) *CLIError {
	return NewConfigError(
		"no GitHub token found",
		fmt.Sprintf("Export %s (or GITHUB_TOKEN / GH_TOKEN) with contents:write permission", envName),
		"Or disable hosting releases with: publish.target: none",
	)
}

// RepositoryUnknown creates an error when the hosting repository cannot be derived.
func RepositoryUnknown(remote string, cause error) *CLIError {
	return &CLIError{
		Category: Configuration,
		Message:  fmt.Sprintf("cannot determine the GitHub repository from remote %q: %v", remote, cause),
		Remediation: []string{
			"Set publish.repository: owner/name in .shipver/config.yml",
			"Or set SHIPVER_PUBLISH__REPOSITORY=owner/name",
		},
		Err: cause,
	}
}

// ConfigLoadFailed wraps a configuration load error.
func ConfigLoadFailed(err error) *CLIError {
	return &CLIError{
		Category: Configuration,
		Message:  err.Error(),
		Remediation: []string{
			"Check .shipver/config.yml (or the file given with --config)",
			"Create a commented starting point with: shipver config init",
		},
		Err: err,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
