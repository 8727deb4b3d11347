package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why a run stopped.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfiguration is a malformed rule table or missing option.
	// Raised before any side effect.
	KindConfiguration
	// KindAnalysis is a failure reading history or computing the version.
	// Raised before any side effect.
	KindAnalysis
	// KindArtifactCommand is a failed changelog write or prepare command.
	// Nothing is committed or published.
	KindArtifactCommand
	// KindCommit is a failed commit, tag or push. Nothing is published.
	KindCommit
	// KindPublish is a failed hosting release after the tag is durable.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindAnalysis:
		return "analysis error"
	case KindArtifactCommand:
		return "artifact command failure"
	case KindCommit:
		return "commit failure"
	case KindPublish:
		return "publish failure"
	default:
		return "error"
	}
}

// StageError reports the stage a run stopped in and why.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	if e.RequiresManualRemediation() {
		return fmt.Sprintf("%s stage: %s (tag exists, re-run publish only): %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RequiresManualRemediation reports whether the repository already carries
// the release tag while the hosting record is missing.
func (e *StageError) RequiresManualRemediation() bool {
	return e.Kind == KindPublish
}

// SideEffectFree reports whether the run stopped before touching the
// working tree, the repository or the hosting platform.
func (e *StageError) SideEffectFree() bool {
	return e.Kind == KindConfiguration || e.Kind == KindAnalysis
}

func stageErr(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns the Kind of the first StageError in err's chain.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// AsStageError returns the first StageError in err's chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	ok := errors.As(err, &se)
	return se, ok
}

// ExitError is a prepare command that ran and exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
}

// ErrFieldWritten is returned when a stage tries to overwrite a context
// field set by an earlier stage.
var ErrFieldWritten = errors.New("context field already written")
