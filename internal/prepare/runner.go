// Package prepare runs the release's artifact command: a user-supplied
// command line that updates version files, builds packages or anything else
// that must happen before the release commit.
package prepare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Placeholders recognised in command templates.
const (
	VersionPlaceholder     = "{{VERSION}}"
	TagPlaceholder         = "{{TAG}}"
	LastVersionPlaceholder = "{{LAST_VERSION}}"
	BumpPlaceholder        = "{{BUMP}}"
	BranchPlaceholder      = "{{BRANCH}}"
)

// Bindings are the release values substituted into a command template.
type Bindings struct {
	Version     string
	Tag         string
	LastVersion string
	Bump        string
	Branch      string
}

func (b Bindings) pairs() map[string]string {
	return map[string]string{
		VersionPlaceholder:     b.Version,
		TagPlaceholder:         b.Tag,
		LastVersionPlaceholder: b.LastVersion,
		BumpPlaceholder:        b.Bump,
		BranchPlaceholder:      b.Branch,
	}
}

// Env exposes the bindings as SHIPVER_* variables for the child process.
func (b Bindings) Env() []string {
	return []string{
		"SHIPVER_VERSION=" + b.Version,
		"SHIPVER_TAG=" + b.Tag,
		"SHIPVER_LAST_VERSION=" + b.LastVersion,
		"SHIPVER_BUMP=" + b.Bump,
		"SHIPVER_BRANCH=" + b.Branch,
	}
}

// Result is the outcome of a finished command.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the command exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes an artifact command template.
type Runner interface {
	Run(ctx context.Context, template string, b Bindings) (*Result, error)
}

// ErrEmptyCommand is returned when a template expands to nothing.
var ErrEmptyCommand = errors.New("command template produces no command")

// ShellRunner runs templates as child processes. Without Shell the expanded
// template is split with shlex and executed directly; with Shell it is passed
// to "<Shell> -c".
type ShellRunner struct {
	Shell   string
	WorkDir string
	Timeout time.Duration
	// Env is appended to the inherited environment.
	Env []string
	// Stdout and Stderr, when set, receive a live copy of the output.
	Stdout io.Writer
	Stderr io.Writer
}

// Expand substitutes the bindings into template. Every value is quoted so
// that it reaches the command as a single argument.
func Expand(template string, b Bindings) string {
	pairs := b.pairs()
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, quoteForShlex(pairs[k]))
	}
	return strings.NewReplacer(args...).Replace(template)
}

// quoteForShlex wraps a string in single quotes for safe shlex parsing.
// 'don't' becomes 'don'\''t'.
func quoteForShlex(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Validate checks that template parses and names an executable.
func (r *ShellRunner) Validate(template string) error {
	if r.Shell != "" {
		if _, err := exec.LookPath(r.Shell); err != nil {
			return fmt.Errorf("shell %q not found in PATH", r.Shell)
		}
		return nil
	}
	parts, err := shlex.Split(Expand(template, Bindings{Version: "0.0.0"}))
	if err != nil {
		return fmt.Errorf("invalid command template: %w", err)
	}
	if len(parts) == 0 {
		return ErrEmptyCommand
	}
	if _, err := exec.LookPath(parts[0]); err != nil {
		return fmt.Errorf("command %q not found in PATH", parts[0])
	}
	return nil
}

// Run expands template and executes it. A non-zero exit is reported in
// Result.ExitCode, not as an error; errors mean the command could not run.
func (r *ShellRunner) Run(ctx context.Context, template string, b Bindings) (*Result, error) {
	ctx, cancel := r.applyTimeout(ctx)
	defer cancel()

	cmd, expanded, err := r.buildCommand(ctx, template, b)
	if err != nil {
		return nil, err
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = teeTo(&stdoutBuf, r.Stdout)
	cmd.Stderr = teeTo(&stderrBuf, r.Stderr)

	start := time.Now()
	err = cmd.Run()
	result := &Result{
		Command:  expanded,
		Duration: time.Since(start),
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("running %q: %w", expanded, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running %q: %w", expanded, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

func (r *ShellRunner) buildCommand(ctx context.Context, template string, b Bindings) (*exec.Cmd, string, error) {
	expanded := Expand(template, b)

	var cmd *exec.Cmd
	if r.Shell != "" {
		cmd = exec.CommandContext(ctx, r.Shell, "-c", expanded)
	} else {
		parts, err := shlex.Split(expanded)
		if err != nil {
			return nil, expanded, fmt.Errorf("parsing command: %w", err)
		}
		if len(parts) == 0 {
			return nil, expanded, ErrEmptyCommand
		}
		cmd = exec.CommandContext(ctx, parts[0], parts[1:]...)
	}

	cmd.Dir = r.WorkDir
	// Bound the wait for grandchildren still holding the output pipes.
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(), b.Env()...)
	cmd.Env = append(cmd.Env, r.Env...)
	return cmd, expanded, nil
}

func (r *ShellRunner) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout > 0 {
		return context.WithTimeout(ctx, r.Timeout)
	}
	return ctx, func() {}
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
