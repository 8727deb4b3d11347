// Package output prints release summaries and notes for the shipver CLI.
// It depends only on display libraries so any command can use it.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// GetTerminalWidth returns the terminal width, defaulting to 80 if unavailable.
func GetTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// PrintSeparator prints a dim rule with a centered label.
func PrintSeparator(out io.Writer, label string, width int) {
	magenta := color.New(color.FgMagenta, color.Faint).SprintFunc()

	label = " " + label + " "
	lineLen := (width - len(label)) / 2
	if lineLen < 3 {
		lineLen = 3
	}

	line := strings.Repeat("─", lineLen)
	fmt.Fprintf(out, "%s%s%s\n", magenta(line), magenta(label), magenta(line))
}

// PrintNotes prints rendered release notes between separators.
func PrintNotes(out io.Writer, notes string, width int) {
	PrintSeparator(out, "release notes", width)
	fmt.Fprint(out, strings.TrimRight(notes, "\n"))
	fmt.Fprintln(out)
	PrintSeparator(out, "end", width)
}

// Summary is what a release run produced.
type Summary struct {
	LastVersion string
	Version     string
	Tag         string
	Bump        string
	Commits     int
	Commit      string
	URL         string
	DryRun      bool
}

// PrintReleaseSummary prints the outcome of a release.
func PrintReleaseSummary(out io.Writer, s Summary) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()

	from := s.LastVersion
	if from == "" {
		from = "(none)"
	}

	if s.DryRun {
		fmt.Fprintf(out, "%s %s -> %s (%s bump, %d commits)\n",
			yellow("Dry run:"), from, cyan(s.Version), s.Bump, s.Commits)
		fmt.Fprintf(out, "  would tag %s\n", cyan(s.Tag))
		return
	}

	fmt.Fprintf(out, "%s %s (%s bump from %s)\n", green("✓ Released"), cyan(s.Version), s.Bump, from)
	fmt.Fprintf(out, "  tag:     %s\n", s.Tag)
	if s.Commit != "" {
		fmt.Fprintf(out, "  commit:  %s\n", shortHash(s.Commit))
	}
	if s.URL != "" {
		fmt.Fprintf(out, "  release: %s\n", cyan(s.URL))
	}
}

// PrintNoRelease explains why nothing was released.
func PrintNoRelease(out io.Writer, lastVersion string, commits int) {
	dim := color.New(color.Faint).SprintFunc()
	switch {
	case commits == 0 && lastVersion != "":
		fmt.Fprintf(out, "No release: no commits since %s\n", lastVersion)
	case commits == 0:
		fmt.Fprintln(out, "No release: the branch has no commits")
	default:
		fmt.Fprintf(out, "No release: none of %d commits require a release %s\n",
			commits, dim("(run 'shipver analyze' for details)"))
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
