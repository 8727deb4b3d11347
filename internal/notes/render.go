package notes

import (
	"fmt"
	"io"
	"strings"

	"github.com/ariel-frischer/shipver/internal/commits"
)

const breakingTitle = "⚠ BREAKING CHANGES"

// Render writes the release notes for one version. Hidden sections and the
// breaking notes of their commits never appear in the output.
func Render(w io.Writer, in RenderInput) error {
	if _, err := io.WriteString(w, formatHeader(in)+"\n"); err != nil {
		return fmt.Errorf("rendering header: %w", err)
	}

	visible := Visible(in.Sections)

	if breaking := breakingCommits(visible); len(breaking) > 0 {
		if err := renderBreaking(w, breaking); err != nil {
			return fmt.Errorf("rendering breaking changes: %w", err)
		}
	}

	for _, s := range visible {
		if err := renderSection(w, s, in.RepositoryURL); err != nil {
			return fmt.Errorf("rendering section %q: %w", s.Title, err)
		}
	}

	return nil
}

// RenderString is a convenience function that renders to a string.
func RenderString(in RenderInput) (string, error) {
	var b strings.Builder
	if err := Render(&b, in); err != nil {
		return "", err
	}
	return b.String(), nil
}

// formatHeader formats the version header line, linking to the compare
// view when both a repository URL and a previous tag are known.
func formatHeader(in RenderInput) string {
	date := ""
	if !in.Date.IsZero() {
		date = " (" + in.Date.Format("2006-01-02") + ")"
	}
	if in.RepositoryURL != "" && in.PreviousTag != "" && in.Tag != "" {
		return fmt.Sprintf("## [%s](%s/compare/%s...%s)%s", in.Version, in.RepositoryURL, in.PreviousTag, in.Tag, date)
	}
	return fmt.Sprintf("## %s%s", in.Version, date)
}

func renderSection(w io.Writer, s Section, repoURL string) error {
	if _, err := io.WriteString(w, "\n### "+s.Title+"\n\n"); err != nil {
		return err
	}
	for _, c := range s.Commits {
		if _, err := io.WriteString(w, formatEntry(c, repoURL)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func renderBreaking(w io.Writer, breaking []commits.Commit) error {
	if _, err := io.WriteString(w, "\n### "+breakingTitle+"\n\n"); err != nil {
		return err
	}
	for _, c := range breaking {
		line := "* " + scopePrefix(c) + c.BreakingNote
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// formatEntry renders "* **scope:** description (hash)".
func formatEntry(c commits.Commit, repoURL string) string {
	ref := c.ShortHash()
	if repoURL != "" && c.Hash != "" {
		ref = fmt.Sprintf("[%s](%s/commit/%s)", c.ShortHash(), repoURL, c.Hash)
	}
	if ref == "" {
		return "* " + scopePrefix(c) + c.Text()
	}
	return fmt.Sprintf("* %s%s (%s)", scopePrefix(c), c.Text(), ref)
}

func scopePrefix(c commits.Commit) string {
	if c.Scope == "" {
		return ""
	}
	return "**" + c.Scope + ":** "
}

func breakingCommits(sections []Section) []commits.Commit {
	var out []commits.Commit
	for _, s := range sections {
		for _, c := range s.Commits {
			if c.Breaking && c.BreakingNote != "" {
				out = append(out, c)
			}
		}
	}
	return out
}
