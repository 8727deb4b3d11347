// Package notes groups classified commits into titled sections and renders
// them as markdown release notes.
package notes

import (
	"time"

	"github.com/ariel-frischer/shipver/internal/commits"
)

// TypeSection maps one commit type tag to a section title. Entries that
// share a title are merged into one section; the order of first appearance
// of each title is the rendering order.
type TypeSection struct {
	Type    string
	Section string
	Hidden  bool
}

// Section is a titled group of commits in chronological order.
type Section struct {
	Title   string
	Hidden  bool
	Commits []commits.Commit
}

// RenderInput carries everything needed to render one release.
type RenderInput struct {
	Version     string
	Tag         string
	PreviousTag string
	Date        time.Time
	// RepositoryURL is the web URL of the repository, used for compare and
	// commit links. Links are omitted when empty.
	RepositoryURL string
	Sections      []Section
}

// DefaultTypes returns the built-in type to section mapping.
func DefaultTypes() []TypeSection {
	return []TypeSection{
		{Type: "feat", Section: "Features"},
		{Type: "fix", Section: "Bug Fixes"},
		{Type: "perf", Section: "Performance Improvements"},
		{Type: "revert", Section: "Reverts"},
		{Type: "docs", Section: "Documentation"},
		{Type: "refactor", Section: "Other changes"},
		{Type: "build", Section: "Other changes"},
		{Type: "chore", Section: "Miscellaneous Chores", Hidden: true},
		{Type: "style", Section: "Styles", Hidden: true},
		{Type: "test", Section: "Tests", Hidden: true},
		{Type: "ci", Section: "Continuous Integration", Hidden: true},
	}
}
