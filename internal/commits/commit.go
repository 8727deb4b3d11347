// Package commits turns raw commit messages into typed records for release
// analysis. The commit grammar itself is the Conventional Commits convention,
// parsed by go-conventionalcommits; this package only normalizes the result.
package commits

import (
	"strings"
	"time"
)

// Commit is an immutable record of a single commit on the release branch.
// It is produced once by the history loader and only read afterward.
type Commit struct {
	Hash    string
	Subject string
	Body    string

	// Type is the lowercased type tag (feat, fix, ...). Empty when the
	// message does not follow the convention.
	Type string
	// Scope is the scope exactly as written, empty when absent.
	Scope string
	// Description is the subject text after "type(scope): ".
	Description string

	Breaking     bool
	BreakingNote string

	Author string
	When   time.Time
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// NormalizedScope returns the lowercased scope used for rule matching.
func (c Commit) NormalizedScope() string {
	return strings.ToLower(strings.TrimSpace(c.Scope))
}

// IsConventional reports whether a type tag was recognized.
func (c Commit) IsConventional() bool {
	return c.Type != ""
}

// Text returns the human-readable line used in release notes: the
// description for conventional commits, the subject otherwise.
func (c Commit) Text() string {
	if c.Description != "" {
		return c.Description
	}
	return c.Subject
}
