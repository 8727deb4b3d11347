package analyzer

import (
	"github.com/ariel-frischer/shipver/internal/commits"
)

// CommitBump records the level a single commit contributed and the rule
// that decided it.
type CommitBump struct {
	Commit  commits.Commit
	Level   BumpLevel
	Rule    Rule
	Matched bool
}

// Decision is the outcome of folding all commits through the rule table.
type Decision struct {
	Bump      BumpLevel
	PerCommit []CommitBump
}

// ReleaseDue reports whether any commit asked for a release.
func (d Decision) ReleaseDue() bool {
	return d.Bump > None
}

// Analyze classifies each commit with the first matching rule and returns
// the maximum level. Unmatched commits contribute None; a matching rule
// with level None suppresses the commit regardless of later rules.
func Analyze(history []commits.Commit, table RuleTable) Decision {
	d := Decision{PerCommit: make([]CommitBump, 0, len(history))}
	for _, c := range history {
		cb := CommitBump{Commit: c}
		if r, ok := table.Match(c); ok {
			cb.Rule = r
			cb.Level = r.Release
			cb.Matched = true
		}
		d.Bump = Max(d.Bump, cb.Level)
		d.PerCommit = append(d.PerCommit, cb)
	}
	return d
}
