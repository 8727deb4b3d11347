package pipeline

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/ariel-frischer/shipver/internal/analyzer"
	"github.com/ariel-frischer/shipver/internal/commits"
	"github.com/ariel-frischer/shipver/internal/git"
	"github.com/ariel-frischer/shipver/internal/prepare"
	"github.com/ariel-frischer/shipver/internal/publish"
)

type field uint16

const (
	fieldBranch field = 1 << iota
	fieldLastRelease
	fieldTip
	fieldCommits
	fieldDecision
	fieldNextVersion
	fieldTag
	fieldNotes
	fieldPrepare
	fieldReleaseCommit
	fieldPublished
)

var fieldNames = map[field]string{
	fieldBranch:        "branch",
	fieldLastRelease:   "last release",
	fieldTip:           "tip",
	fieldCommits:       "commits",
	fieldDecision:      "decision",
	fieldNextVersion:   "next version",
	fieldTag:           "tag",
	fieldNotes:         "notes",
	fieldPrepare:       "prepare result",
	fieldReleaseCommit: "release commit",
	fieldPublished:     "published release",
}

// Context accumulates what each stage learned. It is a value: every With
// method returns an extended copy and refuses to overwrite a field an
// earlier stage wrote.
type Context struct {
	set field

	branch        string
	lastRelease   *git.Release
	tip           string
	commits       []commits.Commit
	decision      analyzer.Decision
	nextVersion   *semver.Version
	tag           string
	notes         string
	prepareResult *prepare.Result
	releaseCommit *git.CommitResult
	published     *publish.Published
}

func (c Context) claim(f field) (Context, error) {
	if c.set&f != 0 {
		return c, fmt.Errorf("%w: %s", ErrFieldWritten, fieldNames[f])
	}
	c.set |= f
	return c, nil
}

// has reports whether every field in f has been written.
func (c Context) has(f field) bool {
	return c.set&f == f
}

// WithBranch records the branch being released.
func (c Context) WithBranch(branch string) (Context, error) {
	c, err := c.claim(fieldBranch)
	if err != nil {
		return c, err
	}
	c.branch = branch
	return c, nil
}

// WithHistory records the loaded range: tip, last release (nil for a first
// release) and the commits since it.
func (c Context) WithHistory(tip string, last *git.Release, history []commits.Commit) (Context, error) {
	for _, f := range []field{fieldTip, fieldLastRelease, fieldCommits} {
		var err error
		if c, err = c.claim(f); err != nil {
			return c, err
		}
	}
	c.tip = tip
	if last != nil {
		r := *last
		c.lastRelease = &r
	}
	c.commits = slices.Clone(history)
	return c, nil
}

// WithDecision records the analyzer's verdict.
func (c Context) WithDecision(d analyzer.Decision) (Context, error) {
	c, err := c.claim(fieldDecision)
	if err != nil {
		return c, err
	}
	d.PerCommit = slices.Clone(d.PerCommit)
	c.decision = d
	return c, nil
}

// WithVersion records the next version and its tag.
func (c Context) WithVersion(v *semver.Version, tag string) (Context, error) {
	for _, f := range []field{fieldNextVersion, fieldTag} {
		var err error
		if c, err = c.claim(f); err != nil {
			return c, err
		}
	}
	c.nextVersion = v
	c.tag = tag
	return c, nil
}

// WithNotes records the rendered release notes.
func (c Context) WithNotes(notes string) (Context, error) {
	c, err := c.claim(fieldNotes)
	if err != nil {
		return c, err
	}
	c.notes = notes
	return c, nil
}

// WithPrepareResult records the artifact command's outcome.
func (c Context) WithPrepareResult(r *prepare.Result) (Context, error) {
	c, err := c.claim(fieldPrepare)
	if err != nil {
		return c, err
	}
	if r != nil {
		cp := *r
		c.prepareResult = &cp
	}
	return c, nil
}

// WithReleaseCommit records the commit and tag.
func (c Context) WithReleaseCommit(r *git.CommitResult) (Context, error) {
	c, err := c.claim(fieldReleaseCommit)
	if err != nil {
		return c, err
	}
	if r != nil {
		cp := *r
		c.releaseCommit = &cp
	}
	return c, nil
}

// WithPublished records the hosting release.
func (c Context) WithPublished(p *publish.Published) (Context, error) {
	c, err := c.claim(fieldPublished)
	if err != nil {
		return c, err
	}
	if p != nil {
		cp := *p
		c.published = &cp
	}
	return c, nil
}

func (c Context) Branch() string { return c.branch }

// Tip is the commit the release was computed at.
func (c Context) Tip() string { return c.tip }

// LastRelease is nil before the first release.
func (c Context) LastRelease() *git.Release {
	if c.lastRelease == nil {
		return nil
	}
	r := *c.lastRelease
	return &r
}

// Commits returns a copy of the commits since the last release.
func (c Context) Commits() []commits.Commit { return slices.Clone(c.commits) }

// Decision returns the analyzer's verdict.
func (c Context) Decision() analyzer.Decision {
	d := c.decision
	d.PerCommit = slices.Clone(d.PerCommit)
	return d
}

// NextVersion is nil until the version stage ran.
func (c Context) NextVersion() *semver.Version { return c.nextVersion }

func (c Context) Tag() string   { return c.tag }
func (c Context) Notes() string { return c.notes }

// PrepareResult is nil when no artifact command is configured.
func (c Context) PrepareResult() *prepare.Result {
	if c.prepareResult == nil {
		return nil
	}
	r := *c.prepareResult
	return &r
}

func (c Context) ReleaseCommit() *git.CommitResult {
	if c.releaseCommit == nil {
		return nil
	}
	r := *c.releaseCommit
	return &r
}

func (c Context) Published() *publish.Published {
	if c.published == nil {
		return nil
	}
	p := *c.published
	return &p
}
