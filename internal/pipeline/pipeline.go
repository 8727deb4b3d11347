// Package pipeline drives a release through its stages in order: load
// history, analyze, compute the version, render notes, prepare artifacts,
// commit and tag, then publish. Each stage runs at most once and the first
// failure stops the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/ariel-frischer/shipver/internal/analyzer"
	"github.com/ariel-frischer/shipver/internal/git"
	"github.com/ariel-frischer/shipver/internal/lifecycle"
	"github.com/ariel-frischer/shipver/internal/notes"
	"github.com/ariel-frischer/shipver/internal/prepare"
	"github.com/ariel-frischer/shipver/internal/publish"
)

// Stage names, in execution order.
const (
	StageConfigure = "configure"
	StageLoad      = "load"
	StageAnalyze   = "analyze"
	StageVersion   = "version"
	StageNotes     = "notes"
	StagePrepare   = "prepare"
	StageCommit    = "commit"
	StagePublish   = "publish"
)

// Template placeholders for the release commit message.
const (
	versionPlaceholder = "{{VERSION}}"
	tagPlaceholder     = "{{TAG}}"
	notesPlaceholder   = "{{NOTES}}"
)

// HistoryLoader reads the commits since the last release.
type HistoryLoader interface {
	Load(ctx context.Context, opts git.LoadOptions) (*git.History, error)
}

// ReleaseCommitter commits release assets and creates the tag.
type ReleaseCommitter interface {
	CommitAndTag(ctx context.Context, req git.CommitRequest) (*git.CommitResult, error)
}

// ChangelogWriter prepends release notes to a changelog file.
type ChangelogWriter interface {
	Prepend(version, notes string) (bool, error)
}

// Options configures one run.
type Options struct {
	Branch         string
	TagFormat      string
	InitialVersion string
	Rules          analyzer.RuleTable
	Types          []notes.TypeSection
	RepositoryURL  string

	PrepareCommand string

	Assets          []string
	MessageTemplate string
	SkipMarker      string
	AnnotatedTags   bool
	AuthorName      string
	AuthorEmail     string
	Push            bool
	Remote          string

	Draft      bool
	Prerelease bool

	// DryRun stops after notes are rendered.
	DryRun bool
}

// Result is the outcome of a run that did not fail.
type Result struct {
	Context Context
	// Released is true when a release was committed and published.
	Released bool
	DryRun   bool
}

// Pipeline holds the stage implementations.
type Pipeline struct {
	Loader    HistoryLoader
	Runner    prepare.Runner
	Committer ReleaseCommitter
	Publisher publish.Publisher
	// Changelog is optional.
	Changelog ChangelogWriter
	Observer  lifecycle.StageObserver
	Logger    zerolog.Logger
	Now       func() time.Time
}

// run holds per-invocation state. Only the driver touches pctx.
type run struct {
	p      *Pipeline
	opts   Options
	format git.TagFormat
	pctx   Context
}

// Run executes the pipeline. A run that finds nothing to release returns a
// Result with Released false and a nil error. A failed run returns the
// partial Result alongside the *StageError.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	r := &run{p: p, opts: opts}

	if err := r.stage(StageConfigure, KindConfiguration, r.configure); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageLoad, KindAnalysis, func() error { return r.load(ctx, git.LoadOptions{Ref: opts.Branch, TagFormat: r.format}) }); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageAnalyze, KindAnalysis, r.analyze); err != nil {
		return r.partial(), err
	}

	if !r.pctx.decision.ReleaseDue() {
		p.logger().Info().
			Int("commits", len(r.pctx.commits)).
			Msg("no release needed")
		return &Result{Context: r.pctx, DryRun: opts.DryRun}, nil
	}

	if err := r.stage(StageVersion, KindAnalysis, r.version); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageNotes, KindAnalysis, r.renderNotes); err != nil {
		return r.partial(), err
	}

	if opts.DryRun {
		p.logger().Info().
			Str("version", r.pctx.nextVersion.String()).
			Str("tag", r.pctx.tag).
			Msg("dry run: stopping before any side effect")
		return &Result{Context: r.pctx, DryRun: true}, nil
	}

	if err := r.stage(StagePrepare, KindArtifactCommand, func() error { return r.prepare(ctx) }); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageCommit, KindCommit, func() error { return r.commit(ctx) }); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StagePublish, KindPublish, func() error { return r.publish(ctx) }); err != nil {
		return r.partial(), err
	}

	return &Result{Context: r.pctx, Released: true}, nil
}

// Republish re-runs only the publish stage for a release whose tag already
// exists. Notes are regenerated from the commits between the previous
// release tag and this one.
func (p *Pipeline) Republish(ctx context.Context, version string, opts Options) (*Result, error) {
	r := &run{p: p, opts: opts}

	if err := r.stage(StageConfigure, KindConfiguration, r.configure); err != nil {
		return r.partial(), err
	}

	var (
		v   *semver.Version
		tag string
	)
	if err := r.stage(StageVersion, KindConfiguration, func() error {
		var err error
		v, err = semver.NewVersion(version)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", version, err)
		}
		tag = r.format.Render(v)
		return nil
	}); err != nil {
		return r.partial(), err
	}

	if err := r.stage(StageLoad, KindAnalysis, func() error {
		return r.load(ctx, git.LoadOptions{Ref: tag, TagFormat: r.format, SkipTag: tag})
	}); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageAnalyze, KindAnalysis, r.analyze); err != nil {
		return r.partial(), err
	}
	if err := r.stage(StageNotes, KindAnalysis, func() error {
		var err error
		if r.pctx, err = r.pctx.WithVersion(v, tag); err != nil {
			return err
		}
		return r.renderNotes()
	}); err != nil {
		return r.partial(), err
	}

	// The tag is the durable record of the earlier commit stage.
	commitResult := &git.CommitResult{Hash: r.pctx.tip, Tag: tag}
	var err error
	if r.pctx, err = r.pctx.WithReleaseCommit(commitResult); err != nil {
		return r.partial(), err
	}

	if err := r.stage(StagePublish, KindPublish, func() error { return r.publish(ctx) }); err != nil {
		return r.partial(), err
	}
	return &Result{Context: r.pctx, Released: true}, nil
}

// partial returns what the run learned before it stopped, so callers can
// report the version and tag of a failed release.
func (r *run) partial() *Result {
	return &Result{Context: r.pctx, DryRun: r.opts.DryRun}
}

// stage runs fn through the observer and tags any failure with kind.
func (r *run) stage(name string, kind Kind, fn func() error) error {
	log := r.p.logger()
	log.Debug().Str("stage", name).Msg("stage starting")

	err := lifecycle.RunStage(r.p.Observer, name, fn)
	if err == nil {
		return nil
	}

	// A context field collision is a driver bug, not a stage failure.
	if errors.Is(err, ErrFieldWritten) {
		kind = KindUnknown
	}
	se := stageErr(name, kind, err)
	log.Error().Err(err).Str("stage", name).Str("kind", kind.String()).Msg("stage failed")
	return se
}

func (p *Pipeline) logger() *zerolog.Logger {
	return &p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (r *run) configure() error {
	var problems []string

	if err := analyzer.ValidateRules(r.opts.Rules); err != nil {
		problems = append(problems, err.Error())
	}
	if len(r.opts.Rules) == 0 {
		problems = append(problems, "release_rules: at least one rule is required")
	}

	format, err := git.ParseTagFormat(r.opts.TagFormat)
	if err != nil {
		problems = append(problems, "tag_format: "+err.Error())
	}
	r.format = format

	if r.opts.InitialVersion != "" {
		if _, err := semver.StrictNewVersion(r.opts.InitialVersion); err != nil {
			problems = append(problems, fmt.Sprintf("initial_version: %q is not a semantic version", r.opts.InitialVersion))
		}
	}

	switch {
	case r.opts.MessageTemplate == "":
		problems = append(problems, "git.message: required")
	case r.opts.SkipMarker == "":
		problems = append(problems, "git.skip_marker: required")
	case !strings.Contains(r.opts.MessageTemplate, r.opts.SkipMarker):
		problems = append(problems, fmt.Sprintf("git.message: must contain the skip marker %q", r.opts.SkipMarker))
	}

	if r.p.Loader == nil {
		problems = append(problems, "no history loader configured")
	}
	if !r.opts.DryRun {
		if r.p.Committer == nil {
			problems = append(problems, "no committer configured")
		}
		if r.p.Publisher == nil {
			problems = append(problems, "no publisher configured")
		}
		if r.p.Runner == nil && r.opts.PrepareCommand != "" {
			problems = append(problems, "prepare.command set but no runner configured")
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func (r *run) load(ctx context.Context, lo git.LoadOptions) error {
	h, err := r.p.Loader.Load(ctx, lo)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if r.pctx, err = r.pctx.WithBranch(lo.Ref); err != nil {
		return err
	}
	if r.pctx, err = r.pctx.WithHistory(h.Tip, h.LastRelease, h.Commits); err != nil {
		return err
	}

	ev := r.p.logger().Info().Int("commits", len(h.Commits))
	if h.LastRelease != nil {
		ev = ev.Str("last_release", h.LastRelease.Tag)
	}
	ev.Msg("history loaded")
	return nil
}

func (r *run) analyze() error {
	d := analyzer.Analyze(r.pctx.commits, r.opts.Rules)
	log := r.p.logger()
	for _, cb := range d.PerCommit {
		log.Debug().
			Str("commit", cb.Commit.ShortHash()).
			Str("type", cb.Commit.Type).
			Str("level", cb.Level.String()).
			Bool("matched", cb.Matched).
			Msg("classified")
	}
	log.Info().Str("bump", d.Bump.String()).Msg("analysis complete")

	var err error
	r.pctx, err = r.pctx.WithDecision(d)
	return err
}

func (r *run) version() error {
	var last *semver.Version
	if r.pctx.lastRelease != nil {
		last = r.pctx.lastRelease.Version
	}
	initial := r.opts.InitialVersion
	if initial == "" {
		initial = analyzer.DefaultInitialVersion
	}

	next, err := analyzer.NextVersion(last, r.pctx.decision.Bump, initial)
	if err != nil {
		return err
	}
	if last != nil && !next.GreaterThan(last) {
		return fmt.Errorf("next version %s is not greater than %s", next, last)
	}

	tag := r.format.Render(next)
	r.p.logger().Info().Str("version", next.String()).Str("tag", tag).Msg("next version")

	r.pctx, err = r.pctx.WithVersion(next, tag)
	return err
}

func (r *run) renderNotes() error {
	types := r.opts.Types
	if len(types) == 0 {
		types = notes.DefaultTypes()
	}

	in := notes.RenderInput{
		Version:       r.pctx.nextVersion.String(),
		Tag:           r.pctx.tag,
		Date:          r.p.now(),
		RepositoryURL: r.opts.RepositoryURL,
		Sections:      notes.Build(r.pctx.commits, types),
	}
	if r.pctx.lastRelease != nil {
		in.PreviousTag = r.pctx.lastRelease.Tag
	}

	text, err := notes.RenderString(in)
	if err != nil {
		return fmt.Errorf("rendering notes: %w", err)
	}

	r.pctx, err = r.pctx.WithNotes(text)
	return err
}

func (r *run) bindings() prepare.Bindings {
	b := prepare.Bindings{
		Version: r.pctx.nextVersion.String(),
		Tag:     r.pctx.tag,
		Bump:    r.pctx.decision.Bump.String(),
		Branch:  r.pctx.branch,
	}
	if r.pctx.lastRelease != nil {
		b.LastVersion = r.pctx.lastRelease.Version.String()
	}
	return b
}

func (r *run) prepare(ctx context.Context) error {
	if r.p.Changelog != nil {
		written, err := r.p.Changelog.Prepend(r.pctx.nextVersion.String(), r.pctx.notes)
		if err != nil {
			return fmt.Errorf("updating changelog: %w", err)
		}
		r.p.logger().Info().Bool("written", written).Msg("changelog updated")
	}

	if r.opts.PrepareCommand == "" {
		var err error
		r.pctx, err = r.pctx.WithPrepareResult(nil)
		return err
	}

	res, err := r.p.Runner.Run(ctx, r.opts.PrepareCommand, r.bindings())
	if err != nil {
		return fmt.Errorf("running prepare command: %w", err)
	}
	r.p.logger().Info().
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("prepare command finished")

	if r.pctx, err = r.pctx.WithPrepareResult(res); err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return &ExitError{Command: res.Command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// commitMessage renders the release commit message template.
func (r *run) commitMessage() string {
	return strings.NewReplacer(
		versionPlaceholder, r.pctx.nextVersion.String(),
		tagPlaceholder, r.pctx.tag,
		notesPlaceholder, strings.TrimSpace(r.pctx.notes),
	).Replace(r.opts.MessageTemplate)
}

func (r *run) commit(ctx context.Context) error {
	// Barrier: the prepare stage must have completed.
	if !r.pctx.has(fieldPrepare) {
		return errors.New("prepare stage did not complete")
	}

	res, err := r.p.Committer.CommitAndTag(ctx, git.CommitRequest{
		Assets:      r.opts.Assets,
		Message:     r.commitMessage(),
		Tag:         r.pctx.tag,
		TagMessage:  r.pctx.tag,
		Annotated:   r.opts.AnnotatedTags,
		AuthorName:  r.opts.AuthorName,
		AuthorEmail: r.opts.AuthorEmail,
		When:        r.p.now(),
		Push:        r.opts.Push,
		Remote:      r.opts.Remote,
		Branch:      r.pctx.branch,
		Tip:         r.pctx.tip,
	})
	if err != nil {
		return fmt.Errorf("committing release %s: %w", r.pctx.tag, err)
	}

	r.p.logger().Info().
		Str("commit", res.Hash).
		Bool("committed", res.Committed).
		Bool("pushed", res.Pushed).
		Str("tag", res.Tag).
		Msg("release tagged")

	r.pctx, err = r.pctx.WithReleaseCommit(res)
	return err
}

func (r *run) publish(ctx context.Context) error {
	// Barrier: the tag must be durable before the hosting record references it.
	if !r.pctx.has(fieldReleaseCommit) {
		return errors.New("commit stage did not complete")
	}

	rel := publish.Release{
		Version:    r.pctx.nextVersion.String(),
		Tag:        r.pctx.tag,
		Name:       r.pctx.tag,
		Notes:      r.pctx.notes,
		Commitish:  r.pctx.releaseCommit.Hash,
		Prerelease: r.opts.Prerelease || r.pctx.nextVersion.Prerelease() != "",
		Draft:      r.opts.Draft,
	}
	out, err := r.p.Publisher.Publish(ctx, rel)
	if err != nil {
		return fmt.Errorf("publishing %s to %s: %w", rel.Tag, r.p.Publisher.Name(), err)
	}

	r.p.logger().Info().
		Str("target", out.Target).
		Str("url", out.URL).
		Bool("updated", out.Updated).
		Msg("release published")

	r.pctx, err = r.pctx.WithPublished(out)
	return err
}
