package cli

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ariel-frischer/shipver/internal/changelog"
	"github.com/ariel-frischer/shipver/internal/config"
	clierrors "github.com/ariel-frischer/shipver/internal/errors"
	"github.com/ariel-frischer/shipver/internal/git"
	"github.com/ariel-frischer/shipver/internal/github"
	"github.com/ariel-frischer/shipver/internal/history"
	"github.com/ariel-frischer/shipver/internal/lifecycle"
	"github.com/ariel-frischer/shipver/internal/pipeline"
	"github.com/ariel-frischer/shipver/internal/prepare"
	"github.com/ariel-frischer/shipver/internal/progress"
	"github.com/ariel-frischer/shipver/internal/publish"
)

// session is the loaded configuration plus the repository it applies to.
type session struct {
	cfg     *config.Configuration
	repoDir string
	logger  zerolog.Logger
	stderr  io.Writer
}

// loadOptions resolves which config files apply to the repository.
func (o *globalOptions) loadOptions() config.LoadOptions {
	opts := config.LoadOptions{OverridePath: o.configPath}
	if o.repoDir != "" && o.repoDir != "." {
		for _, p := range []string{config.ProjectConfigPath(), config.ProjectJSONConfigPath()} {
			candidate := filepath.Join(o.repoDir, p)
			if _, err := os.Stat(candidate); err == nil {
				opts.ProjectConfigPath = candidate
				break
			}
		}
	}
	return opts
}

// loadSession loads configuration and reconfigures logging from it.
// requireRepo rejects a --repo that is not a git checkout.
func (o *globalOptions) loadSession(stderr io.Writer, requireRepo bool) (*session, error) {
	cfg, err := config.LoadWithOptions(o.loadOptions())
	if err != nil {
		return nil, clierrors.ConfigLoadFailed(err)
	}
	if err := o.configureLogger(stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	if requireRepo && !git.IsRepository(o.repoDir) {
		return nil, clierrors.NewConfigError(
			"not a git repository: "+o.repoDir,
			"Run shipver inside a git checkout, or pass --repo <path>",
		)
	}
	return &session{cfg: cfg, repoDir: o.repoDir, logger: o.logger, stderr: stderr}, nil
}

// pipelineOptions maps configuration onto a pipeline run.
func (s *session) pipelineOptions(branch string, dryRun bool) (pipeline.Options, error) {
	cfg := s.cfg
	rules, err := cfg.Rules()
	if err != nil {
		return pipeline.Options{}, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release_rules",
			"Each rule needs a type, scope or breaking predicate and a release of major, minor, patch or none")
	}
	if branch == "" {
		branch = cfg.Branch
	}

	assets := slices.Clone(cfg.Git.Assets)
	if cfg.Changelog.File != "" && !slices.Contains(assets, cfg.Changelog.File) {
		assets = append(assets, cfg.Changelog.File)
	}

	return pipeline.Options{
		Branch:          branch,
		TagFormat:       cfg.TagFormat,
		InitialVersion:  cfg.InitialVersion,
		Rules:           rules,
		Types:           cfg.NoteTypes(),
		RepositoryURL:   s.repositoryURL(),
		PrepareCommand:  cfg.Prepare.Command,
		Assets:          assets,
		MessageTemplate: cfg.Git.Message,
		SkipMarker:      cfg.Git.SkipMarker,
		AnnotatedTags:   cfg.Git.AnnotatedTags,
		AuthorName:      cfg.Git.AuthorName,
		AuthorEmail:     cfg.Git.AuthorEmail,
		Push:            cfg.Git.Push,
		Remote:          cfg.Git.Remote,
		Draft:           cfg.Publish.Draft,
		Prerelease:      cfg.Publish.Prerelease,
		DryRun:          dryRun,
	}, nil
}

// repository returns the hosting repository from publish.repository or the
// configured git remote.
func (s *session) repository() (github.Repository, error) {
	if s.cfg.Publish.Repository != "" {
		repo, err := github.ParseRepository(s.cfg.Publish.Repository)
		if err != nil {
			return github.Repository{}, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid publish.repository")
		}
		return repo, nil
	}
	remote, err := git.RemoteURL(s.repoDir, s.cfg.Git.Remote)
	if err != nil {
		return github.Repository{}, clierrors.RepositoryUnknown(s.cfg.Git.Remote, err)
	}
	repo, err := github.ParseRepository(remote)
	if err != nil {
		return github.Repository{}, clierrors.RepositoryUnknown(remote, err)
	}
	return repo, nil
}

// repositoryURL is the base for commit links in notes. Empty disables links.
func (s *session) repositoryURL() string {
	if s.cfg.Notes.RepositoryURL != "" {
		return s.cfg.Notes.RepositoryURL
	}
	repo, err := s.repository()
	if err != nil {
		s.logger.Debug().Err(err).Msg("commit links disabled")
		return ""
	}
	return repo.URL()
}

// publisher builds the configured hosting publisher.
func (s *session) publisher() (publish.Publisher, error) {
	target := s.cfg.Publish.Target
	if target == publish.TargetNone {
		return publish.Noop{}, nil
	}
	token := s.cfg.Publish.Token()
	if token == "" {
		return nil, clierrors.MissingToken(s.cfg.Publish.TokenEnv)
	}
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	p, err := publish.New(publish.Options{
		Target:     target,
		Repository: repo.String(),
		APIURL:     s.cfg.Publish.APIURL,
		Token:      token,
	})
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "configuring publisher")
	}
	return p, nil
}

// pipeline assembles the release pipeline. Side-effecting components are
// left out for dry runs.
func (s *session) pipeline(dryRun, showProgress bool) (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		Loader: git.NewLoader(s.repoDir),
		Logger: s.logger,
	}

	var observers lifecycle.Multi
	if showProgress {
		caps := progress.DetectTerminalCapabilities(os.Stderr)
		observers = append(observers, progress.NewDisplay(s.stderr, caps))
	}
	p.Observer = observers

	if dryRun {
		return p, nil
	}

	pub, err := s.publisher()
	if err != nil {
		return nil, err
	}
	p.Publisher = pub
	p.Committer = git.NewCommitter(s.repoDir)
	// Command output goes to stderr so stdout stays the release summary.
	echo := &syncWriter{w: s.stderr}
	p.Runner = &prepare.ShellRunner{
		Shell:   s.cfg.Prepare.Shell,
		WorkDir: s.repoDir,
		Timeout: s.cfg.Prepare.Timeout,
		Stdout:  echo,
		Stderr:  echo,
	}
	if s.cfg.Changelog.File != "" {
		path := s.cfg.Changelog.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.repoDir, path)
		}
		p.Changelog = changelog.New(path, s.cfg.Changelog.Title)
	}
	return p, nil
}

// historyWriter returns the release history log for this machine.
func (s *session) historyWriter() *history.Writer {
	return history.NewWriter(s.cfg.StateDir, s.cfg.MaxHistoryEntries).WithLogger(s.logger)
}

// syncWriter serializes writes from a command's stdout and stderr copiers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
