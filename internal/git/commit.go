package git

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrTagExists is returned when the release tag is already present.
	ErrTagExists = errors.New("tag already exists")
	// ErrHeadMismatch is returned when the checked-out commit is not the
	// one the release was computed from.
	ErrHeadMismatch = errors.New("HEAD is not the release tip")
)

// CommitRequest describes the release commit and tag.
type CommitRequest struct {
	// Assets are glob patterns of files to stage. Patterns that match
	// nothing are ignored.
	Assets  []string
	Message string

	Tag        string
	TagMessage string
	Annotated  bool

	AuthorName  string
	AuthorEmail string
	When        time.Time

	Push   bool
	Remote string
	// Branch receives the release commit and must be checked out. Empty
	// means the checked-out branch.
	Branch string
	// Tip is the commit the release was computed from. When set, HEAD must
	// point at it so the tag lands on the analyzed history.
	Tip string
}

// CommitResult reports what CommitAndTag did.
type CommitResult struct {
	// Hash is the commit the tag points at.
	Hash string
	// Committed is false when no asset changed and the tag was placed on
	// the existing tip.
	Committed bool
	Tag       string
	Pushed    bool
}

// Committer records releases in the repository.
type Committer struct {
	Path string
}

// NewCommitter creates a committer for the repository containing path.
func NewCommitter(path string) *Committer {
	return &Committer{Path: path}
}

// CommitAndTag stages the release assets, commits them when anything
// changed, tags the resulting commit and optionally pushes both.
func (c *Committer) CommitAndTag(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if req.Tag == "" {
		return nil, errors.New("tag name is required")
	}

	repo, err := openRepo(c.Path)
	if err != nil {
		return nil, err
	}

	if _, err := repo.Tag(req.Tag); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTagExists, req.Tag)
	} else if !errors.Is(err, git.ErrTagNotFound) {
		return nil, fmt.Errorf("checking tag %s: %w", req.Tag, err)
	}

	branch, err := checkHead(repo, req.Branch, req.Tip)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	for _, pattern := range req.Assets {
		if err := wt.AddGlob(pattern); err != nil {
			if errors.Is(err, git.ErrGlobNoMatches) {
				logDebug("[git] CommitAndTag: asset %q matched nothing", pattern)
				continue
			}
			return nil, fmt.Errorf("staging %q: %w", pattern, err)
		}
	}

	staged, err := hasStagedChanges(wt)
	if err != nil {
		return nil, err
	}

	sig := &object.Signature{Name: req.AuthorName, Email: req.AuthorEmail, When: req.When}
	if sig.When.IsZero() {
		sig.When = time.Now()
	}

	result := &CommitResult{Tag: req.Tag}

	var target plumbing.Hash
	if staged {
		target, err = wt.Commit(req.Message, &git.CommitOptions{Author: sig, Committer: sig})
		if err != nil {
			return nil, fmt.Errorf("committing release: %w", err)
		}
		result.Committed = true
		logDebug("[git] CommitAndTag: committed %s", target)
	} else {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("getting HEAD reference: %w", err)
		}
		target = head.Hash()
		logDebug("[git] CommitAndTag: nothing to commit, tagging %s", target)
	}
	result.Hash = target.String()

	var tagOpts *git.CreateTagOptions
	if req.Annotated {
		msg := req.TagMessage
		if msg == "" {
			msg = req.Tag
		}
		tagOpts = &git.CreateTagOptions{Tagger: sig, Message: msg}
	}
	if _, err := repo.CreateTag(req.Tag, target, tagOpts); err != nil {
		return nil, fmt.Errorf("creating tag %s: %w", req.Tag, err)
	}

	if req.Push {
		if err := push(ctx, repo, req.Remote, branch, req.Tag, staged); err != nil {
			return result, err
		}
		result.Pushed = true
	}

	return result, nil
}

// checkHead verifies HEAD is the release branch at the release tip and
// returns the checked-out branch name, empty when HEAD is detached.
func checkHead(repo *git.Repository, branch, tip string) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD reference: %w", err)
	}
	current := ""
	if head.Name().IsBranch() {
		current = head.Name().Short()
	}
	if branch != "" && current != branch {
		checkedOut := current
		if checkedOut == "" {
			checkedOut = "a detached HEAD"
		}
		return "", fmt.Errorf("%w: release branch %s is not checked out (found %s)", ErrHeadMismatch, branch, checkedOut)
	}
	if tip != "" && head.Hash().String() != tip {
		return "", fmt.Errorf("%w: HEAD is at %s, release was computed at %s", ErrHeadMismatch, head.Hash(), tip)
	}
	return current, nil
}

// DeleteTag removes a local tag. Used to roll back a tag that could not be pushed.
func (c *Committer) DeleteTag(tag string) error {
	repo, err := openRepo(c.Path)
	if err != nil {
		return err
	}
	if err := repo.DeleteTag(tag); err != nil {
		return fmt.Errorf("deleting tag %s: %w", tag, err)
	}
	return nil
}

func hasStagedChanges(wt *git.Worktree) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true, nil
		}
	}
	return false, nil
}

func push(ctx context.Context, repo *git.Repository, remote, branch, tag string, withBranch bool) error {
	if remote == "" {
		remote = "origin"
	}
	r, err := repo.Remote(remote)
	if err != nil {
		return fmt.Errorf("looking up remote %q: %w", remote, err)
	}

	var url string
	if urls := r.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}

	specs := []config.RefSpec{
		config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", tag, tag)),
	}
	if withBranch && branch != "" {
		specs = append([]config.RefSpec{
			config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)),
		}, specs...)
	}

	logDebug("[git] push: remote=%s refspecs=%v", remote, specs)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   specs,
		Auth:       getAuthForURL(url),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", remote, err)
	}
	return nil
}
