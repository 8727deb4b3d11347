package git

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ariel-frischer/shipver/internal/commits"
)

// Release identifies a published release tag.
type Release struct {
	Version *semver.Version
	Tag     string
	Hash    string
}

// History is the commit range a release is computed from.
type History struct {
	// Tip is the commit the range ends at.
	Tip string
	// LastRelease is the highest release tag reachable from Tip, nil when
	// the repository has never been released.
	LastRelease *Release
	// Commits are the commits reachable from Tip but not from LastRelease,
	// oldest first.
	Commits []commits.Commit
}

// LoadOptions selects the commit range to load.
type LoadOptions struct {
	// Ref is a branch, tag or revision. Empty means HEAD.
	Ref       string
	TagFormat TagFormat
	// SkipTag is ignored when searching for the last release. Used when
	// re-publishing an existing tag to find the release before it.
	SkipTag string
}

// Loader reads commit history with go-git.
type Loader struct {
	// Path is any directory inside the repository. Empty means the
	// current working directory.
	Path   string
	Parser *commits.Parser
}

// NewLoader creates a loader for the repository containing path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path, Parser: commits.NewParser()}
}

// Load returns the commits since the last release tag.
func (l *Loader) Load(ctx context.Context, opts LoadOptions) (*History, error) {
	repo, err := openRepo(l.Path)
	if err != nil {
		return nil, err
	}

	tip, err := resolveRef(repo, opts.Ref)
	if err != nil {
		return nil, err
	}

	tags, err := indexReleaseTags(repo, opts.TagFormat, opts.SkipTag)
	if err != nil {
		return nil, err
	}
	logDebug("[git] Load: tip=%s release tags=%d", tip, len(tags))

	candidates, last, err := walkRange(ctx, repo, tip, tags)
	if err != nil {
		return nil, err
	}

	h := &History{Tip: tip.String(), LastRelease: last}

	var released map[plumbing.Hash]bool
	if last != nil {
		released, err = ancestors(ctx, repo, plumbing.NewHash(last.Hash))
		if err != nil {
			return nil, err
		}
	}

	parser := l.Parser
	if parser == nil {
		parser = commits.NewParser()
	}

	// candidates are newest first; emit oldest first.
	for i := len(candidates) - 1; i >= 0; i-- {
		c := candidates[i]
		if released[c.Hash] {
			continue
		}
		h.Commits = append(h.Commits, parser.Parse(c.Hash.String(), c.Message, c.Author.Name, c.Author.When))
	}

	logDebug("[git] Load: %d commits since %s", len(h.Commits), describeRelease(last))
	return h, nil
}

func describeRelease(r *Release) string {
	if r == nil {
		return "the beginning of history"
	}
	return r.Tag
}

// resolveRef resolves a branch, tag or revision to a commit hash.
func resolveRef(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if ref == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("getting HEAD reference: %w", err)
		}
		return head.Hash(), nil
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(ref),
		plumbing.NewRemoteReferenceName("origin", ref),
		plumbing.NewTagReferenceName(ref),
	} {
		r, err := repo.Reference(name, true)
		if err != nil {
			continue
		}
		return peel(repo, r.Hash()), nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %q: %w", ref, err)
	}
	return *hash, nil
}

// peel follows an annotated tag object to the commit it points at.
func peel(repo *git.Repository, hash plumbing.Hash) plumbing.Hash {
	tag, err := repo.TagObject(hash)
	if err != nil {
		return hash
	}
	c, err := tag.Commit()
	if err != nil {
		return hash
	}
	return c.Hash
}

// indexReleaseTags maps commit hashes to the highest release tag on them.
func indexReleaseTags(repo *git.Repository, format TagFormat, skip string) (map[plumbing.Hash]*Release, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	tags := make(map[plumbing.Hash]*Release)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if name == skip {
			return nil
		}
		v, ok := format.Parse(name)
		if !ok {
			return nil
		}
		hash := peel(repo, ref.Hash())
		if existing, ok := tags[hash]; ok && !v.GreaterThan(existing.Version) {
			return nil
		}
		tags[hash] = &Release{Version: v, Tag: name, Hash: hash.String()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

// walkRange walks every commit reachable from tip, newest first, and
// returns them with the highest release tag among them. A tagged commit does
// not end the walk: a merge can bring in commits older than the tag that the
// tag never contained.
func walkRange(ctx context.Context, repo *git.Repository, tip plumbing.Hash, tags map[plumbing.Hash]*Release) ([]*object.Commit, *Release, error) {
	iter, err := repo.Log(&git.LogOptions{From: tip, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, nil, fmt.Errorf("reading log from %s: %w", tip, err)
	}
	defer iter.Close()

	var (
		seen []*object.Commit
		last *Release
	)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r, ok := tags[c.Hash]; ok && (last == nil || r.Version.GreaterThan(last.Version)) {
			last = r
		}
		seen = append(seen, c)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking history: %w", err)
	}
	return seen, last, nil
}

// ancestors returns the set of commits reachable from hash, inclusive.
func ancestors(ctx context.Context, repo *git.Repository, hash plumbing.Hash) (map[plumbing.Hash]bool, error) {
	iter, err := repo.Log(&git.LogOptions{From: hash})
	if err != nil {
		return nil, fmt.Errorf("reading log from %s: %w", hash, err)
	}
	defer iter.Close()

	set := make(map[plumbing.Hash]bool)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		set[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking released history: %w", err)
	}
	return set, nil
}
