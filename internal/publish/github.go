package publish

import (
	"context"
	"fmt"

	"github.com/ariel-frischer/shipver/internal/github"
)

// releaseAPI is the subset of the GitHub client used for publishing.
type releaseAPI interface {
	GetReleaseByTag(ctx context.Context, repo github.Repository, tag string) (*github.Release, error)
	CreateRelease(ctx context.Context, repo github.Repository, req github.ReleaseRequest) (*github.Release, error)
	UpdateRelease(ctx context.Context, repo github.Repository, id int64, req github.ReleaseRequest) (*github.Release, error)
	ListReleases(ctx context.Context, repo github.Repository, page, perPage int) ([]github.Release, error)
}

const (
	draftPageSize = 100
	// draftMaxPages bounds the draft search to the most recent releases.
	draftMaxPages = 5
)

// GitHub publishes GitHub releases. An existing release for the tag,
// draft or published, is updated in place, so re-running after a partial
// failure converges.
type GitHub struct {
	api  releaseAPI
	repo github.Repository
}

// NewGitHub returns a publisher for repo.
func NewGitHub(api releaseAPI, repo github.Repository) *GitHub {
	return &GitHub{api: api, repo: repo}
}

// Name returns "github".
func (g *GitHub) Name() string { return TargetGitHub }

// Publish creates the release, or updates the one already attached to the tag.
func (g *GitHub) Publish(ctx context.Context, r Release) (*Published, error) {
	if r.Tag == "" {
		return nil, fmt.Errorf("publishing to %s: tag is required", g.repo)
	}
	name := r.Name
	if name == "" {
		name = r.Tag
	}
	req := github.ReleaseRequest{
		TagName:         r.Tag,
		TargetCommitish: r.Commitish,
		Name:            name,
		Body:            r.Notes,
		Draft:           r.Draft,
		Prerelease:      r.Prerelease,
	}

	existing, err := g.api.GetReleaseByTag(ctx, g.repo, r.Tag)
	if github.IsNotFound(err) {
		// The tag endpoint never returns drafts.
		existing, err = g.findDraft(ctx, r.Tag)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up release %s on %s: %w", r.Tag, g.repo, err)
	}

	if existing == nil {
		created, err := g.api.CreateRelease(ctx, g.repo, req)
		if err != nil {
			return nil, fmt.Errorf("creating release %s on %s: %w", r.Tag, g.repo, err)
		}
		return &Published{Target: TargetGitHub, ID: created.ID, URL: created.HTMLURL}, nil
	}

	// The tag already points somewhere; do not try to move it.
	req.TargetCommitish = ""
	updated, err := g.api.UpdateRelease(ctx, g.repo, existing.ID, req)
	if err != nil {
		return nil, fmt.Errorf("updating release %s on %s: %w", r.Tag, g.repo, err)
	}
	return &Published{Target: TargetGitHub, ID: updated.ID, URL: updated.HTMLURL, Updated: true}, nil
}

// findDraft returns the draft release for tag, nil when there is none.
func (g *GitHub) findDraft(ctx context.Context, tag string) (*github.Release, error) {
	for page := 1; page <= draftMaxPages; page++ {
		rs, err := g.api.ListReleases(ctx, g.repo, page, draftPageSize)
		if err != nil {
			return nil, err
		}
		for i := range rs {
			if rs[i].Draft && rs[i].TagName == tag {
				return &rs[i], nil
			}
		}
		if len(rs) < draftPageSize {
			break
		}
	}
	return nil, nil
}
