package github

import (
	"context"
	"fmt"
	"net/url"
)

// Release is a GitHub release.
type Release struct {
	ID              int64  `json:"id"`
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish"`
	Name            string `json:"name"`
	Body            string `json:"body"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
	HTMLURL         string `json:"html_url"`
	CreatedAt       string `json:"created_at,omitempty"`
	PublishedAt     string `json:"published_at,omitempty"`
}

// ReleaseRequest is the body for creating or updating a release.
type ReleaseRequest struct {
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name"`
	Body            string `json:"body"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}

// GetReleaseByTag returns the release for tag. Returns an error satisfying
// IsNotFound when no release exists.
func (c *Client) GetReleaseByTag(ctx context.Context, repo Repository, tag string) (*Release, error) {
	var r Release
	path := fmt.Sprintf("%s/releases/tags/%s", repo.path(), url.PathEscape(tag))
	if err := c.get(ctx, path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReleases returns one page of releases, newest first, drafts
// included when the token can see them. page starts at 1.
func (c *Client) ListReleases(ctx context.Context, repo Repository, page, perPage int) ([]Release, error) {
	var rs []Release
	path := fmt.Sprintf("%s/releases?per_page=%d&page=%d", repo.path(), perPage, page)
	if err := c.get(ctx, path, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// CreateRelease creates a release for an existing tag.
func (c *Client) CreateRelease(ctx context.Context, repo Repository, req ReleaseRequest) (*Release, error) {
	var r Release
	if err := c.post(ctx, repo.path()+"/releases", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRelease replaces the name, body and flags of release id.
func (c *Client) UpdateRelease(ctx context.Context, repo Repository, id int64, req ReleaseRequest) (*Release, error) {
	var r Release
	path := fmt.Sprintf("%s/releases/%d", repo.path(), id)
	if err := c.patch(ctx, path, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
