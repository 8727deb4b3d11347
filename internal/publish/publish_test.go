package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/shipver/internal/github"
)

type fakeAPI struct {
	existing  *github.Release
	getErr    error
	createErr error
	updateErr error
	listErr   error
	// listed is returned by ListReleases, paged.
	listed []github.Release

	created []github.ReleaseRequest
	updated []github.ReleaseRequest
}

func (f *fakeAPI) GetReleaseByTag(_ context.Context, _ github.Repository, _ string) (*github.Release, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.existing == nil {
		return nil, &github.APIError{StatusCode: 404, Message: "Not Found"}
	}
	return f.existing, nil
}

func (f *fakeAPI) ListReleases(_ context.Context, _ github.Repository, page, perPage int) ([]github.Release, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	start := (page - 1) * perPage
	if start >= len(f.listed) {
		return nil, nil
	}
	return f.listed[start:min(start+perPage, len(f.listed))], nil
}

func (f *fakeAPI) CreateRelease(_ context.Context, _ github.Repository, req github.ReleaseRequest) (*github.Release, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &github.Release{ID: 1, TagName: req.TagName, HTMLURL: "https://github.com/acme/widget/releases/tag/" + req.TagName}, nil
}

func (f *fakeAPI) UpdateRelease(_ context.Context, _ github.Repository, id int64, req github.ReleaseRequest) (*github.Release, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, req)
	return &github.Release{ID: id, TagName: req.TagName}, nil
}

var testRelease = Release{Version: "1.2.0", Tag: "v1.2.0", Notes: "## 1.2.0", Commitish: "abc123"}

func TestGitHub_Publish(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		api         *fakeAPI
		wantErr     bool
		wantUpdated bool
		wantCreates int
		wantUpdates int
	}{
		"creates when missing": {
			api:         &fakeAPI{},
			wantCreates: 1,
		},
		"updates existing release": {
			api:         &fakeAPI{existing: &github.Release{ID: 9, TagName: "v1.2.0"}},
			wantUpdated: true,
			wantUpdates: 1,
		},
		"updates draft the tag lookup cannot see": {
			api: &fakeAPI{listed: []github.Release{
				{ID: 11, TagName: "v1.2.0"},
				{ID: 12, TagName: "v1.2.0", Draft: true},
			}},
			wantUpdated: true,
			wantUpdates: 1,
		},
		"published release with same tag is not a draft": {
			api:         &fakeAPI{listed: []github.Release{{ID: 11, TagName: "v1.2.0"}}},
			wantCreates: 1,
		},
		"draft list failure": {
			api:     &fakeAPI{listErr: &github.APIError{StatusCode: 502}},
			wantErr: true,
		},
		"lookup failure": {
			api:     &fakeAPI{getErr: &github.APIError{StatusCode: 500, Message: "boom"}},
			wantErr: true,
		},
		"create failure": {
			api:     &fakeAPI{createErr: &github.APIError{StatusCode: 422, Message: "Validation Failed"}},
			wantErr: true,
		},
		"update failure": {
			api:     &fakeAPI{existing: &github.Release{ID: 9}, updateErr: errors.New("network")},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := NewGitHub(tt.api, github.Repository{Owner: "acme", Name: "widget"})
			got, err := p.Publish(context.Background(), testRelease)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TargetGitHub, got.Target)
			assert.Equal(t, tt.wantUpdated, got.Updated)
			assert.Len(t, tt.api.created, tt.wantCreates)
			assert.Len(t, tt.api.updated, tt.wantUpdates)
		})
	}
}

func TestGitHub_PublishRequestShape(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	p := NewGitHub(api, github.Repository{Owner: "acme", Name: "widget"})

	_, err := p.Publish(context.Background(), Release{Tag: "v2.0.0", Notes: "n", Commitish: "main", Prerelease: true})
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, github.ReleaseRequest{
		TagName:         "v2.0.0",
		TargetCommitish: "main",
		Name:            "v2.0.0",
		Body:            "n",
		Prerelease:      true,
	}, api.created[0])

	api.existing = &github.Release{ID: 3}
	_, err = p.Publish(context.Background(), Release{Tag: "v2.0.0", Notes: "n2", Commitish: "main"})
	require.NoError(t, err)
	require.Len(t, api.updated, 1)
	assert.Empty(t, api.updated[0].TargetCommitish)
	assert.Equal(t, "n2", api.updated[0].Body)
}

func TestGitHub_PublishDraftTwiceUpdatesFirst(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	for i := 0; i < 150; i++ {
		api.listed = append(api.listed, github.Release{ID: int64(1000 + i), TagName: "v0.0.1"})
	}
	api.listed = append(api.listed, github.Release{ID: 77, TagName: "v1.2.0", Draft: true})
	p := NewGitHub(api, github.Repository{Owner: "acme", Name: "widget"})

	draft := testRelease
	draft.Draft = true
	got, err := p.Publish(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, int64(77), got.ID)
	assert.True(t, got.Updated)
	assert.Empty(t, api.created)
	require.Len(t, api.updated, 1)
	assert.True(t, api.updated[0].Draft)
}

func TestGitHub_RequiresTag(t *testing.T) {
	t.Parallel()
	p := NewGitHub(&fakeAPI{}, github.Repository{Owner: "a", Name: "b"})
	_, err := p.Publish(context.Background(), Release{})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts     Options
		wantName string
		wantErr  bool
	}{
		"none":             {opts: Options{Target: "none"}, wantName: TargetNone},
		"empty is none":    {opts: Options{}, wantName: TargetNone},
		"github":           {opts: Options{Target: "github", Repository: "acme/widget", Token: "t"}, wantName: TargetGitHub},
		"github uppercase": {opts: Options{Target: "GitHub", Repository: "acme/widget", Token: "t"}, wantName: TargetGitHub},
		"github no token":  {opts: Options{Target: "github", Repository: "acme/widget"}, wantErr: true},
		"github bad repo":  {opts: Options{Target: "github", Repository: "widget", Token: "t"}, wantErr: true},
		"unknown target":   {opts: Options{Target: "gitlab"}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := New(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()
	got, err := Noop{}.Publish(context.Background(), testRelease)
	require.NoError(t, err)
	assert.Equal(t, TargetNone, got.Target)
}
