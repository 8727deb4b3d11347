package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRepo = Repository{Owner: "acme", Name: "widget"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"default base url":  {cfg: Config{Token: "t"}},
		"https enterprise":  {cfg: Config{BaseURL: "https://ghe.example.com/api/v3/", Token: "t"}},
		"loopback http":     {cfg: Config{BaseURL: "http://127.0.0.1:8080", Token: "t"}},
		"localhost http":    {cfg: Config{BaseURL: "http://localhost:8080", Token: "t"}},
		"plain http remote": {cfg: Config{BaseURL: "http://api.example.com", Token: "t"}, wantErr: true},
		"missing token":     {cfg: Config{}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "shipver", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"id": 1, "tag_name": "v1.0.0"}`)
	})

	_, err := c.GetReleaseByTag(context.Background(), testRepo, "v1.0.0")
	require.NoError(t, err)
}

func TestGetReleaseByTag(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status       int
		body         string
		wantNotFound bool
		wantErr      bool
	}{
		"found": {
			status: http.StatusOK,
			body:   `{"id": 42, "tag_name": "v1.2.0", "name": "v1.2.0", "html_url": "https://github.com/acme/widget/releases/tag/v1.2.0"}`,
		},
		"not found": {
			status:       http.StatusNotFound,
			body:         `{"message": "Not Found"}`,
			wantNotFound: true,
			wantErr:      true,
		},
		"server error without body": {
			status:  http.StatusBadGateway,
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/repos/acme/widget/releases/tags/v1.2.0", r.URL.Path)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			rel, err := c.GetReleaseByTag(context.Background(), testRepo, "v1.2.0")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantNotFound, IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(42), rel.ID)
			assert.Equal(t, "v1.2.0", rel.TagName)
		})
	}
}

func TestListReleases(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/repos/acme/widget/releases", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		fmt.Fprint(w, `[{"id": 5, "tag_name": "v1.1.0", "draft": true}, {"id": 4, "tag_name": "v1.0.0"}]`)
	})

	rs, err := c.ListReleases(context.Background(), testRepo, 2, 100)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.True(t, rs[0].Draft)
	assert.Equal(t, "v1.0.0", rs[1].TagName)
}

func TestCreateRelease(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widget/releases", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ReleaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "v2.0.0", req.TagName)
		assert.Equal(t, "notes", req.Body)
		assert.True(t, req.Prerelease)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id": 7, "tag_name": %q, "body": %q, "prerelease": true}`, req.TagName, req.Body)
	})

	rel, err := c.CreateRelease(context.Background(), testRepo, ReleaseRequest{
		TagName:    "v2.0.0",
		Name:       "v2.0.0",
		Body:       "notes",
		Prerelease: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), rel.ID)
	assert.True(t, rel.Prerelease)
}

func TestCreateRelease_ValidationError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "Release", "code": "already_exists", "field": "tag_name"}]}`)
	})

	_, err := c.CreateRelease(context.Background(), testRepo, ReleaseRequest{TagName: "v1.0.0"})
	require.Error(t, err)
	assert.True(t, IsValidationFailed(err))
	assert.Contains(t, err.Error(), "Release.tag_name: already_exists")
}

func TestUpdateRelease(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/acme/widget/releases/42", r.URL.Path)
		fmt.Fprint(w, `{"id": 42, "tag_name": "v1.0.0", "body": "new"}`)
	})

	rel, err := c.UpdateRelease(context.Background(), testRepo, 42, ReleaseRequest{TagName: "v1.0.0", Body: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", rel.Body)
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err          error
		notFound     bool
		conflict     bool
		unauthorized bool
		rateLimited  bool
	}{
		"404":            {err: &APIError{StatusCode: 404}, notFound: true},
		"409":            {err: &APIError{StatusCode: 409}, conflict: true},
		"401":            {err: &APIError{StatusCode: 401}, unauthorized: true},
		"403 permission": {err: &APIError{StatusCode: 403, Message: "Resource not accessible"}, unauthorized: true},
		"403 rate limit": {err: &APIError{StatusCode: 403, Message: "API rate limit exceeded"}, rateLimited: true},
		"429":            {err: &APIError{StatusCode: 429}, rateLimited: true},
		"wrapped 404":    {err: fmt.Errorf("publishing: %w", &APIError{StatusCode: 404}), notFound: true},
		"plain error":    {err: fmt.Errorf("boom")},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
			assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err))
		})
	}
}

func TestParseRepository(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    Repository
		wantErr bool
	}{
		"short form":     {in: "acme/widget", want: testRepo},
		"https":          {in: "https://github.com/acme/widget.git", want: testRepo},
		"https no .git":  {in: "https://github.com/acme/widget", want: testRepo},
		"scp ssh":        {in: "git@github.com:acme/widget.git", want: testRepo},
		"ssh scheme":     {in: "ssh://git@github.com/acme/widget.git", want: testRepo},
		"trailing slash": {in: "acme/widget/", want: testRepo},
		"only owner":     {in: "acme", wantErr: true},
		"too deep":       {in: "a/b/c", wantErr: true},
		"empty":          {in: "", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRepository(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "https://github.com/acme/widget", got.URL())
		})
	}
}
