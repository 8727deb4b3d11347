package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testRepo is a throwaway repository in a temp directory.
type testRepo struct {
	t    *testing.T
	dir  string
	repo *git.Repository
	n    int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo}
}

// commit writes a file and commits it with message, returning the hash.
func (r *testRepo) commit(message string) plumbing.Hash {
	r.t.Helper()
	r.n++
	return r.commitAt(message, testEpoch.Add(time.Duration(r.n)*time.Minute))
}

// commitAt commits on the checked out branch at a fixed time. Parents, when
// given, replace HEAD as the new commit's parents.
func (r *testRepo) commitAt(message string, when time.Time, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	name := filepath.Join(r.dir, "file.txt")
	require.NoError(r.t, os.WriteFile(name, []byte(message+"\n"), 0o644))

	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)
	_, err = wt.Add("file.txt")
	require.NoError(r.t, err)

	sig := &object.Signature{Name: "Dev", Email: "dev@example.com", When: when}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig, Parents: parents})
	require.NoError(r.t, err)
	return hash
}

// checkout switches to branch, creating it at from when from is non-zero.
func (r *testRepo) checkout(branch string, from plumbing.Hash) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)
	require.NoError(r.t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Hash:   from,
		Create: !from.IsZero(),
		Force:  true,
	}))
}

func (r *testRepo) tag(name string, hash plumbing.Hash) {
	r.t.Helper()
	_, err := r.repo.CreateTag(name, hash, nil)
	require.NoError(r.t, err)
}

func (r *testRepo) annotatedTag(name string, hash plumbing.Hash) {
	r.t.Helper()
	sig := &object.Signature{Name: "Dev", Email: "dev@example.com", When: testEpoch}
	_, err := r.repo.CreateTag(name, hash, &git.CreateTagOptions{Tagger: sig, Message: name})
	require.NoError(r.t, err)
}

func subjects(h *History) []string {
	out := make([]string, 0, len(h.Commits))
	for _, c := range h.Commits {
		out = append(out, c.Subject)
	}
	return out
}

func TestLoad_NoTags(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.commit("feat: first")
	tip := r.commit("fix: second")

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)

	assert.Nil(t, h.LastRelease)
	assert.Equal(t, tip.String(), h.Tip)
	assert.Equal(t, []string{"feat: first", "fix: second"}, subjects(h))
	assert.Equal(t, "feat", h.Commits[0].Type)
	assert.Equal(t, "Dev", h.Commits[0].Author)
}

func TestLoad_SinceLastRelease(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		annotated bool
	}{
		"lightweight tag": {annotated: false},
		"annotated tag":   {annotated: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := newTestRepo(t)
			r.commit("feat: old")
			released := r.commit("fix: old fix")
			if tt.annotated {
				r.annotatedTag("v1.2.0", released)
			} else {
				r.tag("v1.2.0", released)
			}
			r.commit("feat: new")
			r.commit("docs: readme")

			h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
			require.NoError(t, err)

			require.NotNil(t, h.LastRelease)
			assert.Equal(t, "v1.2.0", h.LastRelease.Tag)
			assert.Equal(t, "1.2.0", h.LastRelease.Version.String())
			assert.Equal(t, released.String(), h.LastRelease.Hash)
			assert.Equal(t, []string{"feat: new", "docs: readme"}, subjects(h))
		})
	}
}

func TestLoad_TagOnTipMeansNothingNew(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.commit("feat: one")
	r.tag("v1.0.0", r.commit("fix: two"))

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Empty(t, h.Commits)
}

func TestLoad_IgnoresForeignTags(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	first := r.commit("feat: one")
	r.tag("v1.0.0", first)
	second := r.commit("fix: two")
	r.tag("nightly", second)
	r.tag("release-2.0.0", second)
	r.commit("fix: three")

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Equal(t, "v1.0.0", h.LastRelease.Tag)
	assert.Equal(t, []string{"fix: two", "fix: three"}, subjects(h))
}

func TestLoad_HighestTagOnCommitWins(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	c := r.commit("feat: one")
	r.tag("v1.0.0", c)
	r.tag("v1.1.0", c)
	r.commit("fix: two")

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Equal(t, "v1.1.0", h.LastRelease.Tag)
}

func TestLoad_SkipTag(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.tag("v1.0.0", r.commit("feat: one"))
	r.commit("feat: two")
	r.tag("v1.1.0", r.commit("fix: three"))

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{
		Ref:       "v1.1.0",
		TagFormat: MustParseTagFormat("v{{VERSION}}"),
		SkipTag:   "v1.1.0",
	})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Equal(t, "v1.0.0", h.LastRelease.Tag)
	assert.Equal(t, []string{"feat: two", "fix: three"}, subjects(h))
}

func TestLoad_MergedAfterRelease(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	base := r.commitAt("chore: base", testEpoch)

	r.checkout("topic", base)
	topic := r.commitAt("feat: topic feature", testEpoch.Add(5*time.Minute))

	r.checkout("master", plumbing.ZeroHash)
	released := r.commitAt("fix: released", testEpoch.Add(10*time.Minute))
	r.tag("v1.0.0", released)
	r.commitAt("Merge branch 'topic'", testEpoch.Add(20*time.Minute), released, topic)

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{Ref: "master", TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Equal(t, "v1.0.0", h.LastRelease.Tag)
	assert.Equal(t, []string{"feat: topic feature", "Merge branch 'topic'"}, subjects(h))
	assert.Equal(t, "feat", h.Commits[0].Type)
}

func TestLoad_HighestReachableReleaseWins(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	base := r.commitAt("chore: base", testEpoch)

	r.checkout("maint", base)
	r.tag("v0.9.1", r.commitAt("fix: backport", testEpoch.Add(15*time.Minute)))
	maint := r.commitAt("fix: after backport", testEpoch.Add(16*time.Minute))

	r.checkout("master", plumbing.ZeroHash)
	released := r.commitAt("feat: big", testEpoch.Add(10*time.Minute))
	r.tag("v1.0.0", released)
	r.commitAt("Merge branch 'maint'", testEpoch.Add(20*time.Minute), released, maint)

	h, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{Ref: "master", TagFormat: MustParseTagFormat("v{{VERSION}}")})
	require.NoError(t, err)
	require.NotNil(t, h.LastRelease)
	assert.Equal(t, "v1.0.0", h.LastRelease.Tag)
	assert.Equal(t, released.String(), h.LastRelease.Hash)
	assert.Equal(t, []string{"fix: backport", "fix: after backport", "Merge branch 'maint'"}, subjects(h))
}

func TestLoad_UnknownRef(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.commit("feat: one")

	_, err := NewLoader(r.dir).Load(context.Background(), LoadOptions{Ref: "does-not-exist", TagFormat: MustParseTagFormat("v{{VERSION}}")})
	assert.Error(t, err)
}

func TestLoad_NotARepository(t *testing.T) {
	t.Parallel()
	_, err := NewLoader(t.TempDir()).Load(context.Background(), LoadOptions{TagFormat: MustParseTagFormat("v{{VERSION}}")})
	assert.Error(t, err)
	assert.False(t, IsRepository(t.TempDir()))
}

func TestCommitAndTag(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		writeChangelog bool
		annotated      bool
		wantCommitted  bool
	}{
		"commits changed assets": {writeChangelog: true, wantCommitted: true},
		"annotated tag":          {writeChangelog: true, annotated: true, wantCommitted: true},
		"tags tip when nothing changed": {
			writeChangelog: false,
			wantCommitted:  false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := newTestRepo(t)
			tip := r.commit("feat: ready")

			if tt.writeChangelog {
				require.NoError(t, os.WriteFile(filepath.Join(r.dir, "CHANGELOG.md"), []byte("# Changelog\n"), 0o644))
			}

			res, err := NewCommitter(r.dir).CommitAndTag(context.Background(), CommitRequest{
				Assets:      []string{"CHANGELOG.md", "dist/*.tgz"},
				Message:     "chore(release): 1.0.0",
				Tag:         "v1.0.0",
				Annotated:   tt.annotated,
				AuthorName:  "release-bot",
				AuthorEmail: "bot@example.com",
				When:        testEpoch,
				Branch:      "master",
				Tip:         tip.String(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCommitted, res.Committed)
			assert.False(t, res.Pushed)

			ref, err := r.repo.Tag("v1.0.0")
			require.NoError(t, err)
			assert.Equal(t, res.Hash, peel(r.repo, ref.Hash()).String())

			if !tt.wantCommitted {
				assert.Equal(t, tip.String(), res.Hash)
				return
			}
			c, err := r.repo.CommitObject(plumbing.NewHash(res.Hash))
			require.NoError(t, err)
			assert.Equal(t, "chore(release): 1.0.0", c.Message)
			assert.Equal(t, "release-bot", c.Author.Name)

			assert.Equal(t, []plumbing.Hash{tip}, c.ParentHashes)

			head, err := r.repo.Head()
			require.NoError(t, err)
			assert.Equal(t, "master", head.Name().Short())
			assert.Equal(t, res.Hash, head.Hash().String())
		})
	}
}

func TestCommitAndTag_RefusesWhenHeadIsNotReleaseTip(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		setup func(r *testRepo) (tip plumbing.Hash)
	}{
		"other branch checked out": {
			setup: func(r *testRepo) plumbing.Hash {
				tip := r.commit("feat: released work")
				r.checkout("topic", tip)
				r.commit("feat: unreleased topic work")
				return tip
			},
		},
		"release branch moved after analysis": {
			setup: func(r *testRepo) plumbing.Hash {
				tip := r.commit("feat: analyzed")
				r.commit("fix: landed later")
				return tip
			},
		},
		"detached HEAD": {
			setup: func(r *testRepo) plumbing.Hash {
				tip := r.commit("feat: analyzed")
				wt, err := r.repo.Worktree()
				require.NoError(r.t, err)
				require.NoError(r.t, wt.Checkout(&git.CheckoutOptions{Hash: tip}))
				return tip
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r := newTestRepo(t)
			tip := tt.setup(r)
			before, err := r.repo.Reference(plumbing.NewBranchReferenceName("master"), true)
			require.NoError(t, err)

			require.NoError(t, os.WriteFile(filepath.Join(r.dir, "CHANGELOG.md"), []byte("# Changelog\n"), 0o644))
			res, err := NewCommitter(r.dir).CommitAndTag(context.Background(), CommitRequest{
				Assets:  []string{"CHANGELOG.md"},
				Message: "chore(release): 1.0.0",
				Tag:     "v1.0.0",
				When:    testEpoch,
				Branch:  "master",
				Tip:     tip.String(),
			})
			require.ErrorIs(t, err, ErrHeadMismatch)
			assert.Nil(t, res)

			_, err = r.repo.Tag("v1.0.0")
			assert.ErrorIs(t, err, git.ErrTagNotFound)
			after, err := r.repo.Reference(plumbing.NewBranchReferenceName("master"), true)
			require.NoError(t, err)
			assert.Equal(t, before.Hash(), after.Hash())
		})
	}
}

func TestCommitAndTag_ExistingTag(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.tag("v1.0.0", r.commit("feat: one"))

	_, err := NewCommitter(r.dir).CommitAndTag(context.Background(), CommitRequest{Tag: "v1.0.0", Message: "x"})
	assert.ErrorIs(t, err, ErrTagExists)
}

func TestCommitAndTag_PushUnknownRemote(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.commit("feat: one")

	res, err := NewCommitter(r.dir).CommitAndTag(context.Background(), CommitRequest{
		Tag:     "v1.0.0",
		Message: "x",
		Push:    true,
		Remote:  "upstream",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream")
	require.NotNil(t, res)
	assert.False(t, res.Pushed)

	require.NoError(t, NewCommitter(r.dir).DeleteTag("v1.0.0"))
	_, err = r.repo.Tag("v1.0.0")
	assert.ErrorIs(t, err, git.ErrTagNotFound)
}

func TestCurrentBranchAndRemote(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	r.commit("feat: one")

	branch, err := CurrentBranch(r.dir)
	require.NoError(t, err)
	assert.Equal(t, "master", branch)

	_, err = RemoteURL(r.dir, "origin")
	assert.Error(t, err)
}

func TestIsSSHURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		url  string
		want bool
	}{
		"scp style":  {url: "git@github.com:o/r.git", want: true},
		"ssh scheme": {url: "ssh://git@github.com/o/r.git", want: true},
		"https":      {url: "https://github.com/o/r.git", want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isSSHURL(tt.url))
		})
	}
}
