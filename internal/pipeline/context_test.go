package pipeline

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/shipver/internal/analyzer"
	"github.com/ariel-frischer/shipver/internal/commits"
	"github.com/ariel-frischer/shipver/internal/git"
)

func TestContext_AppendOnly(t *testing.T) {
	t.Parallel()

	tests := map[string]func(Context) (Context, error){
		"branch":  func(c Context) (Context, error) { return c.WithBranch("other") },
		"history": func(c Context) (Context, error) { return c.WithHistory("x", nil, nil) },
		"decision": func(c Context) (Context, error) {
			return c.WithDecision(analyzer.Decision{Bump: analyzer.Major})
		},
		"version": func(c Context) (Context, error) { return c.WithVersion(semver.MustParse("9.9.9"), "v9.9.9") },
		"notes":   func(c Context) (Context, error) { return c.WithNotes("other") },
	}

	var base Context
	var err error
	base, err = base.WithBranch("main")
	require.NoError(t, err)
	base, err = base.WithHistory("tip", nil, []commits.Commit{{Hash: "a"}})
	require.NoError(t, err)
	base, err = base.WithDecision(analyzer.Decision{Bump: analyzer.Patch})
	require.NoError(t, err)
	base, err = base.WithVersion(semver.MustParse("1.0.1"), "v1.0.1")
	require.NoError(t, err)
	base, err = base.WithNotes("notes")
	require.NoError(t, err)

	for name, overwrite := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := overwrite(base)
			assert.ErrorIs(t, err, ErrFieldWritten)
			assert.Equal(t, "main", base.Branch())
			assert.Equal(t, "notes", base.Notes())
			assert.Equal(t, analyzer.Patch, base.Decision().Bump)
		})
	}
}

func TestContext_ValueSemantics(t *testing.T) {
	t.Parallel()
	var empty Context
	withNotes, err := empty.WithNotes("n")
	require.NoError(t, err)

	assert.Empty(t, empty.Notes(), "the receiver is not modified")
	assert.Equal(t, "n", withNotes.Notes())

	_, err = empty.WithNotes("again")
	assert.NoError(t, err, "the original copy never had notes")
}

func TestContext_CopiesSlices(t *testing.T) {
	t.Parallel()
	input := []commits.Commit{{Hash: "a"}, {Hash: "b"}}
	last := &git.Release{Tag: "v1.0.0"}

	c, err := Context{}.WithHistory("tip", last, input)
	require.NoError(t, err)

	input[0].Hash = "mutated"
	last.Tag = "mutated"
	assert.Equal(t, "a", c.Commits()[0].Hash)
	assert.Equal(t, "v1.0.0", c.LastRelease().Tag)

	out := c.Commits()
	out[1].Hash = "mutated"
	assert.Equal(t, "b", c.Commits()[1].Hash)
}
