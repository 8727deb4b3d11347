package build

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	t.Parallel()

	info := Info()
	assert.True(t, strings.HasPrefix(info, "shipver "+Version+" (commit "+Commit))
	assert.True(t, IsDevBuild())
}
