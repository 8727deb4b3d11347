package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in      string
		want    Format
		wantErr bool
	}{
		"empty":   {in: "", want: FormatConsole},
		"console": {in: "console", want: FormatConsole},
		"json":    {in: " JSON ", want: FormatJSON},
		"unknown": {in: "logfmt", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: FormatJSON, Level: "warn"})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("stage", "publish").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "shown", rec["message"])
	assert.Equal(t, "publish", rec["stage"])
	assert.Equal(t, "warn", rec["level"])
}

func TestNew_DebugOverridesLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: FormatJSON, Level: "error", Debug: true})
	require.NoError(t, err)

	Printf(logger, "git")("walked %d commits", 3)
	assert.Contains(t, buf.String(), `"message":"walked 3 commits"`)
	assert.Contains(t, buf.String(), `"component":"git"`)
}

func TestNew_Console(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(&buf, Options{NoColor: true})
	require.NoError(t, err)

	logger.Info().Str("version", "1.2.0").Msg("released")
	assert.Contains(t, buf.String(), "released")
	assert.Contains(t, buf.String(), "version=1.2.0")
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)
}
