package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestNew_TagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "carpool-api", "warn")
	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept", "ride_id", "ride-1")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "carpool-api", rec["service"])
	assert.Equal(t, "ride-1", rec["ride_id"])
	assert.Contains(t, rec, "source")
}
