package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("text")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, slog.LevelInfo, FormatJSON)
		log.Debug("hidden")
		log.Info("record inserted", "table", "users", "page_id", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "record inserted", entry["msg"])
		assert.Equal(t, "users", entry["table"])
		assert.Equal(t, float64(3), entry["page_id"])
		assert.NotEmpty(t, entry["time"])
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(&buf, slog.LevelWarn, FormatText)
		log.Info("hidden")
		log.Warn("slow", "op", "scan")

		assert.Contains(t, buf.String(), "msg=slow")
		assert.Contains(t, buf.String(), "op=scan")
		assert.NotContains(t, buf.String(), "hidden")
	})
}
