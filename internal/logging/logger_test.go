package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtTrace bool
		logAtDebug bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", false, true},
		{"trace passes trace", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, "text", &buf)

			logger.Debug("debug message")
			assert.Equal(t, tt.logAtDebug, strings.Contains(buf.String(), "debug message"))

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "trace message")
			assert.Equal(t, tt.logAtTrace, strings.Contains(buf.String(), "trace message"))
			if tt.logAtTrace {
				assert.Contains(t, buf.String(), "level=TRACE")
			}
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "json", &buf)
	logger.Info("episode opened", "items", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "episode opened", entry["msg"])
	assert.Equal(t, 3.0, entry["items"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	logger.Info("dropped")
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")
	assert.Nil(t, dl)

	// nil logger is still usable
	dl.Log(Decision{Engine: "classic"})

	_, err := os.Stat(filepath.Join(dir, "decisions.jsonl"))
	assert.True(t, os.IsNotExist(err))
}

func TestDecisionLogger_WritesLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	dl := NewDecisionLogger(dir, "debug")
	require.NotNil(t, dl)
	defer dl.Close()

	dl.Log(Decision{Engine: "classic", Episode: 1, Step: 0, Choice: 2, StopProbability: 0.05, RecallTotal: 1})
	dl.Log(Decision{Engine: "classic", Episode: 1, Step: 1, Choice: 0, Forced: true})

	path := filepath.Join(dir, "decisions.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second Decision
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, 2, first.Choice)
	assert.InDelta(t, 0.05, first.StopProbability, 1e-12)
	assert.False(t, first.Time.IsZero())
	assert.True(t, second.Forced)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestDecisionLogger_NilSafety(t *testing.T) {
	var dl *DecisionLogger
	dl.Log(Decision{})
	dl.Close()
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "trace")
	require.NotNil(t, dl)
	dl.Close()
	dl.Log(Decision{Engine: "instance"})
}
