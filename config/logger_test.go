package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFor_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFor("production", "info", &buf)
	logger.Info("series truncated", "cap", 52)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "series truncated", line["msg"])
	assert.EqualValues(t, 52, line["cap"])
}

func TestNewLoggerFor_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFor("development", "error", &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}
