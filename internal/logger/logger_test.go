package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
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
		{
			name:  "Should parse lowercase level",
			input: "debug",
			want:  slog.LevelDebug,
		},
		{
			name:  "Should parse uppercase level",
			input: "WARN",
			want:  slog.LevelWarn,
		},
		{
			name:  "Should fallback to Info on unknown level",
			input: "super-critical",
			want:  slog.LevelInfo,
		},
		{
			name:  "Should fallback to Info on empty level",
			input: "",
			want:  slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "json", &buf)

	log.Info("hello", slog.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "verdandi", entry["component"])
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "text", &buf)

	log.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "level=INFO"))
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", "json", &buf)

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}
