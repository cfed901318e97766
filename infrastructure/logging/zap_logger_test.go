package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestZapLogger_StructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, zapcore.DebugLevel)

	l.Info("session", "chat completed", map[string]any{"model": "llama3"})
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "chat completed", entry["message"])
	assert.Equal(t, "session", entry["module"])
	assert.Equal(t, map[string]any{"model": "llama3"}, entry["details"])
}

func TestZapLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, zapcore.WarnLevel)

	l.Debug("gateway", "dropped", nil)
	l.Info("gateway", "dropped", nil)
	l.Warn("gateway", "kept", nil)
	l.Error("gateway", "kept", map[string]any{"error": "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"error_ref":"boom"`)
}

func TestNewZapLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragconsole.log")
	l, err := NewZapLogger(Options{FilePath: path, Level: "debug"})
	require.NoError(t, err)

	l.Debug("config", "loaded", map[string]any{"api_url": "http://localhost:8000"})
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"config"`)
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLogger(Options{Level: "verbose"})
	assert.Error(t, err)
}
