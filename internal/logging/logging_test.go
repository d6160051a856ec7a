package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Options{Outputs: []string{path}})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("dataset loaded", zap.String("source", "npz"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "dataset loaded", entry["msg"])
	assert.Equal(t, "npz", entry["source"])
}

func TestNew_VerboseConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, err := New(Options{Verbose: true, Console: true, Outputs: []string{path}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger.Debug("step", zap.Int("n", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DEBUG")
	assert.Contains(t, string(data), `{"n": 3}`)
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(Options{Outputs: []string{filepath.Join(t.TempDir(), "missing", "dir", "log")}})
	require.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
