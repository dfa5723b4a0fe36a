package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestMultiHandlerLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	var console bytes.Buffer
	handler, file, err := setupHandler(path, slog.LevelDebug, &console)
	require.NoError(t, err)
	defer file.Close()

	logger := slog.New(handler).With("session", "s1")
	logger.Debug("debug only in file")
	logger.Info("everywhere")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug only in file")
	assert.Contains(t, string(data), "everywhere")
	assert.Contains(t, string(data), "session=s1")

	assert.NotContains(t, console.String(), "debug only in file")
	assert.Contains(t, console.String(), "everywhere")
}

func TestRotatePaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	rotatePaths(path)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(old), "previous run"))
}

func TestInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "smartjogger.log")
	cleanup, err := Init("INFO", path)
	require.NoError(t, err)
	slog.Info("hello from init")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from init")
}
