package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSONFile(t *testing.T) {
	root := t.TempDir()

	log, closeFn, err := New(root, "proj", false)
	require.NoError(t, err)

	log.Info("run started")
	log.Debug("detail")
	closeFn()

	f, err := os.Open(filepath.Join(root, "logs", "proj.log"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "run started", lines[0]["msg"])
	assert.Equal(t, "proj", lines[0]["collection"])
	// the file sink records debug even when the console does not
	assert.Equal(t, "detail", lines[1]["msg"])
}

func TestVerboseGatesConsoleLevel(t *testing.T) {
	root := t.TempDir()

	quiet, closeQuiet, err := New(root, "a", false)
	require.NoError(t, err)
	defer closeQuiet()

	loud, closeLoud, err := New(root, "b", true)
	require.NoError(t, err)
	defer closeLoud()

	// both cores enabled for debug via the file sink, so check the tee
	// level indirectly: info is always on
	assert.True(t, quiet.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, loud.Core().Enabled(zapcore.DebugLevel))
}

func TestQuietSkipsConsole(t *testing.T) {
	root := t.TempDir()

	log, closeFn, err := Quiet(root, "proj")
	require.NoError(t, err)
	log.Info("stdio reserved")
	closeFn()

	data, err := os.ReadFile(filepath.Join(root, "logs", "proj.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "stdio reserved")
}

func TestNewAppendsAcrossRuns(t *testing.T) {
	root := t.TempDir()

	first, closeFirst, err := New(root, "proj", false)
	require.NoError(t, err)
	first.Info("one")
	closeFirst()

	second, closeSecond, err := New(root, "proj", false)
	require.NoError(t, err)
	second.Info("two")
	closeSecond()

	data, err := os.ReadFile(filepath.Join(root, "logs", "proj.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
	assert.Contains(t, string(data), "two")
}
