package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)

	path := filepath.Join(root, ".indexer", "proj.lock")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data, "lock file records the owner pid")

	require.NoError(t, lock.Release())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSecondAcquireWhileHeld(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	_, err = AcquireRunLock(root, "proj")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcquireAfterRelease(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)
	require.NoError(t, lock.Release())

	again, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestDistinctCollectionsDoNotContend(t *testing.T) {
	root := t.TempDir()

	a, err := AcquireRunLock(root, "alpha")
	require.NoError(t, err)
	defer func() { _ = a.Release() }()

	b, err := AcquireRunLock(root, "beta")
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

func TestStaleLockIsBroken(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".indexer")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// a pid far above any kernel default pid_max cannot be alive
	path := filepath.Join(dir, "proj.lock")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	lock, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestGarbageLockIsBroken(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".indexer")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "proj.lock")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0o644))

	lock, err := AcquireRunLock(root, "proj")
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
