package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	snap := NewSnapshot("proj")
	snap.Files["/abs/a.py"] = &FileRecord{
		Path:    "/abs/a.py",
		MTimeNS: 1234,
		Size:    99,
		Chunks: []ChunkRecord{
			{ChunkID: "c1", ContentHash: "h1", ChunkType: "metadata"},
			{ChunkID: "c2", ContentHash: "h2", ChunkType: "implementation"},
		},
		Relations: []string{"r1"},
	}
	return snap
}

func TestLoadMissingYieldsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), "proj")

	snap, quarantined, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, quarantined)
	assert.Empty(t, snap.Files)
	assert.Equal(t, "proj", snap.Collection)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), "proj")
	require.NoError(t, store.Save(sampleSnapshot()))

	loaded, quarantined, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, quarantined)

	rec := loaded.Files["/abs/a.py"]
	require.NotNil(t, rec)
	assert.Equal(t, int64(1234), rec.MTimeNS)
	assert.Len(t, rec.Chunks, 2)
	assert.Equal(t, []string{"r1"}, rec.Relations)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestHashFor(t *testing.T) {
	snap := sampleSnapshot()

	hash, ok := snap.HashFor("/abs/a.py", "c2")
	assert.True(t, ok)
	assert.Equal(t, "h2", hash)

	_, ok = snap.HashFor("/abs/a.py", "missing")
	assert.False(t, ok)
	_, ok = snap.HashFor("/abs/other.py", "c1")
	assert.False(t, ok)
}

func TestCorruptSnapshotQuarantined(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".indexer"), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{truncated"), 0o644))

	snap, quarantined, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, quarantined)
	assert.Empty(t, snap.Files)

	// the corrupt file moved aside, the original path is free again
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(quarantined)
	assert.NoError(t, statErr)
}

func TestVersionMismatchQuarantined(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, "proj")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".indexer"), 0o755))
	require.NoError(t, os.WriteFile(store.Path(),
		[]byte(`{"version": 99, "collection": "proj", "files": {}}`), 0o644))

	snap, quarantined, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, quarantined)
	assert.Empty(t, snap.Files)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	store := NewStore(t.TempDir(), "proj")
	require.NoError(t, store.Save(sampleSnapshot()))

	next := NewSnapshot("proj")
	require.NoError(t, store.Save(next))

	loaded, _, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Files)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
