package indexer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/internal/state"
	"github.com/dshills/memindex/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func recordFor(t *testing.T, path string) *state.FileRecord {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return &state.FileRecord{
		Path:    path,
		MTimeNS: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
}

func classOf(changes []FileChange, path string) FileClass {
	for _, ch := range changes {
		if ch.Path == path {
			return ch.Class
		}
	}
	return ""
}

func TestDetectChangesClassification(t *testing.T) {
	dir := t.TempDir()
	same := writeFile(t, dir, "same.py", "x = 1\n")
	edited := writeFile(t, dir, "edited.py", "y = 2\n")
	fresh := writeFile(t, dir, "fresh.py", "z = 3\n")
	gone := filepath.Join(dir, "gone.py")

	snap := state.NewSnapshot("proj")
	snap.Files[same] = recordFor(t, same)
	snap.Files[edited] = recordFor(t, edited)
	snap.Files[gone] = &state.FileRecord{Path: gone, MTimeNS: 1, Size: 1}

	// push the mtime forward so the record no longer matches
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(edited, future, future))

	changes := DetectChanges([]string{same, edited, fresh}, snap, false)

	assert.Equal(t, FileUnchanged, classOf(changes, same))
	assert.Equal(t, FileModified, classOf(changes, edited))
	assert.Equal(t, FileCreated, classOf(changes, fresh))
	assert.Equal(t, FileDeleted, classOf(changes, gone))
}

func TestDetectChangesSizeBreaksMTimeTie(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "x = 1\n")

	rec := recordFor(t, path)
	rec.Size = rec.Size + 10
	snap := state.NewSnapshot("proj")
	snap.Files[path] = rec

	changes := DetectChanges([]string{path}, snap, false)
	assert.Equal(t, FileModified, classOf(changes, path))
}

func TestDetectChangesForce(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "x = 1\n")

	snap := state.NewSnapshot("proj")
	snap.Files[path] = recordFor(t, path)

	changes := DetectChanges([]string{path}, snap, true)
	assert.Equal(t, FileModified, classOf(changes, path))
}

func TestDetectChangesDeletedSorted(t *testing.T) {
	snap := state.NewSnapshot("proj")
	snap.Files["/p/b.py"] = &state.FileRecord{Path: "/p/b.py"}
	snap.Files["/p/a.py"] = &state.FileRecord{Path: "/p/a.py"}

	changes := DetectChanges(nil, snap, false)
	require.Len(t, changes, 2)
	assert.Equal(t, "/p/a.py", changes[0].Path)
	assert.Equal(t, "/p/b.py", changes[1].Path)
	assert.Equal(t, FileDeleted, changes[0].Class)
}

func chunkWithHash(id, hash string) types.Chunk {
	return types.Chunk{ID: id, ContentHash: hash}
}

func TestDiffChunksCreatedFile(t *testing.T) {
	diff := DiffChunks([]types.Chunk{
		chunkWithHash("c1", "h1"),
		chunkWithHash("c2", "h2"),
	}, nil)

	assert.Len(t, diff.Changed, 2)
	assert.Empty(t, diff.Unchanged)
	assert.Empty(t, diff.RemovedIDs)
}

func TestDiffChunksPartialChange(t *testing.T) {
	rec := &state.FileRecord{
		Chunks: []state.ChunkRecord{
			{ChunkID: "keep", ContentHash: "h-keep"},
			{ChunkID: "edit", ContentHash: "h-old"},
			{ChunkID: "drop", ContentHash: "h-drop"},
		},
	}

	diff := DiffChunks([]types.Chunk{
		chunkWithHash("keep", "h-keep"),
		chunkWithHash("edit", "h-new"),
		chunkWithHash("new", "h-new-chunk"),
	}, rec)

	require.Len(t, diff.Unchanged, 1)
	assert.Equal(t, "keep", diff.Unchanged[0].ID)

	changed := []string{diff.Changed[0].ID, diff.Changed[1].ID}
	assert.ElementsMatch(t, []string{"edit", "new"}, changed)
	assert.Equal(t, []string{"drop"}, diff.RemovedIDs)
}

func TestDiffChunksNoChanges(t *testing.T) {
	rec := &state.FileRecord{
		Chunks: []state.ChunkRecord{{ChunkID: "c1", ContentHash: "h1"}},
	}
	diff := DiffChunks([]types.Chunk{chunkWithHash("c1", "h1")}, rec)

	assert.Empty(t, diff.Changed)
	assert.Len(t, diff.Unchanged, 1)
	assert.Empty(t, diff.RemovedIDs)
}
