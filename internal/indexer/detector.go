package indexer

import (
	"os"
	"sort"

	"github.com/dshills/memindex/internal/state"
	"github.com/dshills/memindex/pkg/types"
)

// FileClass is the change detector's verdict for one file
type FileClass string

const (
	FileUnchanged FileClass = "unchanged"
	FileModified  FileClass = "modified"
	FileCreated   FileClass = "created"
	FileDeleted   FileClass = "deleted"
)

// FileChange pairs a path with its classification
type FileChange struct {
	Path  string
	Class FileClass
}

// DetectChanges compares the current file set against the snapshot and
// classifies every path. mtime and size matching the snapshot means
// unchanged; equal mtime with differing size still counts as modified.
// force reclassifies every present file as modified so it is reprocessed.
func DetectChanges(current []string, snap *state.Snapshot, force bool) []FileChange {
	seen := make(map[string]bool, len(current))
	changes := make([]FileChange, 0, len(current))

	for _, path := range current {
		seen[path] = true
		rec, known := snap.Files[path]
		if !known {
			changes = append(changes, FileChange{Path: path, Class: FileCreated})
			continue
		}
		if force {
			changes = append(changes, FileChange{Path: path, Class: FileModified})
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			// unreadable now; let the pipeline surface the error
			changes = append(changes, FileChange{Path: path, Class: FileModified})
			continue
		}
		if info.ModTime().UnixNano() == rec.MTimeNS && info.Size() == rec.Size {
			changes = append(changes, FileChange{Path: path, Class: FileUnchanged})
		} else {
			changes = append(changes, FileChange{Path: path, Class: FileModified})
		}
	}

	deleted := make([]string, 0)
	for path := range snap.Files {
		if !seen[path] {
			deleted = append(deleted, path)
		}
	}
	sort.Strings(deleted)
	for _, path := range deleted {
		changes = append(changes, FileChange{Path: path, Class: FileDeleted})
	}

	return changes
}

// ChunkDiff splits a file's freshly produced chunks against its snapshot
// record. Changed holds chunks whose hash is new or differs (these need
// embedding and upserting), Unchanged the rest, RemovedIDs the point IDs
// present last run but not emitted now.
type ChunkDiff struct {
	Changed    []types.Chunk
	Unchanged  []types.Chunk
	RemovedIDs []string
}

// DiffChunks computes the per-chunk classification for one file. A nil
// record (created file) marks every chunk as changed.
func DiffChunks(chunks []types.Chunk, rec *state.FileRecord) ChunkDiff {
	var diff ChunkDiff

	prior := make(map[string]string)
	if rec != nil {
		for _, c := range rec.Chunks {
			prior[c.ChunkID] = c.ContentHash
		}
	}

	emitted := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		emitted[c.ID] = true
		if hash, ok := prior[c.ID]; ok && hash == c.ContentHash {
			diff.Unchanged = append(diff.Unchanged, c)
		} else {
			diff.Changed = append(diff.Changed, c)
		}
	}

	removed := make([]string, 0)
	for id := range prior {
		if !emitted[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	diff.RemovedIDs = removed

	return diff
}
