package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/memindex/pkg/types"
)

// snapshotVersion is bumped when the on-disk schema changes
const snapshotVersion = 1

// stateDir is the hidden directory under the project root that holds
// per-collection snapshots and lock files.
const stateDir = ".indexer"

// ChunkRecord is the persisted identity of one chunk produced by a file
type ChunkRecord struct {
	ChunkID     string `json:"chunk_id"`
	ContentHash string `json:"content_hash"`
	ChunkType   string `json:"chunk_type"`
}

// FileRecord captures everything the change detector needs to classify a
// file on the next run.
type FileRecord struct {
	Path      string        `json:"path"`
	MTimeNS   int64         `json:"mtime_ns"`
	Size      int64         `json:"size"`
	Chunks    []ChunkRecord `json:"chunks"`
	Relations []string      `json:"relations,omitempty"`
}

// Snapshot is the consistent view of what the vector store contained at
// the end of the last successful run.
type Snapshot struct {
	Version    int                    `json:"version"`
	Collection string                 `json:"collection"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Files      map[string]*FileRecord `json:"files"`
}

// NewSnapshot creates an empty snapshot for a collection
func NewSnapshot(collection string) *Snapshot {
	return &Snapshot{
		Version:    snapshotVersion,
		Collection: collection,
		Files:      make(map[string]*FileRecord),
	}
}

// HashFor returns the stored content hash for a chunk ID, if present
func (s *Snapshot) HashFor(filePath, chunkID string) (string, bool) {
	rec, ok := s.Files[filePath]
	if !ok {
		return "", false
	}
	for _, c := range rec.Chunks {
		if c.ChunkID == chunkID {
			return c.ContentHash, true
		}
	}
	return "", false
}

// Store reads and writes the per-(project, collection) snapshot
type Store struct {
	projectRoot string
	collection  string
}

// NewStore creates a snapshot store rooted at the project directory
func NewStore(projectRoot, collection string) *Store {
	return &Store{projectRoot: projectRoot, collection: collection}
}

// Path returns the snapshot file location
func (s *Store) Path() string {
	return filepath.Join(s.projectRoot, stateDir, s.collection+".snapshot.json")
}

// Load reads the snapshot. A missing file yields an empty snapshot. A
// corrupt file is quarantined and an empty snapshot is returned along
// with the quarantine path so the caller can warn; both cases mean the
// next run indexes from scratch.
func (s *Store) Load() (snap *Snapshot, quarantined string, err error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSnapshot(s.collection), "", nil
		}
		return nil, "", fmt.Errorf("failed to read snapshot: %w", err)
	}

	loaded := &Snapshot{}
	if err := json.Unmarshal(data, loaded); err != nil || loaded.Version != snapshotVersion {
		q, qerr := s.quarantine()
		if qerr != nil {
			return nil, "", fmt.Errorf("%w: %v (quarantine failed: %v)", types.ErrSnapshotCorrupt, err, qerr)
		}
		return NewSnapshot(s.collection), q, nil
	}
	if loaded.Files == nil {
		loaded.Files = make(map[string]*FileRecord)
	}
	return loaded, "", nil
}

// Save writes the snapshot atomically: marshal to a temp file in the
// same directory, then rename over the old snapshot.
func (s *Store) Save(snap *Snapshot) error {
	snap.Version = snapshotVersion
	snap.Collection = s.collection
	snap.UpdatedAt = time.Now().UTC()

	dir := filepath.Dir(s.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, s.collection+".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// quarantine moves a corrupt snapshot aside so the next run starts clean
func (s *Store) quarantine() (string, error) {
	q := s.Path() + ".corrupt-" + time.Now().UTC().Format("20060102T150405Z")
	if err := os.Rename(s.Path(), q); err != nil {
		return "", err
	}
	return q, nil
}
