package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/memindex/internal/chunker"
	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/observer"
	"github.com/dshills/memindex/internal/parser"
	"github.com/dshills/memindex/internal/state"
	"github.com/dshills/memindex/internal/vecstore"
	"github.com/dshills/memindex/pkg/types"
)

// Mode selects how much prior state a run discards
type Mode string

const (
	// ModeIncremental reuses the snapshot and touches only changed files
	ModeIncremental Mode = "incremental"
	// ModeClear erases all indexed (non-manual) points first
	ModeClear Mode = "clear"
	// ModeClearAll erases every point, manual records included
	ModeClearAll Mode = "clear-all"
)

// Config contains configuration for one pipeline run
type Config struct {
	ProjectRoot string
	Collection  string
	Include     []string // include globs, empty means everything
	Exclude     []string // exclude globs
	Mode        Mode
	Force       bool // reprocess files whose mtime and size are unchanged

	Workers     int           // concurrent file workers (default: runtime.NumCPU())
	FileTimeout time.Duration // per-file deadline (default: 60s)
}

// Statistics summarizes a completed run
type Statistics struct {
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int

	ChunksUpserted  int
	ChunksDeleted   int
	ChunksUnchanged int

	RelationsUpserted int
	OrphansRemoved    int

	Outcomes []types.FileOutcome
	Cost     embedder.CostReport
	Duration time.Duration
}

// Indexer coordinates the pipeline: discover -> detect -> parse -> enrich
// -> chunk -> diff -> embed -> store, then orphan sweep and snapshot.
type Indexer struct {
	registry *parser.Registry
	chunker  *chunker.Chunker
	embedder *embedder.Coordinator
	store    vecstore.Store
	log      *zap.Logger
}

// New creates an Indexer over a vector store and embedding coordinator
func New(store vecstore.Store, co *embedder.Coordinator, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		registry: parser.DefaultRegistry(),
		chunker:  chunker.New(),
		embedder: co,
		store:    store,
		log:      log,
	}
}

// Run executes the pipeline once. Per-file failures are counted in the
// returned statistics and do not produce an error; err is reserved for
// fatal conditions (lock held, store unreachable, snapshot unwritable).
// When only the final snapshot save fails, the statistics are returned
// together with the error.
func (idx *Indexer) Run(ctx context.Context, cfg Config) (*Statistics, error) {
	start := time.Now()
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 60 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeIncremental
	}

	lock, err := state.AcquireRunLock(cfg.ProjectRoot, cfg.Collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	snapStore := state.NewStore(cfg.ProjectRoot, cfg.Collection)
	snap, quarantined, err := snapStore.Load()
	if err != nil {
		return nil, err
	}
	if quarantined != "" {
		idx.log.Warn("snapshot was corrupt, reindexing from scratch",
			zap.String("quarantined", quarantined))
	}

	dim := idx.embedder.Provider().Dimension()
	if err := idx.store.EnsureCollection(ctx, cfg.Collection, dim, vecstore.DistanceCosine); err != nil {
		return nil, err
	}

	if cfg.Mode == ModeClear || cfg.Mode == ModeClearAll {
		if err := idx.clear(ctx, cfg.Collection, cfg.Mode == ModeClearAll); err != nil {
			return nil, err
		}
		snap = state.NewSnapshot(cfg.Collection)
	}

	files, err := DiscoverFiles(cfg.ProjectRoot, idx.registry, cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	changes := DetectChanges(files, snap, cfg.Force)

	stats := &Statistics{}
	next := state.NewSnapshot(cfg.Collection)

	var work []FileChange
	for _, ch := range changes {
		switch ch.Class {
		case FileDeleted:
			if err := idx.deleteFilePoints(ctx, cfg, ch.Path); err != nil {
				return nil, err
			}
			idx.log.Info("removed deleted file", zap.String("file", idx.relPath(cfg.ProjectRoot, ch.Path)))
		case FileUnchanged:
			stats.FilesSkipped++
			stats.ChunksUnchanged += len(snap.Files[ch.Path].Chunks)
			stats.Outcomes = append(stats.Outcomes, types.SkippedOutcome(idx.relPath(cfg.ProjectRoot, ch.Path), "unchanged"))
			next.Files[ch.Path] = snap.Files[ch.Path]
		default:
			work = append(work, ch)
		}
	}

	idx.processFiles(ctx, cfg, work, snap, next, stats)

	removed, swept, err := idx.sweepOrphans(ctx, cfg.Collection)
	if err != nil {
		idx.log.Warn("orphan sweep failed", zap.Error(err))
	}
	stats.OrphansRemoved = removed

	// swept edges leave the snapshot too, otherwise a later parse of the
	// owning file would treat them as already stored and never restore them
	for rel, keys := range swept {
		rec, ok := next.Files[filepath.Join(cfg.ProjectRoot, filepath.FromSlash(rel))]
		if !ok {
			continue
		}
		drop := make(map[string]bool, len(keys))
		for _, key := range keys {
			drop[key] = true
		}
		kept := make([]string, 0, len(rec.Relations))
		for _, key := range rec.Relations {
			if !drop[key] {
				kept = append(kept, key)
			}
		}
		rec.Relations = kept
	}

	if err := snapStore.Save(next); err != nil {
		// store updates already landed; the next run re-detects and
		// reconciles, re-embedding is a hash-equality no-op
		idx.log.Error("failed to persist snapshot after successful run", zap.Error(err))
		return stats, err
	}

	stats.Cost = idx.embedder.Cost()
	stats.Duration = time.Since(start)
	return stats, nil
}

// clear erases indexed points. Manual records (no file_path) survive
// unless all is set.
func (idx *Indexer) clear(ctx context.Context, collection string, all bool) error {
	if all {
		return idx.store.DeleteByFilter(ctx, collection, vecstore.Filter{})
	}
	indexed := true
	return idx.store.DeleteByFilter(ctx, collection, vecstore.Filter{HasFilePath: &indexed})
}

// deleteFilePoints removes every chunk and relation point a file owns
func (idx *Indexer) deleteFilePoints(ctx context.Context, cfg Config, path string) error {
	rel := idx.relPath(cfg.ProjectRoot, path)
	for _, typ := range []string{vecstore.PointChunk, vecstore.PointRelation} {
		if err := idx.store.DeleteByFilter(ctx, cfg.Collection, vecstore.Filter{Type: typ, FilePath: rel}); err != nil {
			return err
		}
	}
	return nil
}

// processFiles runs the per-file pipeline for created and modified files
// with bounded concurrency. Individual failures are recorded and the run
// continues; only context cancellation aborts the group.
func (idx *Indexer) processFiles(ctx context.Context, cfg Config, work []FileChange,
	snap, next *state.Snapshot, stats *Statistics) {

	semaphore := make(chan struct{}, cfg.Workers)
	var mu sync.Mutex
	warnedExt := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range work {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			fctx, cancel := context.WithTimeout(gctx, cfg.FileTimeout)
			defer cancel()

			outcome, rec := idx.processFile(fctx, cfg, ch.Path, snap.Files[ch.Path], warnedExt, &mu)

			mu.Lock()
			defer mu.Unlock()
			stats.Outcomes = append(stats.Outcomes, outcome)
			switch outcome.Status {
			case types.OutcomeOK:
				stats.FilesIndexed++
				stats.ChunksUpserted += outcome.ChunksUpserted
				stats.ChunksDeleted += outcome.ChunksDeleted
				stats.ChunksUnchanged += outcome.ChunksUnchanged
				stats.RelationsUpserted += outcome.RelationsUpserted
				next.Files[ch.Path] = rec
			case types.OutcomeSkipped:
				stats.FilesSkipped++
				if prior, ok := snap.Files[ch.Path]; ok {
					next.Files[ch.Path] = prior
				}
			case types.OutcomeFailed:
				stats.FilesFailed++
				// keep the prior snapshot entry so existing points survive
				// and the next run retries the file
				if prior, ok := snap.Files[ch.Path]; ok {
					next.Files[ch.Path] = prior
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processFile runs parse -> enrich -> chunk -> diff -> embed -> store for
// one file. On any failure the snapshot entry is not advanced, so the next
// run reprocesses the file. An embedding failure leaves the store
// untouched. Store calls are made once and are not retried; stale points
// are deleted before the upsert, and those deletions stay applied when
// the upsert that follows fails.
func (idx *Indexer) processFile(ctx context.Context, cfg Config, path string,
	prior *state.FileRecord, warnedExt map[string]bool, mu *sync.Mutex) (types.FileOutcome, *state.FileRecord) {

	relPath := idx.relPath(cfg.ProjectRoot, path)

	p, err := idx.registry.ForPath(path)
	if err != nil {
		if errors.Is(err, types.ErrUnsupportedLanguage) {
			ext := filepath.Ext(path)
			mu.Lock()
			if !warnedExt[ext] {
				warnedExt[ext] = true
				idx.log.Warn("no parser for extension", zap.String("ext", ext))
			}
			mu.Unlock()
			return types.SkippedOutcome(relPath, "unsupported"), nil
		}
		return types.FailedOutcome(relPath, "UnsupportedLanguage", err.Error()), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return types.FailedOutcome(relPath, "ParseError", err.Error()), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return types.FailedOutcome(relPath, "ParseError", err.Error()), nil
	}

	result, err := p.Parse(content, relPath)
	if err != nil {
		idx.log.Warn("parse failed", zap.String("file", relPath), zap.Error(err))
		return types.FailedOutcome(relPath, "ParseError", err.Error()), nil
	}

	observer.Enrich(result)
	idx.chunker.ChunkFile(result, p.EmitsImplementation())

	diff := DiffChunks(result.Chunks, prior)

	// relations diff by key the way chunks diff by hash: an edge the
	// prior run already stored keeps its point untouched, new edges are
	// embedded, vanished edges are deleted by their derived IDs
	priorRels := make(map[string]bool)
	if prior != nil {
		for _, key := range prior.Relations {
			priorRels[key] = true
		}
	}
	newRels := make([]types.Relation, 0)
	relKeys := make([]string, 0, len(result.Relations))
	currentRels := make(map[string]bool, len(result.Relations))
	for i := range result.Relations {
		key := result.Relations[i].Key()
		if currentRels[key] {
			continue
		}
		currentRels[key] = true
		relKeys = append(relKeys, key)
		if !priorRels[key] {
			newRels = append(newRels, result.Relations[i])
		}
	}
	removedIDs := append([]string(nil), diff.RemovedIDs...)
	for key := range priorRels {
		if !currentRels[key] {
			removedIDs = append(removedIDs, types.RelationIDFromKey(key))
		}
	}
	sort.Strings(removedIDs)

	relChunks := relationChunks(newRels)

	toEmbed := make([]types.Chunk, 0, len(diff.Changed)+len(relChunks))
	toEmbed = append(toEmbed, diff.Changed...)
	toEmbed = append(toEmbed, relChunks...)

	vectors, err := idx.embedder.EmbedChunks(ctx, toEmbed)
	if err != nil {
		idx.log.Warn("embedding failed, file rolled back", zap.String("file", relPath), zap.Error(err))
		return types.FailedOutcome(relPath, "EmbeddingError", err.Error()), nil
	}

	points := make([]vecstore.Point, 0, len(toEmbed))
	for _, c := range diff.Changed {
		points = append(points, chunkPoint(c, vectors[c.ID]))
	}
	for i, c := range relChunks {
		points = append(points, relationPoint(&newRels[i], c, vectors[c.ID]))
	}

	// removals go first so a failure before the upsert leaves nothing
	// half-replaced the next run cannot fix
	if len(removedIDs) > 0 {
		if err := idx.store.Delete(ctx, cfg.Collection, removedIDs); err != nil {
			return types.FailedOutcome(relPath, "StoreError", err.Error()), nil
		}
	}
	if err := idx.store.Upsert(ctx, cfg.Collection, points); err != nil {
		return types.FailedOutcome(relPath, "StoreError", err.Error()), nil
	}

	rec := &state.FileRecord{
		Path:    path,
		MTimeNS: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
	for _, c := range result.Chunks {
		rec.Chunks = append(rec.Chunks, state.ChunkRecord{
			ChunkID:     c.ID,
			ContentHash: c.ContentHash,
			ChunkType:   string(c.Kind),
		})
	}
	rec.Relations = relKeys

	idx.log.Debug("file indexed",
		zap.String("file", relPath),
		zap.Int("upserted", len(points)),
		zap.Int("deleted", len(removedIDs)),
		zap.Int("unchanged", len(diff.Unchanged)),
		zap.Int("relationsKept", len(relKeys)-len(newRels)))

	outcome := types.OkOutcome(relPath, len(points), len(removedIDs), len(diff.Unchanged))
	outcome.RelationsUpserted = len(newRels)
	return outcome, rec
}

// sweepOrphans removes relations whose endpoints no longer resolve to a
// stored entity in the collection. Manual relations are left alone, and
// so are endpoints that were never qualified entity names (imports and
// unresolved callees reference things outside the index). The returned
// map lists the swept relation keys per owning file path.
func (idx *Indexer) sweepOrphans(ctx context.Context, collection string) (int, map[string][]string, error) {
	entities := make(map[string]bool)
	cursor := ""
	for {
		page, err := idx.store.Scroll(ctx, collection,
			vecstore.Filter{Type: vecstore.PointChunk, ChunkType: string(types.ChunkMetadata)},
			true, false, cursor, 500)
		if err != nil {
			return 0, nil, err
		}
		for _, p := range page.Points {
			entities[p.Payload.EntityName] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	var orphans []string
	swept := make(map[string][]string)
	cursor = ""
	for {
		page, err := idx.store.Scroll(ctx, collection,
			vecstore.Filter{Type: vecstore.PointRelation}, true, false, cursor, 500)
		if err != nil {
			return 0, nil, err
		}
		for _, p := range page.Points {
			if p.Payload.IsManual() {
				continue
			}
			if dangling(p.Payload.FromEntity, entities) || dangling(p.Payload.ToEntity, entities) {
				orphans = append(orphans, p.ID)
				r := types.Relation{
					From:     p.Payload.FromEntity,
					To:       p.Payload.ToEntity,
					Type:     types.RelationType(p.Payload.RelationType),
					FilePath: p.Payload.FilePath,
				}
				swept[p.Payload.FilePath] = append(swept[p.Payload.FilePath], r.Key())
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(orphans) == 0 {
		return 0, nil, nil
	}
	if err := idx.store.Delete(ctx, collection, orphans); err != nil {
		return 0, nil, err
	}
	idx.log.Info("orphaned relations removed", zap.Int("count", len(orphans)))
	return len(orphans), swept, nil
}

// dangling reports whether an endpoint names an indexed entity that no
// longer exists. Names without a "::" qualifier (bare module or callee
// names) are treated as always valid.
func dangling(endpoint string, entities map[string]bool) bool {
	if !strings.Contains(endpoint, "::") {
		return false
	}
	return !entities[endpoint]
}

// relPath converts an absolute file path to the project-relative form
// stored in payloads.
func (idx *Indexer) relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// relationChunks renders relations into embeddable pseudo-chunks. The
// text is the natural-language form of the edge; IDs and hashes are
// derived the same way as entity chunks so dedup and caching apply.
func relationChunks(relations []types.Relation) []types.Chunk {
	chunks := make([]types.Chunk, 0, len(relations))
	for i := range relations {
		r := &relations[i]
		text := fmt.Sprintf("%s %s %s", r.From, r.Type, r.To)
		chunks = append(chunks, types.Chunk{
			ID:          types.RelationID(r),
			Content:     text,
			ContentHash: types.HashContent(text),
			FilePath:    r.FilePath,
		})
	}
	return chunks
}

// chunkPoint converts a chunk and its vector into a store point
func chunkPoint(c types.Chunk, vector []float32) vecstore.Point {
	return vecstore.Point{
		ID:     c.ID,
		Vector: vector,
		Payload: vecstore.Payload{
			Type:              vecstore.PointChunk,
			ChunkType:         string(c.Kind),
			EntityName:        c.EntityName,
			EntityType:        string(c.EntityType),
			FilePath:          c.FilePath,
			LineStart:         c.StartLine,
			LineEnd:           c.EndLine,
			Content:           c.Content,
			ContentHash:       c.ContentHash,
			HasImplementation: c.HasImplementation,
			SemanticMetadata:  c.SemanticMetadata,
		},
	}
}

// relationPoint converts a relation and its rendered chunk into a point
func relationPoint(r *types.Relation, c types.Chunk, vector []float32) vecstore.Point {
	return vecstore.Point{
		ID:     c.ID,
		Vector: vector,
		Payload: vecstore.Payload{
			Type:         vecstore.PointRelation,
			Content:      c.Content,
			ContentHash:  c.ContentHash,
			FilePath:     r.FilePath,
			RelationType: string(r.Type),
			FromEntity:   r.From,
			ToEntity:     r.To,
		},
	}
}
