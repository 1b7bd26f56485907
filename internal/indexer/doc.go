// Package indexer coordinates the incremental indexing pipeline.
//
// A run discovers parseable files under the project root, classifies each
// against the previous snapshot (created, modified, deleted, unchanged),
// and processes only what changed. Per file the pipeline parses, enriches
// with observations, chunks, diffs chunk hashes against the snapshot,
// embeds the changed chunks, and applies the store mutations in an order
// that keeps the collection consistent if the run dies midway.
//
// # Basic Usage
//
//	idx := indexer.New(store, coordinator, logger)
//
//	stats, err := idx.Run(ctx, indexer.Config{
//	    ProjectRoot: "/path/to/project",
//	    Collection:  "myproject",
//	})
//
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Change Detection
//
// File-level detection compares mtime and size against the snapshot; a
// matching pair means unchanged and the file is skipped without being
// read. Chunk-level detection hashes chunk content, so touching a file
// without changing an entity re-embeds nothing. Force reclassifies every
// present file as modified but the chunk hash check still suppresses
// redundant embedding. Relations are reconciled the same way against the
// snapshot's stored edge keys: only new edges are embedded and vanished
// edges deleted, so a body edit rewrites no relation points.
//
// # Failure Semantics
//
// A file that fails to parse, embed, or store is reported in the run
// statistics and its snapshot entry is left unchanged, so the next run
// retries it. A parse or embed failure leaves the file's stored points
// untouched; a store failure can leave the deletion of its stale points
// applied. The run itself aborts only when the run lock is held or when
// loading the snapshot, preparing or clearing the collection, discovering
// files, removing a deleted file's points, or saving the snapshot fails.
//
// # Manual Records
//
// Points whose payload carries no file path were added by hand, not by
// indexing. Clear mode and the orphan sweep both leave them alone;
// ModeClearAll is the only path that removes them.
package indexer
