// Package chunker renders enriched entities into embeddable chunks.
//
// Every entity yields one metadata chunk: its signature, observation
// tags, and a one-line summary. Entities with a body additionally yield
// an implementation chunk containing the verbatim source span, provided
// the originating parser produces implementation chunks at all.
//
// Chunk identifiers and content hashes are deterministic, so re-chunking
// an unchanged file reproduces identical chunks. Incremental runs rely on
// that to skip re-embedding:
//
//	if storedHash == chunk.ContentHash {
//	    // unchanged, no embedding call needed
//	}
package chunker
