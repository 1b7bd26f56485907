// Package types provides shared type definitions for the memindex pipeline.
//
// This package defines the domain model used across the indexing core:
// entities, relations, chunks, content hashing, per-file outcomes, and the
// error kinds surfaced to callers.
//
// # Core Types
//
// Entity represents a named node in the code graph, extracted from a source
// file and qualified by its scope path:
//
//	entity := &types.Entity{
//	    Name:     "pkg/auth.py::Validator::check",
//	    Type:     types.EntityMethod,
//	    FilePath: "/repo/pkg/auth.py",
//	}
//
// Relation represents a typed directed edge between two entity names. Only
// names connect records; there are no pointer cycles:
//
//	rel := &types.Relation{
//	    From: "pkg/auth.py::Validator.check",
//	    To:   "hashlib.sha256",
//	    Type: types.RelationCalls,
//	}
//
// Chunk is the unit embedded into the vector store. Every entity gets a
// compact metadata chunk; entities with bodies additionally get a verbatim
// implementation chunk. Search layers fetch metadata first and use
// HasImplementation to decide whether a deep fetch is warranted.
//
// # Content Hashing
//
// HashContent computes a deterministic SHA-256 over normalized content
// (LF line endings, trailing whitespace trimmed). The hash is the sole
// change-detection key across indexing runs:
//
//	hash := types.HashContent(chunk.Content)
//
// # Validation
//
// All domain types implement validation methods to ensure data integrity:
//
//	if err := entity.Validate(); err != nil {
//	    return err
//	}
package types
