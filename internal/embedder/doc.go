// Package embedder turns chunk text into vectors.
//
// A Provider speaks one embedding API (OpenAI, Voyage AI, or the offline
// local provider). The Coordinator sits on top and does the work the
// pipeline cares about: packing texts into batches under the provider's
// token budget and item count, deduplicating identical content within a
// run, caching vectors by content hash, retrying transient failures with
// jittered backoff, rate limiting requests, and accounting tokens and
// USD cost against a static price table.
//
//	provider, err := embedder.NewFromEnv()
//	co := embedder.NewCoordinator(provider)
//	vectors, err := co.EmbedChunks(ctx, chunks)
//
// Provider selection from the environment:
//
//  1. MEMINDEX_EMBEDDING_PROVIDER if set (openai, voyage, local)
//  2. OPENAI_API_KEY → OpenAI
//  3. VOYAGE_API_KEY → Voyage AI
//  4. otherwise the local provider, which derives deterministic vectors
//     from content hashes so indexing works offline and in tests
//
// A text larger than the provider's per-item token limit is truncated
// and embedded alone. Token counts use an exact tokenizer when one is
// available, else the bytes/4 heuristic.
package embedder
