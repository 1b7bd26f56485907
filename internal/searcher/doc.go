// Package searcher implements semantic search over an indexed collection.
//
// A query is embedded with the same provider that produced the stored
// vectors, then ranked against one of three point populations: entities
// (metadata chunks), relations, or all chunks including implementations.
//
// # Basic Usage
//
//	s := searcher.New(store, coordinator)
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Collection: "myproject",
//	    Query:      "user authentication logic",
//	    Limit:      10,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s (score: %.2f)\n", r.Rank, r.EntityName, r.Score)
//	}
//
// # Progressive Disclosure
//
// Entity results are compact metadata chunks. When a result carries
// HasImplementation, the full source span is one more call away:
//
//	impl, err := s.Implementation(ctx, "myproject", result.EntityName)
//
// This keeps the common search path cheap and defers the expensive
// payload to results the caller actually wants to inspect.
//
// # Caching
//
// Responses are cached in an LRU keyed by the full request (query,
// collection, type, file filter, limit) with a TTL. Entries leave the
// cache when the TTL expires or when InvalidateCache is called; indexing
// runs do not call it, so a response cached before a reindex is served
// until it expires.
package searcher
