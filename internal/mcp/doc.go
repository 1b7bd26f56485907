// Package mcp exposes an indexed collection to AI assistants over the
// Model Context Protocol on stdio.
//
// Three read-only tools are registered:
//
//   - semantic_search: embed a query and return the nearest stored
//     points, optionally narrowed by result type or file path
//   - entity_graph: the relation neighborhood of one entity at
//     distance 1 or 2
//   - global_graph: paged scan over every entity and relation
//
// Indexing is deliberately absent from the tool surface. Writes go
// through the CLI where locking, progress output, and exit codes live;
// the protocol side only ever reads.
//
// # Usage
//
//	srv := mcp.NewServer(store, coordinator, "myproject")
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Tool errors carry JSON-RPC codes: -32602 for bad parameters, -32603
// for internal failures, and server-specific codes for missing entities
// and empty queries.
package mcp
