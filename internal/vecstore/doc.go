// Package vecstore persists embedded chunks and relations as points in
// a vector collection and answers similarity queries over them.
//
// Two backends satisfy the Store interface. The embedded SQLite backend
// keeps everything in a single WAL-mode database file under the
// project's .indexer directory, with payloads stored as JSON and the
// filterable fields denormalized into indexed columns. Builds tagged
// sqlite_vec rank with the sqlite-vec extension in SQL; purego builds
// score candidates in Go. The Qdrant backend speaks the server's REST
// API and is selected when VECTOR_STORE_URL is set.
//
// Points carry a typed payload: chunk points describe one entity chunk
// (metadata or implementation), relation points describe one edge
// between entities. Records written outside the indexer have no
// file_path in their payload; filters can select on that absence so
// maintenance passes leave them alone.
package vecstore
