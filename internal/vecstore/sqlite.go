package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore implements Store on a local SQLite database. Payloads are
// stored as JSON with the filterable fields denormalized into columns.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if needed) the store at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureCollection creates the collection if absent. An existing
// collection with a different dimension or distance is an error, since
// mixed-width vectors cannot be compared.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, name string, vectorDim int, distance string) error {
	switch distance {
	case DistanceCosine, DistanceDot, DistanceEuclid:
	default:
		return storeErr("ensure_collection", fmt.Errorf("unknown distance metric %q", distance))
	}

	var dim int
	var dist string
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, distance FROM collections WHERE name = ?", name).Scan(&dim, &dist)
	if err == nil {
		if dim != vectorDim {
			return storeErr("ensure_collection",
				fmt.Errorf("collection %s has dimension %d, requested %d", name, dim, vectorDim))
		}
		if dist != distance {
			return storeErr("ensure_collection",
				fmt.Errorf("collection %s uses distance %s, requested %s", name, dist, distance))
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return storeErr("ensure_collection", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimension, distance, created_at) VALUES (?, ?, ?, ?)",
		name, vectorDim, distance, time.Now())
	if err != nil {
		return storeErr("ensure_collection", err)
	}
	return nil
}

// collectionInfo returns the dimension and distance metric of a collection
func (s *SQLiteStore) collectionInfo(ctx context.Context, name string) (int, string, error) {
	var dim int
	var dist string
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, distance FROM collections WHERE name = ?", name).Scan(&dim, &dist)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", fmt.Errorf("collection %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, "", err
	}
	return dim, dist, nil
}

// Upsert writes points inside one transaction, replacing any with the
// same ID. Every vector must match the collection's dimension.
func (s *SQLiteStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	dim, _, err := s.collectionInfo(ctx, name)
	if err != nil {
		return storeErr("upsert", err)
	}
	for _, p := range points {
		if len(p.Vector) != dim {
			return storeErr("upsert",
				fmt.Errorf("%w: point %s has %d values, collection %s expects %d",
					ErrDimensionMismatch, p.ID, len(p.Vector), name, dim))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO points (
			collection, id, vector, payload,
			type, chunk_type, file_path, entity_name, entity_type, relation_type,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			vector = excluded.vector,
			payload = excluded.payload,
			type = excluded.type,
			chunk_type = excluded.chunk_type,
			file_path = excluded.file_path,
			entity_name = excluded.entity_name,
			entity_type = excluded.entity_type,
			relation_type = excluded.relation_type,
			updated_at = excluded.updated_at
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return storeErr("upsert", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return storeErr("upsert", fmt.Errorf("failed to encode payload for %s: %w", p.ID, err))
		}
		_, err = stmt.ExecContext(ctx,
			name, p.ID, serializeVector(p.Vector), string(payload),
			p.Payload.Type, p.Payload.ChunkType, p.Payload.FilePath,
			p.Payload.EntityName, p.Payload.EntityType, p.Payload.RelationType,
			now, now)
		if err != nil {
			return storeErr("upsert", fmt.Errorf("failed to write point %s: %w", p.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr("upsert", err)
	}
	return nil
}

// Delete removes points by ID. Missing IDs are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, name)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := `DELETE FROM points WHERE collection = ? AND id IN (` + strings.Join(placeholders, ",") + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

// DeleteByFilter removes every point the filter matches
func (s *SQLiteStore) DeleteByFilter(ctx context.Context, name string, filter Filter) error {
	query := `DELETE FROM points WHERE collection = ?`
	args := []interface{}{name}
	query, args = applyFilter(query, args, filter)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("delete_by_filter", err)
	}
	return nil
}

// Scroll enumerates matching points ordered by ID. The cursor is the
// last ID of the previous page; an empty cursor starts from the top.
func (s *SQLiteStore) Scroll(ctx context.Context, name string, filter Filter, withPayload, withVector bool, cursor string, limit int) (*ScrollPage, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, vector, payload FROM points WHERE collection = ?`
	args := []interface{}{name}
	query, args = applyFilter(query, args, filter)
	if cursor != "" {
		query += " AND id > ?"
		args = append(args, cursor)
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("scroll", err)
	}
	defer func() { _ = rows.Close() }()

	page := &ScrollPage{Points: make([]Point, 0, limit)}
	for rows.Next() {
		var id string
		var vectorBlob []byte
		var payloadJSON string
		if err := rows.Scan(&id, &vectorBlob, &payloadJSON); err != nil {
			return nil, storeErr("scroll", err)
		}

		p := Point{ID: id}
		if withVector {
			p.Vector = deserializeVector(vectorBlob)
		}
		if withPayload {
			if err := json.Unmarshal([]byte(payloadJSON), &p.Payload); err != nil {
				return nil, storeErr("scroll", fmt.Errorf("failed to decode payload for %s: %w", id, err))
			}
		}
		page.Points = append(page.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("scroll", err)
	}

	if len(page.Points) == limit {
		page.NextCursor = page.Points[len(page.Points)-1].ID
	}
	return page, nil
}

// Count returns the number of matching points
func (s *SQLiteStore) Count(ctx context.Context, name string, filter Filter) (int, error) {
	query := `SELECT COUNT(*) FROM points WHERE collection = ?`
	args := []interface{}{name}
	query, args = applyFilter(query, args, filter)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// Search returns the closest points to the query vector, best first
func (s *SQLiteStore) Search(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]ScoredPoint, error) {
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}

	dim, distance, err := s.collectionInfo(ctx, name)
	if err != nil {
		return nil, storeErr("search", err)
	}
	if len(vector) != dim {
		return nil, storeErr("search",
			fmt.Errorf("%w: query has %d values, collection %s expects %d",
				ErrDimensionMismatch, len(vector), name, dim))
	}

	// sqlite-vec computes cosine distance at the database layer; other
	// metrics and purego builds score candidates in Go
	if VectorExtensionAvailable && distance == DistanceCosine {
		return s.searchOptimized(ctx, name, vector, limit, filter)
	}
	return s.searchFallback(ctx, name, vector, distance, limit, filter)
}

// searchOptimized ranks with vec_distance_cosine so SQL handles sorting
// and limiting. Distance is converted to similarity (1 - distance).
func (s *SQLiteStore) searchOptimized(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]ScoredPoint, error) {
	query := `
		SELECT id, vector, payload, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM points
		WHERE collection = ?
	`
	args := []interface{}{serializeVector(vector), name}
	query, args = applyFilter(query, args, filter)
	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("search", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ScoredPoint, 0, limit)
	for rows.Next() {
		var sp ScoredPoint
		var vectorBlob []byte
		var payloadJSON string
		if err := rows.Scan(&sp.ID, &vectorBlob, &payloadJSON, &sp.Score); err != nil {
			return nil, storeErr("search", err)
		}
		sp.Vector = deserializeVector(vectorBlob)
		if err := json.Unmarshal([]byte(payloadJSON), &sp.Payload); err != nil {
			return nil, storeErr("search", fmt.Errorf("failed to decode payload for %s: %w", sp.ID, err))
		}
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search", err)
	}
	return results, nil
}

// searchFallback loads matching candidates and scores them in Go
func (s *SQLiteStore) searchFallback(ctx context.Context, name string, vector []float32, distance string, limit int, filter Filter) ([]ScoredPoint, error) {
	query := `SELECT id, vector, payload FROM points WHERE collection = ?`
	args := []interface{}{name}
	query, args = applyFilter(query, args, filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("search", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]ScoredPoint, 0, 1000)
	for rows.Next() {
		var sp ScoredPoint
		var vectorBlob []byte
		var payloadJSON string
		if err := rows.Scan(&sp.ID, &vectorBlob, &payloadJSON); err != nil {
			return nil, storeErr("search", err)
		}
		sp.Vector = deserializeVector(vectorBlob)
		if len(sp.Vector) != len(vector) {
			continue
		}
		if err := json.Unmarshal([]byte(payloadJSON), &sp.Payload); err != nil {
			return nil, storeErr("search", fmt.Errorf("failed to decode payload for %s: %w", sp.ID, err))
		}
		sp.Score = scoreVectors(distance, vector, sp.Vector)
		candidates = append(candidates, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search", err)
	}

	sortScored(candidates)
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// applyFilter appends WHERE clauses for the set fields of a filter.
// The file_path column stores the payload value verbatim, so manual
// records are the rows where it is the empty string.
func applyFilter(query string, args []interface{}, f Filter) (string, []interface{}) {
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.FilePath != "" {
		query += " AND file_path = ?"
		args = append(args, f.FilePath)
	}
	if f.ChunkType != "" {
		query += " AND chunk_type = ?"
		args = append(args, f.ChunkType)
	}
	if f.EntityName != "" {
		query += " AND entity_name = ?"
		args = append(args, f.EntityName)
	}
	if f.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, f.EntityType)
	}
	if f.RelationType != "" {
		query += " AND relation_type = ?"
		args = append(args, f.RelationType)
	}
	if f.HasFilePath != nil {
		if *f.HasFilePath {
			query += " AND file_path != ''"
		} else {
			query += " AND file_path = ''"
		}
	}
	return query, args
}
