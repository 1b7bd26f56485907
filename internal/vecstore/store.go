package vecstore

import (
	"context"
	"errors"

	"github.com/dshills/memindex/pkg/types"
)

// Distance metrics accepted by EnsureCollection
const (
	DistanceCosine = "cosine"
	DistanceDot    = "dot"
	DistanceEuclid = "euclid"
)

var (
	// ErrNotFound is returned when a requested point doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when a vector's width differs
	// from the collection's configured dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// PointType distinguishes payload kinds within a collection
const (
	PointChunk    = "chunk"
	PointRelation = "relation"
)

// Payload is the per-point metadata persisted alongside the vector
type Payload struct {
	Type              string            `json:"type"`
	ChunkType         string            `json:"chunk_type,omitempty"`
	EntityName        string            `json:"entity_name,omitempty"`
	EntityType        string            `json:"entity_type,omitempty"`
	FilePath          string            `json:"file_path,omitempty"`
	LineStart         int               `json:"line_start,omitempty"`
	LineEnd           int               `json:"line_end,omitempty"`
	Content           string            `json:"content"`
	ContentHash       string            `json:"content_hash"`
	HasImplementation bool              `json:"has_implementation,omitempty"`
	SemanticMetadata  map[string]string `json:"semantic_metadata,omitempty"`
	RelationType      string            `json:"relation_type,omitempty"`
	FromEntity        string            `json:"from_entity,omitempty"`
	ToEntity          string            `json:"to_entity,omitempty"`
}

// IsManual reports whether the point was written outside the indexer.
// Manual records carry no file_path and are never touched by sweeps.
func (p *Payload) IsManual() bool {
	return p.FilePath == ""
}

// Point is one stored vector with its payload
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a search hit
type ScoredPoint struct {
	Point
	Score float64
}

// ScrollPage is one page of a paged enumeration. An empty NextCursor
// means the enumeration is exhausted.
type ScrollPage struct {
	Points     []Point
	NextCursor string
}

// Filter selects points by payload predicate. Zero-value fields are
// ignored; set fields are ANDed together.
type Filter struct {
	Type         string
	FilePath     string
	ChunkType    string
	EntityName   string
	EntityType   string
	RelationType string

	// HasFilePath, when non-nil, filters on presence (true) or absence
	// (false) of the file_path payload field.
	HasFilePath *bool
}

// IsZero reports whether the filter matches everything
func (f Filter) IsZero() bool {
	return f.Type == "" && f.FilePath == "" && f.ChunkType == "" &&
		f.EntityName == "" && f.EntityType == "" && f.RelationType == "" &&
		f.HasFilePath == nil
}

// Store is the vector store adapter. All points in a collection share
// one vector dimension; switching embedding providers requires a new
// collection.
type Store interface {
	// EnsureCollection creates the collection if absent; idempotent
	EnsureCollection(ctx context.Context, name string, vectorDim int, distance string) error

	// Upsert writes points, replacing any with the same ID
	Upsert(ctx context.Context, name string, points []Point) error

	// Delete removes points by ID
	Delete(ctx context.Context, name string, ids []string) error

	// DeleteByFilter removes every point the filter matches
	DeleteByFilter(ctx context.Context, name string, filter Filter) error

	// Scroll enumerates matching points in stable order, one page at a
	// time. Pass the previous page's NextCursor to continue.
	Scroll(ctx context.Context, name string, filter Filter, withPayload, withVector bool, cursor string, limit int) (*ScrollPage, error)

	// Count returns the number of matching points
	Count(ctx context.Context, name string, filter Filter) (int, error)

	// Search returns the closest points to the query vector
	Search(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]ScoredPoint, error)

	// Close releases backend resources
	Close() error
}

// storeErr wraps a backend failure with the operation that caused it
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &types.StoreError{Op: op, Err: err}
}
