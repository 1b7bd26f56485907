package types

import (
	"errors"

	"github.com/google/uuid"
)

// ChunkKind distinguishes the two progressive-disclosure representations
// of an entity: compact metadata for fast search, verbatim implementation
// for on-demand deep fetches.
type ChunkKind string

const (
	ChunkMetadata       ChunkKind = "metadata"
	ChunkImplementation ChunkKind = "implementation"
)

// chunkNamespace seeds deterministic chunk IDs. Fixed forever: changing it
// would orphan every previously stored point.
var chunkNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// ChunkID derives the stable point ID for (entityName, kind). The same
// entity always maps to the same ID so re-indexing overwrites in place.
func ChunkID(entityName string, kind ChunkKind) string {
	return uuid.NewSHA1(chunkNamespace, []byte(entityName+"|"+string(kind))).String()
}

// RelationID derives the stable point ID for a relation from its
// uniqueness key (from, to, type, file_path).
func RelationID(r *Relation) string {
	return RelationIDFromKey(r.Key())
}

// RelationIDFromKey derives the point ID from a stored relation key, so
// vanished relations can be deleted without reconstructing the Relation.
func RelationIDFromKey(key string) string {
	return uuid.NewSHA1(chunkNamespace, []byte("relation|"+key)).String()
}

// Chunk is the unit actually embedded and stored in the vector store
type Chunk struct {
	// Identification
	ID   string // derived from (EntityName, Kind), see ChunkID
	Kind ChunkKind

	// Content
	Content     string
	ContentHash string // lower-case hex SHA-256 of normalized content

	// Entity linkage
	EntityName string
	EntityType EntityType
	FilePath   string
	StartLine  int
	EndLine    int

	// HasImplementation is set on metadata chunks when an implementation
	// chunk is also emitted for the same entity, so search layers can
	// decide whether a deep fetch is warranted.
	HasImplementation bool

	// SemanticMetadata carries extra context for implementation chunks
	SemanticMetadata map[string]string
}

// NewChunk builds a chunk for an entity with its ID and hash computed
func NewChunk(e *Entity, kind ChunkKind, content string) Chunk {
	return Chunk{
		ID:          ChunkID(e.Name, kind),
		Kind:        kind,
		Content:     content,
		ContentHash: HashContent(content),
		EntityName:  e.Name,
		EntityType:  e.Type,
		FilePath:    e.FilePath,
		StartLine:   e.StartLine,
		EndLine:     e.EndLine,
	}
}

// ValidateKind checks if the chunk kind is valid
func (c *Chunk) ValidateKind() error {
	switch c.Kind {
	case ChunkMetadata, ChunkImplementation:
		return nil
	default:
		return errors.New("invalid chunk kind")
	}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if err := c.ValidateKind(); err != nil {
		return err
	}

	if c.EntityName == "" {
		return errors.New("entity name is required")
	}

	if c.ContentHash == "" {
		return errors.New("content hash must be computed")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}
