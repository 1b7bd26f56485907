package chunker

import (
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// Chunker renders enriched entities into the chunks persisted to the
// vector store: one metadata chunk per entity, plus one implementation
// chunk per entity with a body when the source parser produces them.
type Chunker struct{}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{}
}

// ChunkFile appends chunks for every entity in the parse result.
// emitsImplementation reflects the parser's policy flag; when false no
// implementation chunks are produced regardless of entity bodies.
func (c *Chunker) ChunkFile(result *types.ParseResult, emitsImplementation bool) {
	for i := range result.Entities {
		e := &result.Entities[i]

		hasImpl := emitsImplementation && e.HasBody && e.Body != ""

		meta := types.NewChunk(e, types.ChunkMetadata, c.renderMetadata(e))
		meta.HasImplementation = hasImpl
		result.Chunks = append(result.Chunks, meta)

		if hasImpl {
			impl := types.NewChunk(e, types.ChunkImplementation, e.Body)
			impl.HasImplementation = true
			result.Chunks = append(result.Chunks, impl)
		}
	}
}

// renderMetadata builds the searchable text for an entity: signature,
// observation tags, and a compact summary line.
func (c *Chunker) renderMetadata(e *types.Entity) string {
	var sb strings.Builder

	if e.Signature != "" {
		sb.WriteString(e.Signature)
	} else {
		sb.WriteString(e.Name)
	}
	sb.WriteString("\n")

	for _, obs := range e.Observations {
		sb.WriteString(obs)
		sb.WriteString("\n")
	}

	sb.WriteString(c.summaryLine(e))
	return sb.String()
}

// summaryLine produces a one-line description of the entity
func (c *Chunker) summaryLine(e *types.Entity) string {
	var sb strings.Builder
	sb.WriteString("summary: ")
	sb.WriteString(string(e.Type))
	sb.WriteString(" ")
	sb.WriteString(displayName(e.Name))
	sb.WriteString(" in ")
	sb.WriteString(e.FilePath)
	if doc := firstLine(e.DocComment); doc != "" {
		sb.WriteString(": ")
		sb.WriteString(doc)
	}
	return sb.String()
}

// displayName strips the file path prefix from a qualified entity name
func displayName(qualified string) string {
	if idx := strings.Index(qualified, "::"); idx >= 0 {
		return qualified[idx+2:]
	}
	return qualified
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
