package parser

import (
	"fmt"
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// streamingThreshold is the input size above which streaming-capable
// parsers switch to the bounded-memory pathway.
const streamingThreshold = 1 << 20 // 1 MiB

// emitter accumulates parse output for one file and enforces the naming
// edge policies: qualified names, collision suffixes, anonymous names.
type emitter struct {
	result   *types.ParseResult
	filePath string

	// seen tracks qualified names already emitted. The first occurrence
	// keeps the bare name; later collisions get a "#<line>" suffix.
	seen map[string]bool
}

func newEmitter(filePath string) *emitter {
	return &emitter{
		result:   &types.ParseResult{FilePath: filePath},
		filePath: filePath,
		seen:     make(map[string]bool),
	}
}

// qualify joins scope segments into a qualified entity name rooted at the
// file path, e.g. "pkg/auth.py::Validator::check".
func (em *emitter) qualify(segments ...string) string {
	return em.filePath + "::" + strings.Join(segments, "::")
}

// uniqueName resolves duplicate qualified names within the same scope by
// appending the start line, only on collision.
func (em *emitter) uniqueName(name string, startLine int) string {
	if !em.seen[name] {
		em.seen[name] = true
		return name
	}
	suffixed := fmt.Sprintf("%s#%d", name, startLine)
	em.seen[suffixed] = true
	return suffixed
}

// anonName builds the synthetic name for anonymous entities such as
// lambdas and arrow functions.
func (em *emitter) anonName(startLine int) string {
	return em.uniqueName(fmt.Sprintf("anon@%s:%d", em.filePath, startLine), startLine)
}

// addEntity registers an entity, resolving name collisions, and returns
// the final name under which it was stored.
func (em *emitter) addEntity(e types.Entity) string {
	e.Name = em.uniqueName(e.Name, e.StartLine)
	e.FilePath = em.filePath
	if e.EndLine < e.StartLine {
		e.EndLine = e.StartLine
	}
	em.result.AddEntity(e)
	return e.Name
}

// addRelation registers a directed edge owned by this file
func (em *emitter) addRelation(from, to string, typ types.RelationType) {
	if from == "" || to == "" {
		return
	}
	em.result.AddRelation(from, to, typ, em.filePath)
}

// emitFileEntity emits the entity representing the file itself and returns
// its name. Every parser emits exactly one.
func (em *emitter) emitFileEntity(doc string, lineCount int) string {
	if lineCount < 1 {
		lineCount = 1
	}
	return em.addEntity(types.Entity{
		Name:       em.filePath,
		Type:       types.EntityFile,
		StartLine:  1,
		EndLine:    lineCount,
		Signature:  "file " + em.filePath,
		DocComment: doc,
	})
}

// lineCount returns the number of lines in content
func lineCount(content []byte) int {
	if len(content) == 0 {
		return 1
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}

// firstSentence extracts the first sentence of a doc string for summaries
func firstSentence(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}
	if idx := strings.IndexAny(doc, ".\n"); idx >= 0 {
		return strings.TrimSpace(doc[:idx])
	}
	return doc
}

// sliceLines returns the verbatim text of lines [start, end] (1-based,
// inclusive) from content.
func sliceLines(content []byte, start, end int) string {
	lines := strings.Split(string(content), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
