package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// Parser is the uniform extraction contract every language parser exposes.
// Parse receives the raw file bytes and the file path and returns the flat
// entity/relation graph for that file.
type Parser interface {
	// Parse extracts entities and relations from a single file
	Parse(content []byte, filePath string) (*types.ParseResult, error)

	// Language returns the human-readable language name
	Language() string

	// Extensions returns the file extensions this parser claims (with dot,
	// lower case)
	Extensions() []string

	// SupportsStreaming reports whether very large inputs go through a
	// bounded-memory pathway
	SupportsStreaming() bool

	// EmitsImplementation reports whether implementation chunks are
	// produced for entities with bodies
	EmitsImplementation() bool
}

// Registry maps file extensions to parsers. Registration order defines the
// deterministic tie-break when a parser claims an extension another parser
// already registered: the first registration wins.
type Registry struct {
	byExt map[string]Parser
	order []Parser
}

// NewRegistry creates an empty parser registry
func NewRegistry() *Registry {
	return &Registry{
		byExt: make(map[string]Parser),
	}
}

// DefaultRegistry creates a registry with all built-in parsers registered
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoParser())
	r.Register(NewPythonParser())
	r.Register(NewJavaScriptParser())
	r.Register(NewTypeScriptParser())
	r.Register(NewCSSParser())
	r.Register(NewHTMLParser())
	r.Register(NewYAMLParser())
	r.Register(NewTOMLParser())
	r.Register(NewJSONParser())
	r.Register(NewMarkdownParser())
	r.Register(NewINIParser())
	r.Register(NewTextParser())
	return r
}

// Register adds a parser to the registry. Extensions already claimed by an
// earlier registration are left untouched.
func (r *Registry) Register(p Parser) {
	r.order = append(r.order, p)
	for _, ext := range p.Extensions() {
		ext = strings.ToLower(ext)
		if _, exists := r.byExt[ext]; !exists {
			r.byExt[ext] = p
		}
	}
}

// ForPath selects the parser for a file path by its case-folded extension.
// Returns types.ErrUnsupportedLanguage when no parser is registered.
func (r *Registry) ForPath(path string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, ext)
	}
	return p, nil
}

// Supports returns true if a parser is registered for the path's extension
func (r *Registry) Supports(path string) bool {
	_, err := r.ForPath(path)
	return err == nil
}

// Extensions returns all registered extensions in sorted order
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Parsers returns the registered parsers in registration order
func (r *Registry) Parsers() []Parser {
	return r.order
}
