package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/memindex/pkg/types"
)

// yamlMaxDepth bounds how deep into the key tree entities are emitted.
// Deeper values are still captured inside their ancestor's body span.
const yamlMaxDepth = 2

// YAMLParser parses YAML documents into key-path entities
type YAMLParser struct{}

// NewYAMLParser creates a YAML parser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// Language returns the language identifier
func (p *YAMLParser) Language() string { return "yaml" }

// Extensions returns the file extensions this parser handles
func (p *YAMLParser) Extensions() []string { return []string{".yaml", ".yml"} }

// SupportsStreaming reports that documents are parsed whole
func (p *YAMLParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that key subtrees are stored verbatim
func (p *YAMLParser) EmitsImplementation() bool { return true }

// Parse extracts top-level and nested mapping keys as entities
func (p *YAMLParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("invalid yaml: %v", err)}
	}

	w := &yamlWalker{em: em, content: content, fileName: fileName}
	for _, doc := range root.Content {
		w.walkNode(doc, nil, 0)
	}
	return em.result, nil
}

type yamlWalker struct {
	em       *emitter
	content  []byte
	fileName string
}

func (w *yamlWalker) walkNode(n *yaml.Node, scope []string, depth int) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			w.extractKey(n.Content[i], n.Content[i+1], scope, depth)
		}
	case yaml.DocumentNode:
		for _, child := range n.Content {
			w.walkNode(child, scope, depth)
		}
	}
}

// extractKey emits an entity for a mapping key and recurses into mapping
// values until the depth bound.
func (w *yamlWalker) extractKey(key, value *yaml.Node, scope []string, depth int) {
	if key.Value == "" {
		return
	}
	segments := append(append([]string{}, scope...), key.Value)
	end := yamlEndLine(value)
	if end < key.Line {
		end = key.Line
	}

	name := w.em.addEntity(types.Entity{
		Name:       w.em.qualify(segments...),
		Type:       types.EntityVariable,
		StartLine:  key.Line,
		EndLine:    end,
		Signature:  key.Value + ": " + yamlKindName(value),
		DocComment: strings.TrimSpace(strings.TrimPrefix(key.HeadComment, "#")),
		HasBody:    true,
		Body:       sliceLines(w.content, key.Line, end),
	})
	owner := w.fileName
	if len(scope) > 0 {
		owner = w.em.qualify(scope...)
	}
	w.em.addRelation(owner, name, types.RelationContains)

	if value.Kind == yaml.MappingNode && depth+1 < yamlMaxDepth {
		w.walkNode(value, segments, depth+1)
	}
}

// yamlEndLine returns the last source line covered by a node's subtree
func yamlEndLine(n *yaml.Node) int {
	end := n.Line
	for _, child := range n.Content {
		if ce := yamlEndLine(child); ce > end {
			end = ce
		}
	}
	// block scalars span additional lines not visible through Content
	if n.Kind == yaml.ScalarNode {
		end += strings.Count(n.Value, "\n")
	}
	return end
}

func yamlKindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	default:
		return "scalar"
	}
}
