package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/css"

	"github.com/dshills/memindex/pkg/types"
)

// CSSParser parses stylesheets into selector-level entities
type CSSParser struct{}

// NewCSSParser creates a CSS parser
func NewCSSParser() *CSSParser {
	return &CSSParser{}
}

// Language returns the language identifier
func (p *CSSParser) Language() string { return "css" }

// Extensions returns the file extensions this parser handles
func (p *CSSParser) Extensions() []string { return []string{".css"} }

// SupportsStreaming reports that stylesheets are parsed whole
func (p *CSSParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that rule bodies are stored verbatim
func (p *CSSParser) EmitsImplementation() bool { return true }

// Parse extracts rule sets, at-rules, and imports from a stylesheet
func (p *CSSParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	tree, err := parseTree(css.GetLanguage(), content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	w := &cssWalker{em: em, content: content, fileName: fileName}
	eachNamedChild(tree.RootNode(), func(child *sitter.Node) {
		w.walkTopLevel(child, nil)
	})
	return em.result, nil
}

type cssWalker struct {
	em       *emitter
	content  []byte
	fileName string
}

func (w *cssWalker) walkTopLevel(n *sitter.Node, scope []string) {
	switch n.Type() {
	case "rule_set":
		w.extractRuleSet(n, scope)
	case "media_statement":
		w.extractAtRule(n, scope, "@media")
	case "supports_statement":
		w.extractAtRule(n, scope, "@supports")
	case "keyframes_statement":
		w.extractKeyframes(n, scope)
	case "import_statement":
		w.extractImport(n)
	case "declaration":
		w.extractCustomProperty(n, scope)
	}
}

// extractRuleSet emits one entity per rule set, named by its selector list
func (w *cssWalker) extractRuleSet(n *sitter.Node, scope []string) {
	selectors := n.NamedChild(0)
	if selectors == nil || selectors.Type() != "selectors" {
		return
	}
	selector := normalizeSelector(selectors.Content(w.content))
	if selector == "" {
		return
	}

	segments := append(append([]string{}, scope...), selector)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityOther,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: selector,
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
	})
	owner := w.fileName
	if len(scope) > 0 {
		owner = w.em.qualify(scope...)
	}
	w.em.addRelation(owner, name, types.RelationContains)

	if block := n.ChildByFieldName("block"); block != nil {
		eachNamedChild(block, func(child *sitter.Node) {
			if child.Type() == "declaration" {
				w.extractCustomProperty(child, segments)
			}
		})
	}
}

// extractAtRule emits an entity for a conditional group rule and recurses
// into its block so nested rule sets are qualified under it.
func (w *cssWalker) extractAtRule(n *sitter.Node, scope []string, kind string) {
	query := ""
	var block *sitter.Node
	eachNamedChild(n, func(child *sitter.Node) {
		if child.Type() == "block" {
			block = child
			return
		}
		if query == "" {
			query = strings.TrimSpace(child.Content(w.content))
		}
	})

	label := kind
	if query != "" {
		label = kind + " " + query
	}
	segments := append(append([]string{}, scope...), label)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityOther,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: label,
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
	})
	w.em.addRelation(w.fileName, name, types.RelationContains)

	if block != nil {
		eachNamedChild(block, func(child *sitter.Node) {
			w.walkTopLevel(child, segments)
		})
	}
}

func (w *cssWalker) extractKeyframes(n *sitter.Node, scope []string) {
	animName := ""
	eachNamedChild(n, func(child *sitter.Node) {
		if child.Type() == "keyframes_name" {
			animName = child.Content(w.content)
		}
	})
	if animName == "" {
		return
	}
	label := "@keyframes " + animName
	segments := append(append([]string{}, scope...), label)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityOther,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: label,
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
	})
	w.em.addRelation(w.fileName, name, types.RelationContains)
}

// extractImport records an @import target as an imports relation
func (w *cssWalker) extractImport(n *sitter.Node) {
	target := ""
	eachNamedChild(n, func(child *sitter.Node) {
		if target != "" {
			return
		}
		switch child.Type() {
		case "string_value":
			target = strings.Trim(child.Content(w.content), `"'`)
		case "call_expression":
			if args := child.ChildByFieldName("arguments"); args != nil {
				target = strings.Trim(args.Content(w.content), `("')`)
			}
		}
	})
	if target != "" {
		w.em.addRelation(w.fileName, target, types.RelationImports)
	}
}

// extractCustomProperty emits variable entities for --name declarations
func (w *cssWalker) extractCustomProperty(n *sitter.Node, scope []string) {
	prop := n.NamedChild(0)
	if prop == nil || prop.Type() != "property_name" {
		return
	}
	propName := prop.Content(w.content)
	if !strings.HasPrefix(propName, "--") {
		return
	}
	segments := append(append([]string{}, scope...), propName)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityVariable,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: strings.TrimSpace(n.Content(w.content)),
	})
	owner := w.fileName
	if len(scope) > 0 {
		owner = w.em.qualify(scope...)
	}
	w.em.addRelation(owner, name, types.RelationContains)
}

// normalizeSelector collapses a selector list onto one line
func normalizeSelector(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
