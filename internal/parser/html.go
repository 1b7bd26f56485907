package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"github.com/dshills/memindex/pkg/types"
)

// HTMLParser parses markup documents. Elements carrying an id attribute
// become entities; script and stylesheet references become imports.
type HTMLParser struct{}

// NewHTMLParser creates an HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Language returns the language identifier
func (p *HTMLParser) Language() string { return "html" }

// Extensions returns the file extensions this parser handles
func (p *HTMLParser) Extensions() []string { return []string{".html", ".htm"} }

// SupportsStreaming reports that documents are parsed whole
func (p *HTMLParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that element bodies are stored verbatim
func (p *HTMLParser) EmitsImplementation() bool { return true }

// Parse extracts identified elements and resource references from markup
func (p *HTMLParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	tree, err := parseTree(html.GetLanguage(), content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	em := newEmitter(filePath)
	w := &htmlWalker{em: em, content: content}
	w.fileName = em.emitFileEntity(w.documentTitle(tree.RootNode()), lineCount(content))
	w.walk(tree.RootNode(), nil)
	return em.result, nil
}

type htmlWalker struct {
	em       *emitter
	content  []byte
	fileName string
}

// documentTitle returns the text of the first <title> element, if any
func (w *htmlWalker) documentTitle(root *sitter.Node) string {
	title := ""
	walkNodes(root, func(n *sitter.Node) bool {
		if title != "" {
			return false
		}
		if n.Type() == "element" && w.tagName(n) == "title" {
			eachNamedChild(n, func(child *sitter.Node) {
				if child.Type() == "text" {
					title = strings.TrimSpace(child.Content(w.content))
				}
			})
			return false
		}
		return true
	})
	return title
}

func (w *htmlWalker) walk(n *sitter.Node, scope []string) {
	switch n.Type() {
	case "element":
		scope = w.extractElement(n, scope)
	case "script_element":
		w.extractScript(n)
	}
	eachNamedChild(n, func(child *sitter.Node) {
		w.walk(child, scope)
	})
}

// extractElement emits an entity for elements with an id attribute and
// records resource references. Returns the scope for descendants.
func (w *htmlWalker) extractElement(n *sitter.Node, scope []string) []string {
	start := w.startTag(n)
	if start == nil {
		return scope
	}
	tagName := w.tagName(n)
	attrs := w.attributes(start)

	switch tagName {
	case "link":
		if rel, ok := attrs["rel"]; ok && rel == "stylesheet" {
			if href, ok := attrs["href"]; ok && href != "" {
				w.em.addRelation(w.fileName, href, types.RelationImports)
			}
		}
		return scope
	case "a":
		if href, ok := attrs["href"]; ok && href != "" {
			w.em.addRelation(w.fileName, href, types.RelationReferences)
		}
	case "img", "iframe", "source":
		if src, ok := attrs["src"]; ok && src != "" {
			w.em.addRelation(w.fileName, src, types.RelationReferences)
		}
	}

	id, ok := attrs["id"]
	if !ok || id == "" {
		return scope
	}
	label := tagName + "#" + id
	segments := append(append([]string{}, scope...), label)
	name := w.em.addEntity(types.Entity{
		Name:      w.em.qualify(segments...),
		Type:      types.EntityOther,
		StartLine: startLine(n),
		EndLine:   endLine(n),
		Signature: strings.TrimSpace(start.Content(w.content)),
		HasBody:   true,
		Body:      sliceLines(w.content, startLine(n), endLine(n)),
	})
	owner := w.fileName
	if len(scope) > 0 {
		owner = w.em.qualify(scope...)
	}
	w.em.addRelation(owner, name, types.RelationContains)
	return segments
}

// extractScript records external script sources as imports
func (w *htmlWalker) extractScript(n *sitter.Node) {
	start := w.startTag(n)
	if start == nil {
		return
	}
	if src, ok := w.attributes(start)["src"]; ok && src != "" {
		w.em.addRelation(w.fileName, src, types.RelationImports)
	}
}

func (w *htmlWalker) startTag(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "start_tag" || child.Type() == "self_closing_tag" {
			return child
		}
	}
	return nil
}

func (w *htmlWalker) tagName(n *sitter.Node) string {
	start := w.startTag(n)
	if start == nil {
		return ""
	}
	for i := 0; i < int(start.NamedChildCount()); i++ {
		child := start.NamedChild(i)
		if child.Type() == "tag_name" {
			return strings.ToLower(child.Content(w.content))
		}
	}
	return ""
}

// attributes collects the attribute map of a start tag
func (w *htmlWalker) attributes(start *sitter.Node) map[string]string {
	attrs := make(map[string]string)
	eachNamedChild(start, func(child *sitter.Node) {
		if child.Type() != "attribute" {
			return
		}
		key := ""
		val := ""
		eachNamedChild(child, func(part *sitter.Node) {
			switch part.Type() {
			case "attribute_name":
				key = strings.ToLower(part.Content(w.content))
			case "quoted_attribute_value":
				val = strings.Trim(part.Content(w.content), `"'`)
			case "attribute_value":
				val = part.Content(w.content)
			}
		})
		if key != "" {
			attrs[key] = val
		}
	})
	return attrs
}
