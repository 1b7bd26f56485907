package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/memindex/pkg/types"
)

// MarkdownParser parses markdown into header-delimited documentation
// entities. Each heading owns the span up to the next heading of equal or
// higher level.
type MarkdownParser struct{}

// NewMarkdownParser creates a markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Language returns the language identifier
func (p *MarkdownParser) Language() string { return "markdown" }

// Extensions returns the file extensions this parser handles
func (p *MarkdownParser) Extensions() []string { return []string{".md", ".markdown"} }

// SupportsStreaming reports that documents are parsed whole
func (p *MarkdownParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that section bodies are stored verbatim
func (p *MarkdownParser) EmitsImplementation() bool { return true }

type mdHeading struct {
	level int
	title string
	line  int
}

// Parse extracts headings as documentation entities and link targets as
// reference relations.
func (p *MarkdownParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	total := lineCount(content)

	doc := goldmark.New().Parser().Parse(text.NewReader(content))
	lines := newLineIndex(content)

	var headings []mdHeading
	var links []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, mdHeading{
				level: node.Level,
				title: headingTitle(node, content),
				line:  nodeLine(node, lines),
			})
		case *ast.Link:
			links = append(links, string(node.Destination))
		case *ast.AutoLink:
			links = append(links, string(node.URL(content)))
		}
		return ast.WalkContinue, nil
	})

	summary := ""
	if len(headings) > 0 && headings[0].line <= 3 {
		summary = headings[0].title
	}
	fileName := em.emitFileEntity(summary, total)

	// a heading's span ends where the next heading of equal or higher
	// level begins
	var scope []mdHeading
	for i, h := range headings {
		end := total
		for _, next := range headings[i+1:] {
			if next.level <= h.level {
				end = next.line - 1
				break
			}
		}
		if end < h.line {
			end = h.line
		}

		for len(scope) > 0 && scope[len(scope)-1].level >= h.level {
			scope = scope[:len(scope)-1]
		}
		segments := make([]string, 0, len(scope)+1)
		for _, s := range scope {
			segments = append(segments, s.title)
		}
		segments = append(segments, h.title)

		name := em.addEntity(types.Entity{
			Name:      em.qualify(segments...),
			Type:      types.EntityDocumentation,
			StartLine: h.line,
			EndLine:   end,
			Signature: strings.Repeat("#", h.level) + " " + h.title,
			HasBody:   true,
			Body:      sliceLines(content, h.line, end),
		})
		owner := fileName
		if len(scope) > 0 {
			owner = em.qualify(segments[:len(segments)-1]...)
		}
		em.addRelation(owner, name, types.RelationContains)
		scope = append(scope, mdHeading{level: h.level, title: h.title})
	}

	for _, link := range links {
		if link != "" {
			em.addRelation(fileName, link, types.RelationReferences)
		}
	}
	return em.result, nil
}

// headingTitle returns the raw text of a heading node
func headingTitle(n *ast.Heading, content []byte) string {
	var sb strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		sb.Write(seg.Value(content))
	}
	title := strings.TrimSpace(sb.String())
	if title == "" {
		title = "untitled"
	}
	return title
}

// nodeLine maps a block node's first segment offset to a line number
func nodeLine(n ast.Node, lines *lineIndex) int {
	if n.Lines().Len() == 0 {
		return 1
	}
	return lines.at(int64(n.Lines().At(0).Start))
}
