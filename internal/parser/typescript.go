package parser

import (
	tsx "github.com/smacker/go-tree-sitter/typescript/tsx"
	typescript "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/memindex/pkg/types"
)

// TypeScriptParser parses TypeScript sources including interfaces, type
// aliases, and enums in addition to the JavaScript forms.
type TypeScriptParser struct{}

// NewTypeScriptParser creates a TypeScript parser
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{}
}

// Language returns the language identifier
func (p *TypeScriptParser) Language() string { return "typescript" }

// Extensions returns the file extensions this parser handles
func (p *TypeScriptParser) Extensions() []string { return []string{".ts", ".tsx"} }

// SupportsStreaming reports that TypeScript files are parsed whole
func (p *TypeScriptParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that code entities carry implementation chunks
func (p *TypeScriptParser) EmitsImplementation() bool { return true }

// Parse extracts entities and relations from TypeScript source
func (p *TypeScriptParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	lang := typescript.GetLanguage()
	if hasTSXExt(filePath) {
		lang = tsx.GetLanguage()
	}
	tree, err := parseTree(lang, content, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	em := newEmitter(filePath)
	w := &scriptWalker{em: em, content: content, fileName: em.emitFileEntity("", lineCount(content))}
	w.walkProgram(tree.RootNode())
	return em.result, nil
}

func hasTSXExt(filePath string) bool {
	n := len(filePath)
	return n >= 4 && filePath[n-4:] == ".tsx"
}
