package parser

import (
	"github.com/dshills/memindex/pkg/types"
)

// textChunkLines is the window size, in lines, for plain text chunking
const textChunkLines = 50

// TextParser splits free text into fixed-size searchable chunks
type TextParser struct{}

// NewTextParser creates a plain text parser
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Language returns the language identifier
func (p *TextParser) Language() string { return "text" }

// Extensions returns the file extensions this parser handles
func (p *TextParser) Extensions() []string { return []string{".txt", ".text", ".log"} }

// SupportsStreaming reports that chunking is bounded by construction
func (p *TextParser) SupportsStreaming() bool { return true }

// EmitsImplementation reports that chunk bodies are stored verbatim
func (p *TextParser) EmitsImplementation() bool { return true }

// Parse windows the file into line-aligned text chunk entities
func (p *TextParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))
	streamTextChunks(em, content, fileName, textChunkLines)
	if len(content) > streamingThreshold {
		em.result.Streamed = true
	}
	return em.result, nil
}
