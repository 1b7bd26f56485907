package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/memindex/pkg/types"
)

// jsonChunkLines is the window size, in lines, used by the streaming
// pathway for oversized documents.
const jsonChunkLines = 400

// JSONParser parses JSON documents into top-level key entities. Documents
// larger than the streaming threshold are windowed into text chunks
// instead of being decoded.
type JSONParser struct{}

// NewJSONParser creates a JSON parser
func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

// Language returns the language identifier
func (p *JSONParser) Language() string { return "json" }

// Extensions returns the file extensions this parser handles
func (p *JSONParser) Extensions() []string { return []string{".json"} }

// SupportsStreaming reports that oversized documents use bounded memory
func (p *JSONParser) SupportsStreaming() bool { return true }

// EmitsImplementation reports that no verbatim bodies are produced for keys
func (p *JSONParser) EmitsImplementation() bool { return false }

// Parse decodes the document token by token, emitting an entity per
// top-level object key with the line derived from the token offset.
func (p *JSONParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	if len(content) > streamingThreshold {
		streamTextChunks(em, content, fileName, jsonChunkLines)
		em.result.Streamed = true
		return em.result, nil
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	lines := newLineIndex(content)

	tok, err := dec.Token()
	if err != nil {
		return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("invalid json: %v", err)}
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		// arrays and bare scalars carry no addressable keys
		return em.result, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("invalid json: %v", err)}
		}
		key, _ := keyTok.(string)
		start := lines.at(dec.InputOffset())

		kind, err := skipJSONValue(dec)
		if err != nil {
			return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("invalid json: %v", err)}
		}
		end := lines.at(dec.InputOffset())

		if key == "" {
			continue
		}
		name := em.addEntity(types.Entity{
			Name:      em.qualify(key),
			Type:      types.EntityVariable,
			StartLine: start,
			EndLine:   end,
			Signature: fmt.Sprintf("%q: %s", key, kind),
		})
		em.addRelation(fileName, name, types.RelationContains)
	}
	return em.result, nil
}

// skipJSONValue consumes one value from the decoder and reports its kind
func skipJSONValue(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	switch v := tok.(type) {
	case json.Delim:
		depth := 1
		for depth > 0 {
			inner, err := dec.Token()
			if err != nil {
				return "", err
			}
			if d, ok := inner.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
		if v == '{' {
			return "object", nil
		}
		return "array", nil
	case string:
		return "string", nil
	case float64:
		return "number", nil
	case bool:
		return "bool", nil
	default:
		return "null", nil
	}
}

// streamTextChunks windows content into line-aligned text chunk entities
func streamTextChunks(em *emitter, content []byte, fileName string, window int) {
	total := lineCount(content)
	idx := 0
	for start := 1; start <= total; start += window {
		end := start + window - 1
		if end > total {
			end = total
		}
		body := sliceLines(content, start, end)
		if len(bytes.TrimSpace([]byte(body))) == 0 {
			continue
		}
		idx++
		name := em.addEntity(types.Entity{
			Name:      em.qualify(fmt.Sprintf("chunk_%d", idx)),
			Type:      types.EntityTextChunk,
			StartLine: start,
			EndLine:   end,
			Signature: fmt.Sprintf("lines %d-%d", start, end),
			HasBody:   true,
			Body:      body,
		})
		em.addRelation(fileName, name, types.RelationContains)
	}
}

// lineIndex maps byte offsets to 1-based line numbers
type lineIndex struct {
	newlines []int
}

func newLineIndex(content []byte) *lineIndex {
	var nl []int
	for i, b := range content {
		if b == '\n' {
			nl = append(nl, i)
		}
	}
	return &lineIndex{newlines: nl}
}

func (li *lineIndex) at(offset int64) int {
	return 1 + sort.SearchInts(li.newlines, int(offset))
}
