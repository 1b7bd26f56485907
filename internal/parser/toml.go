package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/dshills/memindex/pkg/types"
)

// TOMLParser parses TOML documents into table and key entities
type TOMLParser struct{}

// NewTOMLParser creates a TOML parser
func NewTOMLParser() *TOMLParser {
	return &TOMLParser{}
}

// Language returns the language identifier
func (p *TOMLParser) Language() string { return "toml" }

// Extensions returns the file extensions this parser handles
func (p *TOMLParser) Extensions() []string { return []string{".toml"} }

// SupportsStreaming reports that documents are parsed whole
func (p *TOMLParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that no verbatim bodies are produced for keys
func (p *TOMLParser) EmitsImplementation() bool { return false }

// Parse walks document expressions in order, tracking the current table so
// keys are qualified under it.
func (p *TOMLParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	doc := unstable.Parser{}
	doc.Reset(content)

	var table []string
	for doc.NextExpression() {
		expr := doc.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = tomlKeyPath(expr)
			if len(table) == 0 {
				continue
			}
			line := tomlLine(content, expr)
			sig := "[" + strings.Join(table, ".") + "]"
			if expr.Kind == unstable.ArrayTable {
				sig = "[" + sig + "]"
			}
			name := em.addEntity(types.Entity{
				Name:      em.qualify(strings.Join(table, ".")),
				Type:      types.EntityOther,
				StartLine: line,
				EndLine:   line,
				Signature: sig,
			})
			em.addRelation(fileName, name, types.RelationContains)
		case unstable.KeyValue:
			key := tomlKeyPath(expr)
			if len(key) == 0 {
				continue
			}
			line := tomlLine(content, expr)
			segments := key
			owner := fileName
			if len(table) > 0 {
				segments = append([]string{strings.Join(table, ".")}, key...)
				owner = em.qualify(strings.Join(table, "."))
			}
			name := em.addEntity(types.Entity{
				Name:      em.qualify(segments...),
				Type:      types.EntityVariable,
				StartLine: line,
				EndLine:   line,
				Signature: strings.Join(key, ".") + " = " + tomlValueKind(expr.Value()),
			})
			em.addRelation(owner, name, types.RelationContains)
		}
	}
	if err := doc.Error(); err != nil {
		return nil, &types.ParseError{File: filePath, Message: fmt.Sprintf("invalid toml: %v", err)}
	}
	return em.result, nil
}

// tomlKeyPath collects the dotted key segments of a table or key-value
func tomlKeyPath(expr *unstable.Node) []string {
	var segments []string
	it := expr.Key()
	for it.Next() {
		segments = append(segments, string(it.Node().Data))
	}
	return segments
}

// tomlLine converts the expression's byte offset to a 1-based line number
func tomlLine(content []byte, expr *unstable.Node) int {
	offset := int(expr.Raw.Offset)
	if v := expr.Value(); v != nil && expr.Raw.Length == 0 {
		offset = int(v.Raw.Offset)
	}
	if offset > len(content) {
		offset = len(content)
	}
	return 1 + bytes.Count(content[:offset], []byte{'\n'})
}

func tomlValueKind(v *unstable.Node) string {
	if v == nil {
		return "unknown"
	}
	switch v.Kind {
	case unstable.String:
		return "string"
	case unstable.Integer:
		return "integer"
	case unstable.Float:
		return "float"
	case unstable.Bool:
		return "bool"
	case unstable.Array:
		return "array"
	case unstable.InlineTable:
		return "table"
	case unstable.DateTime, unstable.LocalDateTime, unstable.LocalDate, unstable.LocalTime:
		return "datetime"
	default:
		return "unknown"
	}
}
