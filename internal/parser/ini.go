package parser

import (
	"strings"

	"github.com/dshills/memindex/pkg/types"
)

// INIParser parses line-oriented config files. Sections become entities
// and keys are qualified under their section.
type INIParser struct{}

// NewINIParser creates an INI parser
func NewINIParser() *INIParser {
	return &INIParser{}
}

// Language returns the language identifier
func (p *INIParser) Language() string { return "ini" }

// Extensions returns the file extensions this parser handles
func (p *INIParser) Extensions() []string { return []string{".ini", ".cfg", ".conf"} }

// SupportsStreaming reports that config files are parsed whole
func (p *INIParser) SupportsStreaming() bool { return false }

// EmitsImplementation reports that section bodies are stored verbatim
func (p *INIParser) EmitsImplementation() bool { return true }

// Parse scans the file line by line for [section] headers and key
// assignments. Both "=" and ":" separators are accepted.
func (p *INIParser) Parse(content []byte, filePath string) (*types.ParseResult, error) {
	em := newEmitter(filePath)
	fileName := em.emitFileEntity("", lineCount(content))

	lines := strings.Split(string(content), "\n")

	section := ""
	sectionName := ""
	sectionStart := 0
	closeSection := func(endLine int) {
		if section == "" {
			return
		}
		em.addEntity(types.Entity{
			Name:      sectionName,
			Type:      types.EntityOther,
			StartLine: sectionStart,
			EndLine:   endLine,
			Signature: "[" + section + "]",
			HasBody:   true,
			Body:      sliceLines(content, sectionStart, endLine),
		})
	}

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			closeSection(lineNo - 1)
			section = strings.TrimSpace(line[1 : len(line)-1])
			sectionStart = lineNo
			// sections register their name eagerly so keys can point at
			// them, but the entity is emitted once the span is known
			sectionName = em.qualify(section)
			em.addRelation(fileName, sectionName, types.RelationContains)
			continue
		}

		sep := strings.IndexAny(line, "=:")
		if sep <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		if key == "" {
			continue
		}
		segments := []string{key}
		owner := fileName
		if section != "" {
			segments = []string{section, key}
			owner = sectionName
		}
		name := em.addEntity(types.Entity{
			Name:      em.qualify(segments...),
			Type:      types.EntityVariable,
			StartLine: lineNo,
			EndLine:   lineNo,
			Signature: line,
		})
		em.addRelation(owner, name, types.RelationContains)
	}
	closeSection(lineCount(content))

	return em.result, nil
}
