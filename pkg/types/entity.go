package types

import "errors"

// EntityType represents the kind of node extracted from a source file
type EntityType string

const (
	EntityFile          EntityType = "file"
	EntityClass         EntityType = "class"
	EntityFunction      EntityType = "function"
	EntityMethod        EntityType = "method"
	EntityVariable      EntityType = "variable"
	EntityDocumentation EntityType = "documentation"
	EntityTextChunk     EntityType = "text_chunk"
	EntityManualNote    EntityType = "manual_note"
	EntityOther         EntityType = "other"
)

// Facts holds raw structural facts recorded by a parser for one entity.
// The observation extractor turns these into key:value observation tags.
type Facts struct {
	ParamCount   int
	ReturnKind   string // inferred return kind or "" when unknown
	Calls        []string
	Raises       []string
	Catches      []string
	Decorators   []string
	Instantiates []string
	Reads        []string // file-scope variables read by the body
	Writes       []string // file-scope variables assigned by the body
	BranchCount  int      // branches + loops + boolean operators
	IsAsync      bool
	HasAsync     bool // true when the parser could determine asyncness at all
}

// Entity represents a named, typed node in the code graph.
// Names are qualified as "<relative path>::<symbol>" with nested scopes
// joined by "::" (e.g. "pkg/auth.py::Validator::check").
type Entity struct {
	// Identification
	Name string
	Type EntityType

	// Ownership. Every non-manual entity is owned by exactly one file and
	// is removed when that file is removed.
	FilePath string

	// Location
	StartLine int
	EndLine   int

	// Content
	Signature  string // reconstructed textual form
	DocComment string
	HasBody    bool   // true when an implementation chunk will be emitted
	Body       string // verbatim source span, set only when HasBody

	// Semantic tags, key:value style, populated by the observer
	Observations []string

	// Raw facts consumed by the observer
	Facts Facts
}

// ValidateType checks if the entity type is valid
func (e *Entity) ValidateType() error {
	switch e.Type {
	case EntityFile, EntityClass, EntityFunction, EntityMethod, EntityVariable,
		EntityDocumentation, EntityTextChunk, EntityManualNote, EntityOther:
		return nil
	default:
		return errors.New("invalid entity type")
	}
}

// Validate performs comprehensive validation of the entity
func (e *Entity) Validate() error {
	if e.Name == "" {
		return errors.New("entity name is required")
	}

	if err := e.ValidateType(); err != nil {
		return err
	}

	if e.Type != EntityManualNote && e.FilePath == "" {
		return errors.New("non-manual entities must have a file path")
	}

	if e.StartLine <= 0 || e.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if e.StartLine > e.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// IsManual returns true for user-authored entities that the pipeline
// must never delete.
func (e *Entity) IsManual() bool {
	return e.Type == EntityManualNote
}
