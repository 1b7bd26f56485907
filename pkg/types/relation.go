package types

import (
	"errors"
	"fmt"
)

// RelationType represents the kind of directed edge between two entities
type RelationType string

const (
	RelationImports      RelationType = "imports"
	RelationInherits     RelationType = "inherits"
	RelationCalls        RelationType = "calls"
	RelationInstantiates RelationType = "instantiates"
	RelationRaises       RelationType = "raises"
	RelationCatches      RelationType = "catches"
	RelationDecorates    RelationType = "decorates"
	RelationReads        RelationType = "reads"
	RelationWrites       RelationType = "writes"
	RelationReferences   RelationType = "references"
	RelationContains     RelationType = "contains"
)

// Relation represents a directed, typed edge between two entity names.
// Endpoints may name entities produced elsewhere or synthetic external
// symbols; only names connect records, never pointers.
type Relation struct {
	From string
	To   string
	Type RelationType

	// FilePath is the file whose parse produced this relation. The relation
	// is owned by that file and removed with it.
	FilePath string
}

// Key returns the uniqueness key (from, to, type, file_path) for the relation
func (r *Relation) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.From, r.To, r.Type, r.FilePath)
}

// ValidateType checks if the relation type is valid
func (r *Relation) ValidateType() error {
	switch r.Type {
	case RelationImports, RelationInherits, RelationCalls, RelationInstantiates,
		RelationRaises, RelationCatches, RelationDecorates, RelationReads,
		RelationWrites, RelationReferences, RelationContains:
		return nil
	default:
		return errors.New("invalid relation type")
	}
}

// Validate performs comprehensive validation of the relation
func (r *Relation) Validate() error {
	if r.From == "" || r.To == "" {
		return errors.New("relation endpoints are required")
	}

	if err := r.ValidateType(); err != nil {
		return err
	}

	if r.FilePath == "" {
		return errors.New("relation file path is required")
	}

	return nil
}
