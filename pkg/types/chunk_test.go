package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDStable(t *testing.T) {
	a := ChunkID("pkg/auth.py::Validator::check", ChunkMetadata)
	b := ChunkID("pkg/auth.py::Validator::check", ChunkMetadata)
	assert.Equal(t, a, b)

	impl := ChunkID("pkg/auth.py::Validator::check", ChunkImplementation)
	assert.NotEqual(t, a, impl, "kinds get distinct IDs")
	assert.NotEqual(t, a, ChunkID("pkg/auth.py::Validator", ChunkMetadata))
}

func TestRelationIDStable(t *testing.T) {
	r := Relation{From: "a.py::f", To: "a.py::g", Type: RelationCalls, FilePath: "a.py"}
	assert.Equal(t, RelationID(&r), RelationID(&r))

	other := Relation{From: "a.py::f", To: "a.py::g", Type: RelationCalls, FilePath: "b.py"}
	assert.NotEqual(t, RelationID(&r), RelationID(&other), "owning file is part of the key")
}

func TestNewChunk(t *testing.T) {
	e := Entity{
		Name:      "a.py::f",
		Type:      EntityFunction,
		FilePath:  "a.py",
		StartLine: 3,
		EndLine:   7,
	}
	c := NewChunk(&e, ChunkImplementation, "def f():\n    return 1\n")

	require.NoError(t, c.Validate())
	assert.Equal(t, ChunkID("a.py::f", ChunkImplementation), c.ID)
	assert.Equal(t, HashContent(c.Content), c.ContentHash)
	assert.Equal(t, EntityFunction, c.EntityType)
}

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		ID: "x", Kind: ChunkMetadata, Content: "c", ContentHash: "h",
		EntityName: "a.py::f", StartLine: 1, EndLine: 2,
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"empty content", func(c *Chunk) { c.Content = "" }},
		{"bad kind", func(c *Chunk) { c.Kind = "bogus" }},
		{"no entity", func(c *Chunk) { c.EntityName = "" }},
		{"no hash", func(c *Chunk) { c.ContentHash = "" }},
		{"inverted lines", func(c *Chunk) { c.StartLine = 5; c.EndLine = 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestRelationValidate(t *testing.T) {
	r := Relation{From: "a.py::f", To: "os", Type: RelationImports, FilePath: "a.py"}
	require.NoError(t, r.Validate())

	r.Type = "uses"
	assert.Error(t, r.Validate())

	r = Relation{From: "", To: "os", Type: RelationImports, FilePath: "a.py"}
	assert.Error(t, r.Validate())
}
