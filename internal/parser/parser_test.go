package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/pkg/types"
)

func TestRegistryForPath(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.ForPath("pkg/auth.py")
	require.NoError(t, err)
	assert.Equal(t, "python", p.Language())

	p, err = r.ForPath("main.GO")
	require.NoError(t, err)
	assert.Equal(t, "go", p.Language())

	_, err = r.ForPath("binary.exe")
	assert.ErrorIs(t, err, types.ErrUnsupportedLanguage)
}

func TestRegistrySupports(t *testing.T) {
	r := DefaultRegistry()
	assert.True(t, r.Supports("a.py"))
	assert.True(t, r.Supports("README.md"))
	assert.True(t, r.Supports("config.yaml"))
	assert.False(t, r.Supports("photo.png"))
	assert.False(t, r.Supports("noext"))
}

// claimAll is a stub parser claiming an already-registered extension
type claimAll struct{ *TextParser }

func (claimAll) Language() string     { return "claim-all" }
func (claimAll) Extensions() []string { return []string{".py", ".xyz"} }

func TestRegistryFirstRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(NewPythonParser())
	r.Register(claimAll{NewTextParser()})

	p, err := r.ForPath("a.py")
	require.NoError(t, err)
	assert.Equal(t, "python", p.Language(), "earlier registration keeps the extension")

	p, err = r.ForPath("b.xyz")
	require.NoError(t, err)
	assert.Equal(t, "claim-all", p.Language(), "unclaimed extensions still bind")
}

func TestRegistryExtensionsSorted(t *testing.T) {
	r := DefaultRegistry()
	exts := r.Extensions()
	require.NotEmpty(t, exts)
	for i := 1; i < len(exts); i++ {
		assert.LessOrEqual(t, exts[i-1], exts[i])
	}
	assert.Contains(t, exts, ".py")
	assert.Contains(t, exts, ".ts")
}

// entityByName finds a named entity in a parse result
func entityByName(t *testing.T, res *types.ParseResult, name string) *types.Entity {
	t.Helper()
	for i := range res.Entities {
		if res.Entities[i].Name == name {
			return &res.Entities[i]
		}
	}
	t.Fatalf("entity %q not found", name)
	return nil
}

func hasRelation(res *types.ParseResult, from, to string, typ types.RelationType) bool {
	for _, r := range res.Relations {
		if r.From == from && r.To == to && r.Type == typ {
			return true
		}
	}
	return false
}
