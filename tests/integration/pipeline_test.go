// Package integration exercises the whole pipeline end to end: real
// files on disk, the offline embedding provider, the embedded store,
// and the query-side consumers reading what indexing wrote.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/graph"
	"github.com/dshills/memindex/internal/indexer"
	"github.com/dshills/memindex/internal/searcher"
	"github.com/dshills/memindex/internal/vecstore"
	"github.com/dshills/memindex/pkg/types"
)

const appPy = `def greet(name):
    """Build a greeting for a user by name."""
    return "hello " + helper(name)

def helper(name):
    return name.strip()
`

type env struct {
	root  string
	store vecstore.Store
	co    *embedder.Coordinator
	idx   *indexer.Indexer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()

	store, err := vecstore.NewSQLiteStore(filepath.Join(root, ".indexer", "points.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	co := embedder.NewCoordinator(embedder.NewLocalProvider())
	return &env{
		root:  root,
		store: store,
		co:    co,
		idx:   indexer.New(store, co, nil),
	}
}

func (e *env) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(e.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (e *env) run(t *testing.T, mode indexer.Mode) *indexer.Statistics {
	t.Helper()
	stats, err := e.idx.Run(context.Background(), indexer.Config{
		ProjectRoot: e.root,
		Collection:  "proj",
		Mode:        mode,
		Workers:     2,
	})
	require.NoError(t, err)
	return stats
}

// touch pushes the mtime forward so the change detector sees an edit
func (e *env) touch(t *testing.T, name string) {
	t.Helper()
	path := filepath.Join(e.root, name)
	info, err := os.Stat(path)
	require.NoError(t, err)
	later := info.ModTime().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
}

func (e *env) count(t *testing.T, filter vecstore.Filter) int {
	t.Helper()
	total := 0
	cursor := ""
	for {
		page, err := e.store.Scroll(context.Background(), "proj", filter, false, false, cursor, 100)
		require.NoError(t, err)
		total += len(page.Points)
		if page.NextCursor == "" {
			return total
		}
		cursor = page.NextCursor
	}
}

func TestIndexThenSearch(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)

	stats := e.run(t, indexer.ModeIncremental)
	require.Equal(t, 1, stats.FilesIndexed)

	s := searcher.New(e.store, e.co)
	resp, err := s.Search(context.Background(), searcher.Request{
		Collection: "proj",
		Query:      "greeting for a user",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	var names []string
	for _, r := range resp.Results {
		names = append(names, r.EntityName)
	}
	assert.Contains(t, names, "app.py::greet")

	top := resp.Results[0]
	if top.HasImplementation {
		impl, err := s.Implementation(context.Background(), "proj", top.EntityName)
		require.NoError(t, err)
		assert.NotEmpty(t, impl.Content)
	}
}

func TestEditFlowsThroughToSearch(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)
	e.run(t, indexer.ModeIncremental)

	edited := `def greet(name):
    """Build a greeting for a user by name."""
    return "howdy " + helper(name)

def helper(name):
    return name.strip()
`
	e.write(t, "app.py", edited)
	e.touch(t, "app.py")
	stats := e.run(t, indexer.ModeIncremental)
	assert.Equal(t, 1, stats.FilesIndexed)

	s := searcher.New(e.store, e.co)
	resp, err := s.Search(context.Background(), searcher.Request{
		Collection: "proj",
		Query:      "howdy",
		Type:       searcher.ResultChunk,
		Limit:      50,
	})
	require.NoError(t, err)

	found := false
	for _, r := range resp.Results {
		if r.ChunkKind == types.ChunkImplementation && r.EntityName == "app.py::greet" {
			assert.Contains(t, r.Content, "howdy")
			found = true
		}
	}
	assert.True(t, found, "edited implementation should be stored")
}

func TestDeletedFileDisappearsFromViews(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)
	e.write(t, "other.py", "def keep():\n    return 1\n")
	e.run(t, indexer.ModeIncremental)

	require.NoError(t, os.Remove(filepath.Join(e.root, "app.py")))
	e.run(t, indexer.ModeIncremental)

	assert.Zero(t, e.count(t, vecstore.Filter{FilePath: "app.py"}))
	assert.NotZero(t, e.count(t, vecstore.Filter{FilePath: "other.py"}))

	g := graph.New(e.store)
	_, err := g.Entity(context.Background(), "proj", "app.py::greet", 1)
	assert.ErrorIs(t, err, vecstore.ErrNotFound)
}

func TestGraphReflectsRelations(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)
	e.run(t, indexer.ModeIncremental)

	g := graph.New(e.store)
	page, err := g.Global(context.Background(), "proj", graph.GlobalOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, page.Nodes)
	assert.NotEmpty(t, page.Edges)

	view, err := g.Entity(context.Background(), "proj", "app.py::greet", 1)
	require.NoError(t, err)

	var callees []string
	for _, edge := range view.Outgoing {
		if edge.Type == "calls" {
			callees = append(callees, edge.To)
		}
	}
	assert.Contains(t, callees, "app.py::helper")
}

func TestManualRecordSurvivesClear(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)
	e.run(t, indexer.ModeIncremental)

	// a manual note has no file_path, so clear must leave it alone
	note := types.Chunk{
		ID:          "manual-note",
		Content:     "deploys run from the release branch only",
		ContentHash: types.HashContent("deploys run from the release branch only"),
	}
	vectors, err := e.co.EmbedChunks(context.Background(), []types.Chunk{note})
	require.NoError(t, err)
	require.NoError(t, e.store.Upsert(context.Background(), "proj", []vecstore.Point{{
		ID:     note.ID,
		Vector: vectors[note.ID],
		Payload: vecstore.Payload{
			Type:        vecstore.PointChunk,
			ChunkType:   "metadata",
			EntityName:  "note::deploys",
			EntityType:  "manual_note",
			Content:     note.Content,
			ContentHash: note.ContentHash,
		},
	}}))

	e.run(t, indexer.ModeClear)
	noPath := false
	assert.Equal(t, 1, e.count(t, vecstore.Filter{HasFilePath: &noPath}))

	e.run(t, indexer.ModeClearAll)
	assert.Zero(t, e.count(t, vecstore.Filter{HasFilePath: &noPath}))
}

func TestRerunIsFree(t *testing.T) {
	e := newEnv(t)
	e.write(t, "app.py", appPy)
	first := e.run(t, indexer.ModeIncremental)
	require.Equal(t, 1, first.FilesIndexed)

	second := e.run(t, indexer.ModeIncremental)
	assert.Zero(t, second.FilesIndexed)
	assert.Zero(t, second.ChunksUpserted)
	assert.Equal(t, first.Cost.Tokens, second.Cost.Tokens)
}
