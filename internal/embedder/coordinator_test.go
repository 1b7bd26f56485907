package embedder

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/pkg/types"
)

// recordingProvider wraps the local provider and counts batch calls
type recordingProvider struct {
	*LocalProvider
	mu      sync.Mutex
	calls   int
	batches [][]string
	fail    error
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{LocalProvider: NewLocalProvider()}
}

func (r *recordingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.mu.Lock()
	r.calls++
	r.batches = append(r.batches, texts)
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return r.LocalProvider.EmbedBatch(ctx, texts)
}

func chunkOf(id, content string) types.Chunk {
	return types.Chunk{ID: id, Content: content, ContentHash: types.HashContent(content)}
}

func TestEmbedChunksFansOutVectors(t *testing.T) {
	p := newRecordingProvider()
	co := NewCoordinator(p)

	vectors, err := co.EmbedChunks(context.Background(), []types.Chunk{
		chunkOf("a", "def f(): pass"),
		chunkOf("b", "def g(): pass"),
	})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors["a"], LocalDimension)
	assert.NotEqual(t, vectors["a"], vectors["b"])
	assert.Equal(t, 1, p.calls, "both texts fit one batch")
}

func TestEmbedChunksDeduplicatesByHash(t *testing.T) {
	p := newRecordingProvider()
	co := NewCoordinator(p)

	// same content under different IDs embeds once
	vectors, err := co.EmbedChunks(context.Background(), []types.Chunk{
		chunkOf("a", "shared body"),
		chunkOf("b", "shared body"),
		chunkOf("c", "distinct body"),
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors["a"], vectors["b"])

	require.Len(t, p.batches, 1)
	assert.Len(t, p.batches[0], 2, "duplicates collapse before the provider call")
}

func TestEmbedChunksUsesCache(t *testing.T) {
	p := newRecordingProvider()
	co := NewCoordinator(p)

	first, err := co.EmbedChunks(context.Background(), []types.Chunk{chunkOf("a", "cached text")})
	require.NoError(t, err)

	second, err := co.EmbedChunks(context.Background(), []types.Chunk{chunkOf("a2", "cached text")})
	require.NoError(t, err)

	assert.Equal(t, first["a"], second["a2"])
	assert.Equal(t, 1, p.calls, "second request served from cache")
	assert.Equal(t, 1, co.Cost().CacheHit)
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	co := NewCoordinator(newRecordingProvider())
	vectors, err := co.EmbedChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedChunksProviderFailure(t *testing.T) {
	p := newRecordingProvider()
	p.fail = errors.New("boom")
	co := NewCoordinator(p, WithRetryConfig(RetryConfig{MaxRetries: 1}))

	_, err := co.EmbedChunks(context.Background(), []types.Chunk{chunkOf("a", "text")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)

	var embedErr *types.EmbeddingError
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, "a", embedErr.ChunkID)
}

func TestCostAccumulatesAcrossCalls(t *testing.T) {
	co := NewCoordinator(newRecordingProvider())

	_, err := co.EmbedChunks(context.Background(), []types.Chunk{chunkOf("a", "first text")})
	require.NoError(t, err)
	_, err = co.EmbedChunks(context.Background(), []types.Chunk{chunkOf("b", "second text")})
	require.NoError(t, err)

	cost := co.Cost()
	assert.Equal(t, ProviderLocal, cost.Provider)
	assert.Equal(t, 2, cost.Batches)
	assert.Equal(t, 2, cost.Texts)
	assert.Positive(t, cost.Tokens)
	assert.Zero(t, cost.USD, "local embedding is free")
}

func TestBatchSplitsOnItemLimit(t *testing.T) {
	p := newRecordingProvider()
	co := NewCoordinator(p)
	limit := p.Limits().MaxBatchItems

	chunks := make([]types.Chunk, limit+1)
	for i := range chunks {
		content := "text " + string(rune('a'+i%26)) + string(rune('0'+i/26%10)) + string(rune('0'+i/260))
		chunks[i] = chunkOf(content, content)
	}

	vectors, err := co.EmbedChunks(context.Background(), chunks)
	require.NoError(t, err)
	assert.Len(t, vectors, limit+1)
	assert.Equal(t, 2, p.calls)
}
