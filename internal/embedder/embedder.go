package embedder

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/memindex/pkg/types"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Limits describes the request-shaping constraints of a provider. Batches
// are packed under both the item count and the token budget; a single
// text over MaxItemTokens is truncated before being sent alone.
type Limits struct {
	MaxBatchItems int
	TokenBudget   int
	MaxItemTokens int
}

// Provider generates embeddings for batches of text
type Provider interface {
	// EmbedBatch returns one vector per input text, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector width this provider produces
	Dimension() int

	// Name returns the provider identifier
	Name() string

	// Model returns the model name
	Model() string

	// Limits returns the provider's batch constraints
	Limits() Limits

	// Close releases any resources held by the provider
	Close() error
}

// Cache is an in-memory LRU of vectors keyed by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// defaultCacheSize bounds the cache when no size is configured
const defaultCacheSize = 10000

// NewCache creates an embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector so callers cannot mutate the
// cached value.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector, evicting the least recently used entry at capacity
func (c *Cache) Set(hash string, v []float32) {
	c.cache.Add(hash, v)
}

// Size returns the current cache population
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// validateTexts rejects empty batches and empty members
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrEmptyText, i)
		}
	}
	return nil
}

// chunkError wraps a provider failure with the chunk it was embedding
func chunkError(chunkID string, err error) error {
	return &types.EmbeddingError{ChunkID: chunkID, Err: err}
}
