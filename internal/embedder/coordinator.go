package embedder

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/dshills/memindex/pkg/types"
)

// Coordinator packs chunks into provider batches, deduplicates identical
// content, caches vectors by content hash, and accounts cost. It is safe
// for concurrent use.
type Coordinator struct {
	provider Provider
	cache    *Cache
	counter  TokenCounter
	limiter  *rate.Limiter
	retry    RetryConfig

	mu   sync.Mutex
	cost CostReport
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithCache sets the vector cache
func WithCache(c *Cache) Option {
	return func(co *Coordinator) { co.cache = c }
}

// WithTokenCounter overrides the token estimator
func WithTokenCounter(tc TokenCounter) Option {
	return func(co *Coordinator) { co.counter = tc }
}

// WithRateLimit caps provider requests per second
func WithRateLimit(rps float64, burst int) Option {
	return func(co *Coordinator) { co.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetryConfig overrides retry behavior
func WithRetryConfig(rc RetryConfig) Option {
	return func(co *Coordinator) { co.retry = rc }
}

// NewCoordinator creates a coordinator for a provider
func NewCoordinator(p Provider, opts ...Option) *Coordinator {
	co := &Coordinator{
		provider: p,
		cache:    NewCache(0),
		counter:  HeuristicCounter{},
		limiter:  rate.NewLimiter(rate.Limit(10), 10),
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// Provider returns the underlying provider
func (co *Coordinator) Provider() Provider { return co.provider }

// Cost returns a copy of the accumulated cost report
func (co *Coordinator) Cost() CostReport {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.cost
}

// batchItem is one unique text heading into a provider batch
type batchItem struct {
	hash     string
	text     string
	tokens   int
	chunkIDs []string
}

// EmbedChunks returns a vector per chunk ID. Chunks sharing a content
// hash are embedded once and the vector fanned out. A provider failure
// is reported with the first chunk of the failing batch attached.
func (co *Coordinator) EmbedChunks(ctx context.Context, chunks []types.Chunk) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	items := co.collectUnique(chunks, vectors)
	limits := co.provider.Limits()

	var batch []batchItem
	batchTokens := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := co.embedBatch(ctx, batch, batchTokens, vectors)
		batch = batch[:0]
		batchTokens = 0
		return err
	}

	for _, item := range items {
		// over-budget texts go alone, truncated to the item limit
		if item.tokens > limits.TokenBudget || item.tokens > limits.MaxItemTokens {
			if err := flush(); err != nil {
				return nil, err
			}
			item.text = truncateToTokens(item.text, co.counter, limits.MaxItemTokens)
			item.tokens = co.counter.Count(item.text)
			if err := co.embedBatch(ctx, []batchItem{item}, item.tokens, vectors); err != nil {
				return nil, err
			}
			continue
		}
		if len(batch) >= limits.MaxBatchItems || batchTokens+item.tokens > limits.TokenBudget {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, item)
		batchTokens += item.tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// collectUnique deduplicates chunks by content hash, resolving cache hits
// immediately and returning the items that still need a provider call.
func (co *Coordinator) collectUnique(chunks []types.Chunk, vectors map[string][]float32) []batchItem {
	byHash := make(map[string]*batchItem)
	var order []string
	for _, chunk := range chunks {
		if item, ok := byHash[chunk.ContentHash]; ok {
			item.chunkIDs = append(item.chunkIDs, chunk.ID)
			continue
		}
		byHash[chunk.ContentHash] = &batchItem{
			hash:     chunk.ContentHash,
			text:     chunk.Content,
			tokens:   co.counter.Count(chunk.Content),
			chunkIDs: []string{chunk.ID},
		}
		order = append(order, chunk.ContentHash)
	}

	items := make([]batchItem, 0, len(order))
	for _, hash := range order {
		item := byHash[hash]
		if co.cache != nil {
			if v, ok := co.cache.Get(hash); ok {
				for _, id := range item.chunkIDs {
					vectors[id] = v
				}
				co.mu.Lock()
				co.cost.CacheHit += len(item.chunkIDs)
				co.mu.Unlock()
				continue
			}
		}
		items = append(items, *item)
	}
	return items
}

// embedBatch issues one rate-limited, retried provider call and fans the
// vectors out to every chunk sharing each text.
func (co *Coordinator) embedBatch(ctx context.Context, batch []batchItem, tokens int, vectors map[string][]float32) error {
	if err := co.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limit: %w", err)
	}

	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.text
	}

	result, err := retryWithBackoff(ctx, co.retry, func() ([][]float32, error) {
		return co.provider.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return chunkError(batch[0].chunkIDs[0], fmt.Errorf("%w: %v", ErrProviderFailed, err))
	}
	if len(result) != len(batch) {
		return chunkError(batch[0].chunkIDs[0],
			fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(result), len(batch)))
	}

	for i, item := range batch {
		for _, id := range item.chunkIDs {
			vectors[id] = result[i]
		}
		if co.cache != nil {
			co.cache.Set(item.hash, result[i])
		}
	}

	co.mu.Lock()
	co.cost.addBatch(len(batch), tokens, co.provider.Name(), co.provider.Model())
	co.mu.Unlock()
	return nil
}
