package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/vecstore"
	"github.com/dshills/memindex/pkg/types"
)

// ResultType selects which point population a query runs against
type ResultType string

const (
	// ResultEntity searches metadata chunks only
	ResultEntity ResultType = "entity"
	// ResultRelation searches relation points
	ResultRelation ResultType = "relation"
	// ResultChunk searches every chunk, implementation included
	ResultChunk ResultType = "chunk"
)

// Request contains parameters for one search
type Request struct {
	Query      string
	Collection string
	Limit      int
	Type       ResultType // empty means ResultEntity
	FilePath   string     // restrict to one file's points

	UseCache bool
	CacheTTL time.Duration
}

// Response contains ranked results and query metadata
type Response struct {
	Results  []types.SearchResult
	Total    int
	Duration time.Duration
	CacheHit bool
}

// cacheEntry pairs a cached response with its expiry
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher embeds queries and ranks stored points against them
type Searcher struct {
	store    vecstore.Store
	embedder *embedder.Coordinator
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.Mutex
}

// queryCacheSize bounds the response cache
const queryCacheSize = 1000

// New creates a Searcher over a store and embedding coordinator
func New(store vecstore.Store, co *embedder.Coordinator) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](queryCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Searcher{
		store:    store,
		embedder: co,
		cache:    cache,
	}
}

// Search embeds the query and returns the nearest stored points. Results
// carry HasImplementation so callers can decide whether a follow-up
// Implementation fetch is worthwhile.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := s.validate(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached := s.fromCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	vector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.store.Search(ctx, req.Collection, vector, req.Limit, filterFor(req))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	resp := &Response{Results: make([]types.SearchResult, 0, len(hits))}
	for i, hit := range hits {
		resp.Results = append(resp.Results, resultFromHit(hit, i+1))
	}
	resp.Total = len(resp.Results)
	resp.Duration = time.Since(start)

	if req.UseCache && resp.Total > 0 {
		s.toCache(req, resp)
	}
	return resp, nil
}

// Implementation fetches the implementation chunk for an entity, the
// deep half of progressive disclosure. Returns vecstore.ErrNotFound when
// the entity has no implementation chunk.
func (s *Searcher) Implementation(ctx context.Context, collection, entityName string) (*types.SearchResult, error) {
	page, err := s.store.Scroll(ctx, collection, vecstore.Filter{
		Type:       vecstore.PointChunk,
		ChunkType:  string(types.ChunkImplementation),
		EntityName: entityName,
	}, true, false, "", 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch implementation: %w", err)
	}
	if len(page.Points) == 0 {
		return nil, fmt.Errorf("implementation for %q: %w", entityName, vecstore.ErrNotFound)
	}

	res := resultFromPoint(page.Points[0])
	return &res, nil
}

// InvalidateCache drops every cached response. Indexing runs do not call
// it; cached responses otherwise leave the cache when their TTL expires.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func (s *Searcher) validate(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Type == "" {
		req.Type = ResultEntity
	}
	switch req.Type {
	case ResultEntity, ResultRelation, ResultChunk:
	default:
		return fmt.Errorf("unsupported result type: %s", req.Type)
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = time.Hour
	}
	return nil
}

// embedQuery runs the query text through the coordinator as a synthetic
// chunk so dedup and the vector cache apply to repeated queries.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	chunk := types.Chunk{
		ID:          "query",
		Content:     query,
		ContentHash: types.HashContent(query),
	}
	vectors, err := s.embedder.EmbedChunks(ctx, []types.Chunk{chunk})
	if err != nil {
		return nil, err
	}
	return vectors["query"], nil
}

// filterFor maps a result type onto a store filter
func filterFor(req Request) vecstore.Filter {
	f := vecstore.Filter{FilePath: req.FilePath}
	switch req.Type {
	case ResultEntity:
		f.Type = vecstore.PointChunk
		f.ChunkType = string(types.ChunkMetadata)
	case ResultRelation:
		f.Type = vecstore.PointRelation
	case ResultChunk:
		f.Type = vecstore.PointChunk
	}
	return f
}

func resultFromHit(hit vecstore.ScoredPoint, rank int) types.SearchResult {
	res := resultFromPoint(vecstore.Point{ID: hit.ID, Payload: hit.Payload})
	res.Rank = rank
	res.Score = hit.Score
	return res
}

func resultFromPoint(p vecstore.Point) types.SearchResult {
	name := p.Payload.EntityName
	if p.Payload.Type == vecstore.PointRelation {
		name = p.Payload.FromEntity + " -> " + p.Payload.ToEntity
	}
	return types.SearchResult{
		ChunkID:           p.ID,
		EntityName:        name,
		EntityType:        types.EntityType(p.Payload.EntityType),
		ChunkKind:         types.ChunkKind(p.Payload.ChunkType),
		FilePath:          p.Payload.FilePath,
		StartLine:         p.Payload.LineStart,
		EndLine:           p.Payload.LineEnd,
		Content:           p.Payload.Content,
		HasImplementation: p.Payload.HasImplementation,
	}
}

func (s *Searcher) fromCache(req Request) *Response {
	key := cacheKey(req)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Searcher) toCache(req Request, resp *Response) {
	entry := &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(req.CacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(cacheKey(req), entry)
	s.cacheMu.Unlock()
}

// copyResponse guards cached entries against caller mutation
func copyResponse(src *Response) *Response {
	dst := &Response{
		Total:    src.Total,
		Duration: src.Duration,
		Results:  make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)
	return dst
}

// cacheKey derives a stable hash over everything that affects ranking
func cacheKey(req Request) [32]byte {
	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteString("|")
	b.WriteString(req.Collection)
	b.WriteString("|")
	b.WriteString(string(req.Type))
	b.WriteString("|")
	b.WriteString(req.FilePath)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d", req.Limit)
	return sha256.Sum256([]byte(b.String()))
}
