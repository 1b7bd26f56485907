package vecstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// qdrant distance names for the metric constants
var qdrantDistance = map[string]string{
	DistanceCosine: "Cosine",
	DistanceDot:    "Dot",
	DistanceEuclid: "Euclid",
}

// QdrantStore implements Store against a Qdrant server's REST API
type QdrantStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantStore creates a store for the server at baseURL. The API key
// is optional; when set it is sent on every request.
func NewQdrantStore(baseURL, apiKey string) *QdrantStore {
	return &QdrantStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Close releases backend resources
func (q *QdrantStore) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

// do issues one JSON request and decodes the response envelope into out
func (q *QdrantStore) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// EnsureCollection creates the collection if absent; idempotent
func (q *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorDim int, distance string) error {
	qd, ok := qdrantDistance[distance]
	if !ok {
		return storeErr("ensure_collection", fmt.Errorf("unknown distance metric %q", distance))
	}

	err := q.do(ctx, http.MethodGet, "/collections/"+name, nil, nil)
	if err == nil {
		return nil
	}
	if err != ErrNotFound {
		return storeErr("ensure_collection", err)
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorDim,
			"distance": qd,
		},
	}
	if err := q.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return storeErr("ensure_collection", err)
	}
	return nil
}

// qdrantPoint is the wire form of one point
type qdrantPoint struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector,omitempty"`
	Payload *Payload  `json:"payload,omitempty"`
}

// Upsert writes points, replacing any with the same ID
func (q *QdrantStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	wire := make([]qdrantPoint, len(points))
	for i := range points {
		p := points[i]
		wire[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: &p.Payload}
	}

	body := map[string]interface{}{"points": wire}
	if err := q.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body, nil); err != nil {
		return storeErr("upsert", err)
	}
	return nil
}

// Delete removes points by ID
func (q *QdrantStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	body := map[string]interface{}{"points": ids}
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/delete?wait=true", body, nil); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

// DeleteByFilter removes every point the filter matches
func (q *QdrantStore) DeleteByFilter(ctx context.Context, name string, filter Filter) error {
	body := map[string]interface{}{"filter": qdrantFilter(filter)}
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/delete?wait=true", body, nil); err != nil {
		return storeErr("delete_by_filter", err)
	}
	return nil
}

// Scroll enumerates matching points one page at a time
func (q *QdrantStore) Scroll(ctx context.Context, name string, filter Filter, withPayload, withVector bool, cursor string, limit int) (*ScrollPage, error) {
	if limit <= 0 {
		limit = 100
	}

	body := map[string]interface{}{
		"limit":        limit,
		"with_payload": withPayload,
		"with_vector":  withVector,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}
	if cursor != "" {
		body["offset"] = cursor
	}

	var resp struct {
		Result struct {
			Points         []qdrantPoint   `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/scroll", body, &resp); err != nil {
		return nil, storeErr("scroll", err)
	}

	page := &ScrollPage{Points: make([]Point, 0, len(resp.Result.Points))}
	for _, wp := range resp.Result.Points {
		p := Point{ID: wp.ID, Vector: wp.Vector}
		if wp.Payload != nil {
			p.Payload = *wp.Payload
		}
		page.Points = append(page.Points, p)
	}
	if offset := resp.Result.NextPageOffset; len(offset) > 0 && string(offset) != "null" {
		var next string
		if err := json.Unmarshal(offset, &next); err != nil {
			return nil, storeErr("scroll", fmt.Errorf("unexpected cursor %s: %w", string(offset), err))
		}
		page.NextCursor = next
	}
	return page, nil
}

// Count returns the number of matching points
func (q *QdrantStore) Count(ctx context.Context, name string, filter Filter) (int, error) {
	body := map[string]interface{}{"exact": true}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/count", body, &resp); err != nil {
		return 0, storeErr("count", err)
	}
	return resp.Result.Count, nil
}

// Search returns the closest points to the query vector
func (q *QdrantStore) Search(ctx context.Context, name string, vector []float32, limit int, filter Filter) ([]ScoredPoint, error) {
	if limit <= 0 {
		return []ScoredPoint{}, nil
	}

	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result []struct {
			qdrantPoint
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body, &resp); err != nil {
		return nil, storeErr("search", err)
	}

	results := make([]ScoredPoint, 0, len(resp.Result))
	for _, hit := range resp.Result {
		sp := ScoredPoint{Score: hit.Score}
		sp.ID = hit.ID
		sp.Vector = hit.Vector
		if hit.Payload != nil {
			sp.Payload = *hit.Payload
		}
		results = append(results, sp)
	}
	return results, nil
}

// qdrantFilter converts a Filter into Qdrant's filter document. A zero
// filter returns nil so the request matches everything.
func qdrantFilter(f Filter) map[string]interface{} {
	if f.IsZero() {
		return nil
	}

	var must []map[string]interface{}
	var mustNot []map[string]interface{}

	match := func(key, value string) {
		must = append(must, map[string]interface{}{
			"key":   key,
			"match": map[string]interface{}{"value": value},
		})
	}

	if f.Type != "" {
		match("type", f.Type)
	}
	if f.FilePath != "" {
		match("file_path", f.FilePath)
	}
	if f.ChunkType != "" {
		match("chunk_type", f.ChunkType)
	}
	if f.EntityName != "" {
		match("entity_name", f.EntityName)
	}
	if f.EntityType != "" {
		match("entity_type", f.EntityType)
	}
	if f.RelationType != "" {
		match("relation_type", f.RelationType)
	}
	if f.HasFilePath != nil {
		isEmpty := map[string]interface{}{
			"is_empty": map[string]interface{}{"key": "file_path"},
		}
		if *f.HasFilePath {
			mustNot = append(mustNot, isEmpty)
		} else {
			must = append(must, isEmpty)
		}
	}

	filter := map[string]interface{}{}
	if len(must) > 0 {
		filter["must"] = must
	}
	if len(mustNot) > 0 {
		filter["must_not"] = mustNot
	}
	return filter
}
