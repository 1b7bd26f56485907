package vecstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantFilterZero(t *testing.T) {
	assert.Nil(t, qdrantFilter(Filter{}))
}

func TestQdrantFilterMustClauses(t *testing.T) {
	f := qdrantFilter(Filter{Type: PointChunk, FilePath: "main.go"})
	require.NotNil(t, f)

	must, ok := f["must"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, must, 2)
	assert.Equal(t, "type", must[0]["key"])
	assert.Equal(t, "file_path", must[1]["key"])
	assert.NotContains(t, f, "must_not")
}

func TestQdrantFilterFilePathPresence(t *testing.T) {
	withPath := qdrantFilter(Filter{HasFilePath: boolPtr(true)})
	require.NotNil(t, withPath)
	assert.NotContains(t, withPath, "must")
	mustNot, ok := withPath["must_not"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, mustNot, 1)
	assert.Contains(t, mustNot[0], "is_empty")

	manualOnly := qdrantFilter(Filter{HasFilePath: boolPtr(false)})
	require.NotNil(t, manualOnly)
	must, ok := manualOnly["must"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, must, 1)
	assert.Contains(t, must[0], "is_empty")
}

// qdrantFake records requests and plays back canned responses
type qdrantFake struct {
	t        *testing.T
	requests map[string]json.RawMessage
	respond  map[string]string
}

func newQdrantFake(t *testing.T) *qdrantFake {
	return &qdrantFake{
		t:        t,
		requests: make(map[string]json.RawMessage),
		respond:  make(map[string]string),
	}
}

func (f *qdrantFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if r.Body != nil {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.requests[key] = body
	}
	if resp, ok := f.respond[key]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func TestQdrantEnsureCollectionCreatesWhenMissing(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["PUT /collections/proj"] = `{"result": true, "status": "ok"}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	require.NoError(t, store.EnsureCollection(context.Background(), "proj", 384, DistanceCosine))

	var created struct {
		Vectors struct {
			Size     int    `json:"size"`
			Distance string `json:"distance"`
		} `json:"vectors"`
	}
	require.NoError(t, json.Unmarshal(fake.requests["PUT /collections/proj"], &created))
	assert.Equal(t, 384, created.Vectors.Size)
	assert.Equal(t, "Cosine", created.Vectors.Distance)
}

func TestQdrantEnsureCollectionSkipsExisting(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["GET /collections/proj"] = `{"result": {"status": "green"}, "status": "ok"}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	require.NoError(t, store.EnsureCollection(context.Background(), "proj", 384, DistanceCosine))
	_, created := fake.requests["PUT /collections/proj"]
	assert.False(t, created)
}

func TestQdrantScrollPaging(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["POST /collections/proj/points/scroll"] = `{
		"result": {
			"points": [
				{"id": "p1", "payload": {"type": "chunk", "content": "a", "content_hash": "h1"}},
				{"id": "p2", "payload": {"type": "chunk", "content": "b", "content_hash": "h2"}}
			],
			"next_page_offset": "p3"
		},
		"status": "ok"
	}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	page, err := store.Scroll(context.Background(), "proj", Filter{Type: PointChunk}, true, false, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Points, 2)
	assert.Equal(t, "p1", page.Points[0].ID)
	assert.Equal(t, "h2", page.Points[1].Payload.ContentHash)
	assert.Equal(t, "p3", page.NextCursor)

	var sent struct {
		Limit  int                    `json:"limit"`
		Filter map[string]interface{} `json:"filter"`
	}
	require.NoError(t, json.Unmarshal(fake.requests["POST /collections/proj/points/scroll"], &sent))
	assert.Equal(t, 2, sent.Limit)
	assert.Contains(t, sent.Filter, "must")
}

func TestQdrantScrollLastPage(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["POST /collections/proj/points/scroll"] = `{
		"result": {"points": [], "next_page_offset": null},
		"status": "ok"
	}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	page, err := store.Scroll(context.Background(), "proj", Filter{}, true, false, "p3", 2)
	require.NoError(t, err)
	assert.Empty(t, page.Points)
	assert.Empty(t, page.NextCursor)
}

func TestQdrantSearch(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["POST /collections/proj/points/search"] = `{
		"result": [
			{"id": "a", "score": 0.92, "payload": {"type": "chunk", "entity_name": "fnA", "content": "x", "content_hash": "h"}},
			{"id": "b", "score": 0.41, "payload": {"type": "chunk", "entity_name": "fnB", "content": "y", "content_hash": "h2"}}
		],
		"status": "ok"
	}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	hits, err := store.Search(context.Background(), "proj", []float32{1, 0}, 2, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, 0.92, hits[0].Score)
	assert.Equal(t, "fnB", hits[1].Payload.EntityName)
}

func TestQdrantCount(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["POST /collections/proj/points/count"] = `{"result": {"count": 7}, "status": "ok"}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	n, err := store.Count(context.Background(), "proj", Filter{})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestQdrantDeleteSendsIDs(t *testing.T) {
	fake := newQdrantFake(t)
	fake.respond["POST /collections/proj/points/delete"] = `{"result": {"status": "acknowledged"}, "status": "ok"}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := NewQdrantStore(srv.URL, "")
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Delete(context.Background(), "proj", []string{"a", "b"}))

	var sent struct {
		Points []string `json:"points"`
	}
	require.NoError(t, json.Unmarshal(fake.requests["POST /collections/proj/points/delete"], &sent))
	assert.Equal(t, []string{"a", "b"}, sent.Points)
}
