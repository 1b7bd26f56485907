package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider identifiers and model defaults
const (
	ProviderOpenAI = "openai"
	ProviderVoyage = "voyage"
	ProviderLocal  = "local"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultVoyageModel = "voyage-3-lite"

	OpenAIDimension = 1536
	VoyageDimension = 512
	LocalDimension  = 384

	openAIEndpoint = "https://api.openai.com/v1/embeddings"
	voyageEndpoint = "https://api.voyageai.com/v1/embeddings"

	httpTimeout = 30 * time.Second
)

// apiError carries the HTTP status so retry can classify transience
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.status, e.body)
}

// embeddingsResponse is the wire shape shared by both HTTP providers
type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// callEmbeddingsAPI posts a batch to an OpenAI-compatible endpoint
func callEmbeddingsAPI(ctx context.Context, client *http.Client, endpoint, apiKey, model string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call api: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	vectors := make([][]float32, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: vector index %d out of range", ErrProviderFailed, data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}

// OpenAIProvider embeds text via the OpenAI embeddings API
type OpenAIProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates an OpenAI provider
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: httpTimeout},
	}, nil
}

// EmbedBatch returns one vector per text
func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	return callEmbeddingsAPI(ctx, o.httpClient, openAIEndpoint, o.apiKey, o.model, texts)
}

// Dimension returns the model's vector width
func (o *OpenAIProvider) Dimension() int { return OpenAIDimension }

// Name returns the provider identifier
func (o *OpenAIProvider) Name() string { return ProviderOpenAI }

// Model returns the model name
func (o *OpenAIProvider) Model() string { return o.model }

// Limits returns the batch constraints for the OpenAI embeddings API
func (o *OpenAIProvider) Limits() Limits {
	return Limits{MaxBatchItems: 100, TokenBudget: 8000, MaxItemTokens: 8000}
}

// Close releases idle connections
func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// VoyageProvider embeds text via the Voyage AI API
type VoyageProvider struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewVoyageProvider creates a Voyage AI provider
func NewVoyageProvider(apiKey, model string) (*VoyageProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvVoyageAPIKey)
	}
	if model == "" {
		model = DefaultVoyageModel
	}
	return &VoyageProvider{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: httpTimeout},
	}, nil
}

// EmbedBatch returns one vector per text
func (v *VoyageProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	return callEmbeddingsAPI(ctx, v.httpClient, voyageEndpoint, v.apiKey, v.model, texts)
}

// Dimension returns the model's vector width
func (v *VoyageProvider) Dimension() int { return VoyageDimension }

// Name returns the provider identifier
func (v *VoyageProvider) Name() string { return ProviderVoyage }

// Model returns the model name
func (v *VoyageProvider) Model() string { return v.model }

// Limits returns the batch constraints for the Voyage embeddings API
func (v *VoyageProvider) Limits() Limits {
	return Limits{MaxBatchItems: 128, TokenBudget: 120000, MaxItemTokens: 32000}
}

// Close releases idle connections
func (v *VoyageProvider) Close() error {
	v.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors. It exists so
// indexing works offline and so tests never touch the network.
type LocalProvider struct {
	model string
}

// NewLocalProvider creates a local provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: "local-embeddings"}
}

// EmbedBatch derives a unit vector from each text's hash
func (l *LocalProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = localVector(text)
	}
	return vectors, nil
}

// localVector expands a SHA-256 digest across the vector and normalizes
func localVector(text string) []float32 {
	v := make([]float32, LocalDimension)
	digest := sha256.Sum256([]byte(text))
	for i := range v {
		v[i] = float32(digest[i%len(digest)])/255.0 - 0.5
		// rotate the digest so positions past 32 stay distinct
		if i%len(digest) == len(digest)-1 {
			digest = sha256.Sum256(digest[:])
		}
	}
	return NormalizeVector(v)
}

// Dimension returns the local vector width
func (l *LocalProvider) Dimension() int { return LocalDimension }

// Name returns the provider identifier
func (l *LocalProvider) Name() string { return ProviderLocal }

// Model returns the model name
func (l *LocalProvider) Model() string { return l.model }

// Limits returns generous constraints; local embedding is free
func (l *LocalProvider) Limits() Limits {
	return Limits{MaxBatchItems: 256, TokenBudget: 1 << 20, MaxItemTokens: 1 << 18}
}

// Close is a no-op
func (l *LocalProvider) Close() error { return nil }

// NormalizeVector scales a vector to unit length for cosine similarity
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}
