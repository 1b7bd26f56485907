// Package config resolves settings from environment variables and the
// optional project-local .indexer/config.json file. File values override
// the environment so a checked-in config pins the project's behavior.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/vecstore"
	"github.com/dshills/memindex/pkg/types"
)

// Environment variables consulted by Load
const (
	EnvEmbeddingProvider = "EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "EMBEDDING_MODEL"
	EnvEmbeddingAPIKey   = "EMBEDDING_API_KEY"
	EnvStoreURL          = "VECTOR_STORE_URL"
	EnvStoreAPIKey       = "VECTOR_STORE_API_KEY"
)

// FileName is the project-local config file, relative to the project root
const FileName = ".indexer/config.json"

// Config holds everything a run needs beyond command-line flags
type Config struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"-"` // never read from or written to the file

	StoreBackend string `json:"store_backend,omitempty"`
	StoreURL     string `json:"store_url,omitempty"`
	StoreAPIKey  string `json:"-"`

	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	Workers int      `json:"workers,omitempty"`
}

// Load resolves configuration for a project: environment first, then the
// project file, then validation. A missing project file is not an error.
func Load(projectRoot string) (*Config, error) {
	cfg := &Config{
		Provider:    os.Getenv(EnvEmbeddingProvider),
		Model:       os.Getenv(EnvEmbeddingModel),
		APIKey:      os.Getenv(EnvEmbeddingAPIKey),
		StoreURL:    os.Getenv(EnvStoreURL),
		StoreAPIKey: os.Getenv(EnvStoreAPIKey),
	}

	if err := cfg.applyFile(filepath.Join(projectRoot, FileName)); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays non-zero values from the project config file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", types.ErrConfig, path, err)
	}

	var file Config
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", types.ErrConfig, path, err)
	}

	if file.Provider != "" {
		c.Provider = file.Provider
	}
	if file.Model != "" {
		c.Model = file.Model
	}
	if file.StoreBackend != "" {
		c.StoreBackend = file.StoreBackend
	}
	if file.StoreURL != "" {
		c.StoreURL = file.StoreURL
	}
	if len(file.Include) > 0 {
		c.Include = file.Include
	}
	if len(file.Exclude) > 0 {
		c.Exclude = file.Exclude
	}
	if file.Workers > 0 {
		c.Workers = file.Workers
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "", embedder.ProviderLocal:
	case embedder.ProviderOpenAI, embedder.ProviderVoyage:
		if c.APIKey == "" {
			return fmt.Errorf("%w: provider %s requires %s", types.ErrConfig, c.Provider, EnvEmbeddingAPIKey)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfig, c.Provider)
	}

	if c.StoreBackend == vecstore.BackendQdrant && c.StoreURL == "" {
		return fmt.Errorf("%w: qdrant backend requires %s", types.ErrConfig, EnvStoreURL)
	}

	for _, pattern := range append(append([]string{}, c.Include...), c.Exclude...) {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return fmt.Errorf("%w: invalid glob %q", types.ErrConfig, pattern)
		}
	}
	return nil
}

// EmbedderConfig maps the loaded settings onto the provider factory
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		Model:    c.Model,
	}
}

// StoreConfig maps the loaded settings onto the store factory. The
// backend defaults to qdrant when a URL is set, embedded sqlite otherwise.
func (c *Config) StoreConfig(projectRoot string) vecstore.Config {
	backend := c.StoreBackend
	if backend == "" && c.StoreURL != "" {
		backend = vecstore.BackendQdrant
	}
	return vecstore.Config{
		Backend: backend,
		Path:    vecstore.DefaultSQLitePath(projectRoot),
		URL:     c.StoreURL,
		APIKey:  c.StoreAPIKey,
	}
}
