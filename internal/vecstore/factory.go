package vecstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted by NewFromEnv
const (
	EnvBackend = "MEMINDEX_VECTOR_STORE"
	EnvURL     = "VECTOR_STORE_URL"
	EnvAPIKey  = "VECTOR_STORE_API_KEY"
)

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config holds backend configuration
type Config struct {
	Backend string
	Path    string // sqlite database file
	URL     string // qdrant server
	APIKey  string
}

// New creates a store from explicit configuration
func New(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendQdrant:
		if cfg.URL == "" {
			return nil, fmt.Errorf("qdrant backend requires a server URL")
		}
		return NewQdrantStore(cfg.URL, cfg.APIKey), nil
	case BackendSQLite, "":
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath("")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown vector store backend %s", cfg.Backend)
	}
}

// NewFromEnv creates a store based on environment variables. A Qdrant
// server is used when VECTOR_STORE_URL is set (or MEMINDEX_VECTOR_STORE
// forces it); otherwise the embedded sqlite backend under projectDir.
func NewFromEnv(projectDir string) (Store, error) {
	backend := strings.ToLower(os.Getenv(EnvBackend))
	url := os.Getenv(EnvURL)
	apiKey := os.Getenv(EnvAPIKey)

	if backend == "" && url != "" {
		backend = BackendQdrant
	}
	return New(Config{
		Backend: backend,
		Path:    DefaultSQLitePath(projectDir),
		URL:     url,
		APIKey:  apiKey,
	})
}

// DefaultSQLitePath returns the embedded database location for a project
func DefaultSQLitePath(projectDir string) string {
	return filepath.Join(projectDir, ".indexer", "points.db")
}
