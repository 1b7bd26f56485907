package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/memindex/internal/config"
	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/vecstore"
	"github.com/dshills/memindex/pkg/types"
)

var (
	flagProject    string
	flagCollection string
	flagVerbose    bool
)

// errPartial marks a run that finished with per-file failures. It maps
// to exit code 1; every other error is fatal and maps to 2.
var errPartial = errors.New("completed with failures")

var rootCmd = &cobra.Command{
	Use:   "memindex",
	Short: "Incremental semantic code indexer",
	Long: `Parses a project into entities, relations, and chunks, embeds the
changed parts, and stores them as queryable vector points. Search,
graph views, and an MCP server read from the same collection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", ".", "project root directory")
	rootCmd.PersistentFlags().StringVarP(&flagCollection, "collection", "c", "", "collection name (default: project directory name)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug output")
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errPartial) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, types.ErrConfig) {
			fmt.Fprintln(os.Stderr, "Fix the configuration or environment and retry.")
		}
		return 2
	}
	return 0
}

// projectRoot resolves the --project flag to an absolute path
func projectRoot() (string, error) {
	abs, err := filepath.Abs(flagProject)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}

// collectionName resolves the --collection flag, defaulting to the
// project directory name.
func collectionName(root string) string {
	if flagCollection != "" {
		return flagCollection
	}
	return filepath.Base(root)
}

// deps bundles the collaborators every subcommand opens
type deps struct {
	cfg        *config.Config
	store      vecstore.Store
	embedder   *embedder.Coordinator
	root       string
	collection string
}

// openDeps loads config and opens the store and embedding coordinator
func openDeps() (*deps, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	provider, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConfig, err)
	}
	store, err := vecstore.New(cfg.StoreConfig(root))
	if err != nil {
		return nil, err
	}

	return &deps{
		cfg:        cfg,
		store:      store,
		embedder:   embedder.NewCoordinator(provider),
		root:       root,
		collection: collectionName(root),
	}, nil
}

func (d *deps) close() {
	_ = d.store.Close()
}
