package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/memindex/internal/indexer"
	"github.com/dshills/memindex/internal/logger"
	"github.com/dshills/memindex/pkg/types"
)

var (
	indexClear    bool
	indexClearAll bool
	indexForce    bool
	indexWorkers  int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project into the collection",
	Long: `Discovers supported files, parses them into entities and relations,
embeds changed chunks, and updates the vector store. Unchanged files
are skipped using the previous run's snapshot.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "erase indexed points first, keeping manual records")
	indexCmd.Flags().BoolVar(&indexClearAll, "clear-all", false, "erase every point, manual records included")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reprocess files even when mtime and size are unchanged")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "concurrent file workers (default: CPU count)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexClear && indexClearAll {
		return fmt.Errorf("%w: --clear and --clear-all are mutually exclusive", types.ErrConfig)
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	log, closeLog, err := logger.New(d.root, d.collection, flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	mode := indexer.ModeIncremental
	if indexClear {
		mode = indexer.ModeClear
	}
	if indexClearAll {
		mode = indexer.ModeClearAll
	}

	workers := indexWorkers
	if workers == 0 {
		workers = d.cfg.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := indexer.New(d.store, d.embedder, log)
	stats, err := idx.Run(ctx, indexer.Config{
		ProjectRoot: d.root,
		Collection:  d.collection,
		Include:     d.cfg.Include,
		Exclude:     d.cfg.Exclude,
		Mode:        mode,
		Force:       indexForce,
		Workers:     workers,
	})
	if err != nil {
		return err
	}

	printSummary(cmd, stats)
	if stats.FilesFailed > 0 {
		return errPartial
	}
	return nil
}

func printSummary(cmd *cobra.Command, stats *indexer.Statistics) {
	cmd.Printf("Files:     %d indexed, %d skipped, %d failed\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed)
	cmd.Printf("Chunks:    %d upserted, %d deleted, %d unchanged\n",
		stats.ChunksUpserted, stats.ChunksDeleted, stats.ChunksUnchanged)
	cmd.Printf("Relations: %d upserted, %d orphans removed\n",
		stats.RelationsUpserted, stats.OrphansRemoved)
	cmd.Printf("Embedding: %d texts, %d tokens", stats.Cost.Texts, stats.Cost.Tokens)
	if stats.Cost.USD > 0 {
		cmd.Printf(" ($%.4f %s/%s)", stats.Cost.USD, stats.Cost.Provider, stats.Cost.Model)
	}
	cmd.Printf("\nDuration:  %s\n", stats.Duration.Round(time.Millisecond))

	for _, o := range stats.Outcomes {
		if o.Status == types.OutcomeFailed {
			cmd.Printf("  FAILED %s: %s (%s)\n", o.FilePath, o.Detail, o.Kind)
		}
	}
}
