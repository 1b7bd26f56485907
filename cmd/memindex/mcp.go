package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/memindex/internal/logger"
	"github.com/dshills/memindex/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only tools over the Model Context Protocol",
	Long: `Starts an MCP server on stdio exposing semantic_search, entity_graph,
and global_graph over the project's collection. Stdout carries the
protocol; logs go to the collection log file only.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	// the server owns the store and closes it on shutdown

	log, closeLog, err := logger.Quiet(d.root, d.collection)
	if err != nil {
		return err
	}
	defer closeLog()

	srv := mcp.NewServer(d.store, d.embedder, d.collection)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Info("mcp server listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		return nil
	case err := <-errChan:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		return err
	}
}
