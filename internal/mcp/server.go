package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/memindex/internal/embedder"
	"github.com/dshills/memindex/internal/graph"
	"github.com/dshills/memindex/internal/searcher"
	"github.com/dshills/memindex/internal/vecstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "memindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies. Every tool
// it exposes is read-only; indexing happens through the CLI, never over
// the protocol.
type Server struct {
	mcp        *server.MCPServer
	store      vecstore.Store
	searcher   *searcher.Searcher
	graph      *graph.Graph
	collection string
}

// NewServer creates an MCP server over an already-opened store. The
// collection is the default for tool calls that do not name one.
func NewServer(store vecstore.Store, co *embedder.Coordinator, collection string) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:        mcpServer,
		store:      store,
		searcher:   searcher.New(store, co),
		graph:      graph.New(store),
		collection: collection,
	}

	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(semanticSearchTool(), s.handleSemanticSearch)
	s.mcp.AddTool(entityGraphTool(), s.handleEntityGraph)
	s.mcp.AddTool(globalGraphTool(), s.handleGlobalGraph)
}
