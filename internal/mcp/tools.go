package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/memindex/internal/graph"
	"github.com/dshills/memindex/internal/searcher"
	"github.com/dshills/memindex/internal/vecstore"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeEntityNotFound = -32001 // Requested entity is not in the collection
	ErrorCodeEmptyQuery     = -32002 // Query parameter is empty
)

// handleSemanticSearch handles the semantic_search tool invocation
func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resultType := getStringDefault(args, "type", string(searcher.ResultEntity))
	switch searcher.ResultType(resultType) {
	case searcher.ResultEntity, searcher.ResultRelation, searcher.ResultChunk:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid result type", map[string]interface{}{
			"param":   "type",
			"value":   resultType,
			"allowed": []string{"entity", "relation", "chunk"},
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.Request{
		Query:      query,
		Collection: s.collectionFor(args),
		Limit:      limit,
		Type:       searcher.ResultType(resultType),
		FilePath:   getStringDefault(args, "file_path", ""),
		UseCache:   getBoolDefault(args, "use_cache", true),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		entry := map[string]interface{}{
			"rank":        r.Rank,
			"score":       fmt.Sprintf("%.4f", r.Score),
			"entity_name": r.EntityName,
			"file_path":   r.FilePath,
			"content":     r.Content,
		}
		if r.EntityType != "" {
			entry["entity_type"] = string(r.EntityType)
		}
		if r.StartLine > 0 {
			entry["start_line"] = r.StartLine
			entry["end_line"] = r.EndLine
		}
		if r.HasImplementation {
			entry["has_implementation"] = true
		}
		results = append(results, entry)
	}

	response := map[string]interface{}{
		"query":       query,
		"total":       resp.Total,
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
		"results":     results,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEntityGraph handles the entity_graph tool invocation
func (s *Server) handleEntityGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entity, ok := args["entity"].(string)
	if !ok || entity == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "entity parameter is required", map[string]interface{}{
			"param":  "entity",
			"reason": "missing or empty",
		})
	}

	depth := getIntDefault(args, "depth", 1)
	if depth < 1 || depth > 2 {
		return nil, newMCPError(ErrorCodeInvalidParams, "depth must be 1 or 2", map[string]interface{}{
			"param": "depth",
			"value": depth,
		})
	}

	view, err := s.graph.Entity(ctx, s.collectionFor(args), entity, depth)
	if errors.Is(err, vecstore.ErrNotFound) {
		return nil, newMCPError(ErrorCodeEntityNotFound, "entity not found", map[string]interface{}{
			"entity": entity,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "graph lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"entity":    view.Entity,
		"incoming":  view.Incoming,
		"outgoing":  view.Outgoing,
		"neighbors": view.Neighbors,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGlobalGraph handles the global_graph tool invocation
func (s *Server) handleGlobalGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 100)
	if limit < 1 || limit > 500 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 500", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	page, err := s.graph.Global(ctx, s.collectionFor(args), graph.GlobalOptions{
		EntityType:   getStringDefault(args, "entity_type", ""),
		RelationType: getStringDefault(args, "relation_type", ""),
		NodeCursor:   getStringDefault(args, "node_cursor", ""),
		EdgeCursor:   getStringDefault(args, "edge_cursor", ""),
		Limit:        limit,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "graph scan failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"nodes": page.Nodes,
		"edges": page.Edges,
	}
	if page.NodeCursor != "" {
		response["node_cursor"] = page.NodeCursor
	}
	if page.EdgeCursor != "" {
		response["edge_cursor"] = page.EdgeCursor
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// collectionFor resolves the collection for one call, falling back to
// the server default.
func (s *Server) collectionFor(args map[string]interface{}) string {
	return getStringDefault(args, "collection", s.collection)
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
