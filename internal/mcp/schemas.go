package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// semanticSearchTool returns the tool definition for semantic_search
func semanticSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "semantic_search",
		Description: "Search an indexed codebase with natural language queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection to search (defaults to the server's collection)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Result population: entity (metadata chunks), relation, or chunk (all chunks including implementations)",
					"enum":        []string{"entity", "relation", "chunk"},
					"default":     "entity",
				},
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one file's points (project-relative path)",
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, serve repeated queries from the response cache",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

// entityGraphTool returns the tool definition for entity_graph
func entityGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "entity_graph",
		Description: "Fetch the relation neighborhood of one entity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entity": map[string]interface{}{
					"type":        "string",
					"description": "Qualified entity name (e.g. 'src/app.py::process')",
				},
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Neighborhood distance (1 or 2)",
					"default":     1,
					"minimum":     1,
					"maximum":     2,
				},
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection to read (defaults to the server's collection)",
				},
			},
			Required: []string{"entity"},
		},
	}
}

// globalGraphTool returns the tool definition for global_graph
func globalGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "global_graph",
		Description: "Page through every entity and relation in a collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entity_type": map[string]interface{}{
					"type":        "string",
					"description": "Only include entities of this type (e.g. 'function', 'class', 'file')",
				},
				"relation_type": map[string]interface{}{
					"type":        "string",
					"description": "Only include relations of this type (e.g. 'calls', 'imports', 'contains')",
				},
				"node_cursor": map[string]interface{}{
					"type":        "string",
					"description": "Entity-side cursor from the previous page",
				},
				"edge_cursor": map[string]interface{}{
					"type":        "string",
					"description": "Relation-side cursor from the previous page",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum entities and relations per page (1-500)",
					"default":     100,
					"minimum":     1,
					"maximum":     500,
				},
				"collection": map[string]interface{}{
					"type":        "string",
					"description": "Collection to read (defaults to the server's collection)",
				},
			},
		},
	}
}
