// Package graph projects read-only views of the entity/relation graph
// stored in a collection. Nothing here mutates the store.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/dshills/memindex/internal/vecstore"
)

// Node is one entity as seen through its metadata chunk
type Node struct {
	Name              string `json:"name"`
	EntityType        string `json:"entity_type,omitempty"`
	FilePath          string `json:"file_path,omitempty"`
	LineStart         int    `json:"line_start,omitempty"`
	LineEnd           int    `json:"line_end,omitempty"`
	HasImplementation bool   `json:"has_implementation,omitempty"`
	Summary           string `json:"summary,omitempty"`
}

// Edge is one directed relation
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Type     string `json:"type"`
	FilePath string `json:"file_path,omitempty"`
}

// Graph reads projections from a vector store collection
type Graph struct {
	store vecstore.Store
}

// New creates a graph reader over a store
func New(store vecstore.Store) *Graph {
	return &Graph{store: store}
}

// GlobalOptions narrows and pages the global view. Cursors come from the
// previous page; zero values start from the beginning.
type GlobalOptions struct {
	EntityType   string
	RelationType string
	NodeCursor   string
	EdgeCursor   string
	Limit        int
}

// GlobalPage is one page of the whole graph. A cursor is empty when its
// side is exhausted.
type GlobalPage struct {
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
	NodeCursor string `json:"node_cursor,omitempty"`
	EdgeCursor string `json:"edge_cursor,omitempty"`
}

const defaultPageLimit = 100

// Global returns one page of entities and relations, optionally filtered
// by entity and relation type.
func (g *Graph) Global(ctx context.Context, collection string, opts GlobalOptions) (*GlobalPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	page := &GlobalPage{}

	nodes, err := g.store.Scroll(ctx, collection, vecstore.Filter{
		Type:       vecstore.PointChunk,
		ChunkType:  chunkMetadata,
		EntityType: opts.EntityType,
	}, true, false, opts.NodeCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll entities: %w", err)
	}
	for _, p := range nodes.Points {
		page.Nodes = append(page.Nodes, nodeFromPayload(&p.Payload))
	}
	page.NodeCursor = nodes.NextCursor

	edges, err := g.store.Scroll(ctx, collection, vecstore.Filter{
		Type:         vecstore.PointRelation,
		RelationType: opts.RelationType,
	}, true, false, opts.EdgeCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll relations: %w", err)
	}
	for _, p := range edges.Points {
		page.Edges = append(page.Edges, edgeFromPayload(&p.Payload))
	}
	page.EdgeCursor = edges.NextCursor

	return page, nil
}

// EntityView is the neighborhood of one entity: the entity itself, every
// relation touching it, and the metadata of entities within the requested
// distance.
type EntityView struct {
	Entity    Node   `json:"entity"`
	Incoming  []Edge `json:"incoming"`
	Outgoing  []Edge `json:"outgoing"`
	Neighbors []Node `json:"neighbors"`
}

// Entity builds the entity-centric view for a qualified name. depth is
// clamped to 1 or 2; at 2 the neighbors' neighbors are included as well.
// Returns vecstore.ErrNotFound when no such entity is stored.
func (g *Graph) Entity(ctx context.Context, collection, name string, depth int) (*EntityView, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}

	center, err := g.lookupNode(ctx, collection, name)
	if err != nil {
		return nil, err
	}
	if center == nil {
		return nil, fmt.Errorf("entity %q: %w", name, vecstore.ErrNotFound)
	}

	edges, err := g.allEdges(ctx, collection)
	if err != nil {
		return nil, err
	}

	view := &EntityView{Entity: *center}
	frontier := map[string]bool{name: true}
	visited := map[string]bool{name: true}

	for hop := 0; hop < depth; hop++ {
		next := make(map[string]bool)
		for _, e := range edges {
			if frontier[e.From] && !visited[e.To] {
				next[e.To] = true
			}
			if frontier[e.To] && !visited[e.From] {
				next[e.From] = true
			}
			if hop == 0 {
				if e.To == name {
					view.Incoming = append(view.Incoming, e)
				}
				if e.From == name {
					view.Outgoing = append(view.Outgoing, e)
				}
			}
		}
		for n := range next {
			visited[n] = true
		}
		frontier = next
	}

	names := make([]string, 0, len(visited)-1)
	for n := range visited {
		if n != name {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, n := range names {
		node, err := g.lookupNode(ctx, collection, n)
		if err != nil {
			return nil, err
		}
		// endpoints without a stored entity stay edge-only
		if node != nil {
			view.Neighbors = append(view.Neighbors, *node)
		}
	}

	return view, nil
}

// chunkMetadata mirrors the chunk kind constant without importing the
// whole types package for one string.
const chunkMetadata = "metadata"

// lookupNode fetches the metadata chunk for an entity name, nil when the
// entity is not stored.
func (g *Graph) lookupNode(ctx context.Context, collection, name string) (*Node, error) {
	page, err := g.store.Scroll(ctx, collection, vecstore.Filter{
		Type:       vecstore.PointChunk,
		ChunkType:  chunkMetadata,
		EntityName: name,
	}, true, false, "", 1)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entity: %w", err)
	}
	if len(page.Points) == 0 {
		return nil, nil
	}
	node := nodeFromPayload(&page.Points[0].Payload)
	return &node, nil
}

// allEdges scrolls every relation in the collection
func (g *Graph) allEdges(ctx context.Context, collection string) ([]Edge, error) {
	var edges []Edge
	cursor := ""
	for {
		page, err := g.store.Scroll(ctx, collection, vecstore.Filter{
			Type: vecstore.PointRelation,
		}, true, false, cursor, 500)
		if err != nil {
			return nil, fmt.Errorf("failed to scroll relations: %w", err)
		}
		for _, p := range page.Points {
			edges = append(edges, edgeFromPayload(&p.Payload))
		}
		if page.NextCursor == "" {
			return edges, nil
		}
		cursor = page.NextCursor
	}
}

func nodeFromPayload(p *vecstore.Payload) Node {
	return Node{
		Name:              p.EntityName,
		EntityType:        p.EntityType,
		FilePath:          p.FilePath,
		LineStart:         p.LineStart,
		LineEnd:           p.LineEnd,
		HasImplementation: p.HasImplementation,
		Summary:           p.Content,
	}
}

func edgeFromPayload(p *vecstore.Payload) Edge {
	return Edge{
		From:     p.FromEntity,
		To:       p.ToEntity,
		Type:     p.RelationType,
		FilePath: p.FilePath,
	}
}
