package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/memindex/internal/graph"
)

var (
	graphDepth        int
	graphEntityType   string
	graphRelationType string
	graphLimit        int
	graphNodeCursor   string
	graphEdgeCursor   string
)

var graphCmd = &cobra.Command{
	Use:   "graph [entity]",
	Short: "Show the entity/relation graph",
	Long: `Without arguments, pages through every entity and relation in the
collection. With an entity name, shows that entity's neighborhood at
the requested distance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().IntVarP(&graphDepth, "depth", "d", 1, "neighborhood distance for an entity view (1 or 2)")
	graphCmd.Flags().StringVar(&graphEntityType, "entity-type", "", "only include entities of this type")
	graphCmd.Flags().StringVar(&graphRelationType, "relation-type", "", "only include relations of this type")
	graphCmd.Flags().IntVarP(&graphLimit, "limit", "n", 100, "entities and relations per page")
	graphCmd.Flags().StringVar(&graphNodeCursor, "node-cursor", "", "entity-side cursor from the previous page")
	graphCmd.Flags().StringVar(&graphEdgeCursor, "edge-cursor", "", "relation-side cursor from the previous page")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	g := graph.New(d.store)
	ctx := context.Background()

	var out interface{}
	if len(args) == 1 {
		out, err = g.Entity(ctx, d.collection, args[0], graphDepth)
	} else {
		out, err = g.Global(ctx, d.collection, graph.GlobalOptions{
			EntityType:   graphEntityType,
			RelationType: graphRelationType,
			NodeCursor:   graphNodeCursor,
			EdgeCursor:   graphEdgeCursor,
			Limit:        graphLimit,
		})
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
