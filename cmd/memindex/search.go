package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/memindex/internal/searcher"
	"github.com/dshills/memindex/pkg/types"
)

var (
	searchLimit int
	searchType  string
	searchFile  string
	searchJSON  bool
	searchImpl  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed collection",
	Long: `Embeds the query and returns the nearest stored points. By default
only entity metadata is searched; use --type to rank relations or all
chunks including implementations.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "entity", "result population: entity, relation, or chunk")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "restrict results to one file's points")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchImpl, "implementation", false, "fetch the implementation chunk of the top result")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.close()

	s := searcher.New(d.store, d.embedder)
	resp, err := s.Search(context.Background(), searcher.Request{
		Query:      args[0],
		Collection: d.collection,
		Limit:      searchLimit,
		Type:       searcher.ResultType(searchType),
		FilePath:   searchFile,
	})
	if err != nil {
		return err
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp.Results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printResults(cmd, resp.Results)

	if searchImpl && len(resp.Results) > 0 && resp.Results[0].HasImplementation {
		impl, err := s.Implementation(context.Background(), d.collection, resp.Results[0].EntityName)
		if err != nil {
			return err
		}
		cmd.Println("Implementation:")
		cmd.Println(impl.Content)
	}
	return nil
}

func printResults(cmd *cobra.Command, results []types.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	for _, r := range results {
		cmd.Printf("  [%d] %s (%.2f)\n", r.Rank, r.EntityName, r.Score)
		if r.FilePath != "" {
			if r.StartLine > 0 {
				cmd.Printf("      %s:%d-%d\n", r.FilePath, r.StartLine, r.EndLine)
			} else {
				cmd.Printf("      %s\n", r.FilePath)
			}
		}
		if r.Content != "" {
			cmd.Printf("      %s\n", firstLine(r.Content))
		}
		cmd.Println()
	}
}

// firstLine trims a summary to its first line for table output
func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
