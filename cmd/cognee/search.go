package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognee-ai/cognee-go/internal/cognee"
)

var (
	searchType     string
	searchDatasets []string
	searchOutput   string
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search across datasets",
	Long: `Search the indexed knowledge by semantic similarity.

Search types:
  chunks      raw document chunks ranked by similarity (default)
  insights    matched entities with their graph neighborhood
  completion  an answer synthesized over the matched context

Only datasets the acting user may read are searched; requested datasets
without read access are reported as skipped.

Examples:
  # Chunk search over everything readable
  cognee search "radioactive elements"

  # Insights over one dataset
  cognee search "Marie Curie" --type insights --dataset notes

  # JSON output for scripting
  cognee search "Polonium" --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "chunks", "Search type: chunks, insights, or completion")
	searchCmd.Flags().StringArrayVar(&searchDatasets, "dataset", nil, "Dataset to search (repeatable; default all readable)")
	searchCmd.Flags().StringVar(&searchOutput, "output", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	user, err := actingUser(ctx, app)
	if err != nil {
		return err
	}

	result, err := app.Service.Search(ctx, user.ID, args[0], cognee.SearchType(searchType), searchDatasets)
	if err != nil {
		return err
	}

	if searchOutput == "json" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(raw))
		return nil
	}

	if result.Completion != "" {
		cmd.Println(result.Completion)
		cmd.Println()
	}
	for i, hit := range result.Hits {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] (%.3f) %s\n", i+1, hit.DatasetName, hit.Score, hit.Content)
		for _, related := range hit.Related {
			fmt.Fprintf(cmd.OutOrStdout(), "   related: %s\n", related)
		}
	}
	if len(result.Hits) == 0 {
		cmd.Println("No results.")
	}
	for _, name := range result.SkippedDatasets {
		cmd.Printf("Skipped %q: read permission missing\n", name)
	}
	return nil
}
