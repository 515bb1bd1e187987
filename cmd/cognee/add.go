package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var addText []string

var addCmd = &cobra.Command{
	Use:   "add DATASET [FILE...]",
	Short: "Add documents to a dataset",
	Long: `Add text documents to a dataset, creating the dataset on first use.

Content is read from the given files, from --text flags, or from stdin
when neither is provided. Each document is normalized, chunked, and
indexed for similarity search immediately; run cognify afterwards to
build the knowledge graph.

Examples:
  # Add files
  cognee add notes ./doc1.txt ./doc2.txt

  # Add inline text
  cognee add notes --text "Marie Curie discovered Polonium."

  # Pipe from stdin
  cat report.txt | cognee add reports`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringArrayVar(&addText, "text", nil, "Inline document text (repeatable)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	datasetName := args[0]

	items := append([]string{}, addText...)
	for _, path := range args[1:] {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		items = append(items, string(raw))
	}
	if len(items) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(raw) > 0 {
			items = append(items, string(raw))
		}
	}

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

	result, err := app.Service.Add(ctx, user.ID, datasetName, items)
	if err != nil {
		return err
	}

	cmd.Printf("Added %d document(s) to %q (%d chunks indexed)\n",
		result.ItemsAdded, result.Dataset.Name, result.ChunksStored)
	return nil
}
