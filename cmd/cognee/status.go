package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognee-ai/cognee-go/internal/cognee"
)

var statusPipeline string

var statusCmd = &cobra.Command{
	Use:   "status DATASET",
	Short: "Show the latest pipeline run for a dataset",
	Long: `Show the most recent run of a pipeline against a dataset.

Examples:
  # Latest cognify run
  cognee status notes

  # Latest add run
  cognee status notes --pipeline add`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPipeline, "pipeline", cognee.PipelineCognify, "Pipeline name: add, cognify, or memify")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	run, err := app.Service.Status(ctx, user.ID, args[0], statusPipeline)
	if err != nil {
		return err
	}
	if run == nil {
		cmd.Printf("Pipeline %q has never run against %q\n", statusPipeline, args[0])
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Run:\t%s\n", run.ID)
	fmt.Fprintf(w, "Status:\t%s\n", run.Status)
	fmt.Fprintf(w, "Created:\t%s\n", run.CreatedAt.Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:\t%s\n", run.FinishedAt.Format(time.RFC3339))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", run.Error)
	}
	return w.Flush()
}
