package main

import (
	"github.com/spf13/cobra"
)

var memifyCmd = &cobra.Command{
	Use:   "memify DATASET",
	Short: "Derive higher-order memory from the graph",
	Long: `Run the memify pipeline over an already-cognified dataset.

Memify reads the existing graph and derives co-occurrence relations
between entities mentioned in the same chunk, weighting repeated
pairings. Derived edges feed the insights search type.

Examples:
  cognee memify notes`,
	Args: cobra.ExactArgs(1),
	RunE: runMemify,
}

func runMemify(cmd *cobra.Command, args []string) error {
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

	result, err := app.Service.Memify(ctx, user.ID, args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Derived %d co-occurrence edge(s) in %q\n", result.DerivedEdges, args[0])
	return nil
}
