package main

import (
	"github.com/spf13/cobra"

	"github.com/cognee-ai/cognee-go/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the HTTP API server.

The server exposes add, cognify, memify, search, dataset status, and
permission management endpoints under /v1. With auth disabled every
request runs as the configured default user; with auth enabled requests
need a JWT bearer token whose subject is a user id.

Examples:
  # Serve with defaults (localhost:8000, auth disabled)
  cognee serve

  # Serve with a specific config
  cognee serve --config ./cognee.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	server := api.NewServer(app.Service, app.Config.API, app.Logger)
	return server.ListenAndServe(cmd.Context())
}
