package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/cognee"
	"github.com/cognee-ai/cognee-go/internal/config"
)

var (
	configFile string
	userEmail  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "cognee",
	Short: "Cognee - knowledge graph memory for AI agents",
	Long: `Cognee turns raw text into a queryable knowledge graph.

Add documents to datasets, run the cognify pipeline to extract entities
and relations, and search the result by similarity, graph neighborhood,
or synthesized completion.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default $COGNEE_HOME/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&userEmail, "user", "", "Acting user email (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(cognifyCmd)
	rootCmd.AddCommand(memifyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadAppConfig resolves the config file path and loads it, falling
// back to defaults when the file does not exist.
func loadAppConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = filepath.Join(config.DefaultConfig().Core.HomeDir, "config.yaml")
	}
	return config.NewLoader(config.NewValidator()).LoadWithDefaults(path)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// openApp builds the application from configuration. Callers own the
// returned app and must Close it.
func openApp() (*cognee.App, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	return cognee.Build(cfg, newLogger(cfg.Logging))
}

// actingUser resolves the principal CLI commands run as.
func actingUser(ctx context.Context, app *cognee.App) (*accesscontrol.User, error) {
	email := userEmail
	if email == "" {
		email = app.Config.API.DefaultUserEmail
	}
	return cognee.EnsureUser(ctx, app.Service.ACL().Store(), email)
}
