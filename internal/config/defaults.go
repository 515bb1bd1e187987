package config

import (
	"os"
	"path/filepath"

	"github.com/cognee-ai/cognee-go/internal/embedder"
	"github.com/cognee-ai/cognee-go/internal/llm"
	"github.com/cognee-ai/cognee-go/internal/storage"
)

// DefaultConfig returns a Config with working defaults: offline
// providers, shared storage, auth disabled.
func DefaultConfig() *Config {
	homeDir := defaultHomeDir()
	dataDir := filepath.Join(homeDir, "data")

	return &Config{
		Core: CoreConfig{
			HomeDir: homeDir,
			DataDir: dataDir,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, "cognee.db"),
		},
		Storage: storage.Config{
			Isolated:         false,
			DataRoot:         dataDir,
			VectorDimensions: embedder.DefaultConfig().Dimensions,
		},
		Embedder: embedder.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		Pipeline: PipelineConfig{
			Distributed: false,
			BatchSize:   10,
			Concurrency: 4,
		},
		API: APIConfig{
			Host:             "127.0.0.1",
			Port:             8000,
			AuthEnabled:      false,
			DefaultUserEmail: "default@cognee.local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

func defaultHomeDir() string {
	if dir := os.Getenv("COGNEE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cognee"
	}
	return filepath.Join(home, ".cognee")
}
