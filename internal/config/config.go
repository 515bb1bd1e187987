// Package config loads and validates the application configuration
// from YAML with environment variable interpolation.
package config

import (
	"github.com/cognee-ai/cognee-go/internal/embedder"
	"github.com/cognee-ai/cognee-go/internal/llm"
	"github.com/cognee-ai/cognee-go/internal/storage"
)

// Config is the root configuration.
type Config struct {
	Core     CoreConfig      `mapstructure:"core" yaml:"core" validate:"required"`
	Database DatabaseConfig  `mapstructure:"database" yaml:"database" validate:"required"`
	Storage  storage.Config  `mapstructure:"storage" yaml:"storage"`
	Embedder embedder.Config `mapstructure:"embedder" yaml:"embedder"`
	LLM      llm.Config      `mapstructure:"llm" yaml:"llm"`
	Pipeline PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline"`
	API      APIConfig       `mapstructure:"api" yaml:"api"`
	Logging  LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig contains application-wide settings.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// DatabaseConfig locates the relational metadata store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PipelineConfig tunes the execution engine.
type PipelineConfig struct {
	// Distributed switches batch execution from direct calls to the
	// worker dispatcher.
	Distributed bool `mapstructure:"distributed" yaml:"distributed"`

	// WorkerEndpoint is the remote worker URL. Empty means dispatch
	// stays in process even in distributed mode.
	WorkerEndpoint string `mapstructure:"worker_endpoint" yaml:"worker_endpoint"`

	BatchSize   int `mapstructure:"batch_size" yaml:"batch_size" validate:"min=0,max=10000"`
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"min=0,max=256"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`

	// AuthEnabled requires a JWT bearer token on every request. When
	// false, requests run as DefaultUserEmail.
	AuthEnabled      bool   `mapstructure:"auth_enabled" yaml:"auth_enabled"`
	JWTSecret        string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	DefaultUserEmail string `mapstructure:"default_user_email" yaml:"default_user_email"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// TracingConfig controls the OpenTelemetry decorators.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}
