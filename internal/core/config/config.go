package config

import (
	"time"

	"github.com/kustomcp/kustomcp/internal/infra/kusto"
	redisclient "github.com/kustomcp/kustomcp/internal/infra/redis"
	"github.com/kustomcp/kustomcp/internal/infra/storage/postgres"
	"github.com/kustomcp/kustomcp/internal/render"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Kusto    kusto.Config       `yaml:"kusto"`
	Retry    RetryConfig        `yaml:"retry"`
	Response ResponseConfig     `yaml:"response"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds retry executor settings.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	Multiplier float64       `yaml:"multiplier"`
}

// ResponseConfig holds response fitting settings.
type ResponseConfig struct {
	MaxLength    int           `yaml:"max_length"`
	MinRows      int           `yaml:"min_rows"`
	MaxCellWidth int           `yaml:"max_cell_width"`
	Format       render.Format `yaml:"format"` // structured, tabular
}
