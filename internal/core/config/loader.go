package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/kustomcp/kustomcp/internal/render"
	"github.com/kustomcp/kustomcp/internal/retry"
)

// Load reads configuration from a YAML file, then applies environment
// variable overrides and defaults. A missing file is not an error: MCP
// clients commonly launch the server with environment-only configuration.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// fall through to env + defaults
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Kusto.ClusterURL == "" {
		return nil, fmt.Errorf("kusto cluster URL is not configured (set kusto.cluster_url or KUSTO_CLUSTER_URL)")
	}

	return &cfg, nil
}

// applyEnv overlays KUSTO_* environment variables on top of file values.
func applyEnv(cfg *AppConfig) {
	setString(&cfg.Kusto.ClusterURL, "KUSTO_CLUSTER_URL")
	setString(&cfg.Kusto.Database, "KUSTO_DATABASE")
	setDuration(&cfg.Kusto.Timeout, "KUSTO_QUERY_TIMEOUT")

	setInt(&cfg.Retry.MaxRetries, "KUSTO_MAX_RETRIES")
	setDuration(&cfg.Retry.BaseDelay, "KUSTO_RETRY_BASE_DELAY")
	setFloat(&cfg.Retry.Multiplier, "KUSTO_RETRY_MULTIPLIER")

	setInt(&cfg.Response.MaxLength, "KUSTO_MAX_RESPONSE_LENGTH")
	setInt(&cfg.Response.MinRows, "KUSTO_MIN_ROWS")
	setInt(&cfg.Response.MaxCellWidth, "KUSTO_MAX_CELL_WIDTH")
	if v := os.Getenv("KUSTO_RESPONSE_FORMAT"); v != "" {
		cfg.Response.Format = render.Format(v)
	}

	setString(&cfg.Database.URL, "KUSTO_AUDIT_DATABASE_URL")
	setString(&cfg.Redis.URL, "KUSTO_CACHE_REDIS_URL")
	setInt(&cfg.Server.Port, "KUSTO_HTTP_PORT")
	setString(&cfg.Logging.Level, "KUSTO_LOG_LEVEL")
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Kusto.Timeout == 0 {
		cfg.Kusto.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = retry.DefaultPolicy.MaxRetries
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = retry.DefaultPolicy.BaseDelay
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = retry.DefaultPolicy.Multiplier
	}
	if cfg.Response.MaxLength == 0 {
		cfg.Response.MaxLength = 20000
	}
	if cfg.Response.MinRows == 0 {
		cfg.Response.MinRows = 1
	}
	if cfg.Response.MaxCellWidth == 0 {
		cfg.Response.MaxCellWidth = 120
	}
	if cfg.Response.Format == "" {
		cfg.Response.Format = render.FormatStructured
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
