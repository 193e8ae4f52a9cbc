package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kustomcp/kustomcp/internal/render"
	"github.com/kustomcp/kustomcp/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
kusto:
  cluster_url: https://cluster.region.kusto.windows.net
  database: telemetry
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Kusto.Database != "telemetry" {
		t.Errorf("Database = %q, want telemetry", cfg.Kusto.Database)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Retry.MaxRetries != retry.DefaultPolicy.MaxRetries ||
		cfg.Retry.BaseDelay != retry.DefaultPolicy.BaseDelay ||
		cfg.Retry.Multiplier != retry.DefaultPolicy.Multiplier {
		t.Errorf("retry defaults not applied: %+v", cfg.Retry)
	}
	if cfg.Response.MaxLength != 20000 || cfg.Response.MinRows != 1 {
		t.Errorf("response defaults not applied: %+v", cfg.Response)
	}
	if cfg.Response.Format != render.FormatStructured {
		t.Errorf("Format = %q, want structured", cfg.Response.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KUSTO_MAX_RETRIES", "7")
	t.Setenv("KUSTO_RETRY_BASE_DELAY", "250ms")
	t.Setenv("KUSTO_MAX_RESPONSE_LENGTH", "5000")
	t.Setenv("KUSTO_RESPONSE_FORMAT", "tabular")

	path := writeConfig(t, `
kusto:
  cluster_url: https://cluster.region.kusto.windows.net
retry:
  max_retries: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Retry.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want env override 7", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 250ms", cfg.Retry.BaseDelay)
	}
	if cfg.Response.MaxLength != 5000 {
		t.Errorf("MaxLength = %d, want 5000", cfg.Response.MaxLength)
	}
	if cfg.Response.Format != render.FormatTabular {
		t.Errorf("Format = %q, want tabular", cfg.Response.Format)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("KUSTO_CLUSTER_URL", "https://cluster.region.kusto.windows.net")
	t.Setenv("KUSTO_DATABASE", "telemetry")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Kusto.ClusterURL == "" || cfg.Kusto.Database != "telemetry" {
		t.Errorf("environment config not applied: %+v", cfg.Kusto)
	}
}

func TestLoadRequiresClusterURL(t *testing.T) {
	t.Setenv("KUSTO_CLUSTER_URL", "")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error when no cluster URL is configured")
	}
}
