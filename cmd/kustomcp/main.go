package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/kustomcp/kustomcp/internal/core/config"
	"github.com/kustomcp/kustomcp/internal/fit"
	"github.com/kustomcp/kustomcp/internal/health"
	"github.com/kustomcp/kustomcp/internal/infra/kusto"
	redisclient "github.com/kustomcp/kustomcp/internal/infra/redis"
	"github.com/kustomcp/kustomcp/internal/infra/storage/postgres"
	"github.com/kustomcp/kustomcp/internal/render"
	"github.com/kustomcp/kustomcp/internal/retry"
	"github.com/kustomcp/kustomcp/internal/server"
)

const version = "0.3.0"

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Optional .env for local development; MCP clients usually inject env.
	_ = godotenv.Load()

	// Load Configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to default logger for config load errors
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	// Logs go to stderr via tint; stdout belongs to the MCP transport.
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	slog.Info("Logger initialized", "level", slogLevel.String())

	tokens, err := tokenProvider(cfg.Kusto.ClusterURL)
	if err != nil {
		slog.Error("Failed to set up cluster authentication", "error", err)
		os.Exit(1)
	}
	engine := kusto.NewClient(cfg.Kusto, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkers := []health.Checker{
		health.NewCheck("kusto", false, func(ctx context.Context) error {
			_, err := engine.Mgmt(ctx, "", ".show version")
			return err
		}),
	}

	var auditor server.Auditor
	var signals []health.Signal
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		auditRepo := postgres.NewAuditRepo(db)
		auditor = auditRepo
		checkers = append(checkers, health.NewCheck("postgres", true, func(ctx context.Context) error {
			return db.PingContext(ctx)
		}))
		signals = append(signals, health.NewSignal("audit_failure_rate_15m", func(ctx context.Context) (float64, error) {
			return auditRepo.FailureRate(ctx, 15*time.Minute)
		}))
		slog.Info("Query audit enabled")
	}

	var cache server.SchemaCache
	if cfg.Redis.URL != "" {
		rdb, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cache = rdb
		checkers = append(checkers, health.NewCheck("redis", true, rdb.Ping))
		slog.Info("Schema cache enabled")
	}

	monitor := health.NewMonitor(checkers...)
	monitor.AddSignals(signals...)
	healthSrv := health.NewServer(monitor, cfg.Server.Port)
	go func() {
		slog.Info("Health server listening", "port", cfg.Server.Port)
		if err := healthSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server stopped", "error", err)
		}
	}()

	app := server.New(server.Options{
		Engine:  engine,
		Cache:   cache,
		Auditor: auditor,
		Policy: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			Multiplier: cfg.Retry.Multiplier,
		},
		Fit: fit.Options{
			MaxLength: cfg.Response.MaxLength,
			MinRows:   cfg.Response.MinRows,
			Render:    render.Config{MaxCellWidth: cfg.Response.MaxCellWidth},
		},
		Renderer: render.New(cfg.Response.Format),
		Version:  version,
	})

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			slog.Error("MCP server stopped", "error", err)
		}
	}

	// Graceful Shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthSrv.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped gracefully")
}

// tokenProvider prefers a static token from the environment and falls
// back to the Azure default credential chain.
func tokenProvider(clusterURL string) (kusto.TokenProvider, error) {
	if token := os.Getenv("KUSTO_TOKEN"); token != "" {
		return kusto.StaticToken(token), nil
	}
	return kusto.NewAzureTokenProvider(clusterURL)
}
