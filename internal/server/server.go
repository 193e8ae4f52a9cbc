// Package server exposes the query engine as MCP tools over stdio.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kustomcp/kustomcp/internal/core/domain"
	"github.com/kustomcp/kustomcp/internal/fit"
	"github.com/kustomcp/kustomcp/internal/infra/storage/postgres"
	"github.com/kustomcp/kustomcp/internal/render"
	"github.com/kustomcp/kustomcp/internal/retry"
)

// QueryEngine is the upstream query service. Implemented by the kusto
// client; faked in tests.
type QueryEngine interface {
	DefaultDatabase() string
	Query(ctx context.Context, database, csl string, limit int) (*domain.ResultSet, error)
	Mgmt(ctx context.Context, database, csl string) (*domain.ResultSet, error)
}

// SchemaCache holds introspection results between calls. Implemented by
// the redis client; nil disables caching.
type SchemaCache interface {
	GetDatabases(ctx context.Context) (*domain.ResultSet, bool)
	SetDatabases(ctx context.Context, rs *domain.ResultSet)
	GetTables(ctx context.Context, database string) (*domain.ResultSet, bool)
	SetTables(ctx context.Context, database string, rs *domain.ResultSet)
	GetTableSchema(ctx context.Context, database, table string) (*domain.ResultSet, bool)
	SetTableSchema(ctx context.Context, database, table string, rs *domain.ResultSet)
	GetFunctions(ctx context.Context, database string) (*domain.ResultSet, bool)
	SetFunctions(ctx context.Context, database string, rs *domain.ResultSet)
}

// Auditor records tool invocations and serves the audit trail back.
// Implemented by the postgres audit repo; nil disables auditing.
type Auditor interface {
	Record(ctx context.Context, rec postgres.QueryRecord) error
	Recent(ctx context.Context, limit int) ([]postgres.QueryRecord, error)
}

// Options configures the server.
type Options struct {
	Engine   QueryEngine
	Cache    SchemaCache // optional
	Auditor  Auditor     // optional
	Policy   retry.Policy
	Fit      fit.Options
	Renderer render.Renderer
	Version  string
}

// Server wires tools and prompts onto an MCP server.
type Server struct {
	engine   QueryEngine
	cache    SchemaCache
	auditor  Auditor
	policy   retry.Policy
	fitOpts  fit.Options
	renderer render.Renderer
	version  string
}

// New creates a server from options.
func New(opts Options) *Server {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New(render.FormatStructured)
	}
	return &Server{
		engine:   opts.Engine,
		cache:    opts.Cache,
		auditor:  opts.Auditor,
		policy:   opts.Policy,
		fitOpts:  opts.Fit,
		renderer: renderer,
		version:  version,
	}
}

// Run serves MCP over stdio until ctx is canceled or the client closes
// the stream.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{Name: "kustomcp", Version: s.version}, nil)
	s.registerTools(srv)
	s.registerPrompts(srv)

	slog.Info("MCP server listening on stdio", "version", s.version)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

// recordAudit persists one invocation record, best-effort. It uses its
// own timeout so a slow audit store never delays the tool response path
// it is called from.
func (s *Server) recordAudit(rec postgres.QueryRecord) {
	if s.auditor == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.auditor.Record(ctx, rec); err != nil {
		slog.Warn("failed to record query audit", "tool", rec.Tool, "error", err)
	}
}
