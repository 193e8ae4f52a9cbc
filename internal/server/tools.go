package server

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kustomcp/kustomcp/internal/core/domain"
	"github.com/kustomcp/kustomcp/internal/fit"
	"github.com/kustomcp/kustomcp/internal/infra/storage/postgres"
	"github.com/kustomcp/kustomcp/internal/metrics"
	"github.com/kustomcp/kustomcp/internal/queryerr"
	"github.com/kustomcp/kustomcp/internal/retry"
)

// defaultQueryLimit caps fetched rows when the caller does not ask for a
// limit; the response fitter bounds the rendered size further.
const defaultQueryLimit = 1000

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// QueryArgs are the arguments of the kusto_query tool.
type QueryArgs struct {
	Query    string `json:"query" jsonschema:"KQL query to execute"`
	Database string `json:"database,omitempty" jsonschema:"database to run against, defaults to the configured database"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum rows to fetch before response fitting, defaults to 1000"`
}

// TableArgs are the arguments of the kusto_table_schema tool.
type TableArgs struct {
	Table    string `json:"table" jsonschema:"table name"`
	Database string `json:"database,omitempty" jsonschema:"database holding the table, defaults to the configured database"`
}

// DatabaseArgs select an optional database for introspection tools.
type DatabaseArgs struct {
	Database string `json:"database,omitempty" jsonschema:"database to inspect, defaults to the configured database"`
}

// HistoryArgs are the arguments of the kusto_query_history tool.
type HistoryArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum history entries to return, defaults to 50"`
}

type emptyArgs struct{}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_query",
		Description: "Execute a KQL query against the cluster and return the results.",
	}, s.handleQuery)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_list_databases",
		Description: "List databases available on the cluster.",
	}, s.handleListDatabases)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_list_tables",
		Description: "List tables in a database.",
	}, s.handleListTables)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_table_schema",
		Description: "Show the column schema of a table.",
	}, s.handleTableSchema)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_list_functions",
		Description: "List stored functions in a database.",
	}, s.handleListFunctions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "kusto_query_history",
		Description: "Show recent audited tool invocations, newest first.",
	}, s.handleQueryHistory)
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	if args.Query == "" {
		return toolError("query must not be empty"), nil, nil
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	database := s.database(args.Database)

	started := time.Now()
	rs, err := retry.Do(ctx, "kusto_query", s.policy, func(ctx context.Context) (*domain.ResultSet, error) {
		return s.engine.Query(ctx, database, args.Query, limit)
	})
	return s.respond(ctx, "kusto_query", database, args.Query, started, rs, err)
}

func (s *Server) handleListDatabases(ctx context.Context, req *mcp.CallToolRequest, args emptyArgs) (*mcp.CallToolResult, any, error) {
	const csl = ".show databases | project DatabaseName, PrettyName"

	started := time.Now()
	if s.cache != nil {
		if rs, ok := s.cache.GetDatabases(ctx); ok {
			return s.respond(ctx, "kusto_list_databases", "", csl, started, rs, nil)
		}
	}

	rs, err := retry.Do(ctx, "kusto_list_databases", s.policy, func(ctx context.Context) (*domain.ResultSet, error) {
		return s.engine.Mgmt(ctx, "", csl)
	})
	if err == nil && s.cache != nil {
		s.cache.SetDatabases(ctx, rs)
	}
	return s.respond(ctx, "kusto_list_databases", "", csl, started, rs, err)
}

func (s *Server) handleListTables(ctx context.Context, req *mcp.CallToolRequest, args DatabaseArgs) (*mcp.CallToolResult, any, error) {
	const csl = ".show tables | project TableName, Folder, DocString"
	database := s.database(args.Database)

	started := time.Now()
	if s.cache != nil {
		if rs, ok := s.cache.GetTables(ctx, database); ok {
			return s.respond(ctx, "kusto_list_tables", database, csl, started, rs, nil)
		}
	}

	rs, err := retry.Do(ctx, "kusto_list_tables", s.policy, func(ctx context.Context) (*domain.ResultSet, error) {
		return s.engine.Mgmt(ctx, database, csl)
	})
	if err == nil && s.cache != nil {
		s.cache.SetTables(ctx, database, rs)
	}
	return s.respond(ctx, "kusto_list_tables", database, csl, started, rs, err)
}

func (s *Server) handleTableSchema(ctx context.Context, req *mcp.CallToolRequest, args TableArgs) (*mcp.CallToolResult, any, error) {
	if !identifierPattern.MatchString(args.Table) {
		return toolError(fmt.Sprintf("invalid table name %q", args.Table)), nil, nil
	}
	csl := fmt.Sprintf(".show table %s cslschema", args.Table)
	database := s.database(args.Database)

	started := time.Now()
	if s.cache != nil {
		if rs, ok := s.cache.GetTableSchema(ctx, database, args.Table); ok {
			return s.respond(ctx, "kusto_table_schema", database, csl, started, rs, nil)
		}
	}

	rs, err := retry.Do(ctx, "kusto_table_schema", s.policy, func(ctx context.Context) (*domain.ResultSet, error) {
		return s.engine.Mgmt(ctx, database, csl)
	})
	if err == nil && s.cache != nil {
		s.cache.SetTableSchema(ctx, database, args.Table, rs)
	}
	return s.respond(ctx, "kusto_table_schema", database, csl, started, rs, err)
}

func (s *Server) handleListFunctions(ctx context.Context, req *mcp.CallToolRequest, args DatabaseArgs) (*mcp.CallToolResult, any, error) {
	const csl = ".show functions | project Name, Parameters, Folder, DocString"
	database := s.database(args.Database)

	started := time.Now()
	if s.cache != nil {
		if rs, ok := s.cache.GetFunctions(ctx, database); ok {
			return s.respond(ctx, "kusto_list_functions", database, csl, started, rs, nil)
		}
	}

	rs, err := retry.Do(ctx, "kusto_list_functions", s.policy, func(ctx context.Context) (*domain.ResultSet, error) {
		return s.engine.Mgmt(ctx, database, csl)
	})
	if err == nil && s.cache != nil {
		s.cache.SetFunctions(ctx, database, rs)
	}
	return s.respond(ctx, "kusto_list_functions", database, csl, started, rs, err)
}

func (s *Server) handleQueryHistory(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	if s.auditor == nil {
		return toolError("query audit is not configured"), nil, nil
	}
	metrics.QueriesTotal.WithLabelValues("kusto_query_history").Inc()

	records, err := s.auditor.Recent(ctx, args.Limit)
	if err != nil {
		return toolError(fmt.Sprintf("kusto_query_history failed: %v", err)), nil, nil
	}

	fitted, fitErr := fit.Limit(historyResultSet(records), s.renderer, s.fitOpts)
	if fitErr != nil {
		return nil, nil, fitErr
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fitted.Text}},
	}, nil, nil
}

// historyResultSet presents audit records in the same shape as query
// results so both renderers and the response fitter apply unchanged.
func historyResultSet(records []postgres.QueryRecord) *domain.ResultSet {
	columns := []domain.Column{
		{Name: "CreatedAt", Type: "datetime"},
		{Name: "Tool", Type: "string"},
		{Name: "Database", Type: "string"},
		{Name: "Query", Type: "string"},
		{Name: "DurationMs", Type: "long"},
		{Name: "RowsReturned", Type: "long"},
		{Name: "Truncated", Type: "bool"},
		{Name: "ErrorClass", Type: "string"},
	}
	rows := make([]domain.Row, len(records))
	for i, rec := range records {
		rows[i] = domain.Row{
			"CreatedAt":    rec.CreatedAt,
			"Tool":         rec.Tool,
			"Database":     rec.Database,
			"Query":        rec.QueryText,
			"DurationMs":   rec.DurationMS,
			"RowsReturned": rec.RowsReturned,
			"Truncated":    rec.Truncated,
			"ErrorClass":   rec.ErrorClass,
		}
	}
	return &domain.ResultSet{Columns: columns, Rows: rows, TotalRowsAvailable: len(records)}
}

// respond turns a query outcome into a tool result: failures carry their
// classification, successes get fitted into the response budget. Every
// path updates metrics and the audit trail.
func (s *Server) respond(ctx context.Context, tool, database, queryText string, started time.Time, rs *domain.ResultSet, err error) (*mcp.CallToolResult, any, error) {
	duration := time.Since(started)
	metrics.QueriesTotal.WithLabelValues(tool).Inc()
	metrics.QueryLatency.WithLabelValues(tool).Observe(duration.Seconds())

	rec := postgres.QueryRecord{
		Tool:       tool,
		Database:   database,
		QueryText:  queryText,
		DurationMS: duration.Milliseconds(),
	}

	if err != nil {
		class := queryerr.Classify(err)
		metrics.QueryErrorsTotal.WithLabelValues(tool, class.String()).Inc()
		rec.ErrorClass = class.String()
		rec.ErrorMessage = err.Error()
		s.recordAudit(rec)
		return toolError(fmt.Sprintf("%s failed (%s error): %v", tool, class, err)), nil, nil
	}

	fitted, fitErr := fit.Limit(rs, s.renderer, s.fitOpts)
	if fitErr != nil {
		// Configuration errors are the operator's problem, not the
		// caller's; surface them as protocol errors.
		return nil, nil, fitErr
	}

	if fitted.Truncated {
		metrics.ResponsesTruncated.WithLabelValues(tool).Inc()
	}
	metrics.RowsReturned.Observe(float64(fitted.RowCount))

	rec.RowsReturned = fitted.RowCount
	rec.RowsAvailable = rs.TotalRowsAvailable
	rec.Truncated = fitted.Truncated
	s.recordAudit(rec)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fitted.Text}},
	}, nil, nil
}

func (s *Server) database(requested string) string {
	if requested != "" {
		return requested
	}
	return s.engine.DefaultDatabase()
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
