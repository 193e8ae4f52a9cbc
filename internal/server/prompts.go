package server

import (
	"bytes"
	"context"
	"embed"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

func (s *Server) registerPrompts(srv *mcp.Server) {
	srv.AddPrompt(&mcp.Prompt{
		Name:        "kql_help",
		Description: "Guidance for writing KQL queries against this cluster.",
		Arguments: []*mcp.PromptArgument{
			{Name: "topic", Description: "Optional topic to focus on (joins, aggregation, time ranges)."},
		},
	}, s.promptHandler("kql_help"))

	srv.AddPrompt(&mcp.Prompt{
		Name:        "explore_table",
		Description: "A walkthrough for exploring an unfamiliar table.",
		Arguments: []*mcp.PromptArgument{
			{Name: "table", Description: "Table to explore.", Required: true},
		},
	}, s.promptHandler("explore_table"))
}

func (s *Server) promptHandler(name string) func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := map[string]string{}
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		data := map[string]string{
			"Database": s.engine.DefaultDatabase(),
		}
		for k, v := range args {
			data[k] = v
		}

		var buf bytes.Buffer
		if err := promptTemplates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
			return nil, err
		}

		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: buf.String()}},
			},
		}, nil
	}
}
