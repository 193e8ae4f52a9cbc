// Package kusto is a thin REST client for Azure Data Explorer clusters.
package kusto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

// Config holds cluster connection settings.
type Config struct {
	ClusterURL string        `yaml:"cluster_url"`
	Database   string        `yaml:"database"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Client talks to a cluster over the v1 REST endpoints.
type Client struct {
	cfg        Config
	tokens     TokenProvider
	httpClient *http.Client
}

// NewClient creates a cluster client.
func NewClient(cfg Config, tokens TokenProvider) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// DefaultDatabase returns the configured default database.
func (c *Client) DefaultDatabase() string {
	return c.cfg.Database
}

// Query runs a KQL query. limit caps the rows kept in the returned
// result set (0 = keep everything); TotalRowsAvailable records how many
// rows the service produced before the cap.
func (c *Client) Query(ctx context.Context, database, csl string, limit int) (*domain.ResultSet, error) {
	return c.execute(ctx, "/v1/rest/query", database, csl, limit)
}

// Mgmt runs a management (dot) command, used for schema introspection.
func (c *Client) Mgmt(ctx context.Context, database, csl string) (*domain.ResultSet, error) {
	return c.execute(ctx, "/v1/rest/mgmt", database, csl, 0)
}

func (c *Client) execute(ctx context.Context, path, database, csl string, limit int) (*domain.ResultSet, error) {
	if database == "" {
		database = c.cfg.Database
	}

	// The v1 endpoints expect a properties member even when no request
	// options are set.
	reqBody := map[string]any{
		"db":         database,
		"csl":        csl,
		"properties": map[string]any{"Options": map[string]any{}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.ClusterURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kusto call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
			httpErr.API = &envelope.Error
		}
		return nil, httpErr
	}

	var frame v1Response
	if err := json.Unmarshal(body, &frame); err != nil {
		return nil, &QueryError{Message: fmt.Sprintf("malformed response frame: %v", err)}
	}
	if len(frame.Exceptions) > 0 {
		return nil, &QueryError{Message: frame.Exceptions[0]}
	}
	if len(frame.Tables) == 0 {
		return nil, &QueryError{Message: "response frame contains no tables"}
	}

	return frame.Tables[0].toResultSet(limit), nil
}

// v1Response is the v1 REST response frame. The primary result is the
// first table; trailing tables carry query diagnostics.
type v1Response struct {
	Tables     []v1Table `json:"Tables"`
	Exceptions []string  `json:"Exceptions"`
}

type v1Table struct {
	TableName string     `json:"TableName"`
	Columns   []v1Column `json:"Columns"`
	Rows      [][]any    `json:"Rows"`
}

type v1Column struct {
	ColumnName string `json:"ColumnName"`
	DataType   string `json:"DataType"`
	ColumnType string `json:"ColumnType"`
}

func (t v1Table) toResultSet(limit int) *domain.ResultSet {
	columns := make([]domain.Column, len(t.Columns))
	for i, col := range t.Columns {
		colType := col.ColumnType
		if colType == "" {
			colType = col.DataType
		}
		columns[i] = domain.Column{Name: col.ColumnName, Type: colType}
	}

	total := len(t.Rows)
	kept := t.Rows
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	rows := make([]domain.Row, len(kept))
	for i, raw := range kept {
		row := make(domain.Row, len(columns))
		for j, col := range columns {
			if j < len(raw) {
				row[col.Name] = raw[j]
			}
		}
		rows[i] = row
	}

	return &domain.ResultSet{
		Columns:            columns,
		Rows:               rows,
		TotalRowsAvailable: total,
		RequestedLimit:     limit,
	}
}
