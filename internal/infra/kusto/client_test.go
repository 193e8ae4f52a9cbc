package kusto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kustomcp/kustomcp/internal/queryerr"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		ClusterURL: url,
		Database:   "testdb",
		Timeout:    5 * time.Second,
	}, StaticToken("test-token"))
}

func TestClientQueryParsesResponseFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rest/query" {
			t.Errorf("expected path /v1/rest/query, got %s", r.URL.Path)
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if body["db"] != "testdb" {
			t.Errorf("expected db testdb, got %v", body["db"])
		}
		if body["csl"] != "Events | take 5" {
			t.Errorf("unexpected csl: %v", body["csl"])
		}
		if _, ok := body["properties"].(map[string]any); !ok {
			t.Errorf("request body missing properties member: %v", body)
		}

		response := map[string]any{
			"Tables": []any{
				map[string]any{
					"TableName": "Table_0",
					"Columns": []any{
						map[string]any{"ColumnName": "Name", "DataType": "String", "ColumnType": "string"},
						map[string]any{"ColumnName": "Count", "DataType": "Int64", "ColumnType": "long"},
					},
					"Rows": []any{
						[]any{"alpha", float64(10)},
						[]any{"beta", float64(20)},
						[]any{"gamma", float64(30)},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rs, err := client.Query(context.Background(), "", "Events | take 5", 2)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}

	if len(rs.Columns) != 2 || rs.Columns[0].Name != "Name" || rs.Columns[1].Type != "long" {
		t.Errorf("unexpected columns: %+v", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("expected limit of 2 rows applied, got %d", len(rs.Rows))
	}
	if rs.TotalRowsAvailable != 3 {
		t.Errorf("TotalRowsAvailable = %d, want 3", rs.TotalRowsAvailable)
	}
	if rs.Rows[0]["Name"] != "alpha" || rs.Rows[1]["Count"] != float64(20) {
		t.Errorf("unexpected rows: %+v", rs.Rows)
	}
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "Unauthorized",
				"message": "authentication failed",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Query(context.Background(), "", "Events", 0)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", httpErr.StatusCode)
	}
	if httpErr.API == nil || httpErr.API.Code != "Unauthorized" {
		t.Errorf("API error payload not parsed: %+v", httpErr.API)
	}
	if got := queryerr.Classify(err); got != queryerr.Permanent {
		t.Errorf("Classify(401) = %v, want Permanent", got)
	}
}

// The service's own @permanent flag decides retryability even when the
// status code alone would say otherwise.
func TestClientHonorsPermanentFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":       "LimitsExceeded",
				"message":    "Request is invalid and cannot be processed",
				"@permanent": true,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Query(context.Background(), "", "Events", 0)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if permanent, ok := httpErr.PermanentFlag(); !ok || !permanent {
		t.Errorf("PermanentFlag() = (%v, %v), want (true, true)", permanent, ok)
	}
	if got := queryerr.Classify(err); got != queryerr.Permanent {
		t.Errorf("Classify(429 with @permanent) = %v, want Permanent", got)
	}
}

func TestClientSurfacesThrottling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Query(context.Background(), "", "Events", 0)
	if got := queryerr.Classify(err); got != queryerr.Transient {
		t.Errorf("Classify(429) = %v, want Transient", got)
	}
}

func TestClientReportsFrameExceptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Tables":     []any{},
			"Exceptions": []any{"Query execution lacked memory"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Query(context.Background(), "", "Events", 0)

	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("err = %v, want *QueryError", err)
	}
}

func TestClientMgmtUsesManagementEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rest/mgmt" {
			t.Errorf("expected path /v1/rest/mgmt, got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Tables": []any{
				map[string]any{
					"TableName": "Table_0",
					"Columns": []any{
						map[string]any{"ColumnName": "TableName", "ColumnType": "string"},
					},
					"Rows": []any{[]any{"Events"}},
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	rs, err := client.Mgmt(context.Background(), "", ".show tables")
	if err != nil {
		t.Fatalf("Mgmt returned error: %v", err)
	}
	if len(rs.Rows) != 1 || rs.Rows[0]["TableName"] != "Events" {
		t.Errorf("unexpected rows: %+v", rs.Rows)
	}
}
