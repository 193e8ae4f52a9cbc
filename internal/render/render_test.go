package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

var testColumns = []domain.Column{
	{Name: "when", Type: "datetime"},
	{Name: "who", Type: "string"},
	{Name: "count", Type: "long"},
	{Name: "ok", Type: "bool"},
	{Name: "note", Type: "string"},
}

func testRows() []domain.Row {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return []domain.Row{
		{"when": ts, "who": "alice", "count": 42, "ok": true, "note": nil},
		{"when": ts.Add(time.Hour), "who": "bob", "count": 7, "ok": false, "note": "short"},
	}
}

func TestCellTextFormatting(t *testing.T) {
	tests := []struct {
		value    any
		maxWidth int
		expect   string
	}{
		{nil, 0, ""},
		{true, 0, "true"},
		{false, 0, "false"},
		{time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), 0, "2026-03-14T09:26:53Z"},
		{int64(1234), 0, "1234"},
		{3.5, 0, "3.5"},
		{"plain", 0, "plain"},
		{"averylongstringvalue", 10, "averylo..."},
		{"short", 10, "short"},
		{"ありがとうございます", 10, "ありがとうございます"},
		{"ありがとうございます", 7, "ありがと..."},
	}

	for _, tt := range tests {
		if got := cellText(tt.value, tt.maxWidth); got != tt.expect {
			t.Errorf("cellText(%v, %d) = %q, want %q", tt.value, tt.maxWidth, got, tt.expect)
		}
		if !utf8.ValidString(cellText(tt.value, tt.maxWidth)) {
			t.Errorf("cellText(%v, %d) produced invalid UTF-8", tt.value, tt.maxWidth)
		}
	}
}

func TestJSONRendererOutput(t *testing.T) {
	meta := Metadata{RowCount: 2, OriginalRowsAvailable: 2}
	text := JSONRenderer{}.Render(testColumns, testRows(), meta, Config{})

	var payload struct {
		Columns  []domain.Column  `json:"columns"`
		Rows     []map[string]any `json:"rows"`
		Metadata Metadata         `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(payload.Rows) != 2 {
		t.Fatalf("rendered %d rows, want 2", len(payload.Rows))
	}
	if payload.Rows[0]["when"] != "2026-03-14T09:26:53Z" {
		t.Errorf("datetime rendered as %v, want RFC3339 string", payload.Rows[0]["when"])
	}
	if note, present := payload.Rows[0]["note"]; !present || note != nil {
		t.Errorf("nil value rendered as %v, want JSON null", note)
	}
	if payload.Metadata.RowCount != 2 {
		t.Errorf("metadata round-trip failed: %+v", payload.Metadata)
	}
}

func TestJSONRendererDeterministic(t *testing.T) {
	meta := Metadata{RowCount: 2, OriginalRowsAvailable: 2}
	first := JSONRenderer{}.Render(testColumns, testRows(), meta, Config{})
	second := JSONRenderer{}.Render(testColumns, testRows(), meta, Config{})
	if first != second {
		t.Error("repeated renders of identical input differ")
	}
}

func TestTableRendererOutput(t *testing.T) {
	meta := Metadata{RowCount: 2, OriginalRowsAvailable: 2}
	text := TableRenderer{}.Render(testColumns, testRows(), meta, Config{})

	for _, want := range []string{"when", "who", "alice", "bob", "2026-03-14T09:26:53Z", "true", "2 row(s)"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 4 {
		t.Fatalf("table output too short:\n%s", text)
	}
	// Header and data rows share alignment, so columns start at the
	// same offset.
	if strings.Index(lines[0], "who") != strings.Index(lines[2], "alice") {
		t.Errorf("columns are not aligned:\n%s", text)
	}
}

func TestTableRendererEmpty(t *testing.T) {
	meta := Metadata{}
	text := TableRenderer{}.Render(testColumns, nil, meta, Config{})
	if !strings.Contains(text, "(no rows)") {
		t.Errorf("empty table output = %q, want a no-rows marker", text)
	}
}

func TestTableRendererTruncationSummary(t *testing.T) {
	meta := Metadata{
		RowCount:               1,
		OriginalRowsAvailable:  500,
		IsPartial:              true,
		HasMoreResults:         true,
		ReducedForResponseSize: true,
		GlobalCharLimit:        2000,
	}
	text := TableRenderer{}.Render(testColumns, testRows()[:1], meta, Config{})
	if !strings.Contains(text, "1 row(s) of 500 available") {
		t.Errorf("summary missing availability line:\n%s", text)
	}
	if !strings.Contains(text, "2000 character response limit") {
		t.Errorf("summary missing reduction line:\n%s", text)
	}
}

// Output length must be monotonically non-decreasing in row count; the
// response fitter's binary search depends on it.
func TestRenderersMonotoneInRowCount(t *testing.T) {
	rows := make([]domain.Row, 40)
	for i := range rows {
		rows[i] = domain.Row{"when": time.Unix(int64(i), 0).UTC(), "who": "user", "count": i, "ok": i%2 == 0, "note": "n"}
	}

	for _, renderer := range []Renderer{JSONRenderer{}, TableRenderer{}} {
		prev := -1
		for k := 0; k <= len(rows); k++ {
			meta := Metadata{RowCount: k, OriginalRowsAvailable: len(rows)}
			size := len(renderer.Render(testColumns, rows[:k], meta, Config{}))
			if size < prev {
				t.Errorf("%T: size shrank from %d to %d at k=%d", renderer, prev, size, k)
			}
			prev = size
		}
	}
}
