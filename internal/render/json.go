package render

import (
	"encoding/json"
	"fmt"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

// JSONRenderer produces a fully machine-parseable encoding of rows and
// metadata. Row objects serialize with sorted keys (encoding/json map
// behavior), so output is deterministic for identical input.
type JSONRenderer struct{}

type jsonPayload struct {
	Columns  []domain.Column  `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Metadata Metadata         `json:"metadata"`
}

func (JSONRenderer) Render(columns []domain.Column, rows []domain.Row, meta Metadata, cfg Config) string {
	out := jsonPayload{
		Columns:  columns,
		Rows:     make([]map[string]any, len(rows)),
		Metadata: meta,
	}
	if out.Columns == nil {
		out.Columns = []domain.Column{}
	}

	for i, row := range rows {
		normalized := make(map[string]any, len(row))
		for name, value := range row {
			normalized[name] = cellValue(value, cfg.MaxCellWidth)
		}
		out.Rows[i] = normalized
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		// Normalized values are all JSON-encodable; this path covers
		// exotic upstream values like channels or NaN floats.
		return fmt.Sprintf(`{"renderError": %q}`, err.Error())
	}
	return string(data)
}
