// Package render turns result sets into textual payloads. Renderers are
// pure and deterministic, and their output length is monotonically
// non-decreasing in the number of rows rendered; the response fitter's
// binary search depends on both properties.
package render

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/kustomcp/kustomcp/internal/core/domain"
)

// Format names a renderer variant.
type Format string

const (
	FormatStructured Format = "structured"
	FormatTabular    Format = "tabular"
)

// Config controls scalar formatting shared by all renderers.
type Config struct {
	// MaxCellWidth truncates long string values to this many characters,
	// marked with an ellipsis. 0 disables per-cell truncation.
	MaxCellWidth int
}

// Metadata describes the rendered slice of a result set. The response
// fitter re-derives it for every probed row count so that a truncated
// response self-describes.
type Metadata struct {
	RowCount               int  `json:"rowCount"`
	OriginalRowsAvailable  int  `json:"originalRowsAvailable"`
	RequestedLimit         int  `json:"requestedLimit"`
	IsPartial              bool `json:"isPartial"`
	HasMoreResults         bool `json:"hasMoreResults"`
	ReducedForResponseSize bool `json:"reducedForResponseSize"`
	GlobalCharLimit        int  `json:"globalCharLimit"`
}

// Renderer produces a textual encoding of rows plus metadata.
type Renderer interface {
	Render(columns []domain.Column, rows []domain.Row, meta Metadata, cfg Config) string
}

// New returns the renderer for the given format, defaulting to structured.
func New(format Format) Renderer {
	if format == FormatTabular {
		return TableRenderer{}
	}
	return JSONRenderer{}
}

// cellValue normalizes a scalar for structured output: nil stays nil
// (JSON null), times become RFC3339 in UTC, long strings are truncated.
// Numbers and booleans pass through unchanged.
func cellValue(v any, maxWidth int) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case string:
		return truncateCell(val, maxWidth)
	default:
		return v
	}
}

// cellText formats a scalar for tabular output. Null values render as an
// empty cell.
func cellText(v any, maxWidth int) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return truncateCell(val, maxWidth)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return truncateCell(fmt.Sprintf("%v", val), maxWidth)
	}
}

// truncateCell shortens s to maxWidth characters. Truncation happens on
// rune boundaries so multibyte values survive intact.
func truncateCell(s string, maxWidth int) string {
	if maxWidth <= 0 || utf8.RuneCountInString(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	if maxWidth <= 3 {
		return string(runes[:maxWidth])
	}
	return string(runes[:maxWidth-3]) + "..."
}
