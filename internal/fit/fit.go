// Package fit bounds rendered response size. Given a result set and a
// renderer, it finds the largest row count whose rendered text stays
// within a character budget, using binary search over the renderer's
// monotone size-in-rows behavior.
package fit

import (
	"fmt"

	"github.com/kustomcp/kustomcp/internal/core/domain"
	"github.com/kustomcp/kustomcp/internal/render"
)

// MinMaxLength is the smallest usable response budget; anything lower
// cannot hold even an empty rendering plus metadata.
const MinMaxLength = 100

// Options configures a fitting pass.
type Options struct {
	// MaxLength is the response character budget. Must be >= MinMaxLength.
	MaxLength int

	// MinRows is the row-count floor: the fitter never returns fewer rows
	// than this (when that many exist), even if the result still exceeds
	// MaxLength. Must be >= 0.
	MinRows int

	// Render is passed through to every renderer invocation.
	Render render.Config
}

// Result is the outcome of a fitting pass.
type Result struct {
	Text             string
	RowCount         int
	Truncated        bool
	OriginalRowCount int
	ByteLength       int
}

// ConfigError reports invalid fitter options. It is raised synchronously,
// before any rendering, and is never retried.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return "invalid response limit configuration: " + e.msg
}

// Limit renders rs within opts.MaxLength characters, dropping trailing
// rows as needed. Metadata is re-derived for every probed row count so a
// truncated response self-describes.
func Limit(rs *domain.ResultSet, renderer render.Renderer, opts Options) (*Result, error) {
	if opts.MaxLength < MinMaxLength {
		return nil, &ConfigError{msg: fmt.Sprintf("max length %d is below the minimum of %d", opts.MaxLength, MinMaxLength)}
	}
	if opts.MinRows < 0 {
		return nil, &ConfigError{msg: fmt.Sprintf("min rows must not be negative, got %d", opts.MinRows)}
	}

	total := rs.RowCount()
	if total == 0 {
		text := renderAt(rs, renderer, 0, opts)
		return &Result{
			Text:       text,
			ByteLength: len(text),
		}, nil
	}

	// Common case: everything fits, no search needed.
	full := renderAt(rs, renderer, total, opts)
	if len(full) <= opts.MaxLength {
		return &Result{
			Text:             full,
			RowCount:         total,
			OriginalRowCount: total,
			ByteLength:       len(full),
		}, nil
	}

	floor := opts.MinRows
	if floor > total {
		floor = total
	}

	best := -1
	bestText := ""
	low, high := floor, total
	for low <= high {
		mid := (low + high) / 2
		text := renderAt(rs, renderer, mid, opts)
		if len(text) <= opts.MaxLength {
			best, bestText = mid, text
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	if best < 0 {
		// Even the floor renders too large; return it as best effort.
		best = floor
		bestText = renderAt(rs, renderer, best, opts)
	}

	return &Result{
		Text:             bestText,
		RowCount:         best,
		Truncated:        true,
		OriginalRowCount: total,
		ByteLength:       len(bestText),
	}, nil
}

// renderAt renders the first k rows with metadata consistent with that k.
func renderAt(rs *domain.ResultSet, renderer render.Renderer, k int, opts Options) string {
	return renderer.Render(rs.Columns, rs.Prefix(k), metadataFor(rs, k, opts), opts.Render)
}

func metadataFor(rs *domain.ResultSet, k int, opts Options) render.Metadata {
	total := rs.RowCount()
	available := rs.TotalRowsAvailable
	if available < total {
		available = total
	}
	reduced := k < total
	return render.Metadata{
		RowCount:               k,
		OriginalRowsAvailable:  available,
		RequestedLimit:         rs.RequestedLimit,
		IsPartial:              reduced || total < available,
		HasMoreResults:         reduced || available > total,
		ReducedForResponseSize: reduced,
		GlobalCharLimit:        opts.MaxLength,
	}
}
