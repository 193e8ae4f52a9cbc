package domain

// Column describes a single column of a query result.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row maps column names to scalar or structured values.
type Row map[string]any

// ResultSet is an ordered set of rows returned by the query engine,
// together with metadata about how much data was available upstream.
type ResultSet struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`

	// TotalRowsAvailable is the number of rows the engine produced before
	// the requested limit was applied.
	TotalRowsAvailable int `json:"total_rows_available"`

	// RequestedLimit is the row cap the caller asked for (0 = unlimited).
	RequestedLimit int `json:"requested_limit"`
}

// RowCount returns the number of rows held by the result set.
func (rs *ResultSet) RowCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Prefix returns a view of the first n rows. The underlying rows are
// shared, never copied; callers must not mutate them.
func (rs *ResultSet) Prefix(n int) []Row {
	if n > len(rs.Rows) {
		n = len(rs.Rows)
	}
	if n < 0 {
		n = 0
	}
	return rs.Rows[:n]
}
