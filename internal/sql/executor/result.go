package executor

// Result is the generic statement result returned to the caller.
type Result struct {
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`

	// Rows returned, inserted or loaded.
	AffectedRows int64 `json:"affected_rows"`
}
