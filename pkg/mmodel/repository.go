package mmodel

// ProductDescriptor names a logical data product exposed by a backend.
// The spec names this as a Repository return type but does not give its
// shape; grounded on the reference platform's Organization/Account
// descriptor style.
type ProductDescriptor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
}

// TableDescriptor names a physical table within a schema.
type TableDescriptor struct {
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	RowEstimate int64  `json:"row_estimate,omitempty"`
}

// ColumnDescriptor fully annotates a column, carrying the metadata the
// Graph Cache Engine's schema-graph builder needs to synthesize node
// properties (display label, semantic tag, length, nullability).
type ColumnDescriptor struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	Length       int    `json:"length,omitempty"`
	DisplayLabel string `json:"display_label,omitempty"`
	SemanticTag  string `json:"semantic_tag,omitempty"`
	ValueList    string `json:"value_list,omitempty"`
}

// Column is a single column value/type pair in a QueryResult.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is the uniform shape every Repository.ExecuteQuery call
// returns, regardless of backend.
type QueryResult struct {
	Columns   []Column         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	ElapsedMS int64            `json:"elapsed_ms"`
}
