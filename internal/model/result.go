package model

// Row is a single result record, mapping column name to value. Key set
// equals the field-name set of the owning QueryResult.
type Row map[string]interface{}

// Field describes one result column, in the order returned by the engine.
type Field struct {
	Name string `json:"name"`
}

// QueryResult is the runtime outcome of executing one statement (or the last
// statement of a batch). Rows is only meaningful when Error is false; when
// Error is true, Message and Example carry the classified diagnostic instead.
type QueryResult struct {
	Rows    []Row   `json:"rows"`
	Fields  []Field `json:"fields"`
	Error   bool    `json:"error"`
	Message string  `json:"message,omitempty"`
	Example string  `json:"example,omitempty"`
}

// FieldNames returns the result column names in order.
func (r *QueryResult) FieldNames() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// HasField reports whether the result contains a column with the given name.
func (r *QueryResult) HasField(name string) bool {
	for _, f := range r.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
