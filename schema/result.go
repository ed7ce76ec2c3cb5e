package schema

// DataSchema lists the fields a data set exposes.
type DataSchema struct {
	Fields []string `json:"fields"`
}

// ResultSet is a tabular query response. Each row is aligned with Fields.
type ResultSet struct {
	Fields []string   `json:"fields"`
	Rows   [][]string `json:"rows"`
}

// Index returns the column of a field, or -1.
func (r *ResultSet) Index(field string) int {
	for i, f := range r.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// WriteResult reports how a bulk write went.
type WriteResult struct {
	Written  int      `json:"written"`
	Failures []string `json:"failures,omitempty"`
}

// Partial reports whether some rows failed to write.
func (w WriteResult) Partial() bool {
	return len(w.Failures) > 0
}
