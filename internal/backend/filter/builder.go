package filter

import "github.com/huangsam/autoindex/schema"

// Builder unions rows whose columns differ. Fields keep first-seen order
// and missing values are empty strings.
type Builder struct {
	fields []string
	index  map[string]int
	rows   [][]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{index: map[string]int{}}
}

// AddFields registers fields without adding a row.
func (b *Builder) AddFields(fields ...string) {
	for _, f := range fields {
		if _, ok := b.index[f]; !ok {
			b.index[f] = len(b.fields)
			b.fields = append(b.fields, f)
		}
	}
}

// Add appends one row given as parallel field and value slices.
func (b *Builder) Add(fields, values []string) {
	b.AddFields(fields...)
	row := make([]string, len(b.fields))
	for i, f := range fields {
		if i < len(values) {
			row[b.index[f]] = values[i]
		}
	}
	b.rows = append(b.rows, row)
}

// Fields returns the union of fields seen so far.
func (b *Builder) Fields() []string {
	return b.fields
}

// Result pads every row to the final field count.
func (b *Builder) Result() *schema.ResultSet {
	rs := &schema.ResultSet{Fields: b.fields, Rows: b.rows}
	if rs.Fields == nil {
		rs.Fields = []string{}
	}
	if rs.Rows == nil {
		rs.Rows = [][]string{}
	}
	for i, row := range rs.Rows {
		if len(row) < len(b.fields) {
			rs.Rows[i] = append(row, make([]string, len(b.fields)-len(row))...)
		}
	}
	return rs
}
