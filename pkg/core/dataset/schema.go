package dataset

// Column describes one displayed column, derived from the shape of a row.
type Column struct {
	Field      string `json:"field"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
}

// Schema is the ordered column list. It is never stored; every fetch infers it anew.
type Schema []Column

// Fields returns the field names in schema order.
func (s Schema) Fields() []string {
	fields := make([]string, len(s))
	for i, c := range s {
		fields[i] = c.Field
	}
	return fields
}

// Index returns the position of field, or -1.
func (s Schema) Index(field string) int {
	for i, c := range s {
		if c.Field == field {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}

// Infer derives the schema from the first row of a result.
//
// No rows give an empty schema. Otherwise there is one filterable, sortable
// column per key of rows[0], in its key order. Later rows are not inspected:
// fields absent from the first row are not displayed, and fields a later row
// lacks show as empty cells. A first row with no fields gives an empty schema.
func Infer(rows []Row) Schema {
	if len(rows) == 0 {
		return Schema{}
	}

	keys := rows[0].keys
	schema := make(Schema, len(keys))
	for i, k := range keys {
		schema[i] = Column{Field: k, Filterable: true, Sortable: true}
	}
	return schema
}
