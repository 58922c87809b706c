package models

// ColumnType is the storage type assigned to a column by schema inference.
type ColumnType string

const (
	TypeBigint    ColumnType = "bigint"
	TypeDouble    ColumnType = "double"
	TypeDecimal   ColumnType = "decimal(18,2)"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeString    ColumnType = "string"
)

// Column is one named, typed column of a datasource schema.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is an ordered list of columns. Order is first-seen column order from
// the inference sample and is preserved through casting and persistence.
type Schema []Column

// ColumnNames returns the column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// TypeOf returns the declared type for a column name.
func (s Schema) TypeOf(name string) (ColumnType, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}

// Record is one flat row produced by the translator: column name to scalar
// value (string, number, boolean, or timestamp-like string). Records exist
// only within a single poll cycle.
type Record map[string]any
