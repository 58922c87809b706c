package models

// Tabular is structured adapter output that carries explicit column order.
// Adapters that know their header (relational tables, spreadsheet ranges)
// return Tabular or []Tabular so first-seen column order survives the trip
// through Go maps.
type Tabular struct {
	Name   string           `json:"name,omitempty"` // origin label: table name, sheet title
	Header []string         `json:"header"`
	Rows   []map[string]any `json:"rows"`
}
