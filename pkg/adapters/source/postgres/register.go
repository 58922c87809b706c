package postgres

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Poll tables from a PostgreSQL database",
		},
		Adapter: New(),
	})
}
