package mssql

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Poll tables from a SQL Server database",
		},
		Adapter: New(),
	})
}
