package upload

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "local_csv",
			DisplayName: "CSV Upload",
			Description: "Ingest an uploaded delimited file once",
		},
		Adapter: New(),
	})
}
