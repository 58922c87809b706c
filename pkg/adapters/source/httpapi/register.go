package httpapi

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "httpapi",
			DisplayName: "HTTP API",
			Description: "Poll a REST endpoint returning JSON or delimited text",
		},
		Adapter: New(),
	})
}
