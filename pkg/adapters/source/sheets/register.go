package sheets

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "google_sheets",
			DisplayName: "Google Sheets",
			Description: "Poll one range of a Google spreadsheet",
		},
		Adapter: New(),
	})
}
