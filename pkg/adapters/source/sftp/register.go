package sftp

import "github.com/datareef/reef-engine/pkg/adapters/source"

func init() {
	source.Register(source.Registration{
		Info: source.AdapterInfo{
			Type:        "sftp",
			DisplayName: "SFTP",
			Description: "Download a file from an SSH file transfer server",
		},
		Adapter: New(),
	})
}
