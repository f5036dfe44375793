package builtin

import (
	"context"

	"github.com/standardbeagle/mcpcore/internal/capabilities/resources"
)

const readmeText = `mcpcore is a reference Model Context Protocol server.

It speaks both the 2025-06-18 and 2025-03-26 protocol revisions over
stdio and Streamable HTTP, and ships a handful of example tools,
resources, and prompts so a client has something to call immediately
after connecting.`

// a 1x1 transparent PNG, used as the built-in blob resource example.
var logoPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

// RegisterResources adds the docs://readme text resource, the data://logo
// blob resource, and one file:///{path} template.
func RegisterResources(mgr *resources.Manager) {
	mgr.Register(resources.Resource{
		URI:      "docs://readme",
		Name:     "readme",
		MimeType: "text/plain",
		Accessor: func(ctx context.Context) (resources.Content, error) {
			return resources.Content{Kind: resources.Text, Text: readmeText}, nil
		},
	})

	mgr.Register(resources.Resource{
		URI:      "data://logo",
		Name:     "logo",
		MimeType: "image/png",
		Accessor: func(ctx context.Context) (resources.Content, error) {
			return resources.Content{Kind: resources.Blob, Blob: logoPNG}, nil
		},
	})

	mgr.RegisterTemplate(resources.Template{
		URITemplate: "file:///{path}",
		Name:        "local-file",
		Description: "Names an arbitrary path under the server's working directory. The server never expands this template itself and registers no resource behind it; it is advertised for clients to construct resources/read calls against their own file accessor.",
	})
}
