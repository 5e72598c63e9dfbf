// Package api provides the factory HTTP API: pipeline stages, project
// reads, memory operations and the MCP endpoint.
package api

import (
	"net/http"

	"github.com/papercomputeco/factory/pkg/project"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// DefaultOwner is applied when a request omits user_id
	DefaultOwner project.Owner

	// MCPHandler is mounted at /mcp when set
	MCPHandler http.Handler
}
