package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/mcp/tools"
)

// AddTool registers a tool with the server after checking its output type
// against the schema the SDK infers for it. Nil slices and maps without
// omitempty, and custom-encoded fields such as time.Time, are reported at
// startup instead of failing every call at runtime.
//
// Use this instead of [sdkmcp.AddTool] to get the additional check.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
