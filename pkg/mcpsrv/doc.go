// Package mcpsrv provides an extensible MCP server for auditing browser login flows.
//
// The server attaches a network observer to a session, either a Chrome tab
// driven over the DevTools protocol or a replay of a powhttp capture, and
// exposes the observer through MCP tools, resources and prompts.
//
// # Basic Usage
//
// Create a server configured from the environment:
//
//	server, err := mcpsrv.NewServer(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Add custom tools using MCP SDK types directly:
//
//	import mcp "github.com/modelcontextprotocol/go-sdk/mcp"
//
//	type MyInput struct{}
//
//	type MyOutput struct {
//	    Failed int `json:"failed"`
//	}
//
//	server, err := mcpsrv.NewServer(ctx,
//	    mcpsrv.WithDepsTool(&mcp.Tool{Name: "failed_count", Description: "Count failed responses"},
//	        func(d *mcpsrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, in MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	            return func(ctx context.Context, req *mcp.CallToolRequest, in MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	                return nil, MyOutput{Failed: len(d.Observer.FailedResponses())}, nil
//	            }
//	        }),
//	)
//
// # Configuration
//
// SESSION_SOURCE selects "chrome" (default) or "powhttp". Logging can be
// overridden in code:
//
//	server, err := mcpsrv.NewServer(ctx,
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/authwatch-mcp.log"),
//	)
package mcpsrv
