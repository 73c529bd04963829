package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all prompts with the MCP server.
func Register(srv *sdkmcp.Server, cfg *Config) {
	// Prompt 1: Audit a login flow end to end
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "audit_login_flow",
		Description: "RECOMMENDED: Audit a login flow: locate the login exchange, time it, validate its response, and check security headers, session cookies and the auth token. Start here.",
		Arguments: []*sdkmcp.PromptArgument{
			{
				Name:        "login_url",
				Description: "Page hosting the login form (browser sessions navigate to it first)",
				Required:    false,
			},
			{
				Name:        "login_path",
				Description: "Path of the login API call, e.g. /api/login (default: configured login fragment)",
				Required:    false,
			},
			{
				Name:        "expected_status",
				Description: "Status the login response should return (default: configured expected status)",
				Required:    false,
			},
		},
	}, HandleAuditLoginFlow(cfg))

	// Prompt 2: Tool usage guide
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "tool_guide",
		Description: "Guide to the authwatch tools: which to call for which question and how to keep context small.",
	}, HandleToolGuide(cfg))
}
