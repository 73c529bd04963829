package mcpsrv

import (
	"context"
	"net/http"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/observer"
)

// settings collects what the options ask for before NewServer builds anything.
type settings struct {
	config     *config.Config
	httpClient *http.Client
	session    observer.Session

	logLevel string
	logFile  string

	noTools   bool
	noPrompts bool

	// register runs after the builtins, in option order. Deps is complete by then.
	register []func(*mcp.Server, *Deps)
}

// Option configures the server.
type Option func(*settings)

// WithLogLevel overrides LOG_LEVEL (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(s *settings) { s.logLevel = level }
}

// WithLogFile overrides LOG_FILE. Rotation settings still come from the
// environment.
func WithLogFile(path string) Option {
	return func(s *settings) { s.logFile = path }
}

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(s *settings) { s.config = c }
}

// WithSession observes sess instead of opening the session named by
// SESSION_SOURCE. The server does not close sess. If sess can navigate or be
// polled (Navigate / Poll methods) the matching tools use it; a Run method
// is started alongside the server.
func WithSession(sess observer.Session) Option {
	return func(s *settings) { s.session = sess }
}

// WithHTTPClient sets the HTTP client for the powhttp replay API.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithoutBuiltinTools skips the authwatch_* tools and the authwatch://
// resources.
func WithoutBuiltinTools() Option {
	return func(s *settings) { s.noTools = true }
}

// WithoutBuiltinPrompts skips audit_login_flow and tool_guide.
func WithoutBuiltinPrompts() Option {
	return func(s *settings) { s.noPrompts = true }
}

// WithTool registers a tool whose handler needs nothing from the server.
// Output types are checked like the builtin ones, see AddTool.
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(s *settings) {
		s.register = append(s.register, func(srv *mcp.Server, _ *Deps) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool registers a tool built from the server's Deps, typically to
// read the observer. The package doc and examples/login-audit show complete
// tools.
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(s *settings) {
		s.register = append(s.register, func(srv *mcp.Server, d *Deps) {
			AddTool(srv, tool, builder(d))
		})
	}
}

// WithPrompt registers a prompt next to the builtin ones.
func WithPrompt(prompt *mcp.Prompt, handler func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)) Option {
	return func(s *settings) {
		s.register = append(s.register, func(srv *mcp.Server, _ *Deps) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResourceTemplate registers a resource template next to the
// authwatch:// ones.
func WithResourceTemplate(template *mcp.ResourceTemplate, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) Option {
	return func(s *settings) {
		s.register = append(s.register, func(srv *mcp.Server, _ *Deps) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
