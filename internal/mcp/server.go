package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/mcp/prompts"
	"github.com/usestring/authwatch-mcp/internal/mcp/tools"
)

// Version is reported to clients during initialization.
const Version = "0.3.0"

const instructions = `authwatch records the network traffic of one browser session and checks the login flow it contains.
Start with authwatch_summary. Recorded exchanges are also readable as authwatch://request/{seq} and authwatch://response/{seq} resources.
Header values, cookies, tokens and bodies are masked before they are returned.`

// Server exposes an observer over MCP.
type Server struct {
	mcpServer *sdkmcp.Server
	deps      *tools.Deps

	tools      bool
	prompts    bool
	extensions []func(*sdkmcp.Server)
}

// Option configures a Server.
type Option func(*Server)

// WithTools registers the authwatch tools and resource templates.
func WithTools() Option {
	return func(s *Server) { s.tools = true }
}

// WithPrompts registers the authwatch prompts.
func WithPrompts() Option {
	return func(s *Server) { s.prompts = true }
}

// WithExtension runs fn against the SDK server after the builtins are
// registered. Extensions run in the order they were given.
func WithExtension(fn func(*sdkmcp.Server)) Option {
	return func(s *Server) { s.extensions = append(s.extensions, fn) }
}

// NewServer builds the SDK server for deps.
func NewServer(deps *tools.Deps, opts ...Option) (*Server, error) {
	switch {
	case deps == nil:
		return nil, errors.New("deps is required")
	case deps.Observer == nil:
		return nil, errors.New("deps.Observer is required")
	case deps.Config == nil:
		return nil, errors.New("deps.Config is required")
	}

	s := &Server{deps: deps}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "authwatch-mcp", Version: Version},
		&sdkmcp.ServerOptions{Instructions: instructions},
	)
	s.mcpServer.AddReceivingMiddleware(LoggingMiddleware())

	if s.tools {
		tools.Register(s.mcpServer, deps)
		s.registerResources()
	}
	if s.prompts {
		prompts.Register(s.mcpServer, &prompts.Config{
			NavigationEnabled:   deps.Navigator != nil,
			LoginURLFragment:    deps.Config.LoginURLFragment,
			LoginExpectedStatus: deps.Config.LoginExpectedStatus,
			LatencyBudget:       deps.Config.LatencyBudget,
		})
	}
	for _, fn := range s.extensions {
		fn(s.mcpServer)
	}
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// MCPServer returns the SDK server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}
