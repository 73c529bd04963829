package mcpsrv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/logging"
	"github.com/usestring/authwatch-mcp/internal/mcp"
	"github.com/usestring/authwatch-mcp/internal/mcp/tools"
	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
)

// Server is the authwatch MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal     *mcp.Server
	deps         *Deps
	runner       runner
	closeSession func()
	logCleanup   func() error
}

// NewServer opens the configured session, attaches an observer to it and
// creates an MCP server with the builtin authwatch tools.
//
// The session source comes from SESSION_SOURCE unless WithSession is given.
// For a browser session START_URL, when set, is opened before NewServer
// returns so the initial page load is recorded.
func NewServer(ctx context.Context, opts ...Option) (*Server, error) {
	cfg := &settings{config: config.Load()}
	for _, opt := range opts {
		opt(cfg)
	}

	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
		Redact:     cfg.config.RedactValues,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	s := &Server{logCleanup: logCleanup, closeSession: func() {}}

	session := cfg.session
	if session == nil {
		session, s.closeSession, err = openSession(ctx, cfg.config, cfg.httpClient)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open %s session: %w", cfg.config.SessionSource, err)
		}
	}
	s.runner, _ = session.(runner)

	obs, err := observer.Attach(ctx, session, observerOptions(cfg.config)...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to attach observer: %w", err)
	}

	s.deps = &Deps{
		Observer: obs,
		Errors:   obs.WatchErrors(),
		Session:  session,
		Masker:   redact.New(cfg.config.RedactValues...),
		Config:   cfg.config,
	}

	toolDeps := &tools.Deps{
		Observer: s.deps.Observer,
		Errors:   s.deps.Errors,
		Masker:   s.deps.Masker,
		Config:   s.deps.Config,
	}
	if nav, ok := session.(tools.Navigator); ok {
		toolDeps.Navigator = nav
	}
	if ref, ok := session.(tools.Refresher); ok {
		toolDeps.Refresher = ref
	}

	var internalOpts []mcp.Option
	if !cfg.noTools {
		internalOpts = append(internalOpts, mcp.WithTools())
	}
	if !cfg.noPrompts {
		internalOpts = append(internalOpts, mcp.WithPrompts())
	}
	for _, fn := range cfg.register {
		internalOpts = append(internalOpts, mcp.WithExtension(func(srv *sdkmcp.Server) {
			fn(srv, s.deps)
		}))
	}

	s.internal, err = mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	if toolDeps.Navigator != nil && cfg.config.StartURL != "" {
		navCtx, cancel := context.WithTimeout(ctx, cfg.config.NavigationTimeout)
		err := toolDeps.Navigator.Navigate(navCtx, cfg.config.StartURL)
		cancel()
		if err != nil {
			// The assistant can retry with authwatch_navigate.
			slog.Warn("start page navigation failed",
				slog.String("url", cfg.config.StartURL),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("authwatch server ready",
		slog.String("observer", obs.ID()),
		slog.String("source", cfg.config.SessionSource),
		slog.Bool("navigation", toolDeps.Navigator != nil),
	)
	return s, nil
}

// Run serves MCP over stdio and, for polled sessions, runs the poll loop.
// It returns when ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	if s.runner != nil {
		g.Go(func() error {
			return s.runner.Run(ctx)
		})
	}
	g.Go(func() error {
		// Stdin closing ends the session; stop the poll loop with it.
		defer cancel()
		err := s.internal.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// Close detaches the observer, closes the session and flushes logs.
// Close is safe to call on a partially constructed server.
func (s *Server) Close() error {
	if s.deps != nil {
		s.deps.Errors.Close()
		s.deps.Observer.Detach()
	}
	if s.closeSession != nil {
		s.closeSession()
	}
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
