package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/authwatch-mcp/pkg/mcpsrv"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create MCP server with all builtin tools
	// Configuration is loaded from environment variables:
	// - SESSION_SOURCE: chrome (default) or powhttp
	// - CHROME_REMOTE_URL / START_URL: browser to attach to and page to open
	// - POWHTTP_BASE_URL / POWHTTP_SESSION_ID: capture to replay
	// - LOG_LEVEL, LOG_FILE, REDACT_VALUES
	// - etc. (see internal/config for all options)
	server, err := mcpsrv.NewServer(ctx)
	if err != nil {
		slog.Error("failed to create MCP server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer server.Close()

	slog.Info("starting authwatch MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("server stopped")
}
