package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// LoggingMiddleware logs every method call with its duration. Tool calls
// add the tool name. Arguments may carry credentials and are not logged.
func LoggingMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)

			level, msg := slog.LevelInfo, "method call completed"
			attrs := []slog.Attr{
				slog.String("method", method),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if call, ok := req.(*sdkmcp.CallToolRequest); ok && call.Params != nil {
				attrs = append(attrs, slog.String("tool", call.Params.Name))
			}
			switch res, _ := result.(*sdkmcp.CallToolResult); {
			case err != nil:
				level, msg = slog.LevelError, "method call failed"
				attrs = append(attrs, slog.String("error", err.Error()))
			case res != nil && res.IsError:
				level = slog.LevelWarn
				attrs = append(attrs, slog.Bool("tool_error", true))
			}
			slog.LogAttrs(ctx, level, msg, attrs...)
			return result, err
		}
	}
}
