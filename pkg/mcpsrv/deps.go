package mcpsrv

import (
	"github.com/usestring/authwatch-mcp/internal/config"
	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Observer *observer.Observer
	Errors   *observer.ErrorWatch
	Session  observer.Session
	Masker   *redact.Masker
	Config   *config.Config
}
