package observer

import (
	"context"
	"time"
)

// Session is a source of browser traffic and state for one page.
//
// Subscribe delivers events to handler until ctx is cancelled. Handlers may be
// invoked from the session's own goroutines. Event values are one of
// RequestEvent, ResponseEvent, ConsoleEvent or PageErrorEvent; anything else
// is ignored.
type Session interface {
	Subscribe(ctx context.Context, handler func(ev any)) error
	Cookies(ctx context.Context) ([]Cookie, error)
	DocumentHTML(ctx context.Context) (string, error)
	ResponseBody(ctx context.Context, requestID string) ([]byte, error)
}

// ResourceDocument is the resource type of top-level page loads.
const ResourceDocument = "Document"

// RequestEvent is emitted when the page sends a request.
type RequestEvent struct {
	RequestID    string
	URL          string
	Method       string
	Headers      map[string]string
	Body         *string
	ResourceType string
}

// ResponseEvent is emitted when response headers for a request are received.
type ResponseEvent struct {
	RequestID    string
	URL          string
	StatusCode   int
	StatusText   string
	Headers      map[string]string
	MimeType     string
	ResourceType string
}

// ConsoleEvent is a console.error call made by the page.
type ConsoleEvent struct {
	Message  string
	Location string
	Stack    string
}

// PageErrorEvent is an uncaught exception thrown by the page.
type PageErrorEvent struct {
	Message  string
	Location string
	Stack    string
}

// Cookie is one entry of the session cookie jar.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
	SameSite string
}
