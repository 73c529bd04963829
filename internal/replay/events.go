package replay

import (
	"strings"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

func requestEvent(e *Entry) observer.RequestEvent {
	ev := observer.RequestEvent{
		RequestID:    e.ID,
		URL:          e.URL,
		Method:       "GET",
		Headers:      e.Request.Headers.Map(),
		ResourceType: resourceType(e),
	}
	if e.Request.Method != nil {
		ev.Method = *e.Request.Method
	}
	if body, err := decodeBody(e.Request.Body); err == nil && body != nil {
		s := string(body)
		ev.Body = &s
	}
	return ev
}

func responseEvent(e *Entry) observer.ResponseEvent {
	ev := observer.ResponseEvent{
		RequestID:    e.ID,
		URL:          e.URL,
		Headers:      e.Response.Headers.Map(),
		MimeType:     mimeType(e.Response.Headers.Get("Content-Type")),
		ResourceType: resourceType(e),
	}
	if e.Response.StatusCode != nil {
		ev.StatusCode = *e.Response.StatusCode
	}
	if e.Response.StatusText != nil {
		ev.StatusText = *e.Response.StatusText
	}
	return ev
}

func mimeType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// resourceType approximates the DevTools resource type from the exchange,
// since a proxy capture does not know how the page initiated it.
func resourceType(e *Entry) string {
	if e.Response == nil {
		return "Other"
	}
	mt := mimeType(e.Response.Headers.Get("Content-Type"))
	switch {
	case mt == "text/html":
		return observer.ResourceDocument
	case strings.Contains(mt, "json"):
		return "Fetch"
	case strings.Contains(mt, "javascript"):
		return "Script"
	case mt == "text/css":
		return "Stylesheet"
	case strings.HasPrefix(mt, "image/"):
		return "Image"
	case strings.HasPrefix(mt, "font/"):
		return "Font"
	}
	return "Other"
}
