package tools

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/redact"
)

// MIME type constant.
const MimeJSON = "application/json"

// DisplayRequest is a RequestRecord with credentials masked.
type DisplayRequest struct {
	Seq          uint32            `json:"seq"`
	RequestID    string            `json:"request_id"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	ResourceType string            `json:"resource_type,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"`
	ObservedAt   string            `json:"observed_at"`
}

// DisplayResponse is a ResponseRecord with credentials masked.
type DisplayResponse struct {
	Seq          uint32            `json:"seq"`
	RequestID    string            `json:"request_id"`
	URL          string            `json:"url"`
	StatusCode   int               `json:"status_code"`
	StatusText   string            `json:"status_text,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	ObservedAt   string            `json:"observed_at"`
}

// DisplayOptions controls how records are rendered.
type DisplayOptions struct {
	IncludeHeaders bool
	IncludeBody    bool
	MaxBodyBytes   int // 0 means unlimited
}

// ToDisplayRequest renders rec, masking sensitive headers and body fields.
func ToDisplayRequest(rec observer.RequestRecord, m *redact.Masker, opts DisplayOptions) DisplayRequest {
	out := DisplayRequest{
		Seq:          rec.Seq,
		RequestID:    rec.RequestID,
		Method:       rec.Method,
		URL:          m.String(rec.URL),
		ResourceType: rec.ResourceType,
		ObservedAt:   FormatTime(rec.ObservedAt),
	}
	if opts.IncludeHeaders {
		out.Headers = m.Headers(rec.Headers)
	}
	if opts.IncludeBody && rec.Body != nil {
		out.Body = MaskBody([]byte(*rec.Body), m, opts.MaxBodyBytes)
	}
	return out
}

// ToDisplayResponse renders rec, masking sensitive headers.
func ToDisplayResponse(rec observer.ResponseRecord, m *redact.Masker, opts DisplayOptions) DisplayResponse {
	out := DisplayResponse{
		Seq:          rec.Seq,
		RequestID:    rec.RequestID,
		URL:          m.String(rec.URL),
		StatusCode:   rec.StatusCode,
		StatusText:   rec.StatusText,
		MimeType:     rec.MimeType,
		ResourceType: rec.ResourceType,
		ObservedAt:   FormatTime(rec.ObservedAt),
	}
	if opts.IncludeHeaders {
		out.Headers = m.Headers(rec.Headers)
	}
	return out
}

// MaskBody masks a request or response body for display. JSON objects have
// sensitive fields replaced; other text has secrets and tokens masked.
// Bodies longer than maxBytes are truncated.
func MaskBody(body []byte, m *redact.Masker, maxBytes int) string {
	if len(body) == 0 {
		return ""
	}
	if !utf8.Valid(body) {
		return fmt.Sprintf("[binary content, %d bytes]", len(body))
	}

	text := string(body)
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if b, err := json.Marshal(m.Fields(obj)); err == nil {
			text = string(b)
		}
	} else {
		text = m.String(text)
	}

	if maxBytes > 0 && len(text) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return fmt.Sprintf("%s... [truncated, %d bytes total]", text[:cut], len(text))
	}
	return text
}

// FormatTime renders t as RFC 3339 with milliseconds, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// MatchInput selects requests or responses. Set criteria are combined with AND.
type MatchInput struct {
	URLContains string `json:"url_contains,omitempty" jsonschema:"Substring the URL must contain"`
	Path        string `json:"path,omitempty" jsonschema:"Exact URL path, e.g. /api/login"`
	URLPattern  string `json:"url_pattern,omitempty" jsonschema:"Go regular expression matched against the full URL"`
	HeaderName  string `json:"header_name,omitempty" jsonschema:"Header that must be present with header_value"`
	HeaderValue string `json:"header_value,omitempty" jsonschema:"Exact value of header_name"`
}

// Matcher builds the observer matcher for in. It returns nil when in sets no
// criteria, so callers can fall back to their default.
func (in *MatchInput) Matcher() (observer.Matcher, error) {
	if in == nil {
		return nil, nil
	}

	var parts []observer.Matcher
	if in.URLContains != "" {
		parts = append(parts, observer.URLContains(in.URLContains))
	}
	if in.Path != "" {
		parts = append(parts, observer.PathEquals(in.Path))
	}
	if in.URLPattern != "" {
		m, err := observer.URLRegexp(in.URLPattern)
		if err != nil {
			return nil, ErrInvalidInput(err.Error())
		}
		parts = append(parts, m)
	}
	if in.HeaderName != "" {
		parts = append(parts, observer.HeaderEquals(in.HeaderName, in.HeaderValue))
	} else if in.HeaderValue != "" {
		return nil, ErrInvalidInput("header_value requires header_name")
	}

	if len(parts) == 0 {
		return nil, nil
	}
	return observer.AllOf(parts...), nil
}
