package observer

import (
	"strings"
	"time"
)

// RequestRecord is an observed outgoing request. Records are never modified
// after they are appended to the log.
type RequestRecord struct {
	Seq          uint32            `json:"seq"`
	RequestID    string            `json:"request_id"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         *string           `json:"body,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ObservedAt   time.Time         `json:"observed_at"`
}

// ResponseRecord is an observed response.
type ResponseRecord struct {
	Seq          uint32            `json:"seq"`
	RequestID    string            `json:"request_id"`
	URL          string            `json:"url"`
	StatusCode   int               `json:"status_code"`
	StatusText   string            `json:"status_text,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	MimeType     string            `json:"mime_type,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	ObservedAt   time.Time         `json:"observed_at"`
}

// Header returns the value of the named header, matched case-insensitively.
func (r RequestRecord) Header(name string) (string, bool) {
	return headerValue(r.Headers, name)
}

// Header returns the value of the named header, matched case-insensitively.
func (r ResponseRecord) Header(name string) (string, bool) {
	return headerValue(r.Headers, name)
}

// Failed reports whether the response carries an error status.
func (r ResponseRecord) Failed() bool {
	return r.StatusCode >= 400
}

func headerValue(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ring is an ordered log that drops its oldest entry once limit is reached.
// A limit of zero or less keeps every entry.
type ring[T any] struct {
	buf   []T
	start int
	limit int
}

// push appends v and returns the evicted entry, if any.
func (r *ring[T]) push(v T) (evicted T, ok bool) {
	if r.limit <= 0 || len(r.buf) < r.limit {
		r.buf = append(r.buf, v)
		return evicted, false
	}
	evicted = r.buf[r.start]
	r.buf[r.start] = v
	r.start = (r.start + 1) % r.limit
	return evicted, true
}

func (r *ring[T]) len() int {
	return len(r.buf)
}

// at returns the i-th oldest entry.
func (r *ring[T]) at(i int) T {
	return r.buf[(r.start+i)%len(r.buf)]
}

// snapshot returns a copy of the entries, oldest first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, 0, len(r.buf))
	out = append(out, r.buf[r.start:]...)
	return append(out, r.buf[:r.start]...)
}

func (r *ring[T]) reset() {
	r.buf = nil
	r.start = 0
}
