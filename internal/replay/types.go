package replay

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// CaptureSession is a powhttp session: a named, ordered list of captured entries.
type CaptureSession struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	EntryIDs []string `json:"entryIds"`
}

// Headers is the powhttp header list: ordered [name, value] pairs.
type Headers [][]string

// Get returns the first value of the named header, matched case-insensitively.
func (h Headers) Get(name string) string {
	for _, pair := range h {
		if len(pair) >= 2 && strings.EqualFold(pair[0], name) {
			return pair[1]
		}
	}
	return ""
}

// Values returns every value of the named header.
func (h Headers) Values(name string) []string {
	var values []string
	for _, pair := range h {
		if len(pair) >= 2 && strings.EqualFold(pair[0], name) {
			values = append(values, pair[1])
		}
	}
	return values
}

// Map folds repeated headers into one comma-separated value. Set-Cookie
// values are joined with newlines since cookies may contain commas.
func (h Headers) Map() map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for _, pair := range h {
		if len(pair) < 2 {
			continue
		}
		name := pair[0]
		prev, ok := out[name]
		switch {
		case !ok:
			out[name] = pair[1]
		case strings.EqualFold(name, "Set-Cookie"):
			out[name] = prev + "\n" + pair[1]
		default:
			out[name] = prev + ", " + pair[1]
		}
	}
	return out
}

// EntryRequest is the request half of a captured exchange.
type EntryRequest struct {
	Method  *string `json:"method"`
	Headers Headers `json:"headers"`
	Body    *string `json:"body"` // base64
}

// EntryResponse is the response half of a captured exchange.
type EntryResponse struct {
	StatusCode *int    `json:"statusCode"`
	StatusText *string `json:"statusText"`
	Headers    Headers `json:"headers"`
	Body       *string `json:"body"` // base64
}

// Entry is one captured HTTP exchange. Response is nil while the exchange is in flight.
type Entry struct {
	ID       string         `json:"id"`
	URL      string         `json:"url"`
	Request  EntryRequest   `json:"request"`
	Response *EntryResponse `json:"response"`
	Timings  struct {
		StartedAt int64 `json:"startedAt"` // unix ms
	} `json:"timings"`
}

// APIError is an error response from the powhttp API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("powhttp API error %d: %s", e.StatusCode, e.Message)
}

// decodeBody decodes a base64 body. A nil body decodes to nil.
func decodeBody(encoded *string) ([]byte, error) {
	if encoded == nil {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(*encoded)
}
