package browser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// translateEvent maps a DevTools event to observer events in delivery order.
// A redirect arrives as a single requestWillBeSent carrying the previous
// hop's response, so it yields that response before the new request.
func translateEvent(ev any) []any {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return nil
		}
		var out []any
		if e.RedirectResponse != nil {
			out = append(out, responseEvent(e.RequestID, e.Type, e.RedirectResponse))
		}
		return append(out, observer.RequestEvent{
			RequestID:    string(e.RequestID),
			URL:          e.Request.URL + e.Request.URLFragment,
			Method:       e.Request.Method,
			Headers:      flattenHeaders(e.Request.Headers),
			Body:         postData(e.Request),
			ResourceType: string(e.Type),
		})
	case *network.EventResponseReceived:
		if e.Response == nil {
			return nil
		}
		return []any{responseEvent(e.RequestID, e.Type, e.Response)}
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return nil
		}
		location, stack := describeStack(e.StackTrace)
		return []any{observer.ConsoleEvent{
			Message:  consoleMessage(e.Args),
			Location: location,
			Stack:    stack,
		}}
	case *runtime.EventExceptionThrown:
		d := e.ExceptionDetails
		if d == nil {
			return nil
		}
		msg := d.Text
		if d.Exception != nil && d.Exception.Description != "" {
			msg = d.Exception.Description
		}
		location, stack := describeStack(d.StackTrace)
		if d.URL != "" {
			location = fmt.Sprintf("%s:%d:%d", d.URL, d.LineNumber+1, d.ColumnNumber+1)
		}
		return []any{observer.PageErrorEvent{Message: msg, Location: location, Stack: stack}}
	}
	return nil
}

func responseEvent(id network.RequestID, typ network.ResourceType, r *network.Response) observer.ResponseEvent {
	return observer.ResponseEvent{
		RequestID:    string(id),
		URL:          r.URL,
		StatusCode:   int(r.Status),
		StatusText:   r.StatusText,
		Headers:      flattenHeaders(r.Headers),
		MimeType:     r.MimeType,
		ResourceType: string(typ),
	}
}

func flattenHeaders(h network.Headers) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// postData joins the base64 post data entries of a request.
func postData(r *network.Request) *string {
	if !r.HasPostData || len(r.PostDataEntries) == 0 {
		return nil
	}
	var b strings.Builder
	for _, entry := range r.PostDataEntries {
		if entry == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			continue
		}
		b.Write(raw)
	}
	body := b.String()
	return &body
}

func consoleMessage(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			var s string
			if err := json.Unmarshal([]byte(arg.Value), &s); err == nil {
				parts = append(parts, s)
			} else {
				parts = append(parts, string(arg.Value))
			}
			continue
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	return strings.Join(parts, " ")
}

// describeStack returns the top frame as url:line:column and the full stack,
// one "at fn (url:line:column)" line per frame. DevTools positions are zero-based.
func describeStack(st *runtime.StackTrace) (location, stack string) {
	if st == nil || len(st.CallFrames) == 0 {
		return "", ""
	}
	lines := make([]string, 0, len(st.CallFrames))
	for i, f := range st.CallFrames {
		pos := fmt.Sprintf("%s:%d:%d", f.URL, f.LineNumber+1, f.ColumnNumber+1)
		if i == 0 {
			location = pos
		}
		fn := f.FunctionName
		if fn == "" {
			fn = "<anonymous>"
		}
		lines = append(lines, fmt.Sprintf("at %s (%s)", fn, pos))
	}
	return location, strings.Join(lines, "\n")
}

func convertCookies(in []*network.Cookie) []observer.Cookie {
	out := make([]observer.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		oc := observer.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
		}
		// Session cookies report an expiry of -1.
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			oc.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		out = append(out, oc)
	}
	return out
}
