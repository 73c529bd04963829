package observer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Matcher is a predicate over a request or response URL and its headers.
type Matcher func(rawURL string, headers map[string]string) bool

// Match evaluates m. A nil Matcher matches nothing.
func (m Matcher) Match(rawURL string, headers map[string]string) bool {
	if m == nil {
		return false
	}
	return m(rawURL, headers)
}

// URLContains matches URLs containing any of the non-empty fragments.
func URLContains(fragments ...string) Matcher {
	var parts []string
	for _, f := range fragments {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return func(rawURL string, _ map[string]string) bool {
		for _, f := range parts {
			if strings.Contains(rawURL, f) {
				return true
			}
		}
		return false
	}
}

// PathEquals matches URLs whose path is exactly path.
func PathEquals(path string) Matcher {
	return func(rawURL string, _ map[string]string) bool {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		return u.Path == path
	}
}

// URLRegexp matches URLs against a regular expression.
func URLRegexp(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern: %w", err)
	}
	return func(rawURL string, _ map[string]string) bool {
		return re.MatchString(rawURL)
	}, nil
}

// HeaderEquals matches when the named header is present with exactly value.
// The header name is compared case-insensitively.
func HeaderEquals(name, value string) Matcher {
	return func(_ string, headers map[string]string) bool {
		v, ok := headerValue(headers, name)
		return ok && v == value
	}
}

// AnyOf matches when at least one of ms matches.
func AnyOf(ms ...Matcher) Matcher {
	return func(rawURL string, headers map[string]string) bool {
		for _, m := range ms {
			if m.Match(rawURL, headers) {
				return true
			}
		}
		return false
	}
}

// AllOf matches when every one of ms matches. An empty AllOf matches nothing.
func AllOf(ms ...Matcher) Matcher {
	return func(rawURL string, headers map[string]string) bool {
		if len(ms) == 0 {
			return false
		}
		for _, m := range ms {
			if !m.Match(rawURL, headers) {
				return false
			}
		}
		return true
	}
}

// LoginRequestMatcher matches request URLs containing fragment, "login" or "auth".
// The fallback substrings also catch unrelated URLs that mention auth.
func LoginRequestMatcher(fragment string) Matcher {
	return URLContains(fragment, "login", "auth")
}

// LoginResponseMatcher matches response URLs containing "login" or "auth".
func LoginResponseMatcher() Matcher {
	return URLContains("login", "auth")
}
