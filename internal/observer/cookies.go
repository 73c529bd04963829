package observer

import (
	"context"
	"fmt"
	"strings"
)

// CookieDetail describes a session-relevant cookie without its value.
type CookieDetail struct {
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"http_only"`
	SameSite string `json:"same_site,omitempty"`
}

// CookieSummary counts the cookie jar and lists the session-relevant cookies.
type CookieSummary struct {
	TotalCount             int            `json:"total_count"`
	SessionRelevantCount   int            `json:"session_relevant_count"`
	SessionRelevantCookies []CookieDetail `json:"session_relevant_cookies,omitempty"`
}

// SessionCookieSummary reads the live cookie jar and summarizes the cookies
// whose names contain one of the session patterns.
func (o *Observer) SessionCookieSummary(ctx context.Context) (CookieSummary, error) {
	cookies, err := o.session.Cookies(ctx)
	if err != nil {
		return CookieSummary{}, fmt.Errorf("reading cookies: %w", err)
	}

	summary := CookieSummary{TotalCount: len(cookies)}
	for _, c := range cookies {
		if !nameMatches(c.Name, o.opts.sessionCookiePatterns) {
			continue
		}
		summary.SessionRelevantCookies = append(summary.SessionRelevantCookies, CookieDetail{
			Name:     c.Name,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		})
	}
	summary.SessionRelevantCount = len(summary.SessionRelevantCookies)
	return summary, nil
}

// nameMatches reports whether name matches any pattern, case-insensitively.
// A plain pattern matches anywhere in the name. A pattern prefixed with "~"
// matches only as a whole token delimited by the name's ends or by '_', '-'
// or '.', so "~sid" accepts "connect.sid" but not "_sidebar_state".
func nameMatches(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if tok, ok := strings.CutPrefix(p, "~"); ok {
			if tok != "" && containsToken(lower, tok) {
				return true
			}
			continue
		}
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func containsToken(s, tok string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], tok)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(tok)
		if (start == 0 || isNameDelimiter(s[start-1])) && (end == len(s) || isNameDelimiter(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isNameDelimiter(c byte) bool {
	return c == '_' || c == '-' || c == '.'
}
