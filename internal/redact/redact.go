// Package redact masks credentials and secrets before they reach logs or tool output.
package redact

import (
	"regexp"
	"strings"
)

// Mask is the replacement written over sensitive values.
const Mask = "***MASKED***"

// sensitiveKeys are substrings of header, field or attribute names whose values are masked.
var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"cookie",
	"apikey",
	"api_key",
	"api-key",
	"credential",
}

var (
	bearerPattern = regexp.MustCompile(`(?i)\b(Bearer|Basic)\s+[A-Za-z0-9\-._~+/]+=*`)
	jwtPattern    = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`)
)

// Masker masks configured literal secrets plus the builtin token patterns.
// It is safe for concurrent use after construction.
type Masker struct {
	literals []*regexp.Regexp
}

// New creates a Masker for the given literal secrets (matched case-insensitively).
func New(secrets ...string) *Masker {
	m := &Masker{}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		m.literals = append(m.literals, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(s)))
	}
	return m
}

// IsSensitiveKey reports whether a name suggests its value is a secret.
func IsSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// String masks literal secrets, bearer/basic credentials and JWTs inside text.
func (m *Masker) String(text string) string {
	if text == "" {
		return text
	}
	if m != nil {
		for _, re := range m.literals {
			text = re.ReplaceAllString(text, Mask)
		}
	}
	text = bearerPattern.ReplaceAllString(text, "$1 "+Mask)
	return jwtPattern.ReplaceAllString(text, Mask)
}

// Headers returns a copy of h with sensitive header values replaced by Mask
// and remaining values passed through String.
func (m *Masker) Headers(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if IsSensitiveKey(k) {
			out[k] = Mask
			continue
		}
		out[k] = m.String(v)
	}
	return out
}

// Fields masks top-level keys of a decoded JSON object whose names are sensitive.
// Nested objects are walked recursively; the input is not modified.
func (m *Masker) Fields(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if IsSensitiveKey(k) || strings.EqualFold(k, "username") {
			out[k] = Mask
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			out[k] = m.Fields(val)
		case string:
			out[k] = m.String(val)
		default:
			out[k] = v
		}
	}
	return out
}
