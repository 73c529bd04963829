package observer

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Header sources.
const (
	SourceHeader = "header"
	SourceMeta   = "meta"
)

// HeaderCheck is the result of checking one security header.
type HeaderCheck struct {
	Present       bool   `json:"present"`
	ObservedValue string `json:"observed_value,omitempty"`
	ExpectedValue string `json:"expected_value"`
	Source        string `json:"source,omitempty"`
	Compliant     bool   `json:"compliant"`
}

// SecurityHeaderReport maps a header name to its check.
type SecurityHeaderReport map[string]HeaderCheck

// SecurityHeaders lists the checked headers with their expected values.
var SecurityHeaders = []struct {
	Name     string
	Expected string
}{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"X-XSS-Protection", "1; mode=block"},
	{"Strict-Transport-Security", "max-age=31536000"},
	{"Content-Security-Policy", "default-src 'self'"},
}

// SecurityHeaderReport checks the security headers of the most recent
// document response. Headers it lacks are looked up in the
// <meta http-equiv> tags of the current document. The report is always
// returned; the error is set when the document could not be read.
func (o *Observer) SecurityHeaderReport(ctx context.Context) (SecurityHeaderReport, error) {
	doc, hasDoc := o.latestDocument()

	report := make(SecurityHeaderReport, len(SecurityHeaders))
	var missing []string
	for _, h := range SecurityHeaders {
		check := HeaderCheck{ExpectedValue: h.Expected}
		if hasDoc {
			if v, ok := doc.Header(h.Name); ok {
				check.Present = true
				check.ObservedValue = v
				check.Source = SourceHeader
				check.Compliant = containsFold(v, h.Expected)
			}
		}
		if !check.Present {
			missing = append(missing, h.Name)
		}
		report[h.Name] = check
	}

	if len(missing) == 0 {
		return report, nil
	}

	meta, err := o.metaHTTPEquiv(ctx)
	if err != nil {
		return report, err
	}
	for _, name := range missing {
		v, ok := meta[strings.ToLower(name)]
		if !ok {
			continue
		}
		check := report[name]
		check.Present = true
		check.ObservedValue = v
		check.Source = SourceMeta
		check.Compliant = containsFold(v, check.ExpectedValue)
		report[name] = check
	}
	return report, nil
}

func (o *Observer) latestDocument() (ResponseRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for i := o.responses.len() - 1; i >= 0; i-- {
		if rec := o.responses.at(i); rec.ResourceType == ResourceDocument {
			return rec, true
		}
	}
	return ResponseRecord{}, false
}

// metaHTTPEquiv returns the http-equiv meta tags of the current document,
// keyed by lowercased header name. The first tag for a name wins.
func (o *Observer) metaHTTPEquiv(ctx context.Context) (map[string]string, error) {
	html, err := o.session.DocumentHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	tags := make(map[string]string)
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("http-equiv", "")))
		if name == "" {
			return
		}
		if _, seen := tags[name]; !seen {
			tags[name] = s.AttrOr("content", "")
		}
	})
	return tags, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
