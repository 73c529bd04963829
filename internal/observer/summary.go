package observer

import (
	"context"
	"time"
)

// ValidationSummary is a snapshot of the logs plus freshly computed reports.
type ValidationSummary struct {
	Requests        int                  `json:"requests"`
	Responses       int                  `json:"responses"`
	FailedResponses int                  `json:"failed_responses"`
	PageErrors      int                  `json:"page_errors"`
	LoginRequest    *RequestRecord       `json:"login_request,omitempty"`
	LoginResponse   *ResponseRecord      `json:"login_response,omitempty"`
	SecurityHeaders SecurityHeaderReport `json:"security_headers,omitempty"`
	SessionCookies  *CookieSummary       `json:"session_cookies,omitempty"`
	Warnings        []string             `json:"warnings,omitempty"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// Summary bundles log sizes with the login lookups, the security header
// report and the cookie summary. Failures reading browser state are reported
// as warnings.
func (o *Observer) Summary(ctx context.Context) ValidationSummary {
	o.mu.RLock()
	s := ValidationSummary{
		Requests:   o.requests.len(),
		Responses:  o.responses.len(),
		PageErrors: o.pageErrors,
	}
	for i := 0; i < o.responses.len(); i++ {
		if o.responses.at(i).Failed() {
			s.FailedResponses++
		}
	}
	o.mu.RUnlock()

	if req, ok := o.FindLoginExchange(LoginRequestMatcher(o.opts.loginFragment)); ok {
		s.LoginRequest = &req
	}
	if resp, ok := o.FindLoginResponse(LoginResponseMatcher(), o.opts.loginStatus); ok {
		s.LoginResponse = &resp
		if resp.StatusCode != o.opts.loginStatus {
			s.Warnings = append(s.Warnings, "login response status differs from expected")
		}
	}

	headers, err := o.SecurityHeaderReport(ctx)
	s.SecurityHeaders = headers
	if err != nil {
		s.Warnings = append(s.Warnings, "security headers: "+err.Error())
	}

	if cookies, err := o.SessionCookieSummary(ctx); err != nil {
		s.Warnings = append(s.Warnings, "session cookies: "+err.Error())
	} else {
		s.SessionCookies = &cookies
	}

	s.GeneratedAt = o.opts.now()
	return s
}
