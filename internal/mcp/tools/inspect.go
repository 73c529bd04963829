package tools

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// Token sources for authwatch_decode_token.
const (
	TokenSourceCookie = "cookie"
	TokenSourceBearer = "bearer"
	TokenSourceRaw    = "raw"
)

// SecurityHeadersInput is the input for authwatch_security_headers.
type SecurityHeadersInput struct{}

// SecurityHeadersOutput is the output for authwatch_security_headers.
type SecurityHeadersOutput struct {
	Headers   map[string]observer.HeaderCheck `json:"headers,omitempty"`
	Present   int                             `json:"present"`
	Compliant int                             `json:"compliant"`
	Missing   []string                        `json:"missing,omitempty"`
	Warning   string                          `json:"warning,omitempty"`
}

// ToolSecurityHeaders checks the security headers of the current document.
func ToolSecurityHeaders(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SecurityHeadersInput) (*sdkmcp.CallToolResult, SecurityHeadersOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SecurityHeadersInput) (*sdkmcp.CallToolResult, SecurityHeadersOutput, error) {
		d.Refresh(ctx)

		report, err := d.Observer.SecurityHeaderReport(ctx)
		output := SecurityHeadersOutput{Headers: report}
		if err != nil {
			output.Warning = err.Error()
		}

		// Iterate the fixed list so Missing keeps a stable order.
		for _, h := range observer.SecurityHeaders {
			check := report[h.Name]
			if !check.Present {
				output.Missing = append(output.Missing, h.Name)
				continue
			}
			output.Present++
			if check.Compliant {
				output.Compliant++
			}
		}

		return nil, output, nil
	}
}

// SessionCookiesInput is the input for authwatch_session_cookies.
type SessionCookiesInput struct{}

// SessionCookiesOutput is the output for authwatch_session_cookies.
type SessionCookiesOutput struct {
	TotalCount             int                     `json:"total_count"`
	SessionRelevantCount   int                     `json:"session_relevant_count"`
	SessionRelevantCookies []observer.CookieDetail `json:"session_relevant_cookies,omitempty"`
	Insecure               []string                `json:"insecure,omitempty"`
}

// ToolSessionCookies summarizes the session-relevant cookies.
func ToolSessionCookies(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SessionCookiesInput) (*sdkmcp.CallToolResult, SessionCookiesOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SessionCookiesInput) (*sdkmcp.CallToolResult, SessionCookiesOutput, error) {
		d.Refresh(ctx)

		summary, err := d.Observer.SessionCookieSummary(ctx)
		if err != nil {
			return nil, SessionCookiesOutput{}, WrapSessionError(err)
		}

		output := SessionCookiesOutput{
			TotalCount:             summary.TotalCount,
			SessionRelevantCount:   summary.SessionRelevantCount,
			SessionRelevantCookies: summary.SessionRelevantCookies,
		}
		for _, c := range summary.SessionRelevantCookies {
			if !c.Secure || !c.HTTPOnly {
				output.Insecure = append(output.Insecure, c.Name)
			}
		}

		return nil, output, nil
	}
}

// DecodeTokenInput is the input for authwatch_decode_token.
type DecodeTokenInput struct {
	Source string `json:"source,omitempty" jsonschema:"Where to read the token: cookie, bearer or raw (default: cookie)"`
	Token  string `json:"token,omitempty" jsonschema:"JWT to decode when source is raw"`
}

// DecodeTokenOutput is the output for authwatch_decode_token.
type DecodeTokenOutput struct {
	Source    string         `json:"source"`
	Valid     bool           `json:"valid"`
	Cookie    string         `json:"cookie,omitempty"`
	Header    map[string]any `json:"header,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	IssuedAt  string         `json:"issued_at,omitempty"`
	ExpiresAt string         `json:"expires_at,omitempty"`
	ExpiresIn string         `json:"expires_in,omitempty"`
	Expired   bool           `json:"expired"`
	Error     string         `json:"error,omitempty"`
}

// ToolDecodeToken decodes an auth JWT without verifying its signature.
func ToolDecodeToken(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input DecodeTokenInput) (*sdkmcp.CallToolResult, DecodeTokenOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input DecodeTokenInput) (*sdkmcp.CallToolResult, DecodeTokenOutput, error) {
		source := input.Source
		if source == "" {
			source = TokenSourceCookie
		}

		var info observer.TokenInfo
		switch source {
		case TokenSourceCookie:
			d.Refresh(ctx)
			info = d.Observer.DecodeAuthToken(ctx)
		case TokenSourceBearer:
			d.Refresh(ctx)
			info = d.Observer.DecodeBearerToken()
		case TokenSourceRaw:
			if input.Token == "" {
				return nil, DecodeTokenOutput{}, ErrInvalidInput("token is required when source is raw")
			}
			info = observer.DecodeToken(input.Token, time.Now())
		default:
			return nil, DecodeTokenOutput{}, ErrInvalidInput("source must be 'cookie', 'bearer', or 'raw'")
		}

		output := DecodeTokenOutput{
			Source:  source,
			Valid:   info.Valid,
			Cookie:  info.Cookie,
			Header:  info.Header,
			Payload: d.Masker.Fields(info.Payload),
			Expired: info.Expired,
			Error:   info.Error,
		}
		if info.IssuedAt != nil {
			output.IssuedAt = FormatTime(*info.IssuedAt)
		}
		if info.ExpiresAt != nil {
			output.ExpiresAt = FormatTime(*info.ExpiresAt)
			if !info.Expired {
				output.ExpiresIn = time.Until(*info.ExpiresAt).Round(time.Second).String()
			}
		}

		return nil, output, nil
	}
}
