package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// SummaryInput is the input for authwatch_summary.
type SummaryInput struct{}

// SummaryOutput is the output for authwatch_summary.
type SummaryOutput struct {
	ObserverID      string                          `json:"observer_id"`
	Requests        int                             `json:"requests"`
	Responses       int                             `json:"responses"`
	FailedResponses int                             `json:"failed_responses"`
	PageErrors      int                             `json:"page_errors"`
	LoginRequest    *DisplayRequest                 `json:"login_request,omitempty"`
	LoginResponse   *DisplayResponse                `json:"login_response,omitempty"`
	SecurityHeaders map[string]observer.HeaderCheck `json:"security_headers,omitempty"`
	SessionCookies  *observer.CookieSummary         `json:"session_cookies,omitempty"`
	Warnings        []string                        `json:"warnings,omitempty"`
	GeneratedAt     string                          `json:"generated_at"`
}

// ToolSummary reports a validation summary of the observed session.
func ToolSummary(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SummaryInput) (*sdkmcp.CallToolResult, SummaryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SummaryInput) (*sdkmcp.CallToolResult, SummaryOutput, error) {
		d.Refresh(ctx)

		s := d.Observer.Summary(ctx)
		output := SummaryOutput{
			ObserverID:      d.Observer.ID(),
			Requests:        s.Requests,
			Responses:       s.Responses,
			FailedResponses: s.FailedResponses,
			PageErrors:      s.PageErrors,
			SecurityHeaders: s.SecurityHeaders,
			SessionCookies:  s.SessionCookies,
			Warnings:        s.Warnings,
			GeneratedAt:     FormatTime(s.GeneratedAt),
		}
		if s.LoginRequest != nil {
			r := ToDisplayRequest(*s.LoginRequest, d.Masker, DisplayOptions{})
			output.LoginRequest = &r
		}
		if s.LoginResponse != nil {
			r := ToDisplayResponse(*s.LoginResponse, d.Masker, DisplayOptions{})
			output.LoginResponse = &r
		}

		return nil, output, nil
	}
}
