package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// FindLoginInput is the input for authwatch_find_login.
type FindLoginInput struct {
	Match          *MatchInput `json:"match,omitempty" jsonschema:"Criteria for the login request and response (default: URL contains the configured login fragment, login or auth)"`
	ExpectedStatus int         `json:"expected_status,omitempty" jsonschema:"Status the login response should have (default: LOGIN_EXPECTED_STATUS)"`
	IncludeHeaders bool        `json:"include_headers,omitempty" jsonschema:"Include masked headers (default: false)"`
	IncludeBody    bool        `json:"include_body,omitempty" jsonschema:"Include the masked request body (default: false)"`
}

// FindLoginOutput is the output for authwatch_find_login.
type FindLoginOutput struct {
	Request        *DisplayRequest  `json:"request,omitempty"`
	Response       *DisplayResponse `json:"response,omitempty"`
	ExpectedStatus int              `json:"expected_status"`
	StatusMatches  bool             `json:"status_matches"`
	Hint           string           `json:"hint,omitempty"`
}

// ToolFindLogin locates the login request and its response.
func ToolFindLogin(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input FindLoginInput) (*sdkmcp.CallToolResult, FindLoginOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input FindLoginInput) (*sdkmcp.CallToolResult, FindLoginOutput, error) {
		m, err := input.Match.Matcher()
		if err != nil {
			return nil, FindLoginOutput{}, err
		}
		reqMatcher, respMatcher := m, m
		if m == nil {
			reqMatcher = observer.LoginRequestMatcher(d.Config.LoginURLFragment)
			respMatcher = observer.LoginResponseMatcher()
		}

		expected := input.ExpectedStatus
		if expected <= 0 {
			expected = d.Config.LoginExpectedStatus
		}

		d.Refresh(ctx)

		opts := DisplayOptions{
			IncludeHeaders: input.IncludeHeaders,
			IncludeBody:    input.IncludeBody,
			MaxBodyBytes:   d.Config.ResourceMaxBodyBytes,
		}
		output := FindLoginOutput{ExpectedStatus: expected}

		if rec, ok := d.Observer.FindLoginExchange(reqMatcher); ok {
			r := ToDisplayRequest(rec, d.Masker, opts)
			output.Request = &r
		}
		if rec, ok := d.Observer.FindLoginResponse(respMatcher, expected); ok {
			r := ToDisplayResponse(rec, d.Masker, opts)
			output.Response = &r
			output.StatusMatches = rec.StatusCode == expected
		}

		switch {
		case output.Request == nil && output.Response == nil:
			output.Hint = "No login traffic recorded yet. Drive the login form, or use authwatch_navigate, then retry."
		case output.Response == nil:
			output.Hint = "Login request found but no matching response yet. Use authwatch_measure_latency to wait for it."
		case !output.StatusMatches:
			output.Hint = fmt.Sprintf("Login response returned %d, expected %d. Use authwatch://body/%s to read the body.",
				output.Response.StatusCode, expected, output.Response.RequestID)
		}

		return nil, output, nil
	}
}
