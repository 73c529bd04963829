package prompts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleAuditLoginFlow walks the assistant through a login flow audit.
func HandleAuditLoginFlow(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		loginURL := args["login_url"]
		loginPath := args["login_path"]
		if loginPath == "" {
			loginPath = cfg.LoginURLFragment
		}
		expected := cfg.LoginExpectedStatus
		if v := args["expected_status"]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 100 || n > 599 {
				return nil, fmt.Errorf("expected_status must be an HTTP status code, got %q", v)
			}
			expected = n
		}

		var sb strings.Builder
		sb.WriteString("# Login Flow Audit\n\n")
		sb.WriteString("Audit the login flow of the observed session and report each finding as PASS, WARN or FAIL.\n")
		sb.WriteString(fmt.Sprintf("The login API call is expected at `%s` and should return **%d**.\n", loginPath, expected))

		step := 1
		next := func(title string) {
			sb.WriteString(fmt.Sprintf("\n## Step %d: %s\n", step, title))
			step++
		}

		next("Baseline")
		sb.WriteString("- `authwatch_clear()` so earlier traffic does not match\n")
		if cfg.NavigationEnabled && loginURL != "" {
			sb.WriteString(fmt.Sprintf("- `authwatch_navigate(url: %q)` to load the login page\n", loginURL))
		} else if cfg.NavigationEnabled {
			sb.WriteString("- Ask the user for the login page URL, then `authwatch_navigate(url: ...)`\n")
		} else {
			sb.WriteString("- This is a replay session: ask the user to perform the login in the captured browser\n")
		}

		next("Time the login")
		sb.WriteString(fmt.Sprintf("- `authwatch_measure_latency(match: {path: %q}, max_time_ms: %d)`\n", loginPath, cfg.LatencyBudget.Milliseconds()))
		sb.WriteString("- While it waits, the user (or a navigate_url trigger) submits the login form\n")
		sb.WriteString("- `within_limit: false` is a WARN; a TIMEOUT error means the call never happened (FAIL)\n")

		next("Locate the exchange")
		sb.WriteString(fmt.Sprintf("- `authwatch_find_login(match: {path: %q}, expected_status: %d, include_headers: true)`\n", loginPath, expected))
		sb.WriteString("- `status_matches: false` is a FAIL. Check the request method is POST and the body is not sent in the query string\n")

		next("Validate the response body")
		sb.WriteString(fmt.Sprintf("- `authwatch_validate_shape(match: {path: %q}, expected: {...})` with the keys the client relies on\n", loginPath))
		sb.WriteString("- Add `select` for nested payloads and `check_types: true` when types matter\n")
		sb.WriteString("- Missing keys are a FAIL; extra keys are informational\n")

		next("Security headers")
		sb.WriteString("- `authwatch_security_headers()`: each missing header is a WARN, a present but non-compliant one a FAIL\n")
		sb.WriteString("- `source: meta` means the policy is only set in the document, note it\n")

		next("Session cookies and token")
		sb.WriteString("- `authwatch_session_cookies()`: every cookie in `insecure` is a FAIL (missing Secure or HttpOnly)\n")
		sb.WriteString("- `authwatch_decode_token()` then `authwatch_decode_token(source: \"bearer\")`\n")
		sb.WriteString("- Flag tokens without `exp`, already `expired`, or living longer than a day\n")

		next("Page health")
		sb.WriteString("- `authwatch_page_errors()`: exceptions during login are a FAIL, console errors a WARN\n")
		sb.WriteString("- `authwatch_list_exchanges(failed_only: true)` for failing calls around the login\n")

		next("Report")
		sb.WriteString("- Finish with `authwatch_summary()` and a table: check | result | evidence\n")
		sb.WriteString("- Never echo credentials or token values; tool output is already masked\n")

		return &sdkmcp.GetPromptResult{
			Description: "Step-by-step login flow audit",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
