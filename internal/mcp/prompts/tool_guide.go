package prompts

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleToolGuide serves the tool usage guide. Navigation rows are included
// only for browser sessions.
func HandleToolGuide(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		var sb strings.Builder

		sb.WriteString("# Efficient Tool Usage Guide\n\n")

		sb.WriteString("## Which Tool\n\n")
		sb.WriteString("| Question | Tool |\n")
		sb.WriteString("|----------|------|\n")
		sb.WriteString("| What happened so far? | `authwatch_summary` |\n")
		if cfg.NavigationEnabled {
			sb.WriteString("| Open a page | `authwatch_navigate` |\n")
		}
		sb.WriteString("| Where is the login call? | `authwatch_find_login` |\n")
		sb.WriteString("| How fast is it? | `authwatch_measure_latency` |\n")
		sb.WriteString("| Does the JSON look right? | `authwatch_validate_shape` |\n")
		sb.WriteString("| Are security headers set? | `authwatch_security_headers` |\n")
		sb.WriteString("| Are session cookies safe? | `authwatch_session_cookies` |\n")
		sb.WriteString("| What is in the token? | `authwatch_decode_token` |\n")
		sb.WriteString("| Which calls failed? | `authwatch_list_exchanges(failed_only: true)` |\n")
		sb.WriteString("| Did the page throw? | `authwatch_page_errors` |\n")

		sb.WriteString("\n## Matching\n")
		sb.WriteString("Tools that pick a request take `match` with `url_contains`, `path`, `url_pattern` (Go regexp) and `header_name`/`header_value`; set criteria are ANDed.\n")
		sb.WriteString("Without `match`, login lookups use substring matching on the login fragment, `login` and `auth`. That also hits pages such as `/login` or `/oauth/callback`, so pass `match.path` once you know the API path.\n")

		sb.WriteString("\n## Keeping Context Small\n")
		sb.WriteString("- Headers and bodies are excluded unless `include_headers` / `include_body` is set\n")
		sb.WriteString("- `authwatch_list_exchanges` keeps the newest `limit` items; narrow with host, method or status first\n")
		sb.WriteString("- Fetch `authwatch://body/{request_id}` only when values matter; `authwatch_validate_shape` checks structure without returning the body\n")

		sb.WriteString("\n## Timing\n")
		sb.WriteString("`authwatch_measure_latency` only counts responses that arrive after the call starts. ")
		if cfg.NavigationEnabled {
			sb.WriteString("Pass `navigate_url` to start the request from the same call.\n")
		} else {
			sb.WriteString("In a replay session the capture is polled, so include the poll interval in the budget.\n")
		}

		sb.WriteString("\n## Masking\n")
		sb.WriteString("Authorization, cookie, password and token values are replaced with `***MASKED***` in all output. Do not ask the user for them.\n")

		return &sdkmcp.GetPromptResult{
			Description: "Essential guide for efficient tool usage",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
