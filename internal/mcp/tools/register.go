package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Tool 1: authwatch_summary
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_summary",
		Description: "Summarize the observed session: request/response/page-error counts, failed responses, the login request and response, the security header report and the session cookie summary. Start here. Problems reading browser state are listed in warnings rather than failing the call.",
	}, ToolSummary(d))

	// Tool 2: authwatch_navigate
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_navigate",
		Description: "Open a URL in the observed browser tab and wait for the page load. Only available for browser sessions; replay sessions return INVALID_INPUT.",
	}, ToolNavigate(d))

	// Tool 3: authwatch_find_login
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_find_login",
		Description: "Find the first login request and the first login response in the log. By default matches URLs containing the configured login fragment, 'login' or 'auth'; pass match to narrow it (url_contains, path, url_pattern, header_name/header_value). Returns status_matches against expected_status. Headers and bodies are masked.",
	}, ToolFindLogin(d))

	// Tool 4: authwatch_security_headers
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_security_headers",
		Description: "Check X-Content-Type-Options, X-Frame-Options, X-XSS-Protection, Strict-Transport-Security and Content-Security-Policy on the latest document response, falling back to <meta http-equiv> tags. Each header reports present, observed_value, expected_value, source (header or meta) and compliant.",
	}, ToolSecurityHeaders(d))

	// Tool 5: authwatch_session_cookies
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_session_cookies",
		Description: "Summarize the cookie jar: total count and the session-relevant cookies (names containing session, sessid, auth or token, or a delimited sid token such as connect.sid) with their Secure, HttpOnly and SameSite attributes. Values are never returned. insecure lists relevant cookies missing Secure or HttpOnly.",
	}, ToolSessionCookies(d))

	// Tool 6: authwatch_decode_token
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_decode_token",
		Description: "Decode an auth JWT without verifying its signature. source=cookie reads the first cookie whose name contains token or jwt, source=bearer the latest Authorization: Bearer request header, source=raw the token argument. Returns header, payload (sensitive claims masked), issued_at, expires_at and expired.",
	}, ToolDecodeToken(d))

	// Tool 7: authwatch_measure_latency
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_measure_latency",
		Description: "Wait for the next response matching match and report its latency against max_time_ms. Responses recorded before the call do not count. Pass navigate_url to trigger the request; otherwise perform the action (e.g. submit the login form) while this call waits. Returns TIMEOUT if nothing matches within timeout_ms.",
	}, ToolMeasureLatency(d))

	// Tool 8: authwatch_validate_shape
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_validate_shape",
		Description: "Compare the top-level keys of the first matching JSON response body with expected. Missing keys make the result invalid; extra keys are reported only. Use select (jq) to pick a nested object and check_types to also validate value types.",
	}, ToolValidateShape(d))

	// Tool 9: authwatch_list_exchanges
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_list_exchanges",
		Description: "List recorded request/response pairs filtered by host, method and status range, oldest first. Use failed_only for responses with status >= 400. Read full records with the authwatch://request/{seq}, authwatch://response/{seq} and authwatch://body/{request_id} resources.",
	}, ToolListExchanges(d))

	// Tool 10: authwatch_page_errors
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_page_errors",
		Description: "Return console errors and uncaught exceptions raised by the page since the server started or the last reset.",
	}, ToolPageErrors(d))

	// Tool 11: authwatch_clear
	AddTool(srv, &sdkmcp.Tool{
		Name:        "authwatch_clear",
		Description: "Empty the request and response logs, e.g. before repeating a login attempt. Sequence numbers keep increasing after a clear.",
	}, ToolClear(d))
}
