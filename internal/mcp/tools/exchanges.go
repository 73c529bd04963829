package tools

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

const defaultExchangeLimit = 50

// ListExchangesInput is the input for authwatch_list_exchanges.
type ListExchangesInput struct {
	Host           string `json:"host,omitempty" jsonschema:"Exact host, e.g. app.example.com"`
	Method         string `json:"method,omitempty" jsonschema:"HTTP method of the request"`
	StatusMin      int    `json:"status_min,omitempty" jsonschema:"Lowest status code to include"`
	StatusMax      int    `json:"status_max,omitempty" jsonschema:"Highest status code to include"`
	FailedOnly     bool   `json:"failed_only,omitempty" jsonschema:"Only responses with status 400 or above"`
	IncludeHeaders bool   `json:"include_headers,omitempty" jsonschema:"Include masked headers (default: false)"`
	Limit          int    `json:"limit,omitempty" jsonschema:"Max exchanges to return, newest kept (default: 50)"`
}

// ExchangeView is a response and, when still recorded, its request.
type ExchangeView struct {
	Request  *DisplayRequest `json:"request,omitempty"`
	Response DisplayResponse `json:"response"`
}

// ListExchangesOutput is the output for authwatch_list_exchanges.
type ListExchangesOutput struct {
	Exchanges []ExchangeView `json:"exchanges,omitzero"`
	Total     int            `json:"total"`
	Truncated bool           `json:"truncated,omitempty"`
}

// ToolListExchanges lists recorded exchanges filtered by host, method and status.
func ToolListExchanges(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListExchangesInput) (*sdkmcp.CallToolResult, ListExchangesOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListExchangesInput) (*sdkmcp.CallToolResult, ListExchangesOutput, error) {
		q := observer.Query{
			Host:      input.Host,
			Method:    strings.ToUpper(input.Method),
			StatusMin: input.StatusMin,
			StatusMax: input.StatusMax,
		}
		if input.FailedOnly && q.StatusMin < 400 {
			q.StatusMin = 400
		}
		if q.StatusMax > 0 && q.StatusMin > q.StatusMax {
			return nil, ListExchangesOutput{}, ErrInvalidInput("status_min must not exceed status_max")
		}

		limit := input.Limit
		if limit <= 0 {
			limit = defaultExchangeLimit
		}

		d.Refresh(ctx)

		exchanges := d.Observer.Query(q)
		output := ListExchangesOutput{Total: len(exchanges)}
		if len(exchanges) > limit {
			exchanges = exchanges[len(exchanges)-limit:]
			output.Truncated = true
		}

		opts := DisplayOptions{IncludeHeaders: input.IncludeHeaders}
		output.Exchanges = make([]ExchangeView, 0, len(exchanges))
		for _, ex := range exchanges {
			view := ExchangeView{Response: ToDisplayResponse(ex.Response, d.Masker, opts)}
			if ex.Request != nil {
				r := ToDisplayRequest(*ex.Request, d.Masker, opts)
				view.Request = &r
			}
			output.Exchanges = append(output.Exchanges, view)
		}

		return nil, output, nil
	}
}

// ClearInput is the input for authwatch_clear.
type ClearInput struct {
	KeepPageErrors bool `json:"keep_page_errors,omitempty" jsonschema:"Keep the collected page errors (default: false)"`
}

// ClearOutput is the output for authwatch_clear.
type ClearOutput struct {
	ClearedRequests  int `json:"cleared_requests"`
	ClearedResponses int `json:"cleared_responses"`
}

// ToolClear empties the request and response logs.
func ToolClear(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ClearInput) (*sdkmcp.CallToolResult, ClearOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ClearInput) (*sdkmcp.CallToolResult, ClearOutput, error) {
		output := ClearOutput{
			ClearedRequests:  len(d.Observer.Requests()),
			ClearedResponses: len(d.Observer.Responses()),
		}
		d.Observer.Clear()
		if !input.KeepPageErrors && d.Errors != nil {
			d.Errors.Reset()
		}
		return nil, output, nil
	}
}
