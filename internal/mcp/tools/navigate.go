package tools

import (
	"context"
	"net/url"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NavigateInput is the input for authwatch_navigate.
type NavigateInput struct {
	URL string `json:"url" jsonschema:"required,Absolute http(s) URL to open in the observed tab"`
}

// NavigateOutput is the output for authwatch_navigate.
type NavigateOutput struct {
	URL       string `json:"url"`
	Requests  int    `json:"requests"`
	Responses int    `json:"responses"`
	Hint      string `json:"hint,omitempty"`
}

// ToolNavigate opens a URL in the observed browser tab.
func ToolNavigate(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input NavigateInput) (*sdkmcp.CallToolResult, NavigateOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input NavigateInput) (*sdkmcp.CallToolResult, NavigateOutput, error) {
		if d.Navigator == nil {
			return nil, NavigateOutput{}, ErrInvalidInput("this session is a replay and cannot be navigated")
		}
		if err := validateNavigateURL(input.URL); err != nil {
			return nil, NavigateOutput{}, err
		}

		navCtx, cancel := context.WithTimeout(ctx, d.Config.NavigationTimeout)
		defer cancel()
		if err := d.Navigator.Navigate(navCtx, input.URL); err != nil {
			return nil, NavigateOutput{}, WrapSessionError(err)
		}

		return nil, NavigateOutput{
			URL:       input.URL,
			Requests:  len(d.Observer.Requests()),
			Responses: len(d.Observer.Responses()),
			Hint:      "Call authwatch_summary or authwatch_find_login to inspect the recorded traffic.",
		}, nil
	}
}

func validateNavigateURL(raw string) error {
	if raw == "" {
		return ErrInvalidInput("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidInput("url must be an absolute http or https URL")
	}
	return nil
}
