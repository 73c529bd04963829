package tools

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// MeasureLatencyInput is the input for authwatch_measure_latency.
type MeasureLatencyInput struct {
	Match       *MatchInput `json:"match,omitempty" jsonschema:"Criteria for the awaited response (default: URL contains the configured login fragment)"`
	MaxTimeMs   int         `json:"max_time_ms,omitempty" jsonschema:"Latency budget in ms (default: LATENCY_BUDGET_MS)"`
	TimeoutMs   int         `json:"timeout_ms,omitempty" jsonschema:"How long to wait for the response in ms (default: NAVIGATION_TIMEOUT_MS)"`
	NavigateURL string      `json:"navigate_url,omitempty" jsonschema:"URL to open once the clock starts (browser sessions only)"`
}

// MeasureLatencyOutput is the output for authwatch_measure_latency.
type MeasureLatencyOutput struct {
	URL            string `json:"url"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	MaxTimeMs      int64  `json:"max_time_ms"`
	WithinLimit    bool   `json:"within_limit"`
	Hint           string `json:"hint,omitempty"`
}

// ToolMeasureLatency waits for the next matching response and times it.
func ToolMeasureLatency(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input MeasureLatencyInput) (*sdkmcp.CallToolResult, MeasureLatencyOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input MeasureLatencyInput) (*sdkmcp.CallToolResult, MeasureLatencyOutput, error) {
		m, err := input.Match.Matcher()
		if err != nil {
			return nil, MeasureLatencyOutput{}, err
		}
		if m == nil {
			m = observer.URLContains(d.Config.LoginURLFragment)
		}

		budget := d.Config.LatencyBudget
		if input.MaxTimeMs > 0 {
			budget = time.Duration(input.MaxTimeMs) * time.Millisecond
		}
		timeout := d.Config.NavigationTimeout
		if input.TimeoutMs > 0 {
			timeout = time.Duration(input.TimeoutMs) * time.Millisecond
		}

		var trigger func(context.Context) error
		if input.NavigateURL != "" {
			if d.Navigator == nil {
				return nil, MeasureLatencyOutput{}, ErrInvalidInput("navigate_url needs a browser session")
			}
			if err := validateNavigateURL(input.NavigateURL); err != nil {
				return nil, MeasureLatencyOutput{}, err
			}
			trigger = func(ctx context.Context) error {
				return d.Navigator.Navigate(ctx, input.NavigateURL)
			}
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		res, err := d.Observer.MeasureResponseLatencyAfter(waitCtx, m, budget, trigger)
		if err != nil {
			return nil, MeasureLatencyOutput{}, WrapSessionError(err)
		}

		output := MeasureLatencyOutput{
			URL:            d.Masker.String(res.URL),
			ResponseTimeMs: res.ResponseTime.Milliseconds(),
			MaxTimeMs:      res.MaxTime.Milliseconds(),
			WithinLimit:    res.WithinLimit,
		}
		if !res.WithinLimit {
			output.Hint = fmt.Sprintf("Response took %s, over the %s budget.", res.ResponseTime.Round(time.Millisecond), budget)
		}

		return nil, output, nil
	}
}
