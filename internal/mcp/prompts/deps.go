// Package prompts contains MCP prompt implementations for authwatch.
package prompts

import "time"

// Config holds configuration needed by prompts.
type Config struct {
	NavigationEnabled   bool // the session is a live browser tab
	LoginURLFragment    string
	LoginExpectedStatus int
	LatencyBudget       time.Duration
}
