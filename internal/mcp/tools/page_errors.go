package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
)

// PageErrorsInput is the input for authwatch_page_errors.
type PageErrorsInput struct {
	Kind  string `json:"kind,omitempty" jsonschema:"Only errors of this kind: console or exception"`
	Reset bool   `json:"reset,omitempty" jsonschema:"Drop all collected errors after reading (default: false)"`
}

// PageErrorView is a masked page error.
type PageErrorView struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Location   string `json:"location,omitempty"`
	Stack      string `json:"stack,omitempty"`
	ObservedAt string `json:"observed_at"`
}

// PageErrorsOutput is the output for authwatch_page_errors.
type PageErrorsOutput struct {
	Errors []PageErrorView `json:"errors,omitzero"`
	Total  int             `json:"total"`
}

// ToolPageErrors returns console errors and uncaught exceptions raised by the page.
func ToolPageErrors(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input PageErrorsInput) (*sdkmcp.CallToolResult, PageErrorsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input PageErrorsInput) (*sdkmcp.CallToolResult, PageErrorsOutput, error) {
		switch input.Kind {
		case "", observer.ErrorKindConsole, observer.ErrorKindException:
		default:
			return nil, PageErrorsOutput{}, ErrInvalidInput("kind must be 'console' or 'exception'")
		}
		if d.Errors == nil {
			return nil, PageErrorsOutput{}, nil
		}

		errs := d.Errors.Errors()
		if input.Reset {
			d.Errors.Reset()
		}

		output := PageErrorsOutput{Errors: make([]PageErrorView, 0, len(errs))}
		for _, pe := range errs {
			if input.Kind != "" && pe.Kind != input.Kind {
				continue
			}
			output.Errors = append(output.Errors, PageErrorView{
				Kind:       pe.Kind,
				Message:    d.Masker.String(pe.Message),
				Location:   pe.Location,
				Stack:      d.Masker.String(pe.Stack),
				ObservedAt: FormatTime(pe.ObservedAt),
			})
		}
		output.Total = len(output.Errors)

		return nil, output, nil
	}
}
