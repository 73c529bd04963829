package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/observer"
	"github.com/usestring/authwatch-mcp/internal/query"
	"github.com/usestring/authwatch-mcp/internal/schema"
)

// ValidateShapeInput is the input for authwatch_validate_shape.
type ValidateShapeInput struct {
	Match      *MatchInput       `json:"match,omitempty" jsonschema:"Criteria for the response to check (default: the login response)"`
	Expected   map[string]string `json:"expected" jsonschema:"required,Expected top-level keys mapped to a type: string, number, integer, boolean, object, array, null or any. Suffix ? allows null."`
	Select     string            `json:"select,omitempty" jsonschema:"jq expression selecting the object to compare, e.g. .data.user"`
	CheckTypes bool              `json:"check_types,omitempty" jsonschema:"Also validate the value types (default: keys only)"`
}

// ValidateShapeOutput is the output for authwatch_validate_shape.
type ValidateShapeOutput struct {
	Valid      bool     `json:"valid"`
	URL        string   `json:"url,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	TypeErrors []string `json:"type_errors,omitempty"`
	Error      string   `json:"error,omitempty"`
}

var jqEngine = query.NewEngine()

// ToolValidateShape compares a JSON response body with an expected key set.
func ToolValidateShape(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateShapeInput) (*sdkmcp.CallToolResult, ValidateShapeOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateShapeInput) (*sdkmcp.CallToolResult, ValidateShapeOutput, error) {
		if len(input.Expected) == 0 {
			return nil, ValidateShapeOutput{}, ErrInvalidInput("expected is required")
		}
		if input.Select != "" {
			if err := jqEngine.ValidateExpression(input.Select); err != nil {
				return nil, ValidateShapeOutput{}, ErrInvalidInput(err.Error())
			}
		}
		if input.CheckTypes {
			if _, err := schema.FromTypeDescriptors(input.Expected); err != nil {
				return nil, ValidateShapeOutput{}, ErrInvalidInput(fmt.Sprintf("invalid expected types: %s", err))
			}
		}

		m, err := input.Match.Matcher()
		if err != nil {
			return nil, ValidateShapeOutput{}, err
		}
		if m == nil {
			m = observer.LoginResponseMatcher()
		}

		d.Refresh(ctx)

		res := d.Observer.ValidateJSONShape(ctx, m, input.Expected, observer.ShapeOptions{
			Select:     input.Select,
			CheckTypes: input.CheckTypes,
		})

		return nil, ValidateShapeOutput{
			Valid:      res.Valid,
			URL:        d.Masker.String(res.URL),
			Missing:    res.Missing,
			Extra:      res.Extra,
			TypeErrors: res.TypeErrors,
			Error:      res.Error,
		}, nil
	}
}
