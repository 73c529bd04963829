package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/usestring/authwatch-mcp/internal/query"
	"github.com/usestring/authwatch-mcp/internal/schema"
)

// ShapeOptions refines ValidateJSONShape.
type ShapeOptions struct {
	// Select is a jq expression picking the object to compare from the body.
	Select string
	// CheckTypes validates the expected type descriptors, not only key presence.
	CheckTypes bool
}

// ShapeResult is the key-set diff of a JSON body against an expected shape.
type ShapeResult struct {
	Valid      bool     `json:"valid"`
	URL        string   `json:"url,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Extra      []string `json:"extra,omitempty"`
	TypeErrors []string `json:"type_errors,omitempty"`
	Error      string   `json:"error,omitempty"`
}

var jq = query.NewEngine()

// ValidateJSONShape compares the top-level keys of the first response
// matching m with expected, a map of key to type name. Missing keys make the
// result invalid; extra keys are only reported.
func (o *Observer) ValidateJSONShape(ctx context.Context, m Matcher, expected map[string]string, opts ShapeOptions) ShapeResult {
	rec, ok := o.firstResponse(m)
	if !ok {
		slog.Warn("no response matches shape check", slog.String("observer", o.id))
		return ShapeResult{Error: "no matching response"}
	}

	res := ShapeResult{URL: rec.URL}

	body, err := o.ResponseBody(ctx, rec.RequestID)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		res.Error = fmt.Sprintf("invalid JSON: %s", err)
		return res
	}
	if opts.Select != "" {
		value, err = jq.Select(value, opts.Select)
		if err != nil {
			res.Error = fmt.Sprintf("select %q: %s", opts.Select, err)
			return res
		}
	}

	obj, isObj := value.(map[string]any)
	if !isObj {
		res.Error = fmt.Sprintf("expected a JSON object, got %T", value)
		return res
	}

	res.Missing, res.Extra = diffKeys(expected, obj)

	if opts.CheckTypes {
		typeErrors, err := checkTypes(expected, obj)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.TypeErrors = typeErrors
	}

	res.Valid = len(res.Missing) == 0 && len(res.TypeErrors) == 0
	return res
}

// diffKeys returns the expected keys absent from actual and the actual keys
// not expected, both sorted.
func diffKeys(expected map[string]string, actual map[string]any) (missing, extra []string) {
	for k := range expected {
		if _, ok := actual[k]; !ok {
			missing = append(missing, k)
		}
	}
	for k := range actual {
		if _, ok := expected[k]; !ok {
			extra = append(extra, k)
		}
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return missing, extra
}

// checkTypes validates the keys present in actual against their descriptors.
// Absent keys are already reported as missing.
func checkTypes(expected map[string]string, actual map[string]any) ([]string, error) {
	present := make(map[string]string, len(expected))
	for k, t := range expected {
		if _, ok := actual[k]; ok {
			present[k] = t
		}
	}

	v, err := schema.FromTypeDescriptors(present)
	if err != nil {
		return nil, fmt.Errorf("building type schema: %w", err)
	}
	return v.ValidateValue(actual).Errors, nil
}
