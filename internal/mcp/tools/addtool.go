package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after checking that its output type serializes
// the way the SDK's inferred schema expects.
//
// Panics if the output type cannot pass its own schema.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema panics when the output type T would fail the schema the
// SDK infers from it. Two mistakes are caught:
//
//   - fields whose JSON encoding is custom (json.RawMessage, time.Time or any
//     other json.Marshaler): the schema follows the Go shape, not the encoding
//   - nil slices and maps without omitempty or omitzero: they encode as null
//     where the schema wants an array or object
//
// The untyped "any" output is not checked.
func CheckOutputSchema[T any](toolName string) {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := findMarshalerFields(rt, nil, make(map[reflect.Type]bool)); len(paths) > 0 {
		panic(fmt.Sprintf(
			"AddTool %q: output type %s has custom-encoded fields at %s\n"+
				"  the inferred schema describes the Go type, not its JSON encoding\n"+
				"  Fix: use a plain type (string for timestamps, any for raw JSON)",
			toolName, rt, strings.Join(paths, ", "),
		))
	}

	if err := validateZero(rt); err != nil {
		panic(fmt.Sprintf(
			"AddTool %q: zero value of output type %s fails its schema: %v\n"+
				"  Fix: add omitempty or omitzero to slice and map fields",
			toolName, rt, err,
		))
	}
}

// validateZero validates the JSON encoding of rt's zero value against the
// schema inferred for rt. Inference failures are left for the SDK to report.
func validateZero(rt reflect.Type) error {
	s, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil
	}
	resolved, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if err := resolved.Validate(&v); err != nil {
		return fmt.Errorf("%w (json: %s)", err, data)
	}
	return nil
}

var marshalerType = reflect.TypeFor[json.Marshaler]()

func isCustomEncoded(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// findMarshalerFields walks t and returns the paths of exported fields,
// elements or map values whose type implements json.Marshaler.
func findMarshalerFields(t reflect.Type, path []string, visited map[reflect.Type]bool) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if isCustomEncoded(t) {
		return []string{strings.Join(path, ".")}
	}
	if visited[t] {
		return nil
	}
	visited[t] = true
	defer delete(visited, t)

	var found []string
	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get("json") == "-" {
				continue
			}
			found = append(found, findMarshalerFields(f.Type, append(path, f.Name), visited)...)
		}
	case reflect.Slice, reflect.Array:
		found = append(found, findMarshalerFields(t.Elem(), append(path, "[]"), visited)...)
	case reflect.Map:
		found = append(found, findMarshalerFields(t.Elem(), append(path, "[value]"), visited)...)
	}
	return found
}
