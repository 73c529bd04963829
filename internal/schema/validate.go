// Package schema checks decoded JSON values against field type descriptors.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	invschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Type names accepted in field descriptors. TypeAny only requires presence.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
	TypeAny     = "any"
)

var knownTypes = []string{TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray, TypeNull, TypeAny}

// Result is the outcome of validating one value.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator validates JSON values against a compiled object schema.
type Validator struct {
	source *invschema.Schema
	schema *jsonschema.Schema
}

// FromTypeDescriptors builds a validator for an object whose keys must all be
// present with the given types. A type may end in "?" to also allow null.
func FromTypeDescriptors(fields map[string]string) (*Validator, error) {
	s, err := BuildObjectSchema(fields)
	if err != nil {
		return nil, err
	}
	return compileSchema(s)
}

// BuildObjectSchema converts field type descriptors to a JSON Schema object.
func BuildObjectSchema(fields map[string]string) (*invschema.Schema, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	props := invschema.NewProperties()
	for _, k := range keys {
		prop, err := propertySchema(fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		props.Set(k, prop)
	}

	return &invschema.Schema{
		Type:       TypeObject,
		Properties: props,
		Required:   keys,
	}, nil
}

func propertySchema(desc string) (*invschema.Schema, error) {
	desc = strings.ToLower(strings.TrimSpace(desc))
	nullable := strings.HasSuffix(desc, "?")
	desc = strings.TrimSuffix(desc, "?")

	if !slices.Contains(knownTypes, desc) {
		return nil, fmt.Errorf("unknown type %q", desc)
	}
	if desc == TypeAny {
		return &invschema.Schema{}, nil
	}
	if nullable && desc != TypeNull {
		return &invschema.Schema{AnyOf: []*invschema.Schema{{Type: desc}, {Type: TypeNull}}}, nil
	}
	return &invschema.Schema{Type: desc}, nil
}

func compileSchema(s *invschema.Schema) (*Validator, error) {
	// Round-trip through JSON to get the map[string]any the compiler expects.
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}

	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	return &Validator{source: s, schema: compiled}, nil
}

// ValidateValue validates an already-decoded value.
func (v *Validator) ValidateValue(value any) Result {
	err := v.schema.Validate(value)
	if err == nil {
		return Result{Valid: true}
	}
	return Result{Valid: false, Errors: extractValidationErrors(err)}
}

// Schema returns the JSON Schema the validator was built from.
func (v *Validator) Schema() *invschema.Schema {
	return v.source
}

func extractValidationErrors(err error) []string {
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return extractDetailedErrors(validationErr)
	}
	return []string{err.Error()}
}

// printer is a default English printer for localized error messages.
var printer = message.NewPrinter(language.English)

func extractDetailedErrors(err *jsonschema.ValidationError) []string {
	errorsByPath := make(map[string][]string)
	collectErrors(err, errorsByPath)

	seen := make(map[string]bool)
	var result []string
	for path, msgs := range errorsByPath {
		for _, msg := range msgs {
			line := msg
			if path != "" {
				line = path + ": " + msg
			}
			if !seen[line] {
				seen[line] = true
				result = append(result, line)
			}
		}
	}
	slices.Sort(result)
	return result
}

// collectErrors gathers leaf errors, those with a kind and no causes.
func collectErrors(err *jsonschema.ValidationError, errorsByPath map[string][]string) {
	instancePath := ""
	if len(err.InstanceLocation) > 0 {
		instancePath = "/" + strings.Join(err.InstanceLocation, "/")
	}

	if err.ErrorKind != nil && len(err.Causes) == 0 {
		errMsg := err.ErrorKind.LocalizedString(printer)
		if !strings.HasPrefix(errMsg, "$ref ") && !strings.HasPrefix(errMsg, "doesn't validate with") {
			errorsByPath[instancePath] = append(errorsByPath[instancePath], errMsg)
		}
	}

	for _, cause := range err.Causes {
		collectErrors(cause, errorsByPath)
	}
}
