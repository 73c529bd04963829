// Package query selects values from decoded JSON bodies with jq expressions.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// ErrNoResult is returned when an expression produces no non-null value.
var ErrNoResult = errors.New("jq expression produced no value")

// Engine executes jq expressions against decoded JSON values.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Select runs expression against input and returns the first non-null result.
// input must be a value produced by encoding/json (map[string]any, []any, ...).
func (e *Engine) Select(input any, expression string) (any, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil, ErrNoResult
		}
		if err, isErr := v.(error); isErr {
			return nil, errors.New(formatJQError(err))
		}
		if v != nil {
			return v, nil
		}
	}
}

// ValidateExpression checks if a jq expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	q, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// formatJQError decorates common runtime errors with a hint. gojq runtime
// errors are untyped, so the hints are picked by message content.
func formatJQError(err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return "query halted"
		}
		return fmt.Sprintf("query halted with: %v", haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	}

	return errStr + hint
}
