package observer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shapeObserver(t *testing.T, body string) *Observer {
	t.Helper()
	s := newFakeSession()
	s.bodies["1"] = []byte(body)
	o := attach(t, s)
	s.emit(response("1", "https://a/api/profile", 200))
	return o
}

func TestValidateJSONShape_KeyDiff(t *testing.T) {
	o := shapeObserver(t, `{"a":1,"b":2}`)

	res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"),
		map[string]string{"a": "number", "c": "string"}, ShapeOptions{})

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"c"}, res.Missing)
	assert.Equal(t, []string{"b"}, res.Extra)
	assert.Empty(t, res.TypeErrors)
	assert.Empty(t, res.Error)
}

func TestValidateJSONShape_TypesIgnoredByDefault(t *testing.T) {
	o := shapeObserver(t, `{"a":"x"}`)

	res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"),
		map[string]string{"a": "number"}, ShapeOptions{})

	assert.True(t, res.Valid)
}

func TestValidateJSONShape_CheckTypes(t *testing.T) {
	o := shapeObserver(t, `{"a":"x"}`)

	res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"),
		map[string]string{"a": "number"}, ShapeOptions{CheckTypes: true})

	assert.False(t, res.Valid)
	assert.Empty(t, res.Missing)
	require.Len(t, res.TypeErrors, 1)
	assert.Contains(t, res.TypeErrors[0], "/a")
}

func TestValidateJSONShape_CheckTypesUnknownDescriptor(t *testing.T) {
	o := shapeObserver(t, `{"a":"x"}`)

	res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"),
		map[string]string{"a": "date"}, ShapeOptions{CheckTypes: true})

	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "unknown type")
}

func TestValidateJSONShape_Select(t *testing.T) {
	o := shapeObserver(t, `{"data":{"user":{"id":7,"email":"a@b"}}}`)

	res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"),
		map[string]string{"id": "integer", "email": "string"}, ShapeOptions{Select: ".data.user", CheckTypes: true})

	assert.True(t, res.Valid, res)
	assert.Equal(t, "https://a/api/profile", res.URL)
}

func TestValidateJSONShape_Errors(t *testing.T) {
	t.Run("no matching response", func(t *testing.T) {
		o := shapeObserver(t, `{}`)
		res := o.ValidateJSONShape(context.Background(), URLContains("/nope"), map[string]string{"a": "number"}, ShapeOptions{})
		assert.False(t, res.Valid)
		assert.Equal(t, "no matching response", res.Error)
	})

	t.Run("invalid json", func(t *testing.T) {
		o := shapeObserver(t, `<html>`)
		res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"), map[string]string{"a": "number"}, ShapeOptions{})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Error, "invalid JSON")
	})

	t.Run("not an object", func(t *testing.T) {
		o := shapeObserver(t, `[1,2]`)
		res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"), map[string]string{"a": "number"}, ShapeOptions{})
		assert.False(t, res.Valid)
		assert.Contains(t, res.Error, "JSON object")
	})

	t.Run("body unavailable", func(t *testing.T) {
		s := newFakeSession()
		o := attach(t, s)
		s.emit(response("9", "https://a/api/profile", 200))
		res := o.ValidateJSONShape(context.Background(), URLContains("/api/profile"), map[string]string{"a": "number"}, ShapeOptions{})
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Error)
	})
}
