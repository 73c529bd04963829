package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestFromTypeDescriptors_Valid(t *testing.T) {
	v, err := FromTypeDescriptors(map[string]string{
		"token":   "string",
		"expires": "integer",
		"user":    "object",
		"roles":   "array",
	})
	require.NoError(t, err)

	res := v.ValidateValue(decode(t, `{"token":"abc","expires":3600,"user":{},"roles":[],"extra":true}`))
	assert.True(t, res.Valid, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestFromTypeDescriptors_WrongType(t *testing.T) {
	v, err := FromTypeDescriptors(map[string]string{"token": "string", "expires": "integer"})
	require.NoError(t, err)

	res := v.ValidateValue(decode(t, `{"token":42,"expires":1.5}`))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "/expires")
	assert.Contains(t, res.Errors[1], "/token")
}

func TestFromTypeDescriptors_MissingField(t *testing.T) {
	v, err := FromTypeDescriptors(map[string]string{"token": "any"})
	require.NoError(t, err)

	res := v.ValidateValue(decode(t, `{}`))
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[0], "token")
}

func TestFromTypeDescriptors_Nullable(t *testing.T) {
	v, err := FromTypeDescriptors(map[string]string{"refresh": "string?"})
	require.NoError(t, err)

	assert.True(t, v.ValidateValue(decode(t, `{"refresh":null}`)).Valid)
	assert.True(t, v.ValidateValue(decode(t, `{"refresh":"r"}`)).Valid)
	assert.False(t, v.ValidateValue(decode(t, `{"refresh":1}`)).Valid)
}

func TestFromTypeDescriptors_UnknownType(t *testing.T) {
	_, err := FromTypeDescriptors(map[string]string{"a": "uuid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "a"`)
}

func TestBuildObjectSchema_RequiredSorted(t *testing.T) {
	s, err := BuildObjectSchema(map[string]string{"b": "string", "a": "number"})
	require.NoError(t, err)

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"a", "b"}, s.Required)
	assert.Equal(t, 2, s.Properties.Len())
}
