package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	h := Headers{
		{"Content-Type", "application/json"},
		{"Set-Cookie", "a=1"},
		{"set-cookie", "b=2"},
		{"Vary", "Accept"},
		{"Vary", "Origin"},
		{"broken"},
	}

	assert.Equal(t, "application/json", h.Get("content-type"))
	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Set-Cookie"))
	assert.Empty(t, h.Get("missing"))

	m := h.Map()
	assert.Equal(t, "Accept, Origin", m["Vary"])
	assert.Equal(t, "a=1", m["Set-Cookie"])
	assert.Equal(t, "b=2", m["set-cookie"])
	assert.Nil(t, Headers(nil).Map())
}

func TestResourceType(t *testing.T) {
	entry := func(ct string) *Entry {
		return &Entry{Response: &EntryResponse{Headers: Headers{{"Content-Type", ct}}}}
	}

	assert.Equal(t, "Document", resourceType(entry("text/html; charset=utf-8")))
	assert.Equal(t, "Fetch", resourceType(entry("application/problem+json")))
	assert.Equal(t, "Script", resourceType(entry("application/javascript")))
	assert.Equal(t, "Other", resourceType(&Entry{}))
}
