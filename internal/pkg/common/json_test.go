package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	err := ParseJSON(`{"a": 1} trailing`, &v)
	require.Error(t, err)
}

func TestParseJSONStrictRejectsUnknownFields(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	require.NoError(t, ParseJSON(`{"title": "x", "extra": true}`, &v))
	require.Error(t, ParseJSONStrict(`{"title": "x", "extra": true}`, &v))
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"lead-in prose", `Here is the recipe: {"a": 1}`, `{"a": 1}`},
		{"trailing prose", `{"a": 1} Hope that helps!`, `{"a": 1}`},
		{"no object", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSONObject(tc.in))
		})
	}
}

func TestToJSONRoundTrip(t *testing.T) {
	out, err := ToJSON(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k": "v"}`, out)
}
