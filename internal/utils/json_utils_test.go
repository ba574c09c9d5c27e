package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose", `Sure! Here it is: {"a":{"b":2}} Hope that helps.`, `{"a":{"b":2}}`, false},
		{"none", "no json here", "", true},
		{"reversed", "} {", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSONObject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalLenient(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}

	require.NoError(t, UnmarshalLenient("Result:\n{\"a\": 7}", &v))
	assert.Equal(t, 7, v.A)

	assert.Error(t, UnmarshalLenient("nothing", &v))
}

func TestRawString(t *testing.T) {
	assert.Equal(t, "", RawString(nil))
	assert.Equal(t, "", RawString(json.RawMessage("null")))
	assert.Equal(t, "ACME", RawString(json.RawMessage(`"ACME"`)))
	assert.Equal(t, "1250.5", RawString(json.RawMessage("1250.5")))
}
