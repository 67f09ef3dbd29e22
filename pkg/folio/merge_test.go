package folio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShallowMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		fields   map[string]any
		want     string
		wantErr  error
	}{
		{"absent document", "", map[string]any{"resumeUrl": "X"}, `{"resumeUrl":"X"}`, nil},
		{"null document", "null", map[string]any{"a": 1}, `{"a":1}`, nil},
		{"adds field", `{"a":1}`, map[string]any{"resumeUrl": "X"}, `{"a":1,"resumeUrl":"X"}`, nil},
		{"overwrites top level", `{"a":1,"b":{"c":2}}`, map[string]any{"b": "flat"}, `{"a":1,"b":"flat"}`, nil},
		{"raw json field", `{}`, map[string]any{"list": json.RawMessage(`[1,2]`)}, `{"list":[1,2]}`, nil},
		{"array target", `[1,2]`, map[string]any{"a": 1}, "", ErrNotObject},
		{"string target", `"text"`, map[string]any{"a": 1}, "", ErrNotObject},
		{"corrupt target", `{"a":`, map[string]any{"a": 1}, "", ErrSerialization},
		{"unencodable field", `{}`, map[string]any{"fn": func() {}}, "", ErrSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShallowMerge(json.RawMessage(tt.existing), tt.fields)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestUpsertErrorMessage(t *testing.T) {
	err := &UpsertError{Key: "hero", Op: "upsert", Applied: []string{"about"}, Err: ErrStorageUnavailable}
	assert.Contains(t, err.Error(), `"hero"`)
	assert.Contains(t, err.Error(), "[about]")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
