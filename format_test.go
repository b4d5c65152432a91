package chatsy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_MarshalJSONMode(t *testing.T) {
	data, err := json.Marshal(JSONFormat())
	require.NoError(t, err)
	assert.Equal(t, `"json"`, string(data))
}

func TestFormat_MarshalSchema(t *testing.T) {
	f := SchemaFormat(map[string]any{
		"type":       "object",
		"properties": map[string]any{"answer": map[string]any{"type": "string"}},
	})
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"answer":{"type":"string"}}}`, string(data))
}

func TestFormat_MarshalEmptyFails(t *testing.T) {
	_, err := json.Marshal(Format{})
	require.Error(t, err)
}

func TestFormat_Unmarshal(t *testing.T) {
	var f Format
	require.NoError(t, json.Unmarshal([]byte(`"json"`), &f))
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `"json"`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`{"type":"object"}`), &f))
	assert.Equal(t, "object", f.Schema()["type"])

	require.Error(t, json.Unmarshal([]byte(`"yaml"`), &f))
}

func TestStructuredFormat(t *testing.T) {
	type Answer struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	f, err := StructuredFormat[Answer]()
	require.NoError(t, err)

	schema := f.Schema()
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")
	assert.Contains(t, props, "confidence")
}

func TestFormat_OmittedFromRequestWhenNil(t *testing.T) {
	data, err := json.Marshal(ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"format"`)
}
