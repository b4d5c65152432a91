package chatsy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	City string `json:"city" description:"City name"`
	Unit string `json:"unit,omitempty" enum:"celsius, fahrenheit"`
}

func TestReflectSchema_Basic(t *testing.T) {
	schemaMap, err := reflectSchema[weatherArgs](false)
	require.NoError(t, err)

	assert.Equal(t, "object", schemaMap["type"])
	props, ok := schemaMap["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "city")
	require.Contains(t, props, "unit")

	city, ok := props["city"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	unit, ok := props["unit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, unit["enum"])

	_, hasID := schemaMap["$id"]
	assert.False(t, hasID)
}

func TestReflectSchema_Strict(t *testing.T) {
	schemaMap, err := reflectSchema[weatherArgs](true)
	require.NoError(t, err)

	assert.Equal(t, false, schemaMap["additionalProperties"])
	assert.Equal(t, []any{"city", "unit"}, schemaMap["required"])
}

func TestGenerateSchema_CompilesValidator(t *testing.T) {
	_, compiled, err := generateSchema[weatherArgs](false)
	require.NoError(t, err)
	require.NotNil(t, compiled)

	err = validateAgainstSchema(compiled, map[string]any{"city": "Oslo"})
	assert.NoError(t, err)

	err = validateAgainstSchema(compiled, map[string]any{"city": 42})
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompileRawSchema_RejectsInvalid(t *testing.T) {
	_, err := compileRawSchema(map[string]any{"type": 12345})
	require.Error(t, err)
}

func TestApplyStrictMode_NestedObjects(t *testing.T) {
	schemaMap := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inner": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"b": map[string]any{"type": "string"},
					"a": map[string]any{"type": "string"},
				},
			},
		},
	}
	applyStrictMode(schemaMap)

	inner := schemaMap["properties"].(map[string]any)["inner"].(map[string]any)
	assert.Equal(t, false, inner["additionalProperties"])
	assert.Equal(t, []any{"a", "b"}, inner["required"])
}
