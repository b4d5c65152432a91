package chatsy

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Format is a structured-output constraint attached to a chat request: either
// the bare "json" mode or a full JSON Schema the response must match. It is a
// request-scoped hint, not persisted state; see Coordinator for when it is
// actually attached to a request.
type Format struct {
	kind   string
	schema map[string]any
}

const formatKindJSON = "json"

// JSONFormat returns the bare JSON output mode ("respond with valid JSON").
func JSONFormat() Format {
	return Format{kind: formatKindJSON}
}

// SchemaFormat returns a format constraining the response to the given JSON
// Schema map. The map is used as-is; callers must not mutate it afterwards.
func SchemaFormat(schema map[string]any) Format {
	return Format{schema: schema}
}

// StructuredFormat builds a schema format from a Go struct type using the
// same reflection pipeline as tool parameter schemas, so response shapes and
// tool shapes come from one source of truth.
func StructuredFormat[T any]() (Format, error) {
	schemaMap, err := reflectSchema[T](false)
	if err != nil {
		return Format{}, err
	}
	return SchemaFormat(schemaMap), nil
}

// Schema returns the schema map, or nil for the bare JSON mode.
func (f Format) Schema() map[string]any { return f.schema }

// MarshalJSON encodes the format the way chat services expect it: the string
// "json" for the bare mode, or the schema object itself.
func (f Format) MarshalJSON() ([]byte, error) {
	if f.kind == formatKindJSON {
		return json.Marshal(formatKindJSON)
	}
	if f.schema == nil {
		return nil, fmt.Errorf("format has neither kind nor schema")
	}
	return json.Marshal(f.schema)
}

// UnmarshalJSON accepts either the string "json" or a schema object.
func (f *Format) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != formatKindJSON {
			return fmt.Errorf("unknown format %q", s)
		}
		*f = JSONFormat()
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return err
	}
	*f = SchemaFormat(schema)
	return nil
}
