package chatsy

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (as produced by UnmarshalJSON).
// *jsonschema.Schema from santhosh-tekuri/jsonschema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs schema validation on an already-parsed value v.
// Callers unmarshal the JSON and report parse errors themselves (e.g.
// Extractor.ParseAndValidate or the dynamic tool execute path).
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs Validatable.Validate if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
