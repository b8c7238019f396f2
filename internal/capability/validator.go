package capability

import (
	"fmt"
	"reflect"
)

// Validator checks raw parameters against a declared schema. It is an
// interface so a full JSON Schema implementation can be swapped in
// without touching the registry.
type Validator interface {
	Validate(schema Schema, params map[string]any) error
}

// SchemaValidator is the default validator: required keys, declared
// types, and enum membership. Unknown parameters are allowed; models
// frequently over-supply and the executor is free to ignore extras.
type SchemaValidator struct{}

// Validate implements Validator.
func (SchemaValidator) Validate(schema Schema, params map[string]any) error {
	for _, required := range schema.Required {
		if _, ok := params[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredParam, required)
		}
	}

	for name, value := range params {
		prop, ok := schema.Properties[name]
		if !ok {
			continue
		}
		if value == nil {
			continue
		}
		if err := checkType(name, prop.Type, value); err != nil {
			return err
		}
		if len(prop.Enum) > 0 && !enumContains(prop.Enum, value) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidEnumValue, name, value)
		}
	}
	return nil
}

func checkType(name, declared string, value any) error {
	switch declared {
	case "", "any":
		return nil
	case "string":
		if _, ok := value.(string); !ok {
			return typeErr(name, declared, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return typeErr(name, declared, value)
		}
	case "number", "integer":
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return typeErr(name, declared, value)
		}
	case "array":
		if reflect.ValueOf(value).Kind() != reflect.Slice {
			return typeErr(name, declared, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return typeErr(name, declared, value)
		}
	}
	return nil
}

func typeErr(name, declared string, value any) error {
	return fmt.Errorf("%w: %s expected %s, got %T", ErrInvalidParamType, name, declared, value)
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if reflect.DeepEqual(e, value) {
			return true
		}
	}
	return false
}

var _ Validator = SchemaValidator{}
