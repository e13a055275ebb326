package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the JSON Schema fragment advertised for a tool's arguments.
// Only the subset of the vocabulary needed to describe flat argument
// objects is supported: primitive types, nested objects, arrays, enums,
// numeric bounds, and defaults.
type Schema struct {
	Type        string             `json:"type"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Generate derives the argument schema for a tool from the struct type
// of v. Field names follow the json tag, constraints come from the
// jsonschema tag:
//
//	type GetSecretArgs struct {
//		Project string `json:"project" jsonschema:"required,description=Project slug"`
//		Name    string `json:"name" jsonschema:"required"`
//	}
//
// Tool arguments are always a JSON object, so v must be a struct or a
// pointer to one.
func Generate(v any) (*Schema, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot derive a schema from an untyped nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool arguments must be a struct, got %s", t.Kind())
	}
	return structSchema(t)
}

func structSchema(t reflect.Type) (*Schema, error) {
	s := &Schema{
		Type:       typeObject,
		Properties: map[string]*Schema{},
	}
	for _, field := range reflect.VisibleFields(t) {
		if !field.IsExported() || field.Anonymous {
			continue
		}
		name, ok := propertyName(field)
		if !ok {
			continue
		}
		prop, err := typeSchema(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if applyTag(prop, field.Tag.Get("jsonschema")) {
			s.Required = append(s.Required, name)
		}
		s.Properties[name] = prop
	}
	return s, nil
}

// propertyName resolves the JSON key for a struct field. A json:"-"
// tag excludes the field from the schema.
func propertyName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, true
	}
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return "", false
	case "":
		return field.Name, true
	}
	return name, true
}

func typeSchema(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: typeString}, nil
	case reflect.Bool:
		return &Schema{Type: typeBoolean}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: typeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: typeNumber}, nil
	case reflect.Slice, reflect.Array:
		items, err := typeSchema(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: typeArray, Items: items}, nil
	case reflect.Map:
		return &Schema{Type: typeObject}, nil
	case reflect.Struct:
		return structSchema(t)
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.Kind())
	}
}

// applyTag folds the jsonschema tag options into the property schema
// and reports whether the field is required.
func applyTag(s *Schema, tag string) (required bool) {
	if tag == "" {
		return false
	}
	for _, opt := range strings.Split(tag, ",") {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "required":
			required = true
		case "description":
			s.Description = val
		case "enum":
			// Pipe-separated so values may contain commas.
			for _, e := range strings.Split(val, "|") {
				s.Enum = append(s.Enum, e)
			}
		case "minimum":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				s.Minimum = &f
			}
		case "maximum":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				s.Maximum = &f
			}
		case "default":
			s.Default = defaultValue(val, s.Type)
		}
	}
	return required
}

// defaultValue coerces the tag text to the property's JSON type so the
// advertised default round-trips as the right kind.
func defaultValue(raw, typ string) any {
	switch typ {
	case typeInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case typeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case typeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}
