package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// ValidationError describes a single violation, located by a dotted
// path into the argument object (for example "names[2]").
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors collects every violation found in one pass so a
// caller can report them all at once.
type ValidationErrors []*ValidationError

// Error renders the collection on a single line; validation failures
// travel inside JSON-RPC error messages.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// Validate checks raw JSON arguments against the schema. It returns
// ValidationErrors listing every violation, or a single
// ValidationError when the payload is not JSON at all.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationError{Message: "arguments are not valid JSON: " + err.Error()}
	}
	w := &walker{}
	w.walk(s, "", value)
	if len(w.errs) > 0 {
		return w.errs
	}
	return nil
}

// walker accumulates violations while descending the schema alongside
// the decoded value.
type walker struct {
	errs ValidationErrors
}

func (w *walker) failf(path, format string, args ...any) {
	w.errs = append(w.errs, &ValidationError{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *walker) walk(s *Schema, path string, value any) {
	if value == nil {
		// null satisfies any type; required-ness is about key presence.
		return
	}
	switch s.Type {
	case typeObject:
		w.object(s, path, value)
	case typeArray:
		w.array(s, path, value)
	case typeString:
		w.str(s, path, value)
	case typeInteger:
		w.integer(s, path, value)
	case typeNumber:
		w.number(s, path, value)
	case typeBoolean:
		if _, ok := value.(bool); !ok {
			w.failf(path, "want boolean, got %s", kindOf(value))
		}
	}
}

func (w *walker) object(s *Schema, path string, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		w.failf(path, "want object, got %s", kindOf(value))
		return
	}
	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			w.failf(childPath(path, name), "missing required argument")
		}
	}
	for name, prop := range s.Properties {
		if v, present := obj[name]; present {
			w.walk(prop, childPath(path, name), v)
		}
	}
}

func (w *walker) array(s *Schema, path string, value any) {
	items, ok := value.([]any)
	if !ok {
		w.failf(path, "want array, got %s", kindOf(value))
		return
	}
	if s.Items == nil {
		return
	}
	for i, item := range items {
		w.walk(s.Items, fmt.Sprintf("%s[%d]", path, i), item)
	}
}

func (w *walker) str(s *Schema, path string, value any) {
	str, ok := value.(string)
	if !ok {
		w.failf(path, "want string, got %s", kindOf(value))
		return
	}
	if len(s.Enum) == 0 {
		return
	}
	for _, allowed := range s.Enum {
		if str == allowed {
			return
		}
	}
	w.failf(path, "%q is not one of %s", str, enumList(s.Enum))
}

func (w *walker) integer(s *Schema, path string, value any) {
	num, ok := value.(float64)
	if !ok {
		w.failf(path, "want integer, got %s", kindOf(value))
		return
	}
	if num != math.Trunc(num) {
		w.failf(path, "want integer, got %v", num)
		return
	}
	w.bounds(s, path, num)
}

func (w *walker) number(s *Schema, path string, value any) {
	num, ok := value.(float64)
	if !ok {
		w.failf(path, "want number, got %s", kindOf(value))
		return
	}
	w.bounds(s, path, num)
}

func (w *walker) bounds(s *Schema, path string, num float64) {
	if s.Minimum != nil && num < *s.Minimum {
		w.failf(path, "%v is below the minimum %v", num, *s.Minimum)
	}
	if s.Maximum != nil && num > *s.Maximum {
		w.failf(path, "%v is above the maximum %v", num, *s.Maximum)
	}
}

// kindOf names the JSON kind of a decoded value for error messages.
func kindOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func enumList(enum []any) string {
	parts := make([]string, len(enum))
	for i, e := range enum {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ", ")
}

func childPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
