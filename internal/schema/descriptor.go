// Package schema derives capability descriptors (name, description and a JSON
// Schema for the parameters) from Go parameter types.
//
// Field names follow the `json` tag. A field is required unless its json tag
// carries `omitempty`. Field documentation is read from the
// `jsonschema_description` tag and further keywords from the `jsonschema` tag.
// Types that need a hand-written schema, typically string enumerations,
// implement
//
//	JSONSchema() *schema.JSONSchema
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// JSONSchema is the schema node type produced by the reflector. Parameter types
// that describe their own schema return one of these.
type JSONSchema = jsonschema.Schema

// Descriptor is the capability descriptor sent to the model. Parameters is the
// JSON Schema object for the argument payload.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Documented lets a parameter type carry its own capability name and
// description, so DescribeType needs no extra arguments.
type Documented interface {
	ToolName() string
	ToolDescription() string
}

// SchemaError reports a parameter type that cannot be expressed as a schema.
type SchemaError struct {
	Type   string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("schema: type %s: field %s: %s", e.Type, e.Field, e.Reason)
}

// ErrMissingName is returned when a descriptor would have an empty name.
var ErrMissingName = errors.New("schema: capability name is empty")

// Describe builds a descriptor for the type of params. params may be a struct
// value or a pointer to one; only its type is inspected.
func Describe(name, description string, params any) (Descriptor, error) {
	if params == nil {
		return Descriptor{}, &SchemaError{Type: "<nil>", Reason: "parameter type is nil"}
	}
	return DescribeReflectType(name, description, reflect.TypeOf(params))
}

// DescribeType builds a descriptor for P. When name or description are empty
// and P implements Documented, the type supplies them.
func DescribeType[P any](name, description string) (Descriptor, error) {
	t := reflect.TypeFor[P]()
	if name == "" || description == "" {
		if doc, ok := documented(t); ok {
			if name == "" {
				name = doc.ToolName()
			}
			if description == "" {
				description = doc.ToolDescription()
			}
		}
	}
	return DescribeReflectType(name, description, t)
}

// DescribeReflectType is the reflect.Type form of Describe.
func DescribeReflectType(name, description string, t reflect.Type) (Descriptor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Descriptor{}, ErrMissingName
	}
	params, err := Parameters(t)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name:        name,
		Description: strings.TrimSpace(description),
		Parameters:  params,
	}, nil
}

// Parameters returns the JSON Schema object describing t as a generic map,
// ready to be attached to a model request.
func Parameters(t reflect.Type) (map[string]any, error) {
	raw, err := Marshal(t)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &SchemaError{Type: t.String(), Reason: err.Error()}
	}
	return out, nil
}

// Marshal returns the JSON encoding of the schema for t.
func Marshal(t reflect.Type) ([]byte, error) {
	if err := checkRepresentable(t); err != nil {
		return nil, err
	}
	s := newReflector().ReflectFromType(t)
	s.Version = ""
	s.ID = ""
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, &SchemaError{Type: t.String(), Reason: err.Error()}
	}
	return raw, nil
}

// StringEnum is a helper for types implementing JSONSchema().
func StringEnum(values ...string) *JSONSchema {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}
	return &JSONSchema{Type: "string", Enum: enum}
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
		DoNotReference: true,
		// Extra fields sent by the model are tolerated on the way in; the
		// schema therefore does not forbid them.
		AllowAdditionalProperties: true,
	}
}

func documented(t reflect.Type) (Documented, bool) {
	if t == nil {
		return nil, false
	}
	v := reflect.New(t).Elem().Interface()
	if doc, ok := v.(Documented); ok {
		return doc, true
	}
	if t.Kind() != reflect.Pointer {
		if doc, ok := reflect.New(t).Interface().(Documented); ok {
			return doc, true
		}
	}
	return nil, false
}
