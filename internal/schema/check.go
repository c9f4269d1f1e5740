package schema

import (
	"reflect"
	"strings"
)

// checkRepresentable rejects parameter types that have no JSON form. The
// top-level type must be a struct (or pointer to one) since the payload is
// always a JSON object.
func checkRepresentable(t reflect.Type) error {
	if t == nil {
		return &SchemaError{Type: "<nil>", Reason: "parameter type is nil"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return &SchemaError{Type: t.String(), Reason: "parameters must be a struct, got " + t.Kind().String()}
	}
	return walk(t, t.String(), "", map[reflect.Type]bool{})
}

func walk(t reflect.Type, root, path string, seen map[reflect.Type]bool) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if implementsCustomSchema(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return &SchemaError{Type: root, Field: fieldPath(path), Reason: "unsupported kind " + t.Kind().String()}
	case reflect.Slice, reflect.Array:
		return walk(t.Elem(), root, path+"[]", seen)
	case reflect.Map:
		if t.Key().Kind() != reflect.String && !t.Key().Implements(textMarshalerType) {
			return &SchemaError{Type: root, Field: fieldPath(path), Reason: "map keys must be strings"}
		}
		return walk(t.Elem(), root, path+"{}", seen)
	case reflect.Struct:
		if seen[t] {
			return nil
		}
		seen[t] = true
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := jsonName(f)
			if skip {
				continue
			}
			next := path
			if !f.Anonymous || name != f.Name {
				next = joinPath(path, name)
			}
			if err := walk(f.Type, root, next, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

var (
	textMarshalerType = reflect.TypeFor[interface{ MarshalText() ([]byte, error) }]()
	customSchemaType  = reflect.TypeFor[interface{ JSONSchema() *JSONSchema }]()
)

func implementsCustomSchema(t reflect.Type) bool {
	return t.Implements(customSchemaType) || reflect.PointerTo(t).Implements(customSchemaType)
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func fieldPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
