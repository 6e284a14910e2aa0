package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"
)

// FieldType is the JSON type a schema field must decode to.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// Field is one named, typed member of a schema.
type Field struct {
	Name string
	Type FieldType
}

// String declares a string field.
func String(name string) Field { return Field{Name: name, Type: TypeString} }

// Integer declares an integer field.
func Integer(name string) Field { return Field{Name: name, Type: TypeInteger} }

// Boolean declares a boolean field.
func Boolean(name string) Field { return Field{Name: name, Type: TypeBoolean} }

// Schema is the ordered field list a stage produces.
type Schema []Field

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func (s Schema) validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s))
	for i, f := range s {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
		if name != f.Name {
			return fmt.Errorf("field %q has surrounding whitespace", f.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("field %q declared twice", name)
		}
		seen[name] = struct{}{}
		switch f.Type {
		case TypeString, TypeInteger, TypeBoolean:
		default:
			return fmt.Errorf("field %q has unsupported type %q", name, f.Type)
		}
	}
	return nil
}

// Object is a generated record. Values are string, int64 or bool.
type Object map[string]any

// String returns the named value when it is a string.
func (o Object) String(name string) string {
	v, _ := o[name].(string)
	return v
}

// Int returns the named value when it is an integer.
func (o Object) Int(name string) int64 {
	v, _ := o[name].(int64)
	return v
}

// Bool returns the named value when it is a boolean.
func (o Object) Bool(name string) bool {
	v, _ := o[name].(bool)
	return v
}

// Clone returns a shallow copy.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// Decode unmarshals the object into v through JSON.
func (o Object) Decode(v any) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// coerce checks value against the field type. Integers arrive as json.Number.
func (f Field) coerce(value any) (any, error) {
	switch f.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: want string, got %T", f.Name, value)
		}
		return s, nil
	case TypeInteger:
		switch v := value.(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not an integer", f.Name, v.String())
			}
			return n, nil
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not an integer", f.Name, v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("field %q: want integer, got %T", f.Name, value)
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("field %q: %q is not a boolean", f.Name, v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("field %q: want boolean, got %T", f.Name, value)
	}
	return nil, fmt.Errorf("field %q: unsupported type %q", f.Name, f.Type)
}

// encodeClause renders `"name": value` for the prompt.
func encodeClause(name string, value any) (string, error) {
	key, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(key) + ": " + string(val), nil
}

// encodeOrdered renders values as a JSON object in schema order.
func (s Schema) encodeOrdered(values []any) (string, error) {
	clauses := make([]string, 0, len(values))
	for i, v := range values {
		clause, err := encodeClause(s[i].Name, v)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	return "{" + strings.Join(clauses, ", ") + "}", nil
}

// decodeObject parses text as one JSON object and checks every schema field.
// Keys outside the schema are dropped.
func (s Schema) decodeObject(text []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after object")
	}
	obj := make(Object, len(s))
	for _, f := range s {
		value, ok := raw[f.Name]
		if !ok {
			return nil, fmt.Errorf("field %q missing", f.Name)
		}
		coerced, err := f.coerce(value)
		if err != nil {
			return nil, err
		}
		obj[f.Name] = coerced
	}
	return obj, nil
}

// decodeRow reads fragment as bare comma-separated JSON values and assigns
// them positionally to fields.
func decodeRow(fields Schema, fragment string) (Object, error) {
	trimmed := strings.TrimSpace(fragment)
	trimmed = strings.TrimSuffix(trimmed, ",")
	if trimmed == "" {
		return nil, fmt.Errorf("empty row")
	}
	dec := json.NewDecoder(strings.NewReader("[" + trimmed + "]"))
	dec.UseNumber()
	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	if len(values) != len(fields) {
		return nil, fmt.Errorf("row has %d values, want %d", len(values), len(fields))
	}
	obj := make(Object, len(fields))
	for i, f := range fields {
		coerced, err := f.coerce(values[i])
		if err != nil {
			return nil, err
		}
		obj[f.Name] = coerced
	}
	return obj, nil
}
