package recdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spy16/recdb/codec"
)

// Field types a schema can declare. Record values are always strings; the
// type constrains what the string must parse as.
const (
	TypeString FieldType = iota
	TypeInt32
	TypeInt64
	TypeBoolean
	TypeFloat
)

// FieldType is the declared type of a field.
type FieldType uint8

// ParseFieldType maps a type name such as "int" or "varchar" to its
// FieldType.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "varchar", "text":
		return TypeString, nil
	case "int", "int32":
		return TypeInt32, nil
	case "int64", "long":
		return TypeInt64, nil
	case "bool", "boolean":
		return TypeBoolean, nil
	case "float", "double":
		return TypeFloat, nil
	default:
		return 0, fmt.Errorf("%w: unknown field type '%s'", ErrInvalidSchema, s)
	}
}

func (ft FieldType) String() string {
	switch ft {
	case TypeString:
		return "string"
	case TypeInt32:
		return "int"
	case TypeInt64:
		return "int64"
	case TypeBoolean:
		return "boolean"
	case TypeFloat:
		return "float"
	default:
		return fmt.Sprintf("type(%d)", uint8(ft))
	}
}

// check returns a reason if v is not a valid value of this type.
func (ft FieldType) check(v string) string {
	var err error
	switch ft {
	case TypeString:
		return ""
	case TypeInt32:
		_, err = strconv.ParseInt(v, 10, 32)
	case TypeInt64:
		_, err = strconv.ParseInt(v, 10, 64)
	case TypeBoolean:
		_, err = strconv.ParseBool(v)
	case TypeFloat:
		_, err = strconv.ParseFloat(v, 64)
	default:
		return fmt.Sprintf("unknown type %s", ft)
	}
	if err != nil {
		return fmt.Sprintf("value '%s' is not a valid %s", v, ft)
	}
	return ""
}

// Field is one declared field of a table.
type Field struct {
	Name string
	Type FieldType
}

// Schema declares the exact set of fields every record of a table has.
type Schema []Field

// ParseSchema parses a comma separated list of 'name:type' pairs. The type
// may be omitted and defaults to string.
func ParseSchema(s string) (Schema, error) {
	var schema Schema
	for _, part := range strings.Split(s, ",") {
		name, typ, _ := strings.Cut(strings.TrimSpace(part), ":")
		ft, err := ParseFieldType(typ)
		if err != nil {
			return nil, err
		}
		schema = append(schema, Field{Name: strings.TrimSpace(name), Type: ft})
	}

	if err := schema.check(); err != nil {
		return nil, err
	}
	return schema, nil
}

// Validate checks that rec has exactly the declared fields and that every
// value parses as its declared type. Missing fields are reported before
// unknown ones.
func (s Schema) Validate(rec codec.Record) error {
	for _, f := range s {
		v, found := rec[f.Name]
		if !found {
			return &SchemaError{Field: f.Name, Reason: "missing field"}
		}
		if reason := f.Type.check(v); reason != "" {
			return &SchemaError{Field: f.Name, Reason: reason}
		}
	}

	if len(rec) != len(s) {
		for _, name := range rec.Fields() {
			if _, declared := s.field(name); !declared {
				return &SchemaError{Field: name, Reason: "field not declared"}
			}
		}
	}
	return nil
}

func (s Schema) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return strings.Join(parts, ",")
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// check validates the declaration itself.
func (s Schema) check() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidSchema)
	}

	seen := make(map[string]bool, len(s))
	for _, f := range s {
		if f.Name == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidSchema)
		} else if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field '%s'", ErrInvalidSchema, f.Name)
		} else if f.Type > TypeFloat {
			return fmt.Errorf("%w: field '%s' has unknown type %s", ErrInvalidSchema, f.Name, f.Type)
		}
		seen[f.Name] = true
	}
	return nil
}

func (s Schema) clone() Schema { return append(Schema(nil), s...) }
