package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"netvis/pkg/types"
)

// ErrUnknownField is returned when a field name is not part of a schema.
var ErrUnknownField = errors.New("unknown field")

// ErrFieldType is returned when a field is read or written as the wrong numeric class.
var ErrFieldType = errors.New("field type mismatch")

// NumericKind is the encoding of a single field. All fields are little-endian.
type NumericKind uint8

const (
	U8 NumericKind = iota + 1
	U16
	U32
	U64
	F32
	F64
)

// Size returns the encoded width in bytes.
func (k NumericKind) Size() int {
	switch k {
	case U8:
		return 1
	case U16:
		return 2
	case U32, F32:
		return 4
	case U64, F64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the kind is an IEEE-754 float.
func (k NumericKind) IsFloat() bool {
	return k == F32 || k == F64
}

func (k NumericKind) String() string {
	switch k {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("numeric(%d)", uint8(k))
	}
}

// Field is one entry of a schema field table.
type Field struct {
	Name   string
	Offset int
	Width  int
	Kind   NumericKind
}

// F declares a field whose width follows from its kind.
func F(name string, offset int, kind NumericKind) Field {
	return Field{Name: name, Offset: offset, Width: kind.Size(), Kind: kind}
}

// requiredFields lists, per entity kind, the fields a schema must declare and
// whether each one is a float.
var requiredFields = map[types.EntityKind]map[string]bool{
	types.KindNode: {
		"id": false, "x": true, "y": true,
	},
	types.KindLink: {
		"id": false, "node_a": false, "node_b": false, "length": true,
	},
	types.KindFrame: {
		"id": false, "link_id": false, "from_node": false,
		"progress": true, "speed": true, "src": false, "dst": false,
	},
	types.KindPacket: {
		"id": false, "kind": false, "state": false, "x": true, "y": true,
	},
}

// Schema is the fixed record layout of one entity kind at one version.
type Schema struct {
	Entity  types.EntityKind
	Version int
	Stride  int

	fields []Field
	index  map[string]int
}

// NewSchema validates and builds a schema. Every field must fit inside the
// stride, names must be unique and the entity's required fields must be present.
func NewSchema(entity types.EntityKind, version, stride int, fields ...Field) (*Schema, error) {
	var errs []string

	if stride <= 0 {
		errs = append(errs, fmt.Sprintf("stride must be > 0, got %d", stride))
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("field %d has no name", i))
			continue
		}
		if _, dup := index[f.Name]; dup {
			errs = append(errs, fmt.Sprintf("field %q declared twice", f.Name))
			continue
		}
		index[f.Name] = i

		if f.Kind.Size() == 0 {
			errs = append(errs, fmt.Sprintf("field %q has unknown numeric kind %d", f.Name, f.Kind))
			continue
		}
		if f.Width != f.Kind.Size() {
			errs = append(errs, fmt.Sprintf("field %q width %d does not match %s", f.Name, f.Width, f.Kind))
		}
		if f.Offset < 0 || f.Offset+f.Width > stride {
			errs = append(errs, fmt.Sprintf("field %q at offset %d width %d exceeds stride %d", f.Name, f.Offset, f.Width, stride))
		}
	}

	required, ok := requiredFields[entity]
	if !ok {
		errs = append(errs, fmt.Sprintf("unknown entity kind %s", entity))
	}
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		isFloat := required[name]
		i, ok := index[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("required field %q missing", name))
			continue
		}
		if fields[i].Kind.IsFloat() != isFloat {
			errs = append(errs, fmt.Sprintf("required field %q has wrong numeric class %s", name, fields[i].Kind))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid %s schema v%d:\n  - %s", entity, version, strings.Join(errs, "\n  - "))
	}

	owned := make([]Field, len(fields))
	copy(owned, fields)
	return &Schema{
		Entity:  entity,
		Version: version,
		Stride:  stride,
		fields:  owned,
		index:   index,
	}, nil
}

// MustSchema is NewSchema for package-level declarations; it panics on an invalid layout.
func MustSchema(entity types.EntityKind, version, stride int, fields ...Field) *Schema {
	s, err := NewSchema(entity, version, stride, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the field table in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s/v%d(stride=%d)", s.Entity, s.Version, s.Stride)
}
