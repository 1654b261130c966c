package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Values holds field values by name for encoding. Integer fields accept any
// unsigned or int value, float fields accept float32 or float64.
type Values map[string]any

// Encode writes one record at off. Fields absent from v are written as zero.
func Encode(dst []byte, off int, schema *Schema, v Values) error {
	if err := checkRange(dst, off, schema.Stride); err != nil {
		return fmt.Errorf("failed to encode %s: %w", schema, err)
	}
	for name := range v {
		if _, ok := schema.Field(name); !ok {
			return fmt.Errorf("failed to encode %s: %w %q", schema, ErrUnknownField, name)
		}
	}

	rec := dst[off : off+schema.Stride]
	clear(rec)
	for _, f := range schema.fields {
		val, ok := v[f.Name]
		if !ok {
			continue
		}
		if err := putField(rec[f.Offset:f.Offset+f.Width], f, val); err != nil {
			return fmt.Errorf("failed to encode %s: %w", schema, err)
		}
	}
	return nil
}

func putField(b []byte, f Field, val any) error {
	if f.Kind.IsFloat() {
		fv, ok := asFloat(val)
		if !ok {
			return fmt.Errorf("%w: %q is %s, got %T", ErrFieldType, f.Name, f.Kind, val)
		}
		if f.Kind == F32 {
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(fv)))
		} else {
			binary.LittleEndian.PutUint64(b, math.Float64bits(fv))
		}
		return nil
	}

	uv, ok := asUint(val)
	if !ok {
		return fmt.Errorf("%w: %q is %s, got %T", ErrFieldType, f.Name, f.Kind, val)
	}
	switch f.Kind {
	case U8:
		b[0] = uint8(uv)
	case U16:
		binary.LittleEndian.PutUint16(b, uint16(uv))
	case U32:
		binary.LittleEndian.PutUint32(b, uint32(uv))
	case U64:
		binary.LittleEndian.PutUint64(b, uv)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func asUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case int:
		return uint64(x), x >= 0
	default:
		return 0, false
	}
}
