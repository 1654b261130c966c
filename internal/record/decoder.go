package record

import (
	"bytes"
	"fmt"
	"iter"
)

// Record is a view of one encoded record inside a borrowed buffer. It is only
// valid until the owner of the buffer mutates or reallocates it.
type Record struct {
	Index  int
	Offset int

	schema *Schema
	data   []byte
}

// Schema returns the layout the record is read with.
func (r Record) Schema() *Schema { return r.schema }

// Uint reads an integer field.
func (r Record) Uint(name string) (uint64, error) {
	f, ok := r.schema.Field(name)
	if !ok {
		return 0, fmt.Errorf("%w %q in %s", ErrUnknownField, name, r.schema)
	}
	switch f.Kind {
	case U8:
		v, err := Uint8At(r.data, f.Offset)
		return uint64(v), err
	case U16:
		v, err := Uint16At(r.data, f.Offset)
		return uint64(v), err
	case U32:
		v, err := Uint32At(r.data, f.Offset)
		return uint64(v), err
	case U64:
		return Uint64At(r.data, f.Offset)
	default:
		return 0, fmt.Errorf("%w: %q is %s, not an integer", ErrFieldType, name, f.Kind)
	}
}

// Float reads a float field.
func (r Record) Float(name string) (float64, error) {
	f, ok := r.schema.Field(name)
	if !ok {
		return 0, fmt.Errorf("%w %q in %s", ErrUnknownField, name, r.schema)
	}
	switch f.Kind {
	case F32:
		v, err := Float32At(r.data, f.Offset)
		return float64(v), err
	case F64:
		return Float64At(r.data, f.Offset)
	default:
		return 0, fmt.Errorf("%w: %q is %s, not a float", ErrFieldType, name, f.Kind)
	}
}

// Bytes returns a private copy of the record's raw bytes.
func (r Record) Bytes() []byte {
	return bytes.Clone(r.data)
}

// Sequence is a lazy, finite, restartable run of records of one schema.
// Iterating again re-reads the buffer; nothing is cached.
type Sequence struct {
	buf    []byte
	base   int
	count  int
	schema *Schema
}

// Decode checks that count records of schema fit in buf starting at base and
// returns a sequence over them. A short buffer is reported immediately instead
// of truncating the sequence.
func Decode(buf []byte, base, count uint32, schema *Schema) (Sequence, error) {
	if schema == nil {
		return Sequence{}, fmt.Errorf("failed to decode: nil schema")
	}
	end := uint64(base) + uint64(count)*uint64(schema.Stride)
	if end > uint64(len(buf)) {
		return Sequence{}, fmt.Errorf("%w: %d %s records at %#x need %d bytes, buffer has %d",
			ErrOutOfRange, count, schema, base, end, len(buf))
	}
	return Sequence{
		buf:    buf,
		base:   int(base),
		count:  int(count),
		schema: schema,
	}, nil
}

// Len returns the number of records.
func (s Sequence) Len() int { return s.count }

// At returns the i-th record. It panics if i is out of range, like slice indexing.
func (s Sequence) At(i int) Record {
	if i < 0 || i >= s.count {
		panic(fmt.Sprintf("record index %d out of range [0,%d)", i, s.count))
	}
	off := s.base + i*s.schema.Stride
	return Record{
		Index:  i,
		Offset: off,
		schema: s.schema,
		data:   s.buf[off : off+s.schema.Stride : off+s.schema.Stride],
	}
}

// All yields every record in buffer order.
func (s Sequence) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := 0; i < s.count; i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}
