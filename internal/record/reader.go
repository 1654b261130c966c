package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a read or write would cross the end of the buffer.
var ErrOutOfRange = errors.New("out of range")

func checkRange(buf []byte, off, width int) error {
	if off < 0 || width < 0 || off > len(buf)-width {
		return fmt.Errorf("%w: offset %d width %d exceeds buffer length %d", ErrOutOfRange, off, width, len(buf))
	}
	return nil
}

// Uint8At reads a byte at off.
func Uint8At(buf []byte, off int) (uint8, error) {
	if err := checkRange(buf, off, 1); err != nil {
		return 0, err
	}
	return buf[off], nil
}

// Uint16At reads a little-endian uint16 at off.
func Uint16At(buf []byte, off int) (uint16, error) {
	if err := checkRange(buf, off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[off:]), nil
}

// Uint32At reads a little-endian uint32 at off.
func Uint32At(buf []byte, off int) (uint32, error) {
	if err := checkRange(buf, off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[off:]), nil
}

// Uint64At reads a little-endian uint64 at off.
func Uint64At(buf []byte, off int) (uint64, error) {
	if err := checkRange(buf, off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[off:]), nil
}

// Float32At reads a little-endian IEEE-754 float32 at off.
func Float32At(buf []byte, off int) (float32, error) {
	bits, err := Uint32At(buf, off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// Float64At reads a little-endian IEEE-754 float64 at off.
func Float64At(buf []byte, off int) (float64, error) {
	bits, err := Uint64At(buf, off)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}
