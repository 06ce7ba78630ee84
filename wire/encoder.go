// Package wire encodes the instruction payloads understood by the escrow
// program. Fields are written in order with no padding: strings carry a
// u32 little-endian byte length, integers are little-endian fixed width.
package wire

import (
	"encoding/binary"
	"math"

	"github.com/photon-storage/photon-settlement/errs"
)

// Kind is the wire type of a field.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindU32
	KindU64
	KindFixedBytes32
)

var kindName = map[Kind]string{
	KindString:       "string",
	KindU32:          "u32",
	KindU64:          "u64",
	KindFixedBytes32: "fixed32",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if name, ok := kindName[k]; ok {
		return name
	}

	return "unknown"
}

// Integer is any Go integer type accepted by U32 and U64.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Field is one named value of a payload layout.
type Field struct {
	Name     string
	Kind     Kind
	str      string
	raw      []byte
	num      uint64
	negative bool
}

// String builds a length-prefixed UTF-8 field.
func String(name, s string) Field {
	return Field{Name: name, Kind: KindString, str: s}
}

// U32 builds a 4-byte little-endian field.
func U32[T Integer](name string, v T) Field {
	return Field{Name: name, Kind: KindU32, num: uint64(v), negative: v < 0}
}

// U64 builds an 8-byte little-endian field.
func U64[T Integer](name string, v T) Field {
	return Field{Name: name, Kind: KindU64, num: uint64(v), negative: v < 0}
}

// FixedBytes32 builds a raw 32-byte field, typically a public key.
func FixedBytes32(name string, b []byte) Field {
	return Field{Name: name, Kind: KindFixedBytes32, raw: b}
}

func (f Field) size() int {
	switch f.Kind {
	case KindString:
		return 4 + len(f.str)
	case KindU32:
		return 4
	case KindU64:
		return 8
	case KindFixedBytes32:
		return 32
	}

	return 0
}

func (f Field) check() error {
	if f.negative {
		return errs.EncodingRange(f.Name, "negative value for %s", f.Kind)
	}

	switch f.Kind {
	case KindString:
		if uint64(len(f.str)) > math.MaxUint32 {
			return errs.EncodingRange(f.Name, "string length %d exceeds u32", len(f.str))
		}
	case KindU32:
		if f.num > math.MaxUint32 {
			return errs.EncodingRange(f.Name, "value %d exceeds u32", f.num)
		}
	case KindU64:
	case KindFixedBytes32:
		if len(f.raw) != 32 {
			return errs.EncodingRange(f.Name, "got %d bytes, want 32", len(f.raw))
		}
	default:
		return errs.EncodingRange(f.Name, "unsupported kind %d", f.Kind)
	}

	return nil
}

// Encode serializes fields in the given order. The first field that does
// not fit its width fails the whole payload.
func Encode(fields ...Field) ([]byte, error) {
	size := 0
	for _, f := range fields {
		if err := f.check(); err != nil {
			return nil, err
		}
		size += f.size()
	}

	buf := make([]byte, 0, size)
	for _, f := range fields {
		switch f.Kind {
		case KindString:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.str)))
			buf = append(buf, f.str...)
		case KindU32:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(f.num))
		case KindU64:
			buf = binary.LittleEndian.AppendUint64(buf, f.num)
		case KindFixedBytes32:
			buf = append(buf, f.raw...)
		}
	}

	return buf, nil
}
