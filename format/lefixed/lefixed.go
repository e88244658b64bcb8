// Package lefixed is a little-endian fixed-width wire format: every number
// takes its natural width, booleans one byte, characters four, variant
// discriminants a uint32 and sequence lengths a uint64.
package lefixed

import (
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/internal/common"
)

const (
	// DiscriminantWidth is the wire width of a variant discriminant.
	DiscriminantWidth = 4
	// SeqLenWidth is the wire width of a sequence or map length.
	SeqLenWidth = 8
)

// Format implements stepwire.Format. The zero value is ready to use.
type Format struct{}

var _ stepwire.Format = Format{}

var (
	unitCodec = stepwire.Fixed("unit", 0,
		func([]byte, stepwire.Unit) {},
		func([]byte) (stepwire.Unit, bool) { return stepwire.Unit{}, true })
	boolCodec = stepwire.Fixed("bool", 1, putBool, getBool)
	charCodec = stepwire.Fixed("char", 4,
		func(b []byte, r rune) { common.PutUint(b, uint64(uint32(r))) },
		func(b []byte) (rune, bool) {
			r := rune(common.Uint(b))
			return r, utf8.ValidRune(r)
		})
	float32Codec = stepwire.Fixed("float32", 4, common.PutFloat32,
		func(b []byte) (float32, bool) { return common.Float32(b), true })
	float64Codec = stepwire.Fixed("float64", 8, common.PutFloat64,
		func(b []byte) (float64, bool) { return common.Float64(b), true })

	int8Codec   = signed[int8](reflect.Int8)
	int16Codec  = signed[int16](reflect.Int16)
	int32Codec  = signed[int32](reflect.Int32)
	int64Codec  = signed[int64](reflect.Int64)
	uint8Codec  = unsigned[uint8](reflect.Uint8)
	uint16Codec = unsigned[uint16](reflect.Uint16)
	uint32Codec = unsigned[uint32](reflect.Uint32)
	uint64Codec = unsigned[uint64](reflect.Uint64)

	discriminantCodec = stepwire.Fixed("discriminant", DiscriminantWidth,
		func(b []byte, d stepwire.Discriminant) { common.PutUint(b, uint64(d)) },
		func(b []byte) (stepwire.Discriminant, bool) {
			u := common.Uint(b)
			return stepwire.Discriminant(u), u <= math.MaxInt
		})
	seqLenCodec = stepwire.Fixed("sequence length", SeqLenWidth,
		func(b []byte, n stepwire.SeqLen) { common.PutUint(b, uint64(n)) },
		func(b []byte) (stepwire.SeqLen, bool) {
			u := common.Uint(b)
			return stepwire.SeqLen(u), u <= math.MaxInt
		})

	bytesCodec = stepwire.LengthPrefixedBytes()
	textCodec  = stepwire.LengthPrefixedString()
)

func putBool(b []byte, v bool) {
	b[0] = 0
	if v {
		b[0] = 1
	}
}

func getBool(b []byte) (bool, bool) {
	switch b[0] {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

func signed[T int8 | int16 | int32 | int64](k reflect.Kind) stepwire.Codec[T] {
	return stepwire.Fixed(k.String(), common.FixedSize(k),
		func(b []byte, v T) { common.PutUint(b, uint64(v)) },
		func(b []byte) (T, bool) { return T(common.Int(b)), true })
}

func unsigned[T uint8 | uint16 | uint32 | uint64](k reflect.Kind) stepwire.Codec[T] {
	return stepwire.Fixed(k.String(), common.FixedSize(k),
		func(b []byte, v T) { common.PutUint(b, uint64(v)) },
		func(b []byte) (T, bool) { return T(common.Uint(b)), true })
}

func (Format) InvalidInput(op string) error { return stepwire.InputError(op) }

func (Format) InvalidData(op string) error { return stepwire.DataError(op, nil) }

func (Format) Unit() stepwire.Codec[stepwire.Unit] { return unitCodec }
func (Format) Bool() stepwire.Codec[bool]          { return boolCodec }
func (Format) Int8() stepwire.Codec[int8]          { return int8Codec }
func (Format) Int16() stepwire.Codec[int16]        { return int16Codec }
func (Format) Int32() stepwire.Codec[int32]        { return int32Codec }
func (Format) Int64() stepwire.Codec[int64]        { return int64Codec }
func (Format) Uint8() stepwire.Codec[uint8]        { return uint8Codec }
func (Format) Uint16() stepwire.Codec[uint16]      { return uint16Codec }
func (Format) Uint32() stepwire.Codec[uint32]      { return uint32Codec }
func (Format) Uint64() stepwire.Codec[uint64]      { return uint64Codec }
func (Format) Float32() stepwire.Codec[float32]    { return float32Codec }
func (Format) Float64() stepwire.Codec[float64]    { return float64Codec }
func (Format) Char() stepwire.Codec[rune]          { return charCodec }
func (Format) Bytes() stepwire.Codec[[]byte]       { return bytesCodec }
func (Format) Text() stepwire.Codec[string]        { return textCodec }

func (Format) Discriminant() stepwire.Codec[stepwire.Discriminant] { return discriminantCodec }

func (Format) SeqLen() stepwire.Codec[stepwire.SeqLen] { return seqLenCodec }
