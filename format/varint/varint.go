// Package varint is a compact wire format. Integers wider than a byte,
// discriminants and lengths are LEB128 varints, with signed values zigzag
// mapped first. Floats stay fixed-width little-endian.
package varint

import (
	"math"
	"reflect"
	"unicode/utf8"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/internal/common"
)

// Format implements stepwire.Format. The zero value is ready to use.
type Format struct{}

var _ stepwire.Format = Format{}

var (
	unitCodec = stepwire.Fixed("unit", 0,
		func([]byte, stepwire.Unit) {},
		func([]byte) (stepwire.Unit, bool) { return stepwire.Unit{}, true })
	boolCodec = stepwire.Fixed("bool", 1,
		func(b []byte, v bool) {
			b[0] = 0
			if v {
				b[0] = 1
			}
		},
		func(b []byte) (bool, bool) { return b[0] == 1, b[0] <= 1 })
	int8Codec = stepwire.Fixed("int8", 1,
		func(b []byte, v int8) { b[0] = byte(v) },
		func(b []byte) (int8, bool) { return int8(b[0]), true })
	uint8Codec = stepwire.Fixed("uint8", 1,
		func(b []byte, v uint8) { b[0] = v },
		func(b []byte) (uint8, bool) { return b[0], true })
	float32Codec = stepwire.Fixed("float32", 4, common.PutFloat32,
		func(b []byte) (float32, bool) { return common.Float32(b), true })
	float64Codec = stepwire.Fixed("float64", 8, common.PutFloat64,
		func(b []byte) (float64, bool) { return common.Float64(b), true })

	int16Codec  = signed[int16](reflect.Int16, math.MinInt16, math.MaxInt16)
	int32Codec  = signed[int32](reflect.Int32, math.MinInt32, math.MaxInt32)
	int64Codec  = signed[int64](reflect.Int64, math.MinInt64, math.MaxInt64)
	uint16Codec = unsigned[uint16](reflect.Uint16, math.MaxUint16)
	uint32Codec = unsigned[uint32](reflect.Uint32, math.MaxUint32)
	uint64Codec = unsigned[uint64](reflect.Uint64, math.MaxUint64)

	charCodec = Uvarint("char",
		func(r rune) uint64 { return uint64(uint32(r)) },
		func(u uint64) (rune, bool) { return rune(u), u <= math.MaxInt32 && utf8.ValidRune(rune(u)) })
	discriminantCodec = Uvarint("discriminant",
		func(d stepwire.Discriminant) uint64 { return uint64(d) },
		func(u uint64) (stepwire.Discriminant, bool) { return stepwire.Discriminant(u), u <= math.MaxInt })
	seqLenCodec = Uvarint("sequence length",
		func(n stepwire.SeqLen) uint64 { return uint64(n) },
		func(u uint64) (stepwire.SeqLen, bool) { return stepwire.SeqLen(u), u <= math.MaxInt })

	bytesCodec = stepwire.LengthPrefixedBytes()
	textCodec  = stepwire.LengthPrefixedString()
)

func signed[T int16 | int32 | int64](k reflect.Kind, lo, hi int64) stepwire.Codec[T] {
	return Uvarint(k.String(),
		func(v T) uint64 { return common.ZigZag(int64(v)) },
		func(u uint64) (T, bool) {
			x := common.UnZigZag(u)
			return T(x), x >= lo && x <= hi
		})
}

func unsigned[T uint16 | uint32 | uint64](k reflect.Kind, hi uint64) stepwire.Codec[T] {
	return Uvarint(k.String(),
		func(v T) uint64 { return uint64(v) },
		func(u uint64) (T, bool) { return T(u), u <= hi })
}

// Uvarint builds a codec that carries T as an unsigned varint. from reports
// false for values that have no T, which decode as invalid data.
func Uvarint[T any](op string, to func(T) uint64, from func(uint64) (T, bool)) stepwire.Codec[T] {
	return &uvarint[T]{op: op, to: to, from: from}
}

type uvarint[T any] struct {
	op   string
	to   func(T) uint64
	from func(uint64) (T, bool)
}

func (c *uvarint[T]) stage(v T) stepwire.BufferState {
	var scratch [common.MaxVarintLen64]byte
	return stepwire.BufferWith(common.WriteVarUintTo(scratch[:0], c.to(v)))
}

type encoder[T any] struct {
	st   stepwire.BufferState
	done bool
}

func (c *uvarint[T]) NewEncoder(_ stepwire.Format, data *T) stepwire.Encoder[T] {
	return &encoder[T]{st: c.stage(*data)}
}

func (c *uvarint[T]) StartEncode(_ stepwire.Format, w stepwire.Sink, data *T, cx *stepwire.Context) stepwire.Start[stepwire.Unit, stepwire.Encoder[T]] {
	e := &encoder[T]{st: c.stage(*data)}
	p := e.st.Write(w, cx)
	if p.State == stepwire.Suspended {
		return stepwire.StartSuspend[stepwire.Unit](stepwire.Encoder[T](e))
	}
	return stepwire.Lift[stepwire.Unit, stepwire.Encoder[T]](p, nil)
}

func (e *encoder[T]) PollEncode(f stepwire.Format, w stepwire.Sink, _ *T, cx *stepwire.Context) stepwire.Poll[stepwire.Unit] {
	if e.done {
		return stepwire.PollFail[stepwire.Unit](f.InvalidInput("poll after finish"))
	}
	p := e.st.Write(w, cx)
	e.done = p.Done()
	return p
}

// decoder reads one byte at a time so it never consumes past the varint.
type decoder[T any] struct {
	c    *uvarint[T]
	acc  common.VarUint
	st   stepwire.BufferState
	done bool
}

func (c *uvarint[T]) NewDecoder(stepwire.Format) stepwire.Decoder[T] {
	return &decoder[T]{c: c, st: stepwire.BufferFor(1)}
}

func (c *uvarint[T]) StartDecode(f stepwire.Format, r stepwire.Source, cx *stepwire.Context) stepwire.Start[T, stepwire.Decoder[T]] {
	d := &decoder[T]{c: c, st: stepwire.BufferFor(1)}
	p := d.step(f, r, cx)
	if p.State == stepwire.Suspended {
		return stepwire.StartSuspend[T](stepwire.Decoder[T](d))
	}
	return stepwire.Lift[T, stepwire.Decoder[T]](p, nil)
}

func (d *decoder[T]) PollDecode(f stepwire.Format, r stepwire.Source, cx *stepwire.Context) stepwire.Poll[T] {
	if d.done {
		return stepwire.PollFail[T](f.InvalidInput("poll after finish"))
	}
	return d.step(f, r, cx)
}

func (d *decoder[T]) step(f stepwire.Format, r stepwire.Source, cx *stepwire.Context) stepwire.Poll[T] {
	for {
		p := d.st.Read(r, cx)
		switch p.State {
		case stepwire.Suspended:
			return stepwire.PollSuspend[T]()
		case stepwire.Failed:
			d.done = true
			return stepwire.PollFail[T](p.Err)
		}
		fin, ok := d.acc.Push(d.st.Bytes()[0])
		if !ok {
			d.done = true
			return stepwire.PollFail[T](f.InvalidData("varint overflow"))
		}
		if fin {
			d.done = true
			v, ok := d.c.from(d.acc.X)
			if !ok {
				return stepwire.PollFail[T](f.InvalidData(d.c.op))
			}
			return stepwire.PollComplete(v)
		}
		d.st = stepwire.BufferFor(1)
	}
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
