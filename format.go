package stepwire

// Discriminant identifies which variant of a tagged union is present.
type Discriminant int

// SeqLen is the number of items in a sequence or map.
type SeqLen int

// Format is a pluggable wire layout. It supplies the codecs for every
// primitive and for the two kinds of structural metadata, and decides how
// errors are reported.
type Format interface {
	// InvalidInput reports misuse of a codec by the calling code.
	InvalidInput(op string) error
	// InvalidData reports bytes that cannot be decoded.
	InvalidData(op string) error

	Unit() Codec[Unit]
	Bool() Codec[bool]
	Int8() Codec[int8]
	Int16() Codec[int16]
	Int32() Codec[int32]
	Int64() Codec[int64]
	Uint8() Codec[uint8]
	Uint16() Codec[uint16]
	Uint32() Codec[uint32]
	Uint64() Codec[uint64]
	Float32() Codec[float32]
	Float64() Codec[float64]
	Char() Codec[rune]
	Bytes() Codec[[]byte]
	Text() Codec[string]

	Discriminant() Codec[Discriminant]
	SeqLen() Codec[SeqLen]
}

// prim resolves a primitive codec from the format given on each call.
type prim[T any] struct {
	pick func(Format) Codec[T]
}

func (p prim[T]) NewEncoder(f Format, data *T) Encoder[T] {
	return p.pick(f).NewEncoder(f, data)
}

func (p prim[T]) StartEncode(f Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]] {
	return p.pick(f).StartEncode(f, w, data, cx)
}

func (p prim[T]) NewDecoder(f Format) Decoder[T] {
	return p.pick(f).NewDecoder(f)
}

func (p prim[T]) StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]] {
	return p.pick(f).StartDecode(f, r, cx)
}

func UnitValue() Codec[Unit] { return prim[Unit]{Format.Unit} }
func Bool() Codec[bool] { return prim[bool]{Format.Bool} }
func Int8() Codec[int8] { return prim[int8]{Format.Int8} }
func Int16() Codec[int16] { return prim[int16]{Format.Int16} }
func Int32() Codec[int32] { return prim[int32]{Format.Int32} }
func Int64() Codec[int64] { return prim[int64]{Format.Int64} }
func Uint8() Codec[uint8] { return prim[uint8]{Format.Uint8} }
func Uint16() Codec[uint16] { return prim[uint16]{Format.Uint16} }
func Uint32() Codec[uint32] { return prim[uint32]{Format.Uint32} }
func Uint64() Codec[uint64] { return prim[uint64]{Format.Uint64} }
func Float32() Codec[float32] { return prim[float32]{Format.Float32} }
func Float64() Codec[float64] { return prim[float64]{Format.Float64} }
func Char() Codec[rune] { return prim[rune]{Format.Char} }
func Bytes() Codec[[]byte] { return prim[[]byte]{Format.Bytes} }
func String() Codec[string] { return prim[string]{Format.Text} }
func Tag() Codec[Discriminant] { return prim[Discriminant]{Format.Discriminant} }
func Length() Codec[SeqLen] { return prim[SeqLen]{Format.SeqLen} }

// Int carries a platform int as a 64-bit integer.
func Int() Codec[int] {
	return Convert(Int64(),
		func(v int) int64 { return int64(v) },
		func(w int64) (int, bool) { return int(w), int64(int(w)) == w },
	)
}

// Uint carries a platform uint as a 64-bit integer.
func Uint() Codec[uint] {
	return Convert(Uint64(),
		func(v uint) uint64 { return uint64(v) },
		func(w uint64) (uint, bool) { return uint(w), uint64(uint(w)) == w },
	)
}

// Convert carries T as its wire representation W. from reports false for a
// wire value that has no T, which decodes as invalid data.
func Convert[T, W any](wire Codec[W], to func(T) W, from func(W) (T, bool)) Codec[T] {
	return convertCodec[T, W]{wire: wire, to: to, from: from}
}

type convertCodec[T, W any] struct {
	wire Codec[W]
	to   func(T) W
	from func(W) (T, bool)
}

type convertEncoder[T, W any] struct {
	v     W
	inner Encoder[W]
}

func (c convertCodec[T, W]) NewEncoder(f Format, data *T) Encoder[T] {
	e := &convertEncoder[T, W]{v: c.to(*data)}
	e.inner = c.wire.NewEncoder(f, &e.v)
	return e
}

func (c convertCodec[T, W]) StartEncode(f Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]] {
	e := &convertEncoder[T, W]{v: c.to(*data)}
	s := c.wire.StartEncode(f, w, &e.v, cx)
	if s.State == Suspended {
		e.inner = s.Cont
		return StartSuspend[Unit](Encoder[T](e))
	}
	return settle[Unit, Encoder[W], Encoder[T]](s)
}

func (e *convertEncoder[T, W]) PollEncode(f Format, w Sink, _ *T, cx *Context) Poll[Unit] {
	return e.inner.PollEncode(f, w, &e.v, cx)
}

type convertDecoder[T, W any] struct {
	c     convertCodec[T, W]
	inner Decoder[W]
}

func (c convertCodec[T, W]) NewDecoder(f Format) Decoder[T] {
	return &convertDecoder[T, W]{c: c, inner: c.wire.NewDecoder(f)}
}

func (c convertCodec[T, W]) StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]] {
	s := c.wire.StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		return c.finish(f, s.Value)
	case Suspended:
		return StartSuspend[T](Decoder[T](&convertDecoder[T, W]{c: c, inner: s.Cont}))
	default:
		return StartFail[T, Decoder[T]](s.Err)
	}
}

func (c convertCodec[T, W]) finish(f Format, w W) Start[T, Decoder[T]] {
	v, ok := c.from(w)
	if !ok {
		return StartFail[T, Decoder[T]](f.InvalidData("value out of range"))
	}
	return StartComplete[T, Decoder[T]](v)
}

func (d *convertDecoder[T, W]) PollDecode(f Format, r Source, cx *Context) Poll[T] {
	p := d.inner.PollDecode(f, r, cx)
	if p.State != Complete {
		return Poll[T]{State: p.State, Err: p.Err}
	}
	return Forget(d.c.finish(f, p.Value))
}
