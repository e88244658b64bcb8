package stepwire

import (
	"unicode/utf8"
	"unsafe"
)

// Fixed builds a primitive codec with a statically known wire width. put
// serializes v into exactly width bytes; get parses them and reports false
// for bytes that are not a valid T. op names the primitive in errors.
//
// Formats use it for numbers, booleans and characters.
func Fixed[T any](op string, width int, put func([]byte, T), get func([]byte) (T, bool)) Codec[T] {
	if width < 0 || width > MaxWidth {
		panic("stepwire: fixed width out of range")
	}
	return &fixedCodec[T]{op: op, width: width, put: put, get: get}
}

type fixedCodec[T any] struct {
	op    string
	width int
	put   func([]byte, T)
	get   func([]byte) (T, bool)
}

func (c *fixedCodec[T]) stage(v T) BufferState {
	var b [MaxWidth]byte
	c.put(b[:c.width], v)
	return BufferWith(b[:c.width])
}

type fixedEncoder[T any] struct {
	st   BufferState
	done bool
}

func (c *fixedCodec[T]) NewEncoder(_ Format, data *T) Encoder[T] {
	if c.width == 0 {
		return lazyEncoder[T](c)
	}
	return &fixedEncoder[T]{st: c.stage(*data)}
}

func (c *fixedCodec[T]) StartEncode(_ Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]] {
	if c.width == 0 {
		return StartComplete[Unit, Encoder[T]](Unit{})
	}
	st := c.stage(*data)
	p := st.Write(w, cx)
	if p.State == Suspended {
		return StartSuspend[Unit](Encoder[T](&fixedEncoder[T]{st: st}))
	}
	return Lift[Unit, Encoder[T]](p, nil)
}

func (e *fixedEncoder[T]) PollEncode(f Format, w Sink, _ *T, cx *Context) Poll[Unit] {
	if e.done {
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
	p := e.st.Write(w, cx)
	e.done = p.Done()
	return p
}

type fixedDecoder[T any] struct {
	c    *fixedCodec[T]
	st   BufferState
	done bool
}

func (c *fixedCodec[T]) NewDecoder(_ Format) Decoder[T] {
	if c.width == 0 {
		return lazyDecoder[T](c)
	}
	return &fixedDecoder[T]{c: c, st: BufferFor(c.width)}
}

func (c *fixedCodec[T]) StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]] {
	if c.width == 0 {
		return Lift[T, Decoder[T]](c.parse(f, nil), nil)
	}
	st := BufferFor(c.width)
	p := st.Read(r, cx)
	switch p.State {
	case Complete:
		return Lift[T, Decoder[T]](c.parse(f, st.Bytes()), nil)
	case Suspended:
		return StartSuspend[T](Decoder[T](&fixedDecoder[T]{c: c, st: st}))
	default:
		return StartFail[T, Decoder[T]](p.Err)
	}
}

func (c *fixedCodec[T]) parse(f Format, b []byte) Poll[T] {
	v, ok := c.get(b)
	if !ok {
		return PollFail[T](f.InvalidData(c.op))
	}
	return PollComplete(v)
}

func (d *fixedDecoder[T]) PollDecode(f Format, r Source, cx *Context) Poll[T] {
	if d.done {
		return PollFail[T](f.InvalidInput("poll after finish"))
	}
	p := d.st.Read(r, cx)
	switch p.State {
	case Complete:
		d.done = true
		return d.c.parse(f, d.st.Bytes())
	case Suspended:
		return PollSuspend[T]()
	default:
		d.done = true
		return PollFail[T](p.Err)
	}
}

// LengthPrefixedBytes encodes a byte slice as its length, through the
// format's SeqLen codec, followed by the raw bytes.
func LengthPrefixedBytes() Codec[[]byte] {
	return blobCodec[[]byte]{}
}

// LengthPrefixedString is LengthPrefixedBytes for strings. Decoding rejects
// invalid UTF-8 as invalid data.
func LengthPrefixedString() Codec[string] {
	return blobCodec[string]{text: true}
}

type blobCodec[T ~string | ~[]byte] struct {
	text bool
}

func blobBytes[T ~string | ~[]byte](v *T) []byte {
	switch b := any(*v).(type) {
	case []byte:
		return b
	case string:
		return unsafe.Slice(unsafe.StringData(b), len(b))
	}
	// named types fall back to a copy
	return []byte(*v)
}

const (
	blobLen = iota
	blobBody
	blobDone
)

type blobEncoder[T ~string | ~[]byte] struct {
	step   int
	n      SeqLen
	lenEnc Encoder[SeqLen]
	cur    Cursor
}

func (c blobCodec[T]) NewEncoder(f Format, data *T) Encoder[T] {
	e := &blobEncoder[T]{n: SeqLen(len(*data))}
	e.lenEnc = f.SeqLen().NewEncoder(f, &e.n)
	return e
}

func (c blobCodec[T]) StartEncode(f Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]] {
	n := SeqLen(len(*data))
	s := f.SeqLen().StartEncode(f, w, &n, cx)
	switch s.State {
	case Complete:
		var e blobEncoder[T]
		e.n = n
		p := e.body(f, w, data, cx)
		if p.State == Suspended {
			return StartSuspend[Unit](Encoder[T](&e))
		}
		return Lift[Unit, Encoder[T]](p, nil)
	case Suspended:
		return StartSuspend[Unit](Encoder[T](&blobEncoder[T]{n: n, lenEnc: s.Cont}))
	default:
		return StartFail[Unit, Encoder[T]](s.Err)
	}
}

func (e *blobEncoder[T]) body(f Format, w Sink, data *T, cx *Context) Poll[Unit] {
	if int(e.n) != len(*data) {
		e.step = blobDone
		return PollFail[Unit](f.InvalidInput("length changed during encode"))
	}
	if e.n == 0 {
		e.step = blobDone
		return PollComplete(Unit{})
	}
	e.step = blobBody
	e.cur = NewCursor(int(e.n))
	return e.poll(w, data, cx)
}

func (e *blobEncoder[T]) poll(w Sink, data *T, cx *Context) Poll[Unit] {
	p := e.cur.WriteRemaining(w, blobBytes(data), cx)
	if p.Done() {
		e.step = blobDone
	}
	return p
}

func (e *blobEncoder[T]) PollEncode(f Format, w Sink, data *T, cx *Context) Poll[Unit] {
	switch e.step {
	case blobLen:
		p := e.lenEnc.PollEncode(f, w, &e.n, cx)
		if p.State != Complete {
			if p.State == Failed {
				e.step = blobDone
			}
			return p
		}
		return e.body(f, w, data, cx)
	case blobBody:
		return e.poll(w, data, cx)
	default:
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
}

type blobDecoder[T ~string | ~[]byte] struct {
	text   bool
	step   int
	lenDec Decoder[SeqLen]
	buf    []byte
	cur    Cursor
}

func (c blobCodec[T]) NewDecoder(f Format) Decoder[T] {
	return &blobDecoder[T]{text: c.text, lenDec: f.SeqLen().NewDecoder(f)}
}

func (c blobCodec[T]) StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]] {
	s := f.SeqLen().StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		d := blobDecoder[T]{text: c.text}
		p := d.body(f, r, s.Value, cx)
		if p.State == Suspended {
			return StartSuspend[T](Decoder[T](&d))
		}
		return Lift[T, Decoder[T]](p, nil)
	case Suspended:
		return StartSuspend[T](Decoder[T](&blobDecoder[T]{text: c.text, lenDec: s.Cont}))
	default:
		return StartFail[T, Decoder[T]](s.Err)
	}
}

func (d *blobDecoder[T]) body(f Format, r Source, n SeqLen, cx *Context) Poll[T] {
	if n < 0 {
		d.step = blobDone
		return PollFail[T](f.InvalidData("negative length"))
	}
	if n == 0 {
		d.step = blobDone
		return PollComplete(T([]byte{}))
	}
	d.step = blobBody
	d.cur = NewCursor(int(n))
	return d.poll(f, r, cx)
}

func (d *blobDecoder[T]) poll(f Format, r Source, cx *Context) Poll[T] {
	p := d.cur.FillSlice(r, &d.buf, cx)
	switch p.State {
	case Complete:
		d.step = blobDone
		buf := d.buf
		d.buf = nil
		if d.text && !utf8.Valid(buf) {
			return PollFail[T](f.InvalidData("utf8"))
		}
		if d.text {
			// buf is owned by this decoder and never reused.
			return PollComplete(T(unsafe.String(unsafe.SliceData(buf), len(buf))))
		}
		return PollComplete(T(buf))
	case Suspended:
		return PollSuspend[T]()
	default:
		d.step = blobDone
		return PollFail[T](p.Err)
	}
}

func (d *blobDecoder[T]) PollDecode(f Format, r Source, cx *Context) Poll[T] {
	switch d.step {
	case blobLen:
		p := d.lenDec.PollDecode(f, r, cx)
		switch p.State {
		case Complete:
			return d.body(f, r, p.Value, cx)
		case Suspended:
			return PollSuspend[T]()
		default:
			d.step = blobDone
			return PollFail[T](p.Err)
		}
	case blobBody:
		return d.poll(f, r, cx)
	default:
		return PollFail[T](f.InvalidInput("poll after finish"))
	}
}
