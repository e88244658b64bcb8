package stepwire

// Field is one field of a struct shape S, built with FieldOf.
type Field[S any] interface {
	startEncode(f Format, w Sink, data *S, cx *Context) Start[Unit, Encoder[S]]
	startDecode(f Format, r Source, acc *S, cx *Context) Start[Unit, fieldDecoder[S]]
}

type fieldDecoder[S any] interface {
	poll(f Format, r Source, acc *S, cx *Context) Poll[Unit]
}

// FieldOf binds the field of S reached through get to codec c. get must
// return a pointer into its argument.
func FieldOf[S, F any](get func(*S) *F, c Codec[F]) Field[S] {
	return &field[S, F]{get: get, c: c}
}

type field[S, F any] struct {
	get func(*S) *F
	c   Codec[F]
}

func (fd *field[S, F]) startEncode(f Format, w Sink, data *S, cx *Context) Start[Unit, Encoder[S]] {
	s := fd.c.StartEncode(f, w, fd.get(data), cx)
	if s.State == Suspended {
		return StartSuspend[Unit](Encoder[S](&projEncoder[S, F]{get: fd.get, inner: s.Cont}))
	}
	return settle[Unit, Encoder[F], Encoder[S]](s)
}

type fieldDec[S, F any] struct {
	get   func(*S) *F
	inner Decoder[F]
}

func (fd *field[S, F]) startDecode(f Format, r Source, acc *S, cx *Context) Start[Unit, fieldDecoder[S]] {
	s := fd.c.StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		*fd.get(acc) = s.Value
		return StartComplete[Unit, fieldDecoder[S]](Unit{})
	case Suspended:
		return StartSuspend[Unit](fieldDecoder[S](&fieldDec[S, F]{get: fd.get, inner: s.Cont}))
	default:
		return StartFail[Unit, fieldDecoder[S]](s.Err)
	}
}

func (d *fieldDec[S, F]) poll(f Format, r Source, acc *S, cx *Context) Poll[Unit] {
	p := d.inner.PollDecode(f, r, cx)
	if p.State == Complete {
		*d.get(acc) = p.Value
		return PollComplete(Unit{})
	}
	return Poll[Unit]{State: p.State, Err: p.Err}
}

// Struct encodes the fields in order with no header. A struct without
// fields writes a single unit, like Empty.
func Struct[S any](fields ...Field[S]) Codec[S] {
	if len(fields) == 0 {
		return Empty[S]()
	}
	return &structCodec[S]{fields: fields}
}

type structCodec[S any] struct {
	fields []Field[S]
}

type structEncoder[S any] struct {
	c    *structCodec[S]
	idx  int
	cur  Encoder[S]
	done bool
}

func (c *structCodec[S]) NewEncoder(Format, *S) Encoder[S] {
	return &structEncoder[S]{c: c}
}

func (c *structCodec[S]) StartEncode(f Format, w Sink, data *S, cx *Context) Start[Unit, Encoder[S]] {
	e := structEncoder[S]{c: c}
	p := e.fieldsFrom(f, w, data, 0, cx)
	if p.State == Suspended {
		return StartSuspend[Unit](Encoder[S](&e))
	}
	return Lift[Unit, Encoder[S]](p, nil)
}

func (e *structEncoder[S]) fieldsFrom(f Format, w Sink, data *S, i int, cx *Context) Poll[Unit] {
	for ; i < len(e.c.fields); i++ {
		s := e.c.fields[i].startEncode(f, w, data, cx)
		switch s.State {
		case Suspended:
			e.idx, e.cur = i, s.Cont
			return PollSuspend[Unit]()
		case Failed:
			e.done = true
			return PollFail[Unit](s.Err)
		}
	}
	e.done = true
	return PollComplete(Unit{})
}

func (e *structEncoder[S]) PollEncode(f Format, w Sink, data *S, cx *Context) Poll[Unit] {
	if e.done {
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
	if e.cur == nil {
		return e.fieldsFrom(f, w, data, 0, cx)
	}
	p := e.cur.PollEncode(f, w, data, cx)
	switch p.State {
	case Complete:
		e.cur = nil
		return e.fieldsFrom(f, w, data, e.idx+1, cx)
	case Failed:
		e.done = true
	}
	return p
}

// structDecoder fills acc field by field; fields below idx are known.
type structDecoder[S any] struct {
	c    *structCodec[S]
	acc  S
	idx  int
	cur  fieldDecoder[S]
	done bool
}

func (c *structCodec[S]) NewDecoder(Format) Decoder[S] {
	return &structDecoder[S]{c: c}
}

func (c *structCodec[S]) StartDecode(f Format, r Source, cx *Context) Start[S, Decoder[S]] {
	d := structDecoder[S]{c: c}
	p := d.fieldsFrom(f, r, cx)
	if p.State == Suspended {
		return StartSuspend[S](Decoder[S](&d))
	}
	return Lift[S, Decoder[S]](p, nil)
}

func (d *structDecoder[S]) fieldsFrom(f Format, r Source, cx *Context) Poll[S] {
	for ; d.idx < len(d.c.fields); d.idx++ {
		s := d.c.fields[d.idx].startDecode(f, r, &d.acc, cx)
		switch s.State {
		case Suspended:
			d.cur = s.Cont
			return PollSuspend[S]()
		case Failed:
			d.done = true
			return PollFail[S](s.Err)
		}
	}
	d.done = true
	acc := d.acc
	var zero S
	d.acc = zero
	return PollComplete(acc)
}

func (d *structDecoder[S]) PollDecode(f Format, r Source, cx *Context) Poll[S] {
	if d.done {
		return PollFail[S](f.InvalidInput("poll after finish"))
	}
	if d.cur == nil {
		return d.fieldsFrom(f, r, cx)
	}
	p := d.cur.poll(f, r, &d.acc, cx)
	switch p.State {
	case Complete:
		d.cur = nil
		d.idx++
		return d.fieldsFrom(f, r, cx)
	case Suspended:
		return PollSuspend[S]()
	default:
		d.done = true
		return PollFail[S](p.Err)
	}
}

// Pair is a two element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

func PairOf[A, B any](a Codec[A], b Codec[B]) Codec[Pair[A, B]] {
	return Struct(
		FieldOf(func(p *Pair[A, B]) *A { return &p.First }, a),
		FieldOf(func(p *Pair[A, B]) *B { return &p.Second }, b),
	)
}
