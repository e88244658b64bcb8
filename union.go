package stepwire

import "fmt"

// Case is one variant of a tagged union over T. Its codec carries only the
// payload: encoding is given the whole union value, decoding produces it.
type Case[T any] interface {
	Codec[T]
	// Matches reports whether v currently holds this variant.
	Matches(v *T) bool
}

type caseOf[T any] struct {
	Codec[T]
	match func(*T) bool
}

func (c caseOf[T]) Matches(v *T) bool { return c.match(v) }

// Variant is the case of an interface-typed union U whose dynamic value is a
// V. It panics if V does not implement U.
func Variant[U, V any](payload Codec[V]) Case[U] {
	var zero V
	if _, ok := any(zero).(U); !ok {
		panic(fmt.Sprintf("stepwire: %T does not implement %T", zero, (*U)(nil)))
	}
	return caseOf[U]{
		Codec: &variantCodec[U, V]{
			payload: payload,
			dec:     project(payload, nil, func(v V) U { return any(v).(U) }),
		},
		match: func(u *U) bool {
			_, ok := any(*u).(V)
			return ok
		},
	}
}

// variantCodec encodes the V held by a U. The encoder keeps its own copy of
// the V so every poll sees the same pointer.
type variantCodec[U, V any] struct {
	payload Codec[V]
	dec     Codec[U]
}

type variantEncoder[U, V any] struct {
	v     V
	inner Encoder[V]
}

func (c *variantCodec[U, V]) NewEncoder(f Format, data *U) Encoder[U] {
	v, ok := any(*data).(V)
	if !ok {
		return failedEncoder[U]{err: f.InvalidInput("variant changed during encode")}
	}
	e := &variantEncoder[U, V]{v: v}
	e.inner = c.payload.NewEncoder(f, &e.v)
	return e
}

func (c *variantCodec[U, V]) StartEncode(f Format, w Sink, data *U, cx *Context) Start[Unit, Encoder[U]] {
	v, ok := any(*data).(V)
	if !ok {
		return StartFail[Unit, Encoder[U]](f.InvalidInput("variant changed during encode"))
	}
	e := &variantEncoder[U, V]{v: v}
	s := c.payload.StartEncode(f, w, &e.v, cx)
	if s.State == Suspended {
		e.inner = s.Cont
		return StartSuspend[Unit](Encoder[U](e))
	}
	return settle[Unit, Encoder[V], Encoder[U]](s)
}

func (e *variantEncoder[U, V]) PollEncode(f Format, w Sink, _ *U, cx *Context) Poll[Unit] {
	return e.inner.PollEncode(f, w, &e.v, cx)
}

func (c *variantCodec[U, V]) NewDecoder(f Format) Decoder[U] { return c.dec.NewDecoder(f) }

func (c *variantCodec[U, V]) StartDecode(f Format, r Source, cx *Context) Start[U, Decoder[U]] {
	return c.dec.StartDecode(f, r, cx)
}

// Union encodes a discriminant, the index of the first matching case, and
// then that case's payload. An unknown discriminant decodes as invalid
// data.
func Union[T any](cases ...Case[T]) Codec[T] {
	if len(cases) == 0 {
		panic("stepwire: union without cases")
	}
	return &unionCodec[T]{cases: cases}
}

type unionCodec[T any] struct {
	cases []Case[T]
}

func (c *unionCodec[T]) which(v *T) (Discriminant, bool) {
	for i, cs := range c.cases {
		if cs.Matches(v) {
			return Discriminant(i), true
		}
	}
	return 0, false
}

const (
	unionTag = iota
	unionBody
	unionDone
)

type unionEncoder[T any] struct {
	c      *unionCodec[T]
	step   int
	tag    Discriminant
	tagEnc Encoder[Discriminant]
	body   Encoder[T]
}

func (c *unionCodec[T]) NewEncoder(f Format, data *T) Encoder[T] {
	tag, ok := c.which(data)
	if !ok {
		return failedEncoder[T]{err: f.InvalidInput("no variant matches")}
	}
	e := &unionEncoder[T]{c: c, tag: tag}
	e.tagEnc = f.Discriminant().NewEncoder(f, &e.tag)
	return e
}

func (c *unionCodec[T]) StartEncode(f Format, w Sink, data *T, cx *Context) Start[Unit, Encoder[T]] {
	tag, ok := c.which(data)
	if !ok {
		return StartFail[Unit, Encoder[T]](f.InvalidInput("no variant matches"))
	}
	s := f.Discriminant().StartEncode(f, w, &tag, cx)
	switch s.State {
	case Complete:
		b := c.cases[tag].StartEncode(f, w, data, cx)
		if b.State == Suspended {
			return StartSuspend[Unit](Encoder[T](&unionEncoder[T]{c: c, step: unionBody, tag: tag, body: b.Cont}))
		}
		return b
	case Suspended:
		return StartSuspend[Unit](Encoder[T](&unionEncoder[T]{c: c, step: unionTag, tag: tag, tagEnc: s.Cont}))
	default:
		return StartFail[Unit, Encoder[T]](s.Err)
	}
}

func (e *unionEncoder[T]) PollEncode(f Format, w Sink, data *T, cx *Context) Poll[Unit] {
	if e.step == unionDone {
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
	if tag, ok := e.c.which(data); !ok || tag != e.tag {
		e.step = unionDone
		return PollFail[Unit](f.InvalidInput("variant changed during encode"))
	}
	if e.step == unionTag {
		p := e.tagEnc.PollEncode(f, w, &e.tag, cx)
		if p.State != Complete {
			if p.State == Failed {
				e.step = unionDone
			}
			return p
		}
		b := e.c.cases[e.tag].StartEncode(f, w, data, cx)
		if b.State == Suspended {
			e.step, e.tagEnc, e.body = unionBody, nil, b.Cont
			return PollSuspend[Unit]()
		}
		e.step = unionDone
		return Forget(b)
	}
	p := e.body.PollEncode(f, w, data, cx)
	if p.Done() {
		e.step = unionDone
	}
	return p
}

type unionDecoder[T any] struct {
	c      *unionCodec[T]
	step   int
	tagDec Decoder[Discriminant]
	body   Decoder[T]
}

func (c *unionCodec[T]) NewDecoder(f Format) Decoder[T] {
	return &unionDecoder[T]{c: c, tagDec: f.Discriminant().NewDecoder(f)}
}

func (c *unionCodec[T]) StartDecode(f Format, r Source, cx *Context) Start[T, Decoder[T]] {
	s := f.Discriminant().StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		b := c.startBody(f, r, s.Value, cx)
		if b.State == Suspended {
			return StartSuspend[T](Decoder[T](&unionDecoder[T]{c: c, step: unionBody, body: b.Cont}))
		}
		return b
	case Suspended:
		return StartSuspend[T](Decoder[T](&unionDecoder[T]{c: c, step: unionTag, tagDec: s.Cont}))
	default:
		return StartFail[T, Decoder[T]](s.Err)
	}
}

func (c *unionCodec[T]) startBody(f Format, r Source, tag Discriminant, cx *Context) Start[T, Decoder[T]] {
	if tag < 0 || int(tag) >= len(c.cases) {
		return StartFail[T, Decoder[T]](f.InvalidData("discriminant"))
	}
	return c.cases[tag].StartDecode(f, r, cx)
}

func (d *unionDecoder[T]) PollDecode(f Format, r Source, cx *Context) Poll[T] {
	switch d.step {
	case unionTag:
		p := d.tagDec.PollDecode(f, r, cx)
		switch p.State {
		case Suspended:
			return PollSuspend[T]()
		case Failed:
			d.step = unionDone
			return PollFail[T](p.Err)
		}
		b := d.c.startBody(f, r, p.Value, cx)
		if b.State == Suspended {
			d.step, d.tagDec, d.body = unionBody, nil, b.Cont
			return PollSuspend[T]()
		}
		d.step = unionDone
		return Forget(b)
	case unionBody:
		p := d.body.PollDecode(f, r, cx)
		if p.Done() {
			d.step = unionDone
		}
		return p
	default:
		return PollFail[T](f.InvalidInput("poll after finish"))
	}
}

// Optional is a value that may be absent.
type Optional[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Valid: true} }

func None[T any]() Optional[T] { return Optional[T]{} }

func (o Optional[T]) Get() (T, bool) { return o.Value, o.Valid }

// Option encodes discriminant 0 and a unit for an absent value, and 1
// followed by the value otherwise.
func Option[T any](elem Codec[T]) Codec[Optional[T]] {
	return Union(
		Case[Optional[T]](caseOf[Optional[T]]{
			Codec: Empty[Optional[T]](),
			match: func(o *Optional[T]) bool { return !o.Valid },
		}),
		Case[Optional[T]](caseOf[Optional[T]]{
			Codec: project(elem, func(o *Optional[T]) *T { return &o.Value }, Some[T]),
			match: func(o *Optional[T]) bool { return o.Valid },
		}),
	)
}

// Nullable is Option for pointers: nil is absent.
func Nullable[T any](elem Codec[T]) Codec[*T] {
	return Union(
		Case[*T](caseOf[*T]{
			Codec: Empty[*T](),
			match: func(p **T) bool { return *p == nil },
		}),
		Case[*T](caseOf[*T]{
			Codec: project(elem, func(p **T) *T { return *p }, func(v T) *T { return &v }),
			match: func(p **T) bool { return *p != nil },
		}),
	)
}

// Either holds a Left or, when IsRight is set, a Right.
type Either[L, R any] struct {
	Left    L
	Right   R
	IsRight bool
}

func Left[L, R any](v L) Either[L, R] { return Either[L, R]{Left: v} }

func Right[L, R any](v R) Either[L, R] { return Either[L, R]{Right: v, IsRight: true} }

// OneOf encodes discriminant 0 and the left value, or 1 and the right value.
func OneOf[L, R any](left Codec[L], right Codec[R]) Codec[Either[L, R]] {
	return Union(
		Case[Either[L, R]](caseOf[Either[L, R]]{
			Codec: project(left, func(e *Either[L, R]) *L { return &e.Left }, Left[L, R]),
			match: func(e *Either[L, R]) bool { return !e.IsRight },
		}),
		Case[Either[L, R]](caseOf[Either[L, R]]{
			Codec: project(right, func(e *Either[L, R]) *R { return &e.Right }, Right[L, R]),
			match: func(e *Either[L, R]) bool { return e.IsRight },
		}),
	)
}
