package stepwire

// projection encodes S through the codec of a part F of it and decodes by
// wrapping the decoded F back into an S.
type projection[S, F any] struct {
	inner Codec[F]
	get   func(*S) *F
	wrap  func(F) S
}

func project[S, F any](inner Codec[F], get func(*S) *F, wrap func(F) S) Codec[S] {
	return &projection[S, F]{inner: inner, get: get, wrap: wrap}
}

type projEncoder[S, F any] struct {
	get   func(*S) *F
	inner Encoder[F]
}

func (p *projection[S, F]) NewEncoder(f Format, data *S) Encoder[S] {
	return &projEncoder[S, F]{get: p.get, inner: p.inner.NewEncoder(f, p.get(data))}
}

func (p *projection[S, F]) StartEncode(f Format, w Sink, data *S, cx *Context) Start[Unit, Encoder[S]] {
	s := p.inner.StartEncode(f, w, p.get(data), cx)
	if s.State == Suspended {
		return StartSuspend[Unit](Encoder[S](&projEncoder[S, F]{get: p.get, inner: s.Cont}))
	}
	return settle[Unit, Encoder[F], Encoder[S]](s)
}

func (e *projEncoder[S, F]) PollEncode(f Format, w Sink, data *S, cx *Context) Poll[Unit] {
	return e.inner.PollEncode(f, w, e.get(data), cx)
}

type projDecoder[S, F any] struct {
	wrap  func(F) S
	inner Decoder[F]
}

func (p *projection[S, F]) NewDecoder(f Format) Decoder[S] {
	return &projDecoder[S, F]{wrap: p.wrap, inner: p.inner.NewDecoder(f)}
}

func (p *projection[S, F]) StartDecode(f Format, r Source, cx *Context) Start[S, Decoder[S]] {
	s := p.inner.StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		return StartComplete[S, Decoder[S]](p.wrap(s.Value))
	case Suspended:
		return StartSuspend[S](Decoder[S](&projDecoder[S, F]{wrap: p.wrap, inner: s.Cont}))
	default:
		return StartFail[S, Decoder[S]](s.Err)
	}
}

func (d *projDecoder[S, F]) PollDecode(f Format, r Source, cx *Context) Poll[S] {
	return MapPoll(d.inner.PollDecode(f, r, cx), d.wrap)
}

var unitValue Unit

// Empty is the codec of a zero-field shape. It writes exactly one unit so
// that every shape has a representation, and decodes to the zero T.
func Empty[T any]() Codec[T] {
	return project(UnitValue(), func(*T) *Unit { return &unitValue }, zeroOf[T])
}

func zeroOf[T any](Unit) T {
	var zero T
	return zero
}
