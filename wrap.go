package stepwire

import "sync/atomic"

// Box is the transparent codec of a pointer: the pointee is written as is.
// Encoding a nil pointer is invalid input; use Nullable for optional
// pointers.
func Box[T any](inner Codec[T]) Codec[*T] {
	return &boxCodec[T]{inner: inner, dec: project(inner, nil, box[T])}
}

type boxCodec[T any] struct {
	inner Codec[T]
	dec   Codec[*T]
}

type boxEncoder[T any] struct {
	inner Encoder[T]
}

func (c *boxCodec[T]) NewEncoder(f Format, data **T) Encoder[*T] {
	if *data == nil {
		return failedEncoder[*T]{err: f.InvalidInput("nil box")}
	}
	return &boxEncoder[T]{inner: c.inner.NewEncoder(f, *data)}
}

func (c *boxCodec[T]) StartEncode(f Format, w Sink, data **T, cx *Context) Start[Unit, Encoder[*T]] {
	if *data == nil {
		return StartFail[Unit, Encoder[*T]](f.InvalidInput("nil box"))
	}
	s := c.inner.StartEncode(f, w, *data, cx)
	if s.State == Suspended {
		return StartSuspend[Unit](Encoder[*T](&boxEncoder[T]{inner: s.Cont}))
	}
	return settle[Unit, Encoder[T], Encoder[*T]](s)
}

func (e *boxEncoder[T]) PollEncode(f Format, w Sink, data **T, cx *Context) Poll[Unit] {
	if *data == nil {
		return PollFail[Unit](f.InvalidInput("nil box"))
	}
	return e.inner.PollEncode(f, w, *data, cx)
}

func (c *boxCodec[T]) NewDecoder(f Format) Decoder[*T] {
	return c.dec.NewDecoder(f)
}

func (c *boxCodec[T]) StartDecode(f Format, r Source, cx *Context) Start[*T, Decoder[*T]] {
	return c.dec.StartDecode(f, r, cx)
}

func box[T any](v T) *T { return &v }

// Cell holds a value shared between owners, with borrows checked at run
// time: any number of shared borrows, or one exclusive borrow.
type Cell[T any] struct {
	borrows atomic.Int32 // -1 while exclusively borrowed
	value   T
}

func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Ref is a live borrow of a Cell. It must be released exactly once.
type Ref[T any] struct {
	c   *Cell[T]
	mut bool
}

func (r Ref[T]) Value() *T { return &r.c.value }

func (r Ref[T]) Release() {
	if r.mut {
		r.c.borrows.Store(0)
		return
	}
	r.c.borrows.Add(-1)
}

// TryBorrow takes a shared borrow. It fails while an exclusive borrow is
// live.
func (c *Cell[T]) TryBorrow() (Ref[T], bool) {
	for {
		n := c.borrows.Load()
		if n < 0 {
			return Ref[T]{}, false
		}
		if c.borrows.CompareAndSwap(n, n+1) {
			return Ref[T]{c: c}, true
		}
	}
}

// TryBorrowMut takes the exclusive borrow. It fails while any borrow is
// live.
func (c *Cell[T]) TryBorrowMut() (Ref[T], bool) {
	if c.borrows.CompareAndSwap(0, -1) {
		return Ref[T]{c: c, mut: true}, true
	}
	return Ref[T]{}, false
}

// Guarded is the transparent codec of a Cell. Every encode step takes a
// shared borrow for its own duration only; if the cell is exclusively
// borrowed the step fails with invalid input instead of waiting.
func Guarded[T any](inner Codec[T]) Codec[*Cell[T]] {
	return &cellCodec[T]{inner: inner, dec: project(inner, nil, NewCell[T])}
}

type cellCodec[T any] struct {
	inner Codec[T]
	dec   Codec[*Cell[T]]
}

type cellEncoder[T any] struct {
	inner Encoder[T]
	done  bool
}

func (c *cellCodec[T]) NewEncoder(f Format, data **Cell[T]) Encoder[*Cell[T]] {
	if *data == nil {
		return failedEncoder[*Cell[T]]{err: f.InvalidInput("nil cell")}
	}
	ref, ok := (*data).TryBorrow()
	if !ok {
		return failedEncoder[*Cell[T]]{err: f.InvalidInput("cell is mutably borrowed")}
	}
	defer ref.Release()
	return &cellEncoder[T]{inner: c.inner.NewEncoder(f, ref.Value())}
}

func (c *cellCodec[T]) StartEncode(f Format, w Sink, data **Cell[T], cx *Context) Start[Unit, Encoder[*Cell[T]]] {
	if *data == nil {
		return StartFail[Unit, Encoder[*Cell[T]]](f.InvalidInput("nil cell"))
	}
	ref, ok := (*data).TryBorrow()
	if !ok {
		return StartFail[Unit, Encoder[*Cell[T]]](f.InvalidInput("cell is mutably borrowed"))
	}
	s := c.inner.StartEncode(f, w, ref.Value(), cx)
	ref.Release()
	if s.State == Suspended {
		return StartSuspend[Unit](Encoder[*Cell[T]](&cellEncoder[T]{inner: s.Cont}))
	}
	return settle[Unit, Encoder[T], Encoder[*Cell[T]]](s)
}

func (e *cellEncoder[T]) PollEncode(f Format, w Sink, data **Cell[T], cx *Context) Poll[Unit] {
	if e.done {
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
	if *data == nil {
		e.done = true
		return PollFail[Unit](f.InvalidInput("nil cell"))
	}
	ref, ok := (*data).TryBorrow()
	if !ok {
		e.done = true
		return PollFail[Unit](f.InvalidInput("cell is mutably borrowed"))
	}
	p := e.inner.PollEncode(f, w, ref.Value(), cx)
	ref.Release()
	e.done = p.Done()
	return p
}

func (c *cellCodec[T]) NewDecoder(f Format) Decoder[*Cell[T]] {
	return c.dec.NewDecoder(f)
}

func (c *cellCodec[T]) StartDecode(f Format, r Source, cx *Context) Start[*Cell[T], Decoder[*Cell[T]]] {
	return c.dec.StartDecode(f, r, cx)
}
