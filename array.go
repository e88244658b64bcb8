package stepwire

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Array is the codec of a Go array type A with elements T, for example
// Array[[4]uint16](Uint16()). The length is static so no header is written.
func Array[A, T any](elem Codec[T]) Codec[A] {
	t := reflect.TypeFor[A]()
	if t.Kind() != reflect.Array || t.Elem() != reflect.TypeFor[T]() {
		panic(fmt.Sprintf("stepwire: %v is not an array of %v", t, reflect.TypeFor[T]()))
	}
	return &arrayCodec[A, T]{n: t.Len(), elem: elem}
}

type arrayCodec[A, T any] struct {
	n    int
	elem Codec[T]
}

// slots views the array as a slice without copying.
func (c *arrayCodec[A, T]) slots(a *A) []T {
	if c.n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(a)), c.n)
}

type arrayEncoder[A, T any] struct {
	c    *arrayCodec[A, T]
	idx  int
	cur  Encoder[T]
	done bool
}

func (c *arrayCodec[A, T]) NewEncoder(Format, *A) Encoder[A] {
	return &arrayEncoder[A, T]{c: c}
}

func (c *arrayCodec[A, T]) StartEncode(f Format, w Sink, data *A, cx *Context) Start[Unit, Encoder[A]] {
	e := arrayEncoder[A, T]{c: c}
	p := e.slots(f, w, data, 0, cx)
	if p.State == Suspended {
		return StartSuspend[Unit](Encoder[A](&e))
	}
	return Lift[Unit, Encoder[A]](p, nil)
}

func (e *arrayEncoder[A, T]) slots(f Format, w Sink, data *A, from int, cx *Context) Poll[Unit] {
	items := e.c.slots(data)
	for i := from; i < len(items); i++ {
		s := e.c.elem.StartEncode(f, w, &items[i], cx)
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

func (e *arrayEncoder[A, T]) PollEncode(f Format, w Sink, data *A, cx *Context) Poll[Unit] {
	if e.done {
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
	if e.cur == nil {
		return e.slots(f, w, data, 0, cx)
	}
	p := e.cur.PollEncode(f, w, &e.c.slots(data)[e.idx], cx)
	switch p.State {
	case Complete:
		e.cur = nil
		return e.slots(f, w, data, e.idx+1, cx)
	case Failed:
		e.done = true
	}
	return p
}

// arrayDecoder fills acc slot by slot. Slots below filled are known.
type arrayDecoder[A, T any] struct {
	c      *arrayCodec[A, T]
	acc    A
	filled int
	cur    Decoder[T]
	done   bool
}

func (c *arrayCodec[A, T]) NewDecoder(Format) Decoder[A] {
	return &arrayDecoder[A, T]{c: c}
}

func (c *arrayCodec[A, T]) StartDecode(f Format, r Source, cx *Context) Start[A, Decoder[A]] {
	d := arrayDecoder[A, T]{c: c}
	p := d.slots(f, r, cx)
	if p.State == Suspended {
		return StartSuspend[A](Decoder[A](&d))
	}
	return Lift[A, Decoder[A]](p, nil)
}

func (d *arrayDecoder[A, T]) slots(f Format, r Source, cx *Context) Poll[A] {
	items := d.c.slots(&d.acc)
	for d.filled < d.c.n {
		s := d.c.elem.StartDecode(f, r, cx)
		switch s.State {
		case Complete:
			items[d.filled] = s.Value
			d.filled++
		case Suspended:
			d.cur = s.Cont
			return PollSuspend[A]()
		default:
			d.done = true
			return PollFail[A](s.Err)
		}
	}
	d.done = true
	return PollComplete(d.acc)
}

func (d *arrayDecoder[A, T]) PollDecode(f Format, r Source, cx *Context) Poll[A] {
	if d.done {
		return PollFail[A](f.InvalidInput("poll after finish"))
	}
	if d.cur == nil {
		return d.slots(f, r, cx)
	}
	p := d.cur.PollDecode(f, r, cx)
	switch p.State {
	case Complete:
		d.cur = nil
		d.c.slots(&d.acc)[d.filled] = p.Value
		d.filled++
		return d.slots(f, r, cx)
	case Suspended:
		return PollSuspend[A]()
	default:
		d.done = true
		return PollFail[A](p.Err)
	}
}
