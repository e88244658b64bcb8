package stepwire

import (
	"cmp"
	"container/list"
	"maps"
	"slices"
)

// maxReserve caps the capacity reserved from a decoded length, so a hostile
// length prefix cannot force a huge allocation before any item arrives.
const maxReserve = 4096

// Collection is what Seq needs from a sequence container S of T.
type Collection[S, T any] interface {
	New() S
	// Reserve is a capacity hint for n more items. It must leave *s usable
	// for Append even when *s was the zero S.
	Reserve(s *S, n int)
	Append(s *S, v T)
	Len(s *S) int
	// Items returns the items in encoding order. An encoder takes it once
	// and resumes by index, so it may share memory with *s.
	Items(s *S) []T
}

// Seq encodes the item count through the format's SeqLen codec, then every
// item in order.
func Seq[S, T any](ops Collection[S, T], elem Codec[T]) Codec[S] {
	return &seqCodec[S, T]{ops: ops, elem: elem}
}

// Slice is Seq over a slice. Decoded slices are never nil.
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return Seq[[]T, T](sliceOps[T]{}, elem)
}

// Set is Seq over a map used as a set. Items are written in ascending
// order so the output does not depend on map iteration.
func Set[T cmp.Ordered](elem Codec[T]) Codec[map[T]struct{}] {
	return Seq[map[T]struct{}, T](setOps[T]{}, elem)
}

// List is Seq over a container/list whose elements hold T values.
func List[T any](elem Codec[T]) Codec[*list.List] {
	return Seq[*list.List, T](listOps[T]{}, elem)
}

type sliceOps[T any] struct{}

func (sliceOps[T]) New() []T { return nil }

func (sliceOps[T]) Reserve(s *[]T, n int) {
	if *s == nil {
		*s = make([]T, 0, n)
		return
	}
	*s = slices.Grow(*s, n)
}

func (sliceOps[T]) Append(s *[]T, v T) { *s = append(*s, v) }

func (sliceOps[T]) Len(s *[]T) int { return len(*s) }

func (sliceOps[T]) Items(s *[]T) []T { return *s }

type setOps[T cmp.Ordered] struct{}

func (setOps[T]) New() map[T]struct{} { return nil }

func (setOps[T]) Reserve(s *map[T]struct{}, n int) {
	if *s == nil {
		*s = make(map[T]struct{}, n)
	}
}

func (setOps[T]) Append(s *map[T]struct{}, v T) { (*s)[v] = struct{}{} }

func (setOps[T]) Len(s *map[T]struct{}) int { return len(*s) }

func (setOps[T]) Items(s *map[T]struct{}) []T {
	if len(*s) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(*s))
}

type listOps[T any] struct{}

func (listOps[T]) New() *list.List { return list.New() }

func (listOps[T]) Reserve(s **list.List, _ int) {
	if *s == nil {
		*s = list.New()
	}
}

func (listOps[T]) Append(s **list.List, v T) { (*s).PushBack(v) }

func (listOps[T]) Len(s **list.List) int {
	if *s == nil {
		return 0
	}
	return (*s).Len()
}

// Items stops at the first element that does not hold a T; the encoder
// then reports a wrong item count.
func (listOps[T]) Items(s **list.List) []T {
	if *s == nil || (*s).Len() == 0 {
		return nil
	}
	out := make([]T, 0, (*s).Len())
	for e := (*s).Front(); e != nil; e = e.Next() {
		v, ok := e.Value.(T)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

type seqCodec[S, T any] struct {
	ops  Collection[S, T]
	elem Codec[T]
}

const (
	seqLen = iota
	seqItem
	seqDone
)

type seqEncoder[S, T any] struct {
	c      *seqCodec[S, T]
	step   int
	n      SeqLen
	idx    int
	snap   []T
	lenEnc Encoder[SeqLen]
	cur    Encoder[T]
}

func (c *seqCodec[S, T]) NewEncoder(f Format, data *S) Encoder[S] {
	e := &seqEncoder[S, T]{c: c, n: SeqLen(c.ops.Len(data)), snap: c.ops.Items(data)}
	e.lenEnc = f.SeqLen().NewEncoder(f, &e.n)
	return e
}

func (c *seqCodec[S, T]) StartEncode(f Format, w Sink, data *S, cx *Context) Start[Unit, Encoder[S]] {
	n := SeqLen(c.ops.Len(data))
	s := f.SeqLen().StartEncode(f, w, &n, cx)
	switch s.State {
	case Complete:
		e := seqEncoder[S, T]{c: c, n: n, snap: c.ops.Items(data)}
		p := e.items(f, w, data, 0, cx)
		if p.State == Suspended {
			return StartSuspend[Unit](Encoder[S](&e))
		}
		return Lift[Unit, Encoder[S]](p, nil)
	case Suspended:
		return StartSuspend[Unit](Encoder[S](&seqEncoder[S, T]{c: c, n: n, snap: c.ops.Items(data), lenEnc: s.Cont}))
	default:
		return StartFail[Unit, Encoder[S]](s.Err)
	}
}

func (e *seqEncoder[S, T]) fail(err error) Poll[Unit] {
	e.step, e.snap, e.cur = seqDone, nil, nil
	return PollFail[Unit](err)
}

// items encodes from index i on, synchronously until an item suspends.
func (e *seqEncoder[S, T]) items(f Format, w Sink, data *S, i int, cx *Context) Poll[Unit] {
	if e.c.ops.Len(data) != int(e.n) {
		return e.fail(f.InvalidInput("length changed during encode"))
	}
	if len(e.snap) != int(e.n) {
		return e.fail(f.InvalidInput("container yielded wrong item count"))
	}
	for ; i < len(e.snap); i++ {
		s := e.c.elem.StartEncode(f, w, &e.snap[i], cx)
		switch s.State {
		case Suspended:
			e.step, e.idx, e.cur = seqItem, i, s.Cont
			return PollSuspend[Unit]()
		case Failed:
			return e.fail(s.Err)
		}
	}
	e.step, e.snap = seqDone, nil
	return PollComplete(Unit{})
}

func (e *seqEncoder[S, T]) PollEncode(f Format, w Sink, data *S, cx *Context) Poll[Unit] {
	switch e.step {
	case seqLen:
		p := e.lenEnc.PollEncode(f, w, &e.n, cx)
		switch p.State {
		case Complete:
			e.lenEnc = nil
			return e.items(f, w, data, 0, cx)
		case Failed:
			e.step = seqDone
		}
		return p
	case seqItem:
		if e.c.ops.Len(data) != int(e.n) {
			return e.fail(f.InvalidInput("length changed during encode"))
		}
		p := e.cur.PollEncode(f, w, &e.snap[e.idx], cx)
		switch p.State {
		case Complete:
			e.cur = nil
			return e.items(f, w, data, e.idx+1, cx)
		case Failed:
			return e.fail(p.Err)
		}
		return p
	default:
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
}

type seqDecoder[S, T any] struct {
	c      *seqCodec[S, T]
	step   int
	n      int // items still to decode
	acc    S
	lenDec Decoder[SeqLen]
	cur    Decoder[T]
}

func (c *seqCodec[S, T]) NewDecoder(f Format) Decoder[S] {
	return &seqDecoder[S, T]{c: c, lenDec: f.SeqLen().NewDecoder(f)}
}

func (c *seqCodec[S, T]) StartDecode(f Format, r Source, cx *Context) Start[S, Decoder[S]] {
	s := f.SeqLen().StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		d := seqDecoder[S, T]{c: c}
		p := d.begin(f, r, s.Value, cx)
		if p.State == Suspended {
			return StartSuspend[S](Decoder[S](&d))
		}
		return Lift[S, Decoder[S]](p, nil)
	case Suspended:
		return StartSuspend[S](Decoder[S](&seqDecoder[S, T]{c: c, lenDec: s.Cont}))
	default:
		return StartFail[S, Decoder[S]](s.Err)
	}
}

func (d *seqDecoder[S, T]) begin(f Format, r Source, n SeqLen, cx *Context) Poll[S] {
	if n < 0 {
		d.step = seqDone
		return PollFail[S](f.InvalidData("negative length"))
	}
	d.n = int(n)
	d.acc = d.c.ops.New()
	d.c.ops.Reserve(&d.acc, min(d.n, maxReserve))
	return d.items(f, r, cx)
}

// items decodes the remaining items, synchronously until one suspends.
func (d *seqDecoder[S, T]) items(f Format, r Source, cx *Context) Poll[S] {
	for d.n > 0 {
		s := d.c.elem.StartDecode(f, r, cx)
		switch s.State {
		case Complete:
			d.c.ops.Append(&d.acc, s.Value)
			d.n--
		case Suspended:
			d.step, d.cur = seqItem, s.Cont
			return PollSuspend[S]()
		default:
			d.step = seqDone
			return PollFail[S](s.Err)
		}
	}
	return d.finish()
}

func (d *seqDecoder[S, T]) finish() Poll[S] {
	d.step = seqDone
	acc := d.acc
	var zero S
	d.acc = zero
	return PollComplete(acc)
}

func (d *seqDecoder[S, T]) PollDecode(f Format, r Source, cx *Context) Poll[S] {
	switch d.step {
	case seqLen:
		p := d.lenDec.PollDecode(f, r, cx)
		switch p.State {
		case Complete:
			d.lenDec = nil
			return d.begin(f, r, p.Value, cx)
		case Suspended:
			return PollSuspend[S]()
		default:
			d.step = seqDone
			return PollFail[S](p.Err)
		}
	case seqItem:
		p := d.cur.PollDecode(f, r, cx)
		switch p.State {
		case Complete:
			d.cur = nil
			d.c.ops.Append(&d.acc, p.Value)
			d.n--
			return d.items(f, r, cx)
		case Suspended:
			return PollSuspend[S]()
		default:
			d.step = seqDone
			return PollFail[S](p.Err)
		}
	default:
		return PollFail[S](f.InvalidInput("poll after finish"))
	}
}
