package stepwire

import (
	"cmp"
	"slices"
)

// Entry is one key and value of an associative container.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Mapping is what Assoc needs from an associative container M.
type Mapping[M, K, V any] interface {
	New() M
	Reserve(m *M, n int)
	Insert(m *M, k K, v V)
	Len(m *M) int
	// Entries returns the entries in encoding order. An encoder takes it
	// once and resumes by index.
	Entries(m *M) []Entry[K, V]
}

// Assoc encodes the entry count, then each key followed by its value.
func Assoc[M, K, V any](ops Mapping[M, K, V], key Codec[K], val Codec[V]) Codec[M] {
	return &mapCodec[M, K, V]{ops: ops, key: key, val: val}
}

// Map is Assoc over a Go map, written in ascending key order. NaN keys sort
// first.
func Map[K cmp.Ordered, V any](key Codec[K], val Codec[V]) Codec[map[K]V] {
	return Assoc[map[K]V, K, V](goMap[K, V]{}, key, val)
}

type goMap[K cmp.Ordered, V any] struct{}

func (goMap[K, V]) New() map[K]V { return nil }

func (goMap[K, V]) Reserve(m *map[K]V, n int) {
	if *m == nil {
		*m = make(map[K]V, n)
	}
}

func (goMap[K, V]) Insert(m *map[K]V, k K, v V) { (*m)[k] = v }

func (goMap[K, V]) Len(m *map[K]V) int { return len(*m) }

// Entries ranges over the map instead of looking values up by key, which
// would miss NaN keys.
func (goMap[K, V]) Entries(m *map[K]V) []Entry[K, V] {
	if len(*m) == 0 {
		return nil
	}
	out := make([]Entry[K, V], 0, len(*m))
	for k, v := range *m {
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Entry[K, V]) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

type mapCodec[M, K, V any] struct {
	ops Mapping[M, K, V]
	key Codec[K]
	val Codec[V]
}

const (
	mapLen = iota
	mapKey
	mapVal
	mapDone
)

type mapEncoder[M, K, V any] struct {
	c      *mapCodec[M, K, V]
	step   int
	n      SeqLen
	idx    int
	snap   []Entry[K, V]
	lenEnc Encoder[SeqLen]
	keyEnc Encoder[K]
	valEnc Encoder[V]
}

func (c *mapCodec[M, K, V]) NewEncoder(f Format, data *M) Encoder[M] {
	e := &mapEncoder[M, K, V]{c: c, n: SeqLen(c.ops.Len(data)), snap: c.ops.Entries(data)}
	e.lenEnc = f.SeqLen().NewEncoder(f, &e.n)
	return e
}

func (c *mapCodec[M, K, V]) StartEncode(f Format, w Sink, data *M, cx *Context) Start[Unit, Encoder[M]] {
	n := SeqLen(c.ops.Len(data))
	s := f.SeqLen().StartEncode(f, w, &n, cx)
	switch s.State {
	case Complete:
		e := mapEncoder[M, K, V]{c: c, n: n, snap: c.ops.Entries(data)}
		p := e.entries(f, w, data, 0, cx)
		if p.State == Suspended {
			return StartSuspend[Unit](Encoder[M](&e))
		}
		return Lift[Unit, Encoder[M]](p, nil)
	case Suspended:
		return StartSuspend[Unit](Encoder[M](&mapEncoder[M, K, V]{c: c, n: n, snap: c.ops.Entries(data), lenEnc: s.Cont}))
	default:
		return StartFail[Unit, Encoder[M]](s.Err)
	}
}

func (e *mapEncoder[M, K, V]) fail(err error) Poll[Unit] {
	e.step, e.snap, e.keyEnc, e.valEnc = mapDone, nil, nil, nil
	return PollFail[Unit](err)
}

// entries encodes from entry i on, synchronously until a key or value
// suspends.
func (e *mapEncoder[M, K, V]) entries(f Format, w Sink, data *M, i int, cx *Context) Poll[Unit] {
	if e.c.ops.Len(data) != int(e.n) {
		return e.fail(f.InvalidInput("length changed during encode"))
	}
	if len(e.snap) != int(e.n) {
		return e.fail(f.InvalidInput("container yielded wrong entry count"))
	}
	for ; i < len(e.snap); i++ {
		ent := &e.snap[i]
		ks := e.c.key.StartEncode(f, w, &ent.Key, cx)
		switch ks.State {
		case Suspended:
			e.step, e.idx, e.keyEnc = mapKey, i, ks.Cont
			return PollSuspend[Unit]()
		case Failed:
			return e.fail(ks.Err)
		}
		vs := e.c.val.StartEncode(f, w, &ent.Value, cx)
		switch vs.State {
		case Suspended:
			e.step, e.idx, e.valEnc = mapVal, i, vs.Cont
			return PollSuspend[Unit]()
		case Failed:
			return e.fail(vs.Err)
		}
	}
	e.step, e.snap = mapDone, nil
	return PollComplete(Unit{})
}

func (e *mapEncoder[M, K, V]) PollEncode(f Format, w Sink, data *M, cx *Context) Poll[Unit] {
	switch e.step {
	case mapLen:
		p := e.lenEnc.PollEncode(f, w, &e.n, cx)
		switch p.State {
		case Complete:
			e.lenEnc = nil
			return e.entries(f, w, data, 0, cx)
		case Failed:
			e.step = mapDone
		}
		return p
	case mapKey:
		if e.c.ops.Len(data) != int(e.n) {
			return e.fail(f.InvalidInput("length changed during encode"))
		}
		ent := &e.snap[e.idx]
		p := e.keyEnc.PollEncode(f, w, &ent.Key, cx)
		switch p.State {
		case Suspended:
			return p
		case Failed:
			return e.fail(p.Err)
		}
		e.keyEnc = nil
		vs := e.c.val.StartEncode(f, w, &ent.Value, cx)
		switch vs.State {
		case Suspended:
			e.step, e.valEnc = mapVal, vs.Cont
			return PollSuspend[Unit]()
		case Failed:
			return e.fail(vs.Err)
		}
		return e.entries(f, w, data, e.idx+1, cx)
	case mapVal:
		if e.c.ops.Len(data) != int(e.n) {
			return e.fail(f.InvalidInput("length changed during encode"))
		}
		p := e.valEnc.PollEncode(f, w, &e.snap[e.idx].Value, cx)
		switch p.State {
		case Suspended:
			return p
		case Failed:
			return e.fail(p.Err)
		}
		e.valEnc = nil
		return e.entries(f, w, data, e.idx+1, cx)
	default:
		return PollFail[Unit](f.InvalidInput("poll after finish"))
	}
}

type mapDecoder[M, K, V any] struct {
	c      *mapCodec[M, K, V]
	step   int
	n      int // entries still to decode
	acc    M
	key    K // decoded key waiting for its value
	lenDec Decoder[SeqLen]
	keyDec Decoder[K]
	valDec Decoder[V]
}

func (c *mapCodec[M, K, V]) NewDecoder(f Format) Decoder[M] {
	return &mapDecoder[M, K, V]{c: c, lenDec: f.SeqLen().NewDecoder(f)}
}

func (c *mapCodec[M, K, V]) StartDecode(f Format, r Source, cx *Context) Start[M, Decoder[M]] {
	s := f.SeqLen().StartDecode(f, r, cx)
	switch s.State {
	case Complete:
		d := mapDecoder[M, K, V]{c: c}
		p := d.begin(f, r, s.Value, cx)
		if p.State == Suspended {
			return StartSuspend[M](Decoder[M](&d))
		}
		return Lift[M, Decoder[M]](p, nil)
	case Suspended:
		return StartSuspend[M](Decoder[M](&mapDecoder[M, K, V]{c: c, lenDec: s.Cont}))
	default:
		return StartFail[M, Decoder[M]](s.Err)
	}
}

func (d *mapDecoder[M, K, V]) fail(err error) Poll[M] {
	d.step = mapDone
	return PollFail[M](err)
}

func (d *mapDecoder[M, K, V]) begin(f Format, r Source, n SeqLen, cx *Context) Poll[M] {
	if n < 0 {
		return d.fail(f.InvalidData("negative length"))
	}
	d.n = int(n)
	d.acc = d.c.ops.New()
	d.c.ops.Reserve(&d.acc, min(d.n, maxReserve))
	return d.entries(f, r, cx)
}

// entries decodes the remaining entries. A key is kept until its value is
// complete, then the pair is inserted at once.
func (d *mapDecoder[M, K, V]) entries(f Format, r Source, cx *Context) Poll[M] {
	for d.n > 0 {
		ks := d.c.key.StartDecode(f, r, cx)
		switch ks.State {
		case Suspended:
			d.step, d.keyDec = mapKey, ks.Cont
			return PollSuspend[M]()
		case Failed:
			return d.fail(ks.Err)
		}
		if p := d.value(f, r, ks.Value, cx); p.State != Complete {
			return p
		}
	}
	d.step = mapDone
	acc := d.acc
	var zero M
	d.acc = zero
	return PollComplete(acc)
}

// value starts decoding the value for k. Complete means the pair was
// inserted and decoding can move on.
func (d *mapDecoder[M, K, V]) value(f Format, r Source, k K, cx *Context) Poll[M] {
	vs := d.c.val.StartDecode(f, r, cx)
	switch vs.State {
	case Suspended:
		d.step, d.key, d.valDec = mapVal, k, vs.Cont
		return PollSuspend[M]()
	case Failed:
		return d.fail(vs.Err)
	}
	d.c.ops.Insert(&d.acc, k, vs.Value)
	d.n--
	return PollComplete(d.acc)
}

func (d *mapDecoder[M, K, V]) PollDecode(f Format, r Source, cx *Context) Poll[M] {
	switch d.step {
	case mapLen:
		p := d.lenDec.PollDecode(f, r, cx)
		switch p.State {
		case Suspended:
			return PollSuspend[M]()
		case Failed:
			return d.fail(p.Err)
		}
		d.lenDec = nil
		return d.begin(f, r, p.Value, cx)
	case mapKey:
		p := d.keyDec.PollDecode(f, r, cx)
		switch p.State {
		case Suspended:
			return PollSuspend[M]()
		case Failed:
			return d.fail(p.Err)
		}
		d.keyDec = nil
		if vp := d.value(f, r, p.Value, cx); vp.State != Complete {
			return vp
		}
		return d.entries(f, r, cx)
	case mapVal:
		p := d.valDec.PollDecode(f, r, cx)
		switch p.State {
		case Suspended:
			return PollSuspend[M]()
		case Failed:
			return d.fail(p.Err)
		}
		d.valDec = nil
		d.c.ops.Insert(&d.acc, d.key, p.Value)
		var zero K
		d.key = zero
		d.n--
		return d.entries(f, r, cx)
	default:
		return PollFail[M](f.InvalidInput("poll after finish"))
	}
}
