package stepwire_test

import (
	"container/list"
	"math"
	"testing"
	"testing/quick"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/pkg/memio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRoundTrip(t *testing.T) {
	c := stepwire.Map(stepwire.String(), stepwire.Slice(stepwire.Int16()))
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			condition := func(m map[string][]int16) bool {
				_, got := roundTrip(t, f, c, m)
				return assert.ObjectsAreEqual(m, got)
			}
			err := quick.Check(condition, &quick.Config{MaxCount: 30})
			if err != nil {
				t.Errorf("Error: %v", err)
			}
		})
	}
}

func TestMapSortedKeys(t *testing.T) {
	c := stepwire.Map(stepwire.Uint8(), stepwire.Uint8())
	data, _ := roundTrip(t, le, c, map[uint8]uint8{3: 30, 1: 10, 2: 20})
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, 1, 10, 2, 20, 3, 30}, data)
}

func TestMapDuplicateKeyKeepsLast(t *testing.T) {
	data := []byte{2, 0, 0, 0, 0, 0, 0, 0, 7, 1, 7, 2}
	got, err := stepwire.Unmarshal(le, stepwire.Map(stepwire.Uint8(), stepwire.Uint8()), data)
	require.NoError(t, err)
	assert.Equal(t, map[uint8]uint8{7: 2}, got)
}

func TestSetRoundTrip(t *testing.T) {
	c := stepwire.Set(stepwire.String())
	v := map[string]struct{}{"pear": {}, "apple": {}, "fig": {}}
	data, got := roundTrip(t, le, c, v)
	assert.Equal(t, v, got)

	again, err := stepwire.Marshal(le, c, map[string]struct{}{"fig": {}, "pear": {}, "apple": {}})
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestListRoundTrip(t *testing.T) {
	l := list.New()
	for _, v := range []int64{-3, 0, math.MaxInt64} {
		l.PushBack(v)
	}
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			_, got := roundTrip(t, f, stepwire.List[int64](stepwire.Int64()), l)
			require.Equal(t, 3, got.Len())
			var vals []int64
			for e := got.Front(); e != nil; e = e.Next() {
				vals = append(vals, e.Value.(int64))
			}
			assert.Equal(t, []int64{-3, 0, math.MaxInt64}, vals)
		})
	}
}

func TestArrayHasNoHeader(t *testing.T) {
	c := stepwire.Array[[3]uint16](stepwire.Uint16())
	data, got := roundTrip(t, le, c, [3]uint16{1, 2, 0xFFFF})
	assert.Equal(t, []byte{1, 0, 2, 0, 0xFF, 0xFF}, data)
	assert.Equal(t, [3]uint16{1, 2, 0xFFFF}, got)

	nested := stepwire.Array[[2][]string](stepwire.Slice(stepwire.String()))
	_, g := roundTrip(t, vi, nested, [2][]string{{"a", "bc"}, {}})
	assert.Equal(t, []string{"a", "bc"}, g[0])
	assert.Empty(t, g[1])
}

func TestArrayWrongElement(t *testing.T) {
	assert.Panics(t, func() { stepwire.Array[[2]uint16](stepwire.Uint32()) })
	assert.Panics(t, func() { stepwire.Array[[]uint16](stepwire.Uint16()) })
}

type shape interface{ area() float64 }

type circle struct{ R float64 }

type rect struct{ W, H float64 }

type point struct{}

func (c circle) area() float64 { return math.Pi * c.R * c.R }
func (r rect) area() float64   { return r.W * r.H }
func (point) area() float64    { return 0 }

var shapeCodec = stepwire.Union(
	stepwire.Variant[shape](stepwire.MustDerive[circle]()),
	stepwire.Variant[shape](stepwire.MustDerive[rect]()),
	stepwire.Variant[shape](stepwire.Struct[point]()),
)

func TestUnionRoundTrip(t *testing.T) {
	for _, s := range []shape{circle{R: 2}, rect{W: 3, H: 4}, point{}} {
		for name, f := range formats {
			t.Run(name, func(t *testing.T) {
				_, got := roundTrip(t, f, shapeCodec, s)
				assert.Equal(t, s, got)
			})
		}
	}
	data, _ := roundTrip(t, le, shapeCodec, shape(point{}))
	assert.Equal(t, []byte{2, 0, 0, 0}, data, "a zero-field case is one unit, zero bytes wide here")
}

type triangle struct{}

func (triangle) area() float64 { return 0 }

func TestUnionNoMatch(t *testing.T) {
	_, err := stepwire.Marshal(le, shapeCodec, shape(triangle{}))
	assert.ErrorIs(t, err, stepwire.ErrInvalidInput)
}

func TestVariantPanicsOnForeignType(t *testing.T) {
	assert.Panics(t, func() { stepwire.Variant[shape](stepwire.Uint8()) })
}

func TestVariantChangedDuringEncode(t *testing.T) {
	c := stepwire.Option(stepwire.Uint16())
	v := stepwire.Some(uint16(7))
	w := memio.TrickleSink(memio.NewSliceSink(64))
	s := c.StartEncode(le, w, &v, nil)
	require.Equal(t, stepwire.Suspended, s.State)

	v = stepwire.None[uint16]()
	p := s.Cont.PollEncode(le, w, &v, nil)
	require.Equal(t, stepwire.Failed, p.State)
	assert.ErrorIs(t, p.Err, stepwire.ErrInvalidInput)
	assert.ErrorIs(t, s.Cont.PollEncode(le, w, &v, nil).Err, stepwire.ErrInvalidInput)
}

func TestLengthChangedDuringEncode(t *testing.T) {
	c := stepwire.Slice(stepwire.Uint32())
	v := []uint32{1, 2, 3}
	w := memio.TrickleSink(memio.NewSliceSink(64))
	s := c.StartEncode(le, w, &v, nil)
	require.Equal(t, stepwire.Suspended, s.State)
	v = v[:1]
	var p stepwire.Poll[stepwire.Unit]
	for p = s.Cont.PollEncode(le, w, &v, nil); !p.Done(); p = s.Cont.PollEncode(le, w, &v, nil) {
	}
	assert.ErrorIs(t, p.Err, stepwire.ErrInvalidInput)
}

func TestEither(t *testing.T) {
	c := stepwire.OneOf(stepwire.String(), stepwire.Int32())
	data, got := roundTrip(t, le, c, stepwire.Left[string, int32]("oops"))
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, "oops", got.Left)
	assert.False(t, got.IsRight)

	_, got = roundTrip(t, vi, c, stepwire.Right[string](int32(-9)))
	assert.True(t, got.IsRight)
	assert.Equal(t, int32(-9), got.Right)
}

func TestNullable(t *testing.T) {
	c := stepwire.Nullable(stepwire.String())
	s := "here"
	_, got := roundTrip(t, le, c, &s)
	require.NotNil(t, got)
	assert.Equal(t, "here", *got)

	data, got := roundTrip(t, le, c, nil)
	assert.Nil(t, got)
	assert.Len(t, data, 4)
}

func TestEmptyShape(t *testing.T) {
	type nothing struct{}
	c := stepwire.Empty[nothing]()
	data, got := roundTrip(t, le, c, nothing{})
	assert.Empty(t, data)
	assert.Equal(t, nothing{}, got)

	s := stepwire.Struct[nothing]()
	data, _ = roundTrip(t, vi, s, nothing{})
	assert.Empty(t, data)
}

func TestPairAndStruct(t *testing.T) {
	type order struct {
		ID    uint64
		Lines []stepwire.Pair[string, uint16]
		Note  stepwire.Optional[string]
	}
	c := stepwire.Struct(
		stepwire.FieldOf(func(o *order) *uint64 { return &o.ID }, stepwire.Uint64()),
		stepwire.FieldOf(func(o *order) *[]stepwire.Pair[string, uint16] { return &o.Lines },
			stepwire.Slice(stepwire.PairOf(stepwire.String(), stepwire.Uint16()))),
		stepwire.FieldOf(func(o *order) *stepwire.Optional[string] { return &o.Note }, stepwire.Option(stepwire.String())),
	)
	v := order{
		ID:    77,
		Lines: []stepwire.Pair[string, uint16]{{First: "bolt", Second: 40}, {First: "nut", Second: 40}},
		Note:  stepwire.Some("fragile"),
	}
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			_, got := roundTrip(t, f, c, v)
			assert.Equal(t, v, got)
		})
	}
}

func TestBox(t *testing.T) {
	c := stepwire.Box(stepwire.Uint32())
	n := uint32(12)
	_, got := roundTrip(t, le, c, &n)
	assert.Equal(t, uint32(12), *got)
	assert.NotSame(t, &n, got)

	_, err := stepwire.Marshal(le, c, nil)
	assert.ErrorIs(t, err, stepwire.ErrInvalidInput)
}

func TestGuardedBorrowContract(t *testing.T) {
	c := stepwire.Guarded(stepwire.Uint32())
	cell := stepwire.NewCell(uint32(9))

	ref, ok := cell.TryBorrowMut()
	require.True(t, ok)
	_, err := stepwire.Marshal(le, c, cell)
	require.ErrorIs(t, err, stepwire.ErrInvalidInput)
	assert.Equal(t, uint32(9), *ref.Value(), "a failed encode leaves the value alone")
	*ref.Value() = 10
	ref.Release()

	_, got := roundTrip(t, le, c, cell)
	shared, ok := got.TryBorrow()
	require.True(t, ok)
	defer shared.Release()
	assert.Equal(t, uint32(10), *shared.Value())
}

func TestGuardedRevalidatesEveryPoll(t *testing.T) {
	c := stepwire.Guarded(stepwire.Uint32())
	cell := stepwire.NewCell(uint32(1))
	w := memio.TrickleSink(memio.NewSliceSink(8))
	s := c.StartEncode(le, w, &cell, nil)
	require.Equal(t, stepwire.Suspended, s.State)

	// no borrow is held while suspended
	ref, ok := cell.TryBorrowMut()
	require.True(t, ok)
	p := s.Cont.PollEncode(le, w, &cell, nil)
	require.Equal(t, stepwire.Failed, p.State)
	assert.ErrorIs(t, p.Err, stepwire.ErrInvalidInput)
	ref.Release()

	// with the borrow released a fresh encode goes through
	_, err := stepwire.Marshal(le, c, cell)
	assert.NoError(t, err)
}

func TestCellBorrowRules(t *testing.T) {
	cell := stepwire.NewCell("x")
	a, ok := cell.TryBorrow()
	require.True(t, ok)
	b, ok := cell.TryBorrow()
	require.True(t, ok)
	_, ok = cell.TryBorrowMut()
	assert.False(t, ok)
	a.Release()
	b.Release()
	m, ok := cell.TryBorrowMut()
	require.True(t, ok)
	_, ok = cell.TryBorrow()
	assert.False(t, ok)
	m.Release()
	_, ok = cell.TryBorrow()
	assert.True(t, ok)
}

func TestLargeMapAndSetUnderTrickle(t *testing.T) {
	const n = 3000
	m := make(map[uint64]uint64, n)
	set := make(map[uint32]struct{}, n)
	for i := range n {
		m[uint64(i)*7919] = uint64(i)
		set[uint32(i)*31] = struct{}{}
	}

	mc := stepwire.Map(stepwire.Uint64(), stepwire.Uint64())
	data, got := roundTrip(t, le, mc, m)
	assert.Len(t, data, 8+16*n)
	assert.Equal(t, m, got)

	sc := stepwire.Set(stepwire.Uint32())
	_, gotSet := roundTrip(t, vi, sc, set)
	assert.Equal(t, set, gotSet)

	// One snapshot per encode, then about one continuation per element.
	allocs := testing.AllocsPerRun(3, func() {
		_, err := trickleEncode(t, le, mc, m)
		require.NoError(t, err)
	})
	assert.Less(t, allocs, float64(8*n))
}

func TestMapNaNKey(t *testing.T) {
	c := stepwire.Map(stepwire.Float64(), stepwire.Uint8())
	m := map[float64]uint8{math.NaN(): 7, 1: 2}

	data, err := stepwire.Marshal(le, c, m)
	require.NoError(t, err)
	slow, err := trickleEncode(t, le, c, m)
	require.NoError(t, err)
	require.Equal(t, data, slow)
	// NaN sorts first, and its value travels with it.
	assert.Equal(t, byte(7), data[8+8])

	got, err := stepwire.Unmarshal(le, c, data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for k, v := range got {
		if math.IsNaN(k) {
			assert.Equal(t, uint8(7), v)
		} else {
			assert.Equal(t, uint8(2), got[1])
		}
	}
}

func TestUnitPayloadOfEmptyCases(t *testing.T) {
	f := wideUnit{}

	opt := stepwire.Option(stepwire.Uint16())
	data, got := roundTrip(t, f, opt, stepwire.None[uint16]())
	assert.Equal(t, []byte{0, 0, 0, 0, 0xee}, data)
	assert.False(t, got.Valid)
	data, _ = roundTrip(t, f, opt, stepwire.Some(uint16(5)))
	assert.Equal(t, []byte{1, 0, 0, 0, 5, 0}, data)

	data, ptr := roundTrip(t, f, stepwire.Nullable(stepwire.Uint8()), nil)
	assert.Equal(t, []byte{0, 0, 0, 0, 0xee}, data)
	assert.Nil(t, ptr)

	type nothing struct{}
	data, _ = roundTrip(t, f, stepwire.Empty[nothing](), nothing{})
	assert.Equal(t, []byte{0xee}, data)
	data, _ = roundTrip(t, f, stepwire.Struct[nothing](), nothing{})
	assert.Equal(t, []byte{0xee}, data)
	data, _ = roundTrip(t, f, shapeCodec, shape(point{}))
	assert.Equal(t, []byte{2, 0, 0, 0, 0xee}, data)

	_, err := stepwire.Unmarshal(f, opt, []byte{0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

type tick uint16

func (tick) area() float64 { return 0 }

func TestEncodersKeepDataPointer(t *testing.T) {
	var seen []any
	same := func(t *testing.T) {
		t.Helper()
		require.Len(t, seen, 2)
		assert.Same(t, seen[0], seen[1])
		seen = seen[:0]
	}

	conv := stepwire.Convert(pinned[uint16]{&seen},
		func(v uint8) uint16 { return uint16(v) },
		func(w uint16) (uint8, bool) { return uint8(w), true })
	_, err := stepwire.Marshal(le, conv, 3)
	require.NoError(t, err)
	same(t)

	u := stepwire.Union(stepwire.Variant[shape](stepwire.Codec[tick](pinned[tick]{&seen})))
	_, err = stepwire.Marshal(le, u, shape(tick(4)))
	require.NoError(t, err)
	same(t)

	m := stepwire.Map(stepwire.Uint8(), stepwire.Codec[uint8](pinned[uint8]{&seen}))
	_, err = stepwire.Marshal(le, m, map[uint8]uint8{1: 1})
	require.NoError(t, err)
	same(t)
}
