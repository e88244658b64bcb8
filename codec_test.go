package stepwire_test

import (
	"io"
	"math"
	"testing"
	"testing/quick"

	"github.com/rawbytedev/stepwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSomeUint16Layout(t *testing.T) {
	c := stepwire.Option(stepwire.Uint16())
	data, got := roundTrip(t, le, c, stepwire.Some(uint16(5)))
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x05, 0x00}, data)
	v, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, uint16(5), v)

	data, got = roundTrip(t, le, c, stepwire.None[uint16]())
	assert.Equal(t, []byte{0, 0, 0, 0}, data)
	assert.False(t, got.Valid)
}

func TestSequenceByteCounts(t *testing.T) {
	c := stepwire.Slice(stepwire.Uint64())
	data, got := roundTrip(t, le, c, []uint64{})
	require.Equal(t, make([]byte, 8), data)
	require.NotNil(t, got)
	assert.Empty(t, got)

	data, _ = roundTrip(t, le, c, []uint64{42})
	assert.Len(t, data, 16)

	data, _ = roundTrip(t, le, stepwire.Option(stepwire.Uint64()), stepwire.Some(uint64(1)))
	assert.Len(t, data, 4+8)
}

type scalars struct {
	B   bool
	I8  int8
	I16 int16
	I32 int32
	I64 int64
	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	F32 float32
	F64 float64
	N   int
	U   uint
	S   string
	Raw []byte
}

func TestScalarsRoundTrip(t *testing.T) {
	c := stepwire.MustDerive[scalars]()
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			condition := func(v scalars) bool {
				_, got := roundTrip(t, f, c, v)
				return assert.ObjectsAreEqual(v, got)
			}
			err := quick.Check(condition, &quick.Config{MaxCount: 50})
			if err != nil {
				t.Errorf("Error: %v", err)
			}
		})
	}
}

func TestFloatSpecials(t *testing.T) {
	for _, v := range []float64{0, math.Copysign(0, -1), math.Inf(1), math.Inf(-1), math.MaxFloat64, math.SmallestNonzeroFloat64} {
		_, got := roundTrip(t, le, stepwire.Float64(), v)
		assert.Equal(t, math.Float64bits(v), math.Float64bits(got))
	}
	data, err := stepwire.Marshal(le, stepwire.Float64(), math.NaN())
	require.NoError(t, err)
	got, err := stepwire.Unmarshal(le, stepwire.Float64(), data)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestCharValidation(t *testing.T) {
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			_, got := roundTrip(t, f, stepwire.Char(), 'é')
			assert.Equal(t, 'é', got)

			// a surrogate is not a Unicode scalar value
			bad, err := stepwire.Marshal(f, stepwire.Uint32(), uint32(0xD800))
			require.NoError(t, err)
			_, err = stepwire.Unmarshal(f, stepwire.Char(), bad)
			assert.ErrorIs(t, err, stepwire.ErrInvalidData)
		})
	}
}

func TestBoolValidation(t *testing.T) {
	_, err := stepwire.Unmarshal(le, stepwire.Bool(), []byte{2})
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

func TestInvalidUTF8(t *testing.T) {
	bad, err := stepwire.Marshal(le, stepwire.Bytes(), []byte{0xff, 0xfe})
	require.NoError(t, err)
	_, err = stepwire.Unmarshal(le, stepwire.String(), bad)
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
	assert.ErrorIs(t, err, &stepwire.Error{Kind: stepwire.KindInvalidData, Op: "utf8"})

	_, err = trickleDecode(t, le, stepwire.String(), bad)
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

func TestEmptyStringAndBytes(t *testing.T) {
	_, s := roundTrip(t, le, stepwire.String(), "")
	assert.Equal(t, "", s)
	_, b := roundTrip(t, le, stepwire.Bytes(), []byte{})
	assert.NotNil(t, b)
	assert.Empty(t, b)
}

func TestDiscriminantOutOfRange(t *testing.T) {
	c := stepwire.Option(stepwire.Uint16())
	for name, f := range formats {
		t.Run(name, func(t *testing.T) {
			tag, err := stepwire.Marshal(f, stepwire.Tag(), stepwire.Discriminant(2))
			require.NoError(t, err)
			data := append(tag, 5, 0)
			require.NotPanics(t, func() {
				_, err = stepwire.Unmarshal(f, c, data)
			})
			assert.ErrorIs(t, err, stepwire.ErrInvalidData)
			assert.ErrorIs(t, err, &stepwire.Error{Kind: stepwire.KindInvalidData, Op: "discriminant"})

			_, err = trickleDecode(t, f, c, data)
			assert.ErrorIs(t, err, stepwire.ErrInvalidData)
		})
	}
}

func TestTruncatedInput(t *testing.T) {
	c := stepwire.Slice(stepwire.String())
	data, err := stepwire.Marshal(le, c, []string{"alpha", "beta"})
	require.NoError(t, err)
	for n := 0; n < len(data); n++ {
		_, err := stepwire.Unmarshal(le, c, data[:n])
		require.ErrorIs(t, err, stepwire.ErrInvalidData, "prefix %d", n)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, "prefix %d", n)
	}
}

func TestTrailingBytes(t *testing.T) {
	_, err := stepwire.Unmarshal(le, stepwire.Uint8(), []byte{1, 2})
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

func TestHostileLength(t *testing.T) {
	// claims 2^40 items but carries none
	data := []byte{0, 0, 0, 0, 0, 1, 0, 0}
	_, err := stepwire.Unmarshal(le, stepwire.Slice(stepwire.Uint64()), data)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	_, err = stepwire.Unmarshal(le, stepwire.Bytes(), data)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// above MaxInt is not a length at all
	_, err = stepwire.Unmarshal(le, stepwire.Bytes(), []byte{0, 0, 0, 0, 0, 0, 0, 0x80})
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

func TestConvertRange(t *testing.T) {
	small := stepwire.Convert(stepwire.Uint16(),
		func(v uint8) uint16 { return uint16(v) },
		func(w uint16) (uint8, bool) { return uint8(w), w <= math.MaxUint8 },
	)
	_, got := roundTrip(t, le, small, uint8(200))
	assert.Equal(t, uint8(200), got)

	data, err := stepwire.Marshal(le, stepwire.Uint16(), uint16(300))
	require.NoError(t, err)
	_, err = stepwire.Unmarshal(le, small, data)
	assert.ErrorIs(t, err, stepwire.ErrInvalidData)
}

func TestIdempotentFailure(t *testing.T) {
	f := le
	c := stepwire.Slice(stepwire.Uint32())
	r := stepwire.BytesSource([]byte{1, 0, 0, 0, 0, 0, 0, 0, 9})
	d := c.NewDecoder(f)
	p := d.PollDecode(f, r, nil)
	require.Equal(t, stepwire.Failed, p.State)
	for range 3 {
		p = d.PollDecode(f, r, nil)
		require.Equal(t, stepwire.Failed, p.State)
		assert.ErrorIs(t, p.Err, stepwire.ErrInvalidInput)
	}
}

func TestPollAfterComplete(t *testing.T) {
	v := []uint16{1, 2}
	c := stepwire.Slice(stepwire.Uint16())
	w := stepwire.WriterSink(io.Discard)
	e := c.NewEncoder(le, &v)
	require.Equal(t, stepwire.Complete, e.PollEncode(le, w, &v, nil).State)
	p := e.PollEncode(le, w, &v, nil)
	require.Equal(t, stepwire.Failed, p.State)
	assert.ErrorIs(t, p.Err, stepwire.ErrInvalidInput)

	d := c.NewDecoder(le)
	r := stepwire.BytesSource([]byte{2, 0, 0, 0, 0, 0, 0, 0, 1, 0, 2, 0})
	got := d.PollDecode(le, r, nil)
	require.Equal(t, stepwire.Complete, got.State)
	assert.Equal(t, v, got.Value)
	assert.ErrorIs(t, d.PollDecode(le, r, nil).Err, stepwire.ErrInvalidInput)
}

func TestStartMatchesInitThenPoll(t *testing.T) {
	c := stepwire.Map(stepwire.String(), stepwire.Option(stepwire.Int32()))
	v := map[string]stepwire.Optional[int32]{"a": stepwire.Some(int32(-1)), "b": stepwire.None[int32]()}

	viaStart, err := stepwire.Marshal(le, c, v)
	require.NoError(t, err)

	sink := &collect{}
	e := c.NewEncoder(le, &v)
	require.Equal(t, stepwire.Complete, e.PollEncode(le, sink, &v, nil).State)
	assert.Equal(t, viaStart, sink.b)
}

type collect struct{ b []byte }

func (c *collect) TryWrite(_ *stepwire.Context, p []byte) (int, error) {
	c.b = append(c.b, p...)
	return len(p), nil
}
func (c *collect) TryFlush(*stepwire.Context) error { return nil }
func (c *collect) TryClose(*stepwire.Context) error { return nil }

func FuzzDecodeNeverPanics(f *testing.F) {
	c := stepwire.Slice(stepwire.PairOf(stepwire.String(), stepwire.Option(stepwire.Char())))
	seed, _ := stepwire.Marshal(le, c, []stepwire.Pair[string, stepwire.Optional[rune]]{
		{First: "x", Second: stepwire.Some('y')},
	})
	f.Add(seed)
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		for name, fm := range formats {
			v, err := stepwire.Unmarshal(fm, c, data)
			if err != nil {
				require.NotEmpty(t, stepwire.KindOf(err))
				continue
			}
			if name != "lefixed" {
				// varints have more than one spelling
				continue
			}
			again, err := stepwire.Marshal(fm, c, v)
			require.NoError(t, err)
			require.Equal(t, data, again)
		}
	})
}
