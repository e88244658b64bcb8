package stepwire_test

import (
	"testing"

	"github.com/rawbytedev/stepwire"
	"github.com/rawbytedev/stepwire/format/lefixed"
	"github.com/rawbytedev/stepwire/format/varint"
	"github.com/rawbytedev/stepwire/pkg/memio"
	"github.com/stretchr/testify/require"
)

var (
	le = lefixed.Format{}
	vi = varint.Format{}

	formats = map[string]stepwire.Format{"lefixed": le, "varint": vi}
)

// trickleEncode encodes v through a sink that blocks before every byte.
func trickleEncode[T any](t testing.TB, f stepwire.Format, c stepwire.Codec[T], v T) ([]byte, error) {
	t.Helper()
	sink := memio.NewSliceSink(1 << 16)
	w := memio.TrickleSink(sink)
	cx := stepwire.NewContext(nil)
	s := c.StartEncode(f, w, &v, cx)
	if s.State != stepwire.Suspended {
		return sink.Bytes(), s.Err
	}
	for {
		p := s.Cont.PollEncode(f, w, &v, cx)
		if p.Done() {
			return sink.Bytes(), p.Err
		}
	}
}

// trickleDecode decodes data through a source that blocks before every
// byte.
func trickleDecode[T any](t testing.TB, f stepwire.Format, c stepwire.Codec[T], data []byte) (T, error) {
	t.Helper()
	r := memio.TrickleSource(memio.NewSliceSource(data))
	cx := stepwire.NewContext(nil)
	s := c.StartDecode(f, r, cx)
	if s.State != stepwire.Suspended {
		return s.Value, s.Err
	}
	for {
		p := s.Cont.PollDecode(f, r, cx)
		if p.Done() {
			return p.Value, p.Err
		}
	}
}

// roundTrip checks that a blocking and a trickling transfer agree byte for
// byte, and returns the encoding and both decoded values.
func roundTrip[T any](t testing.TB, f stepwire.Format, c stepwire.Codec[T], v T) ([]byte, T) {
	t.Helper()
	data, err := stepwire.Marshal(f, c, v)
	require.NoError(t, err)
	slow, err := trickleEncode(t, f, c, v)
	require.NoError(t, err)
	require.Equal(t, data, slow, "suspension must not change the bytes")

	got, err := stepwire.Unmarshal(f, c, data)
	require.NoError(t, err)
	gotSlow, err := trickleDecode(t, f, c, data)
	require.NoError(t, err)
	require.Equal(t, got, gotSlow)
	return data, got
}

// wideUnit is lefixed with a one byte unit, so unit payloads show up in
// the output.
type wideUnit struct{ lefixed.Format }

var wideUnitCodec = stepwire.Fixed("unit", 1,
	func(b []byte, _ stepwire.Unit) { b[0] = 0xee },
	func(b []byte) (stepwire.Unit, bool) { return stepwire.Unit{}, b[0] == 0xee })

func (wideUnit) Unit() stepwire.Codec[stepwire.Unit] { return wideUnitCodec }

// pinned records the data pointer of every encode call. Its start always
// suspends once so a poll follows.
type pinned[T any] struct{ seen *[]any }

type pinnedEncoder[T any] struct{ c pinned[T] }

func (c pinned[T]) NewEncoder(_ stepwire.Format, data *T) stepwire.Encoder[T] {
	*c.seen = append(*c.seen, data)
	return pinnedEncoder[T]{c}
}

func (c pinned[T]) StartEncode(_ stepwire.Format, _ stepwire.Sink, data *T, cx *stepwire.Context) stepwire.Start[stepwire.Unit, stepwire.Encoder[T]] {
	*c.seen = append(*c.seen, data)
	cx.Wake()
	return stepwire.StartSuspend[stepwire.Unit](stepwire.Encoder[T](pinnedEncoder[T]{c}))
}

func (e pinnedEncoder[T]) PollEncode(_ stepwire.Format, _ stepwire.Sink, data *T, _ *stepwire.Context) stepwire.Poll[stepwire.Unit] {
	*e.c.seen = append(*e.c.seen, data)
	return stepwire.PollComplete(stepwire.Unit{})
}

type pinnedDecoder[T any] struct{}

func (pinnedDecoder[T]) PollDecode(f stepwire.Format, _ stepwire.Source, _ *stepwire.Context) stepwire.Poll[T] {
	return stepwire.PollFail[T](f.InvalidInput("encode only"))
}

func (pinned[T]) NewDecoder(stepwire.Format) stepwire.Decoder[T] { return pinnedDecoder[T]{} }

func (pinned[T]) StartDecode(f stepwire.Format, _ stepwire.Source, _ *stepwire.Context) stepwire.Start[T, stepwire.Decoder[T]] {
	return stepwire.StartFail[T, stepwire.Decoder[T]](f.InvalidInput("encode only"))
}
