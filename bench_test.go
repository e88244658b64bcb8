package stepwire_test

import (
	"io"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/rawbytedev/stepwire"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type benchStruct struct {
	Val      []string
	Mod      []int8
	Integers []int16
	Float3   []float32
	Float6   []float64
}

type benchInts struct {
	Int1 uint8
	Int2 int8
	Int3 uint16
	Int4 int16
	Int5 uint32
	Int6 int32
	Int7 uint64
	Int9 int64
}

var (
	benchValue = benchStruct{
		Val: []string{"azerty", "hello", "world", "random"},
		Mod: []int8{12, 10, 13, 0}, Integers: []int16{100, 250, 300},
		Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5},
	}
	benchIntsValue = benchInts{Int1: 1, Int2: 2, Int3: 16, Int4: 18, Int5: 1586, Int6: 15262, Int7: 1547544565, Int9: 15484565656}
)

func BenchmarkZeroAllocs(b *testing.B) {
	c := stepwire.Int8()
	w := stepwire.WriterSink(io.Discard)
	v := int8(1)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.StartEncode(le, w, &v, nil)
	}
}

func BenchmarkEncoding(b *testing.B) {
	for name, f := range formats {
		b.Run(name, func(b *testing.B) {
			c := stepwire.MustDerive[benchStruct]()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = stepwire.Marshal(f, c, benchValue)
			}
		})
	}
}

func BenchmarkDecoding(b *testing.B) {
	for name, f := range formats {
		b.Run(name, func(b *testing.B) {
			c := stepwire.MustDerive[benchStruct]()
			res, err := stepwire.Marshal(f, c, benchValue)
			require.NoError(b, err)
			var y benchStruct
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				y, _ = stepwire.Unmarshal(f, c, res)
			}
			require.EqualValues(b, benchValue, y)
		})
	}
}

func BenchmarkTrickleEncoding(b *testing.B) {
	c := stepwire.MustDerive[benchStruct]()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = trickleEncode(b, le, c, benchValue)
	}
}

func BenchmarkInts(b *testing.B) {
	c := stepwire.MustDerive[benchInts]()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = stepwire.Marshal(vi, c, benchIntsValue)
	}
}

func BenchmarkYaml(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = yaml.Marshal(benchIntsValue)
	}
}

func BenchmarkCbor(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = cbor.Marshal(benchIntsValue)
	}
}
