package common

import (
	"encoding/binary"
	"math"
	"reflect"
)

// MaxVarintLen64 is the longest varint encoding of a 64-bit value.
const MaxVarintLen64 = 10

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// PutUint writes the low len(b) bytes of x little-endian into b.
func PutUint(b []byte, x uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(x)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case 8:
		binary.LittleEndian.PutUint64(b, x)
	}
}

// Uint reads a little-endian unsigned integer of width len(b).
func Uint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		return 0
	}
}

// Int sign-extends a little-endian integer of width len(b).
func Int(b []byte) int64 {
	switch len(b) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case 8:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

func PutFloat32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }

func Float32(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }

func PutFloat64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }

func Float64(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }

// WriteVarUintTo appends varint-encoded x to dst using a small stack scratch.
func WriteVarUintTo(dst []byte, x uint64) []byte {
	var scratch [MaxVarintLen64]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// VarUint accumulates a varint one byte at a time, for decoders that may
// be interrupted between bytes.
type VarUint struct {
	X     uint64
	shift uint
	n     int
}

// Push adds c. It reports done once the final byte was seen, and ok=false
// for encodings longer than MaxVarintLen64 or overflowing 64 bits.
func (v *VarUint) Push(c byte) (done, ok bool) {
	if v.n == MaxVarintLen64-1 && c > 1 {
		return true, false
	}
	v.X |= uint64(c&0x7F) << v.shift
	v.shift += 7
	v.n++
	return c&0x80 == 0, true
}

// ZigZag maps signed values to unsigned so small magnitudes stay short.
func ZigZag(x int64) uint64 {
	return uint64(x<<1) ^ uint64(x>>63)
}

func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
