// Package simd provides the fixed-width integer lane operations the
// evaluator is built on. Every operation has well-defined scalar
// semantics; the portable implementations in this package are the
// bit-level reference. Accelerated variants (see kernels_amd64.go) must
// produce identical results lane for lane.
package simd

import "golang.org/x/exp/constraints"

// PackOrderSequential reports whether PackUnsigned emits lanes in
// sequential order. Wide-vector pack instructions interleave 128-bit
// sublanes; the portable implementation does not. The network loader
// keys its weight permutation off this flag: when the pack order is
// sequential the permutation is the identity.
const PackOrderSequential = true

// Clamp returns min(max(v, lo), hi).
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MulHigh returns the high 16 bits of the 32-bit product a*b.
func MulHigh(a, b int16) int16 {
	return int16((int32(a) * int32(b)) >> 16)
}

// ShiftLeftMulHigh returns MulHigh(a<<k, b), with the shift wrapping in
// int16 like shift_left does. Exposed separately because vector hosts
// fuse the shift into the multiply.
func ShiftLeftMulHigh(a, b int16, k uint) int16 {
	return MulHigh(a<<k, b)
}

// Set1Int16 broadcasts v into every lane of dst.
func Set1Int16(dst []int16, v int16) {
	for i := range dst {
		dst[i] = v
	}
}

// MinInt16 computes dst[i] = min(dst[i], v).
func MinInt16(dst []int16, v int16) {
	for i := range dst {
		if dst[i] > v {
			dst[i] = v
		}
	}
}

// MaxInt16 computes dst[i] = max(dst[i], v).
func MaxInt16(dst []int16, v int16) {
	for i := range dst {
		if dst[i] < v {
			dst[i] = v
		}
	}
}

// ClampInt16 computes dst[i] = min(max(dst[i], lo), hi).
func ClampInt16(dst []int16, lo, hi int16) {
	for i := range dst {
		v := dst[i]
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		dst[i] = v
	}
}

// ShiftLeftInt16 computes dst[i] <<= k with wrapping int16 semantics.
func ShiftLeftInt16(dst []int16, k uint) {
	for i := range dst {
		dst[i] <<= k
	}
}

// MulLowInt16 computes dst[i] = low16(a[i] * b[i]).
func MulLowInt16(dst, a, b []int16) {
	for i := range dst {
		dst[i] = int16(int32(a[i]) * int32(b[i]))
	}
}

// MulHighInt16 computes dst[i] = high16(a[i] * b[i]).
func MulHighInt16(dst, a, b []int16) {
	for i := range dst {
		dst[i] = MulHigh(a[i], b[i])
	}
}

// ShiftLeftMulHighInt16 computes dst[i] = high16((a[i] << k) * b[i]).
func ShiftLeftMulHighInt16(dst, a, b []int16, k uint) {
	for i := range dst {
		dst[i] = ShiftLeftMulHigh(a[i], b[i], k)
	}
}

// PackUnsigned packs a then b into dst with unsigned saturation to
// [0, 255]. dst must have length len(a)+len(b). The portable lane order
// is sequential; see PackOrderSequential.
func PackUnsigned(dst []uint8, a, b []int16) {
	n := len(a)
	for i, v := range a {
		dst[i] = satU8(v)
	}
	for i, v := range b {
		dst[n+i] = satU8(v)
	}
}

func satU8(v int16) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Dpbusd accumulates sum[j] += Σ_{k<4} u[4j+k] * s[4j+k], with u
// treated as unsigned bytes and s as signed bytes. len(u) and len(s)
// must equal 4*len(sum).
func Dpbusd(sum []int32, u []uint8, s []int8) {
	for j := range sum {
		base := 4 * j
		sum[j] += int32(u[base])*int32(s[base]) +
			int32(u[base+1])*int32(s[base+1]) +
			int32(u[base+2])*int32(s[base+2]) +
			int32(u[base+3])*int32(s[base+3])
	}
}

// Dpbusd1 accumulates a single int32 lane from one group of four
// unsigned/signed byte pairs.
func Dpbusd1(sum int32, u []uint8, s []int8) int32 {
	return sum + int32(u[0])*int32(s[0]) +
		int32(u[1])*int32(s[1]) +
		int32(u[2])*int32(s[2]) +
		int32(u[3])*int32(s[3])
}

// HorizontalSumInt32 reduces the int32 lanes of v to one scalar.
func HorizontalSumInt32(v []int32) int32 {
	var sum int32
	for _, x := range v {
		sum += x
	}
	return sum
}

// NonzeroMask returns one bit per uint8 lane of v, bit i set when
// v[i] != 0. v must hold at most 64 lanes.
func NonzeroMask(v []uint8) uint64 {
	var mask uint64
	for i, x := range v {
		if x != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// DotInt8Uint8 computes Σ weights[i]*inputs[i] over count lanes with
// int32 accumulation. The group-of-four accumulation order matches
// Dpbusd so both paths are bit-identical.
func DotInt8Uint8(weights []int8, inputs []uint8, count int) int32 {
	var sum int32
	for i := 0; i < count; i++ {
		sum += int32(weights[i]) * int32(inputs[i])
	}
	return sum
}
