//go:build goexperiment.simd && amd64

// Vector kernels for the accumulator hot path. Requires Go with
// GOEXPERIMENT=simd on AMD64. The remaining operations in ops.go stay
// scalar: the experimental package has no maddubs/pack equivalents yet.

package simd

import (
	"simd/archsimd"
)

const (
	// int16 lanes per 256-bit iteration
	int16Width = 16

	// int32 lanes per 256-bit iteration
	int32Width = 8
)

// AddInt16 computes dst[i] += src[i] for all i.
func AddInt16(dst, src []int16) {
	n := len(dst)
	i := 0
	for ; i+int16Width <= n; i += int16Width {
		d := archsimd.LoadInt16x16(dst[i:])
		s := archsimd.LoadInt16x16(src[i:])
		archsimd.StoreInt16x16(dst[i:], d.Add(s))
	}
	for ; i < n; i++ {
		dst[i] += src[i]
	}
}

// SubInt16 computes dst[i] -= src[i] for all i.
func SubInt16(dst, src []int16) {
	n := len(dst)
	i := 0
	for ; i+int16Width <= n; i += int16Width {
		d := archsimd.LoadInt16x16(dst[i:])
		s := archsimd.LoadInt16x16(src[i:])
		archsimd.StoreInt16x16(dst[i:], d.Sub(s))
	}
	for ; i < n; i++ {
		dst[i] -= src[i]
	}
}

// CopyInt16 copies src into dst.
func CopyInt16(dst, src []int16) {
	n := len(dst)
	if n > len(src) {
		n = len(src)
	}
	i := 0
	for ; i+int16Width <= n; i += int16Width {
		v := archsimd.LoadInt16x16(src[i:])
		archsimd.StoreInt16x16(dst[i:], v)
	}
	for ; i < n; i++ {
		dst[i] = src[i]
	}
}

// AddInt32 computes dst[i] += src[i] for all i.
func AddInt32(dst, src []int32) {
	n := len(dst)
	i := 0
	for ; i+int32Width <= n; i += int32Width {
		d := archsimd.LoadInt32x8(dst[i:])
		s := archsimd.LoadInt32x8(src[i:])
		archsimd.StoreInt32x8(dst[i:], d.Add(s))
	}
	for ; i < n; i++ {
		dst[i] += src[i]
	}
}

// SubInt32 computes dst[i] -= src[i] for all i.
func SubInt32(dst, src []int32) {
	n := len(dst)
	i := 0
	for ; i+int32Width <= n; i += int32Width {
		d := archsimd.LoadInt32x8(dst[i:])
		s := archsimd.LoadInt32x8(src[i:])
		archsimd.StoreInt32x8(dst[i:], d.Sub(s))
	}
	for ; i < n; i++ {
		dst[i] -= src[i]
	}
}
