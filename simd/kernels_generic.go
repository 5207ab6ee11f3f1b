//go:build !goexperiment.simd || !amd64

// Scalar fallback for the accumulator kernels when vector support is
// not available. Results are bit-identical to the accelerated path.

package simd

// AddInt16 computes dst[i] += src[i] for all i.
func AddInt16(dst, src []int16) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// SubInt16 computes dst[i] -= src[i] for all i.
func SubInt16(dst, src []int16) {
	for i := range dst {
		dst[i] -= src[i]
	}
}

// CopyInt16 copies src into dst.
func CopyInt16(dst, src []int16) {
	copy(dst, src)
}

// AddInt32 computes dst[i] += src[i] for all i.
func AddInt32(dst, src []int32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// SubInt32 computes dst[i] -= src[i] for all i.
func SubInt32(dst, src []int32) {
	for i := range dst {
		dst[i] -= src[i]
	}
}
