// I/O utilities for the quantised network binary format.

package common

import (
	"encoding/binary"
	"io"
)

// MaxSimdWidth is the widest vector register width in bytes the kernels
// are written for. Weight array paddings are multiples of this.
const MaxSimdWidth = 32

// CacheLineSize in bytes. Accumulator storage is sized in multiples of
// this so per-ply state never straddles lines unnecessarily.
const CacheLineSize = 64

// CeilToMultiple rounds n up to be a multiple of base.
func CeilToMultiple[T ~int | ~uint | ~int32 | ~uint32](n, base T) T {
	return (n + base - 1) / base * base
}

// ReadLittleEndian reads one integer from a little-endian stream.
func ReadLittleEndian[T int8 | uint8 | int16 | uint16 | int32 | uint32](r io.Reader) (T, error) {
	var result T
	err := binary.Read(r, binary.LittleEndian, &result)
	return result, err
}

// ReadLittleEndianSlice reads integers in bulk from a little-endian stream.
func ReadLittleEndianSlice[T int8 | uint8 | int16 | uint16 | int32 | uint32](r io.Reader, out []T) error {
	return binary.Read(r, binary.LittleEndian, out)
}

// WriteLittleEndian writes one integer to a stream in little-endian order.
func WriteLittleEndian[T int8 | uint8 | int16 | uint16 | int32 | uint32](w io.Writer, value T) error {
	return binary.Write(w, binary.LittleEndian, value)
}

// WriteLittleEndianSlice writes integers in bulk to a little-endian stream.
func WriteLittleEndianSlice[T int8 | uint8 | int16 | uint16 | int32 | uint32](w io.Writer, values []T) error {
	return binary.Write(w, binary.LittleEndian, values)
}
