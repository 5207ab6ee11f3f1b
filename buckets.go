package nnue

import (
	"fmt"
	"math/bits"

	"github.com/quietmove/nnue/features"
)

// OutputBuckets partitions positions by material so each class gets
// its own L1..L3 stack.
type OutputBuckets interface {
	// Count is the number of buckets O.
	Count() int

	// Select returns the bucket of pos, in [0, Count).
	Select(pos Position) int
}

// SingleOutputBucket uses one stack for everything.
type SingleOutputBucket struct{}

func (SingleOutputBucket) Count() int              { return 1 }
func (SingleOutputBucket) Select(pos Position) int { return 0 }

// MaterialBuckets divides by total piece count: bucket =
// (popcount(occupancy) - 2) / (32 / O). O must be a power of two in
// [1, 32] so the divisor is exact; Config.Validate rejects anything
// else.
type MaterialBuckets struct {
	O int
}

func (m MaterialBuckets) Count() int { return m.O }

func (m MaterialBuckets) validate() error {
	if m.O <= 0 || m.O > 32 || m.O&(m.O-1) != 0 {
		return fmt.Errorf("%w: material buckets O=%d not a power of two in [1,32]", ErrMalformed, m.O)
	}
	return nil
}

func (m MaterialBuckets) Select(pos Position) int {
	return (bits.OnesCount64(pos.Occupied()) - 2) / (32 / m.O)
}

// OppositeBishops distinguishes the drawish single-bishop endgames:
// bucket 1 when each side's only non-pawn material is one bishop and
// the two bishops live on opposite square colors.
type OppositeBishops struct{}

func (OppositeBishops) Count() int { return 2 }

const darkSquares uint64 = 0xAA55AA55AA55AA55

func (OppositeBishops) Select(pos Position) int {
	wb := pos.Bitboard(White, features.Bishop)
	bb := pos.Bitboard(Black, features.Bishop)
	if bits.OnesCount64(wb) != 1 || bits.OnesCount64(bb) != 1 {
		return 0
	}
	if NonPawnKing(pos, White) != wb || NonPawnKing(pos, Black) != bb {
		return 0
	}
	if (wb&darkSquares != 0) == (bb&darkSquares != 0) {
		return 0
	}
	return 1
}

// ProductBuckets composes two schemes into their Cartesian product;
// the indices multiply.
type ProductBuckets struct {
	A, B OutputBuckets
}

func (p ProductBuckets) Count() int { return p.A.Count() * p.B.Count() }

func (p ProductBuckets) Select(pos Position) int {
	return p.A.Select(pos)*p.B.Count() + p.B.Select(pos)
}

func (p ProductBuckets) validate() error {
	if p.A == nil || p.B == nil {
		return fmt.Errorf("%w: product bucketing with a nil factor", ErrMalformed)
	}
	if err := validateBuckets(p.A); err != nil {
		return err
	}
	return validateBuckets(p.B)
}

// validateBuckets runs a scheme's own parameter check when it has one.
func validateBuckets(o OutputBuckets) error {
	if v, ok := o.(interface{ validate() error }); ok {
		return v.validate()
	}
	return nil
}
