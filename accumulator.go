package nnue

import "github.com/quietmove/nnue/simd"

// Accumulator holds the perspective-paired output of the feature
// transformer for one position: acc[c] = bias + Σ columns of the
// active features seen from perspective c.
type Accumulator struct {
	values [2][]int16
}

// NewAccumulator allocates an accumulator of hidden width halfDims.
func NewAccumulator(halfDims int) *Accumulator {
	return &Accumulator{
		values: [2][]int16{
			make([]int16, halfDims),
			make([]int16, halfDims),
		},
	}
}

// Perspective returns the int16 vector of one perspective.
func (a *Accumulator) Perspective(c int) []int16 {
	return a.values[c]
}

// InitFromBias resets both perspectives to the transformer bias, the
// "no features active" state.
func (a *Accumulator) InitFromBias(t *Transformer) {
	simd.CopyInt16(a.values[0], t.Biases)
	simd.CopyInt16(a.values[1], t.Biases)
}

// CopyFrom copies both perspectives from another accumulator.
func (a *Accumulator) CopyFrom(other *Accumulator) {
	simd.CopyInt16(a.values[0], other.values[0])
	simd.CopyInt16(a.values[1], other.values[1])
}

// CopyPerspectiveFrom copies one perspective from another accumulator.
func (a *Accumulator) CopyPerspectiveFrom(c int, other *Accumulator) {
	simd.CopyInt16(a.values[c], other.values[c])
}
