package nnue

import (
	"fmt"
	"io"

	"github.com/quietmove/nnue/common"
	"github.com/quietmove/nnue/simd"
)

// Transformer is the first, sparse layer. Weights are stored one
// column per feature index so updates touch contiguous memory.
type Transformer struct {
	HalfDimensions  int // H
	InputDimensions int // B * stride

	Weights []int16 // InputDimensions columns of HalfDimensions each
	Biases  []int16 // HalfDimensions
}

// NewTransformer allocates a transformer of the given shape.
func NewTransformer(halfDims, inputDims int) *Transformer {
	return &Transformer{
		HalfDimensions:  halfDims,
		InputDimensions: inputDims,
		Weights:         make([]int16, halfDims*inputDims),
		Biases:          make([]int16, halfDims),
	}
}

// Column returns the weight column of feature f.
func (t *Transformer) Column(f int) []int16 {
	off := f * t.HalfDimensions
	return t.Weights[off : off+t.HalfDimensions]
}

// ReadParameters reads the weight matrix then the biases.
func (t *Transformer) ReadParameters(r io.Reader) error {
	if err := common.ReadLittleEndianSlice(r, t.Weights); err != nil {
		return fmt.Errorf("ft weights: %w", err)
	}
	if err := common.ReadLittleEndianSlice(r, t.Biases); err != nil {
		return fmt.Errorf("ft biases: %w", err)
	}
	return nil
}

// WriteParameters writes the weight matrix then the biases.
func (t *Transformer) WriteParameters(w io.Writer) error {
	if err := common.WriteLittleEndianSlice(w, t.Weights); err != nil {
		return fmt.Errorf("ft weights: %w", err)
	}
	if err := common.WriteLittleEndianSlice(w, t.Biases); err != nil {
		return fmt.Errorf("ft biases: %w", err)
	}
	return nil
}

// ActivateFeature adds feature f's column to one perspective.
func (t *Transformer) ActivateFeature(acc []int16, f int) {
	simd.AddInt16(acc, t.Column(f))
}

// DeactivateFeature subtracts feature f's column from one perspective.
func (t *Transformer) DeactivateFeature(acc []int16, f int) {
	simd.SubInt16(acc, t.Column(f))
}

// SubAdd applies the common moving-piece update: one column out, one
// column in, fused into a single pass over the hidden width. int16
// lanes wrap, so the fused form is bit-identical to sequential
// activate/deactivate calls.
func (t *Transformer) SubAdd(acc []int16, fSub, fAdd int) {
	ws := t.Column(fSub)
	wa := t.Column(fAdd)
	for i := range acc {
		acc[i] += wa[i] - ws[i]
	}
}

// SubSubAdd applies a capture: mover out, victim out, mover in.
func (t *Transformer) SubSubAdd(acc []int16, fSub0, fSub1, fAdd int) {
	w0 := t.Column(fSub0)
	w1 := t.Column(fSub1)
	wa := t.Column(fAdd)
	for i := range acc {
		acc[i] += wa[i] - w0[i] - w1[i]
	}
}

// SubSubAddAdd applies castling: king and rook each relocate.
func (t *Transformer) SubSubAddAdd(acc []int16, fSub0, fSub1, fAdd0, fAdd1 int) {
	w0 := t.Column(fSub0)
	w1 := t.Column(fSub1)
	wa0 := t.Column(fAdd0)
	wa1 := t.Column(fAdd1)
	for i := range acc {
		acc[i] += wa0[i] + wa1[i] - w0[i] - w1[i]
	}
}

// AddSub undoes a SubAdd given the same feature pair, recovering the
// parent accumulator from the child exactly.
func (t *Transformer) AddSub(acc []int16, fSub, fAdd int) {
	t.SubAdd(acc, fAdd, fSub)
}

// AddAddSub undoes a SubSubAdd given the same features.
func (t *Transformer) AddAddSub(acc []int16, fSub0, fSub1, fAdd int) {
	w0 := t.Column(fSub0)
	w1 := t.Column(fSub1)
	wa := t.Column(fAdd)
	for i := range acc {
		acc[i] += w0[i] + w1[i] - wa[i]
	}
}

// AddAddSubSub undoes a SubSubAddAdd given the same features.
func (t *Transformer) AddAddSubSub(acc []int16, fSub0, fSub1, fAdd0, fAdd1 int) {
	t.SubSubAddAdd(acc, fAdd0, fAdd1, fSub0, fSub1)
}

// AddAddAddAdd applies four activations at once; bulk step of a
// refresh.
func (t *Transformer) AddAddAddAdd(acc []int16, f0, f1, f2, f3 int) {
	w0 := t.Column(f0)
	w1 := t.Column(f1)
	w2 := t.Column(f2)
	w3 := t.Column(f3)
	for i := range acc {
		acc[i] += w0[i] + w1[i] + w2[i] + w3[i]
	}
}

// SubSubSubSub applies four deactivations at once.
func (t *Transformer) SubSubSubSub(acc []int16, f0, f1, f2, f3 int) {
	w0 := t.Column(f0)
	w1 := t.Column(f1)
	w2 := t.Column(f2)
	w3 := t.Column(f3)
	for i := range acc {
		acc[i] -= w0[i] + w1[i] + w2[i] + w3[i]
	}
}

// ApplyDelta activates and deactivates arbitrary index sets, taking the
// quad ops in batches of four and single steps at the remainder.
func (t *Transformer) ApplyDelta(acc []int16, removed, added []int) {
	i := 0
	for ; i+4 <= len(removed); i += 4 {
		t.SubSubSubSub(acc, removed[i], removed[i+1], removed[i+2], removed[i+3])
	}
	for ; i < len(removed); i++ {
		t.DeactivateFeature(acc, removed[i])
	}
	i = 0
	for ; i+4 <= len(added); i += 4 {
		t.AddAddAddAdd(acc, added[i], added[i+1], added[i+2], added[i+3])
	}
	for ; i < len(added); i++ {
		t.ActivateFeature(acc, added[i])
	}
}
