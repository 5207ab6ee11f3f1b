package layers

import (
	"fmt"
	"io"

	"github.com/quietmove/nnue/common"
)

// Dense32 is the int32-everywhere middle layer: output initialised
// from the biases, then one multiply-accumulate row per input lane.
// No activation here; the clipping happens at the reduction stage.
type Dense32 struct {
	InputDimensions  int
	OutputDimensions int

	Biases []int32

	// Weights in row-per-input order: Weights[i*OutputDimensions+j]
	// scales input lane i into output lane j.
	Weights []int32
}

// NewDense32 builds an L2 layer of the given shape.
func NewDense32(inputDims, outputDims int) *Dense32 {
	return &Dense32{
		InputDimensions:  inputDims,
		OutputDimensions: outputDims,
		Biases:           make([]int32, outputDims),
		Weights:          make([]int32, inputDims*outputDims),
	}
}

// ReadParameters reads biases then weights.
func (d *Dense32) ReadParameters(r io.Reader) error {
	if err := common.ReadLittleEndianSlice(r, d.Biases); err != nil {
		return fmt.Errorf("l2 biases: %w", err)
	}
	if err := common.ReadLittleEndianSlice(r, d.Weights); err != nil {
		return fmt.Errorf("l2 weights: %w", err)
	}
	return nil
}

// WriteParameters writes biases then weights.
func (d *Dense32) WriteParameters(w io.Writer) error {
	if err := common.WriteLittleEndianSlice(w, d.Biases); err != nil {
		return fmt.Errorf("l2 biases: %w", err)
	}
	if err := common.WriteLittleEndianSlice(w, d.Weights); err != nil {
		return fmt.Errorf("l2 weights: %w", err)
	}
	return nil
}

// Propagate computes output = biases + Σ_i input[i] * weights[i,:].
// The four-wide unroll handles output widths that fit one vector times
// four; the tail loop covers the rest. Both orders produce identical
// integer results.
func (d *Dense32) Propagate(input []int32, output []int32) {
	out := output[:d.OutputDimensions]
	copy(out, d.Biases)

	in := input[:d.InputDimensions]
	w := d.Weights
	n := d.OutputDimensions
	for i, x := range in {
		if x == 0 {
			continue
		}
		row := w[i*n : i*n+n]
		j := 0
		for ; j+4 <= n; j += 4 {
			out[j] += x * row[j]
			out[j+1] += x * row[j+1]
			out[j+2] += x * row[j+2]
			out[j+3] += x * row[j+3]
		}
		for ; j < n; j++ {
			out[j] += x * row[j]
		}
	}
}
