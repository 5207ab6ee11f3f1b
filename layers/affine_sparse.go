// Package layers holds the fully connected layers of the quantised
// inference pipeline: the uint8-input L1 with its sparse-input fast
// path, and the int32 dense L2.
package layers

import (
	"fmt"
	"io"

	"github.com/quietmove/nnue/common"
	"github.com/quietmove/nnue/simd"
)

// chunkSize is the input group width of the dpbusd kernel: four uint8
// lanes folded into one int32 accumulation.
const chunkSize = 4

// blockBytes is the span of transformed-feature bytes examined per
// non-zero scan step in the sparse path.
const blockBytes = 64

// AffineSparse is the first post-transformer layer: uint8 inputs times
// int8 weights into int32 lanes, then an arithmetic right shift and the
// int32 bias. Its input is dense in storage but sparse in value, so a
// non-zero-chunk walk is worthwhile.
type AffineSparse struct {
	InputDimensions       int
	OutputDimensions      int
	PaddedInputDimensions int

	// Shift applied to the raw accumulator before the bias. Derived
	// from the quantisation constants of the surrounding stages.
	Shift uint

	Biases []int32

	// Weights in chunk-of-4 packed order; see weightIndex.
	Weights []int8
}

// NewAffineSparse builds an L1 layer of the given shape.
func NewAffineSparse(inputDims, outputDims int, shift uint) *AffineSparse {
	padded := common.CeilToMultiple(inputDims, common.MaxSimdWidth)
	return &AffineSparse{
		InputDimensions:       inputDims,
		OutputDimensions:      outputDims,
		PaddedInputDimensions: padded,
		Shift:                 shift,
		Biases:                make([]int32, outputDims),
		Weights:               make([]int8, outputDims*padded),
	}
}

// weightIndex maps the serialized row-major weight position to the
// packed in-memory position. The packing groups four consecutive
// inputs of every output so the dpbusd kernel reads one contiguous
// span per (group, output) pair.
func (a *AffineSparse) weightIndex(i int) int {
	return (i/chunkSize)%(a.PaddedInputDimensions/chunkSize)*a.OutputDimensions*chunkSize +
		i/a.PaddedInputDimensions*chunkSize + i%chunkSize
}

// ReadParameters reads biases then row-major weights, packing the
// weights on the way in.
func (a *AffineSparse) ReadParameters(r io.Reader) error {
	if err := common.ReadLittleEndianSlice(r, a.Biases); err != nil {
		return fmt.Errorf("l1 biases: %w", err)
	}
	raw := make([]int8, a.OutputDimensions*a.PaddedInputDimensions)
	if err := common.ReadLittleEndianSlice(r, raw); err != nil {
		return fmt.Errorf("l1 weights: %w", err)
	}
	for i, w := range raw {
		a.Weights[a.weightIndex(i)] = w
	}
	return nil
}

// WriteParameters is the inverse of ReadParameters: it unpacks the
// weights back to row-major order before writing.
func (a *AffineSparse) WriteParameters(w io.Writer) error {
	if err := common.WriteLittleEndianSlice(w, a.Biases); err != nil {
		return fmt.Errorf("l1 biases: %w", err)
	}
	raw := make([]int8, a.OutputDimensions*a.PaddedInputDimensions)
	for i := range raw {
		raw[i] = a.Weights[a.weightIndex(i)]
	}
	if err := common.WriteLittleEndianSlice(w, raw); err != nil {
		return fmt.Errorf("l1 weights: %w", err)
	}
	return nil
}

// Propagate runs the dense path: every input group contributes.
// output[j] = (Σ_g dpbusd(input group g, weights) >> Shift) + bias[j].
func (a *AffineSparse) Propagate(input []uint8, output []int32) {
	out := output[:a.OutputDimensions]
	for j := range out {
		out[j] = 0
	}
	groups := a.PaddedInputDimensions / chunkSize
	for g := 0; g < groups; g++ {
		in := input[g*chunkSize : g*chunkSize+chunkSize]
		col := a.Weights[g*a.OutputDimensions*chunkSize:]
		for j := range out {
			out[j] = simd.Dpbusd1(out[j], in, col[j*chunkSize:j*chunkSize+chunkSize])
		}
	}
	for j := range out {
		out[j] = (out[j] >> a.Shift) + a.Biases[j]
	}
}

// nnzEntry lists the set bit positions of one mask byte.
type nnzEntry struct {
	offsets [8]uint8
	count   uint8
}

var nnzTable [256]nnzEntry

func init() {
	for m := 0; m < 256; m++ {
		e := &nnzTable[m]
		for b := 0; b < 8; b++ {
			if m&(1<<b) != 0 {
				e.offsets[e.count] = uint8(b)
				e.count++
			}
		}
	}
}

// PropagateSparse runs the sparse path: only non-zero input groups are
// visited. Bit-identical to Propagate; the scan uses a per-lane
// non-zero mask folded to per-group bits and a 256-entry offset table.
func (a *AffineSparse) PropagateSparse(input []uint8, output []int32) {
	out := output[:a.OutputDimensions]
	for j := range out {
		out[j] = 0
	}

	n := a.PaddedInputDimensions
	if n > len(input) {
		n = len(input)
	}
	for base := 0; base < n; base += blockBytes {
		end := base + blockBytes
		if end > n {
			end = n
		}
		laneMask := simd.NonzeroMask(input[base:end])
		if laneMask == 0 {
			continue
		}
		// Fold four lane bits into one group bit.
		var groupMask uint16
		for g := 0; g < (end-base)/chunkSize; g++ {
			if laneMask>>(uint(g)*chunkSize)&0xF != 0 {
				groupMask |= 1 << uint(g)
			}
		}
		firstGroup := base / chunkSize
		for half := 0; half < 2; half++ {
			e := &nnzTable[(groupMask>>(8*half))&0xFF]
			for k := uint8(0); k < e.count; k++ {
				g := firstGroup + 8*half + int(e.offsets[k])
				in := input[g*chunkSize : g*chunkSize+chunkSize]
				col := a.Weights[g*a.OutputDimensions*chunkSize:]
				for j := range out {
					out[j] = simd.Dpbusd1(out[j], in, col[j*chunkSize:j*chunkSize+chunkSize])
				}
			}
		}
	}
	for j := range out {
		out[j] = (out[j] >> a.Shift) + a.Biases[j]
	}
}
