package nnue

import "github.com/quietmove/nnue/simd"

// forwardScratch holds the per-evaluator buffers of the forward pass
// so the hot path never allocates.
type forwardScratch struct {
	clampA []int16 // P lanes
	clampB []int16
	prod   []int16
	ftOut  []uint8 // H bytes, stm half then nstm half
	fc0    []int32 // L2 lanes
	l2in   []int32 // L2 or 2*L2 lanes
	fc1    []int32 // L3 lanes
}

func newForwardScratch(cfg Config) *forwardScratch {
	if cfg.Arch == ArchSingleLayer {
		return &forwardScratch{}
	}
	half := cfg.Hidden / 2
	l2in := cfg.L2
	if cfg.Arch == ArchPairwiseDual {
		l2in = 2 * cfg.L2
	}
	return &forwardScratch{
		clampA: make([]int16, half),
		clampB: make([]int16, half),
		prod:   make([]int16, half),
		ftOut:  make([]uint8, cfg.Hidden),
		fc0:    make([]int32, cfg.L2),
		l2in:   make([]int32, l2in),
		fc1:    make([]int32, cfg.L3),
	}
}

// forwardPairwise is the multi-layer path: pairwise clipped
// ReLU over the accumulators, sparse uint8×int8 L1, dense int32 L2,
// clipped reduction L3.
func (n *Network) forwardPairwise(stm, nstm []int16, bucket int, s *forwardScratch) int32 {
	half := n.Config.Hidden / 2

	// Stage FT-activate. Each perspective's vector splits into halves
	// a and b; a is clipped to [0, FtClip], b only from above (it
	// multiplies a value already in range), and the scaled high
	// product packs to uint8 with saturation.
	for p, acc := range [2][]int16{stm, nstm} {
		copy(s.clampA, acc[:half])
		simd.ClampInt16(s.clampA, 0, FtClip)
		copy(s.clampB, acc[half:])
		simd.MinInt16(s.clampB, FtClip)
		simd.ShiftLeftMulHighInt16(s.prod, s.clampA, s.clampB, FtShiftBits)
		simd.PackUnsigned(s.ftOut[p*half:(p+1)*half], s.prod[:half/2], s.prod[half/2:])
	}

	// Stage L1.
	stack := &n.Stacks[bucket]
	if n.Config.SparseL1 {
		stack.L1.PropagateSparse(s.ftOut, s.fc0)
	} else {
		stack.L1.Propagate(s.ftOut, s.fc0)
	}

	// L1 activation: single squares the clipped lane; dual emits the
	// rescaled clipped lane and the squared clipped lane side by side.
	l2 := n.Config.L2
	if n.Config.Arch == ArchPairwiseDual {
		for j := 0; j < l2; j++ {
			x := s.fc0[j]
			s.l2in[j] = simd.Clamp(x, 0, QuantBase) << QuantBits
			if x < 0 {
				x = 0
			}
			sq := int64(x) * int64(x)
			if sq > QuantBase*QuantBase {
				sq = QuantBase * QuantBase
			}
			s.l2in[l2+j] = int32(sq)
		}
	} else {
		for j := 0; j < l2; j++ {
			x := simd.Clamp(s.fc0[j], 0, QuantBase)
			s.l2in[j] = x * x
		}
	}

	// Stage L2.
	stack.L2.Propagate(s.l2in, s.fc1)

	// Stage L3: clipped reduction into the scalar.
	const q3 = QuantBase * QuantBase * QuantBase
	var sum int32
	for i := 0; i < n.Config.L3; i++ {
		x := simd.Clamp(s.fc1[i], 0, q3)
		sum += x * stack.L3Weights[i]
	}
	v := (sum + stack.L3Bias) / QuantBase
	return int32(int64(v) * OutputScale / q3)
}
