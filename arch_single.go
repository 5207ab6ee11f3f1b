package nnue

import "github.com/quietmove/nnue/simd"

// forwardSingle is the legacy one-layer path: a scalar
// activation over every accumulator lane of both perspectives, dotted
// with int8 weights, then bias, output transform and scaling.
func (n *Network) forwardSingle(stm, nstm []int16, bucket int) int32 {
	stack := &n.Single[bucket]
	act := n.Config.Activation

	var sum int32
	h := n.Config.Hidden
	for i, x := range stm {
		sum += activateLane(act, x) * int32(stack.Weights[i])
	}
	for i, x := range nstm {
		sum += activateLane(act, x) * int32(stack.Weights[h+i])
	}

	v := activationOutput(act, sum+stack.Bias)
	return int32(int64(v) * OutputScale / (FtClip * QuantBase))
}

// activateLane applies the configured activation to one int16 lane.
func activateLane(act Activation, x int16) int32 {
	switch act {
	case ActIdentity:
		return int32(x)
	case ActReLU:
		if x < 0 {
			return 0
		}
		return int32(x)
	case ActCReLU:
		return int32(simd.Clamp(x, 0, FtClip))
	default: // ActSCReLU
		c := int32(simd.Clamp(x, 0, FtClip))
		return c * c
	}
}

// activationOutput renormalises the lane sum. The squared activation
// carries an extra FtClip factor that divides out here.
func activationOutput(act Activation, sum int32) int32 {
	if act == ActSCReLU {
		return sum / FtClip
	}
	return sum
}
