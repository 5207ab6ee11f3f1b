package nnue

import (
	"fmt"

	"github.com/quietmove/nnue/common"
	"github.com/quietmove/nnue/features"
	"github.com/quietmove/nnue/layers"
)

// Quantisation constants. Chosen so every stage's outputs fit the next
// stage's integer type with truncating arithmetic throughout; see the
// derivation notes in DESIGN.md.
const (
	// FtClip bounds the feature-transformer activation.
	FtClip = 255

	// FtShiftBits is the pre-multiply left shift of the pairwise
	// activation: p = high16((a << FtShiftBits) * b), i.e. a*b/512.
	// FtClip << FtShiftBits must stay inside int16.
	FtShiftBits = 7

	// QuantBase is the base-2 quantisation unit Q of the L1..L3
	// stages; real 1.0 maps to Q.
	QuantBase = 64
	QuantBits = 6

	// L1Shift renormalises the raw L1 accumulator to scale Q.
	L1Shift = 7

	// OutputScale converts the final Q^3-scaled value to the
	// centipawn-like score: one pawn is about OutputScale/QuantBase
	// units.
	OutputScale = 400

	// MateScore bounds evaluator output; true mate scores come from
	// search, never from here.
	MateScore = 32000
)

// Arch identifies the forward-pass family after the accumulators.
type Arch uint8

const (
	// ArchSingleLayer is the legacy one-layer output with a scalar
	// activation over the accumulator lanes.
	ArchSingleLayer Arch = 1

	// ArchPairwise is the multi-layer pipeline with the single
	// (squared clipped) L1 activation.
	ArchPairwise Arch = 2

	// ArchPairwiseDual is the multi-layer pipeline with the dual L1
	// activation, doubling the L2 input width.
	ArchPairwiseDual Arch = 3
)

// Activation selects the lane activation of the single-layer
// architecture.
type Activation uint8

const (
	ActIdentity Activation = iota
	ActReLU
	ActCReLU
	ActSCReLU
)

// Config is the compile-time architecture selection the loader checks
// the file header against.
type Config struct {
	Arch       Arch
	Activation Activation // single-layer only
	FeatureSet features.Set
	Hidden     int // H
	L2         int // 0 for single-layer
	L3         int // 0 for single-layer
	Output     OutputBuckets

	// SparseL1 walks only non-zero transformed-feature groups in L1.
	// Bit-identical to the dense path.
	SparseL1 bool
}

// Validate checks the dimensional constraints the forward kernels and
// the loader assume.
func (c Config) Validate() error {
	switch c.Arch {
	case ArchSingleLayer:
		if c.Activation > ActSCReLU {
			return fmt.Errorf("%w: activation id %d", ErrMalformed, c.Activation)
		}
	case ArchPairwise, ArchPairwiseDual:
		if c.L2 < 8 || (c.L2%16 != 0 && c.L2 != 8) {
			return fmt.Errorf("%w: L2=%d not a multiple of 16 (8 permitted)", ErrMalformed, c.L2)
		}
		if c.L3 < 16 || c.L3%16 != 0 {
			return fmt.Errorf("%w: L3=%d not a multiple of 16", ErrMalformed, c.L3)
		}
		if (c.Hidden/2)%(16*4) != 0 {
			return fmt.Errorf("%w: hidden/2=%d not divisible by 64", ErrMalformed, c.Hidden/2)
		}
	default:
		return fmt.Errorf("%w: architecture id %d", ErrMalformed, c.Arch)
	}
	if c.Hidden <= 0 || c.Hidden%common.MaxSimdWidth != 0 {
		return fmt.Errorf("%w: hidden=%d not a lane multiple", ErrMalformed, c.Hidden)
	}
	if c.FeatureSet == nil {
		return fmt.Errorf("%w: no feature set", ErrMalformed)
	}
	if c.Output == nil {
		return fmt.Errorf("%w: no output bucketing", ErrMalformed)
	}
	if err := validateBuckets(c.Output); err != nil {
		return err
	}
	return nil
}

// LayerStack is one output bucket's L1..L3 parameters of the pairwise
// architectures.
type LayerStack struct {
	L1        *layers.AffineSparse
	L2        *layers.Dense32
	L3Weights []int32
	L3Bias    int32
}

// SingleStack is one output bucket's parameters of the single-layer
// architecture: a weight per accumulator lane of both perspectives.
type SingleStack struct {
	Weights []int8 // 2*H, stm half then nstm half
	Bias    int32
}

// Network is the immutable parameter set shared by all workers.
type Network struct {
	Config Config

	Transformer *Transformer

	// Pairwise architectures.
	Stacks []LayerStack

	// Single-layer architecture.
	Single []SingleStack

	name        string
	mergedKings bool
	mirrored    bool
}

// Name returns the network name carried in the file header.
func (n *Network) Name() string { return n.name }

// NewNetwork allocates an empty parameter set for cfg. Callers either
// load parameters with LoadNetwork or fill the exported slices
// directly, as a trainer's export path does.
func NewNetwork(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newNetwork(cfg), nil
}

// newNetwork allocates parameter storage for a validated config.
func newNetwork(cfg Config) *Network {
	n := &Network{
		Config:      cfg,
		Transformer: NewTransformer(cfg.Hidden, cfg.FeatureSet.Dimensions()),
		mergedKings: cfg.FeatureSet.MergedKings(),
	}
	if _, ok := cfg.FeatureSet.(features.MirroredKingBuckets); ok {
		n.mirrored = true
	}
	buckets := cfg.Output.Count()
	switch cfg.Arch {
	case ArchSingleLayer:
		n.Single = make([]SingleStack, buckets)
		for b := range n.Single {
			n.Single[b] = SingleStack{Weights: make([]int8, 2*cfg.Hidden)}
		}
	default:
		l2in := cfg.L2
		if cfg.Arch == ArchPairwiseDual {
			l2in = 2 * cfg.L2
		}
		n.Stacks = make([]LayerStack, buckets)
		for b := range n.Stacks {
			n.Stacks[b] = LayerStack{
				L1:        layers.NewAffineSparse(cfg.Hidden, cfg.L2, L1Shift),
				L2:        layers.NewDense32(l2in, cfg.L3),
				L3Weights: make([]int32, cfg.L3),
			}
		}
	}
	return n
}

// Evaluate runs the forward pass for one position's accumulators.
// stm and nstm are the side-to-move and opponent perspectives, each of
// length H. bucket selects the layer stack.
func (n *Network) Evaluate(stm, nstm []int16, bucket int, scratch *forwardScratch) int32 {
	if n.Config.Arch == ArchSingleLayer {
		return n.forwardSingle(stm, nstm, bucket)
	}
	return n.forwardPairwise(stm, nstm, bucket, scratch)
}
