package nnue

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/quietmove/nnue/common"
	"github.com/quietmove/nnue/features"
	"github.com/quietmove/nnue/simd"
)

// Magic identifies the parameter file family.
const Magic = "QNET"

// Version of the parameter file format.
const Version uint16 = 1

// HeaderSize is the fixed byte length of the file header.
const HeaderSize = 64

const maxNameLen = 48

// Flags of the parameter file header.
type Flags uint16

const (
	// FlagZstd marks a zstd-compressed payload.
	FlagZstd Flags = 1 << 0

	// FlagMirrored marks a horizontally mirrored feature set.
	FlagMirrored Flags = 1 << 1

	// FlagMergedKings marks the merged-king feature scheme.
	FlagMergedKings Flags = 1 << 2

	// FlagPairwise marks the pairwise-multiply first stage.
	FlagPairwise Flags = 1 << 3
)

// Header is the decoded 64-byte parameter file header.
type Header struct {
	Flags         Flags
	Arch          Arch
	Activation    Activation
	Hidden        int
	InputBuckets  int
	OutputBuckets int
	Name          string
}

// truncated maps short-read errors to ErrTruncated.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}

// ReadHeader reads and validates the fixed header. The header itself
// is never compressed; FlagZstd applies to the payload that follows.
func ReadHeader(r io.Reader) (Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, truncated(err)
	}
	if string(raw[0:4]) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q", ErrMalformed, raw[0:4])
	}
	version := uint16(raw[4]) | uint16(raw[5])<<8
	if version != Version {
		return Header{}, fmt.Errorf("%w: version %d", ErrMalformed, version)
	}
	if raw[8] != 0 {
		return Header{}, fmt.Errorf("%w: nonzero pad byte", ErrMalformed)
	}
	nameLen := int(raw[15])
	if nameLen > maxNameLen {
		return Header{}, fmt.Errorf("%w: name length %d", ErrMalformed, nameLen)
	}
	return Header{
		Flags:         Flags(uint16(raw[6]) | uint16(raw[7])<<8),
		Arch:          Arch(raw[9]),
		Activation:    Activation(raw[10]),
		Hidden:        int(uint16(raw[11]) | uint16(raw[12])<<8),
		InputBuckets:  int(raw[13]),
		OutputBuckets: int(raw[14]),
		Name:          string(raw[16 : 16+nameLen]),
	}, nil
}

// encode serialises the header back to its 64-byte wire form.
func (h Header) encode() [HeaderSize]byte {
	var raw [HeaderSize]byte
	copy(raw[0:4], Magic)
	raw[4] = byte(Version)
	raw[5] = byte(Version >> 8)
	raw[6] = byte(h.Flags)
	raw[7] = byte(h.Flags >> 8)
	raw[9] = byte(h.Arch)
	raw[10] = byte(h.Activation)
	raw[11] = byte(h.Hidden)
	raw[12] = byte(h.Hidden >> 8)
	raw[13] = byte(h.InputBuckets)
	raw[14] = byte(h.OutputBuckets)
	name := h.Name
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	raw[15] = byte(len(name))
	copy(raw[16:], name)
	return raw
}

// checkHeader verifies the header against the compile-time
// configuration. Every accepted (arch, flags) combination is listed
// here; everything else is malformed.
func checkHeader(h Header, cfg Config) error {
	pairwise := h.Flags&FlagPairwise != 0
	switch h.Arch {
	case ArchSingleLayer:
		if pairwise {
			return fmt.Errorf("%w: single-layer arch with pairwise flag", ErrMalformed)
		}
		if h.Activation > ActSCReLU {
			return fmt.Errorf("%w: activation id %d", ErrMalformed, h.Activation)
		}
	case ArchPairwise, ArchPairwiseDual:
		if !pairwise {
			return fmt.Errorf("%w: multi-layer arch without pairwise flag", ErrMalformed)
		}
		if h.Activation != 0 {
			return fmt.Errorf("%w: activation byte %d on multi-layer arch", ErrMalformed, h.Activation)
		}
	default:
		return fmt.Errorf("%w: architecture id %d", ErrMalformed, h.Arch)
	}
	if h.Arch != cfg.Arch {
		return fmt.Errorf("%w: architecture id %d, configured %d", ErrMalformed, h.Arch, cfg.Arch)
	}
	if h.Arch == ArchSingleLayer && h.Activation != cfg.Activation {
		return fmt.Errorf("%w: activation id %d, configured %d", ErrMalformed, h.Activation, cfg.Activation)
	}
	if h.Hidden != cfg.Hidden {
		return fmt.Errorf("%w: hidden %d, configured %d", ErrMalformed, h.Hidden, cfg.Hidden)
	}
	fs := cfg.FeatureSet
	if h.InputBuckets != fs.BucketCount() {
		return fmt.Errorf("%w: input buckets %d, configured %d", ErrMalformed, h.InputBuckets, fs.BucketCount())
	}
	if h.OutputBuckets != cfg.Output.Count() {
		return fmt.Errorf("%w: output buckets %d, configured %d", ErrMalformed, h.OutputBuckets, cfg.Output.Count())
	}
	if mirrored := isMirrored(cfg); (h.Flags&FlagMirrored != 0) != mirrored {
		return fmt.Errorf("%w: mirror flag mismatch", ErrMalformed)
	}
	if (h.Flags&FlagMergedKings != 0) != fs.MergedKings() {
		return fmt.Errorf("%w: merged-kings flag mismatch", ErrMalformed)
	}
	return nil
}

func isMirrored(cfg Config) bool {
	_, ok := cfg.FeatureSet.(features.MirroredKingBuckets)
	return ok
}

// LoadNetwork reads a parameter file from r against the configured
// architecture. The payload passes through a streaming zstd
// decompressor when the header says so.
func LoadNetwork(r io.Reader, cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(h, cfg); err != nil {
		return nil, err
	}

	payload := r
	if h.Flags&FlagZstd != 0 {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
		}
		defer zr.Close()
		payload = zr
	}

	n := newNetwork(cfg)
	n.name = h.Name
	if err := n.readParameters(payload); err != nil {
		return nil, err
	}
	n.permuteFT()
	return n, nil
}

// LoadFile loads a parameter file from disk.
func LoadFile(path string, cfg Config) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadNetwork(f, cfg)
}

// readParameters reads the payload in its fixed order: the feature
// transformer, then per output bucket L1, L2 and L3.
func (n *Network) readParameters(r io.Reader) error {
	if err := n.Transformer.ReadParameters(r); err != nil {
		return truncated(err)
	}
	if n.Config.Arch == ArchSingleLayer {
		for b := range n.Single {
			s := &n.Single[b]
			if err := common.ReadLittleEndianSlice(r, s.Weights); err != nil {
				return truncated(fmt.Errorf("bucket %d weights: %w", b, err))
			}
			bias, err := common.ReadLittleEndian[int32](r)
			if err != nil {
				return truncated(fmt.Errorf("bucket %d bias: %w", b, err))
			}
			s.Bias = bias
		}
		return nil
	}
	for b := range n.Stacks {
		s := &n.Stacks[b]
		if err := s.L1.ReadParameters(r); err != nil {
			return truncated(fmt.Errorf("bucket %d: %w", b, err))
		}
		if err := s.L2.ReadParameters(r); err != nil {
			return truncated(fmt.Errorf("bucket %d: %w", b, err))
		}
		if err := common.ReadLittleEndianSlice(r, s.L3Weights); err != nil {
			return truncated(fmt.Errorf("bucket %d l3 weights: %w", b, err))
		}
		bias, err := common.ReadLittleEndian[int32](r)
		if err != nil {
			return truncated(fmt.Errorf("bucket %d l3 bias: %w", b, err))
		}
		s.L3Bias = bias
	}
	return nil
}

// writeParameters is the inverse of readParameters; it emits the raw
// pre-permute byte stream.
func (n *Network) writeParameters(w io.Writer) error {
	if err := n.Transformer.WriteParameters(w); err != nil {
		return err
	}
	if n.Config.Arch == ArchSingleLayer {
		for b := range n.Single {
			s := &n.Single[b]
			if err := common.WriteLittleEndianSlice(w, s.Weights); err != nil {
				return fmt.Errorf("bucket %d weights: %w", b, err)
			}
			if err := common.WriteLittleEndian(w, s.Bias); err != nil {
				return fmt.Errorf("bucket %d bias: %w", b, err)
			}
		}
		return nil
	}
	for b := range n.Stacks {
		s := &n.Stacks[b]
		if err := s.L1.WriteParameters(w); err != nil {
			return fmt.Errorf("bucket %d: %w", b, err)
		}
		if err := s.L2.WriteParameters(w); err != nil {
			return fmt.Errorf("bucket %d: %w", b, err)
		}
		if err := common.WriteLittleEndianSlice(w, s.L3Weights); err != nil {
			return fmt.Errorf("bucket %d l3 weights: %w", b, err)
		}
		if err := common.WriteLittleEndian(w, s.L3Bias); err != nil {
			return fmt.Errorf("bucket %d l3 bias: %w", b, err)
		}
	}
	return nil
}

// header synthesises the wire header for this network.
func (n *Network) header(compress bool) Header {
	h := Header{
		Arch:          n.Config.Arch,
		Activation:    n.Config.Activation,
		Hidden:        n.Config.Hidden,
		InputBuckets:  n.Config.FeatureSet.BucketCount(),
		OutputBuckets: n.Config.Output.Count(),
		Name:          n.name,
	}
	if n.Config.Arch != ArchSingleLayer {
		h.Flags |= FlagPairwise
		h.Activation = 0
	}
	if n.mirrored {
		h.Flags |= FlagMirrored
	}
	if n.mergedKings {
		h.Flags |= FlagMergedKings
	}
	if compress {
		h.Flags |= FlagZstd
	}
	return h
}

// WriteNetwork serialises the network, optionally compressing the
// payload. Writing what LoadNetwork read reproduces the original
// pre-permute bytes (the in-memory identity permutation makes the two
// coincide on this host).
func WriteNetwork(w io.Writer, n *Network, compress bool) error {
	raw := n.header(compress).encode()
	if _, err := w.Write(raw[:]); err != nil {
		return err
	}
	if !compress {
		return n.writeParameters(w)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := n.writeParameters(zw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// permuteFT reorders the transformer weights and biases to match the
// lane order the packed FT activation produces. The portable pack
// order is sequential, so the permutation is the identity; a host with
// interleaving packs supplies its lane order here.
func (n *Network) permuteFT() {
	if simd.PackOrderSequential {
		return
	}
	n.applyFTPermutation(packLaneOrder(n.Config.Hidden / 2))
}

// applyFTPermutation reorders every weight column and the bias so that
// output lane i of the packed activation reads the value the scalar
// reference would place at order[i]. The product lane i draws from
// accumulator lanes i and i+H/2 of both halves, so the permutation
// applies pairwise.
func (n *Network) applyFTPermutation(order []int) {
	t := n.Transformer
	half := t.HalfDimensions / 2
	scratch := make([]int16, t.HalfDimensions)
	permute := func(v []int16) {
		copy(scratch, v)
		for i, src := range order {
			v[i] = scratch[src]
			v[half+i] = scratch[half+src]
		}
	}
	permute(t.Biases)
	for f := 0; f < t.InputDimensions; f++ {
		permute(t.Column(f))
	}
}

// packLaneOrder returns the lane order of the host's pack instruction
// over a vector of n int16 lanes. Unused on hosts with sequential
// packs.
func packLaneOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}
