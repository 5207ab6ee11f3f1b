package nnue

import (
	"math/rand"
	"strings"

	"github.com/quietmove/nnue/features"
)

// boardPos is a minimal Position for tests: piece bitboards and a side
// to move, no move rules.
type boardPos struct {
	bb  [features.ColorNB][features.PieceTypeNB + 1]uint64
	stm int
}

func (p *boardPos) place(color, pt, sq int) {
	p.bb[color][pt] |= 1 << uint(sq)
}

func (p *boardPos) remove(color, pt, sq int) {
	p.bb[color][pt] &^= 1 << uint(sq)
}

func (p *boardPos) SideToMove() int { return p.stm }

func (p *boardPos) Bitboard(color, pieceType int) uint64 {
	return p.bb[color][pieceType]
}

func (p *boardPos) Occupied() uint64 {
	var occ uint64
	for c := 0; c < features.ColorNB; c++ {
		for pt := features.Pawn; pt <= features.King; pt++ {
			occ |= p.bb[c][pt]
		}
	}
	return occ
}

func (p *boardPos) KingSquare(color int) int {
	for sq := 0; sq < features.SquareNB; sq++ {
		if p.bb[color][features.King]&(1<<uint(sq)) != 0 {
			return sq
		}
	}
	return features.SQNone
}

func (p *boardPos) PieceAt(sq int) int {
	mask := uint64(1) << uint(sq)
	for c := 0; c < features.ColorNB; c++ {
		for pt := features.Pawn; pt <= features.King; pt++ {
			if p.bb[c][pt]&mask != 0 {
				return features.MakePiece(c, pt)
			}
		}
	}
	return features.NoPiece
}

var fenPieces = map[rune][2]int{
	'P': {features.White, features.Pawn},
	'N': {features.White, features.Knight},
	'B': {features.White, features.Bishop},
	'R': {features.White, features.Rook},
	'Q': {features.White, features.Queen},
	'K': {features.White, features.King},
	'p': {features.Black, features.Pawn},
	'n': {features.Black, features.Knight},
	'b': {features.Black, features.Bishop},
	'r': {features.Black, features.Rook},
	'q': {features.Black, features.Queen},
	'k': {features.Black, features.King},
}

// parseBoard builds a boardPos from the first two FEN fields.
func parseBoard(fen string) *boardPos {
	p := &boardPos{}
	fields := strings.Fields(fen)
	rank, file := 7, 0
	for _, r := range fields[0] {
		switch {
		case r == '/':
			rank--
			file = 0
		case r >= '1' && r <= '8':
			file += int(r - '0')
		default:
			cp := fenPieces[r]
			p.place(cp[0], cp[1], rank*8+file)
			file++
		}
	}
	if len(fields) > 1 && fields[1] == "b" {
		p.stm = Black
	}
	return p
}

// activeFeatures lists the feature indices of every piece on pos from
// perspective c, the from-scratch ground truth the incremental paths
// are checked against.
func activeFeatures(fs features.Set, pos Position, c int) []int {
	ksq := pos.KingSquare(c)
	var idx []int
	for sq := 0; sq < features.SquareNB; sq++ {
		pc := pos.PieceAt(sq)
		if pc != features.NoPiece {
			idx = append(idx, fs.Index(c, pc, sq, ksq))
		}
	}
	return idx
}

// freshAccumulator computes an accumulator from scratch for pos.
func freshAccumulator(t *Transformer, fs features.Set, pos Position) *Accumulator {
	acc := NewAccumulator(t.HalfDimensions)
	acc.InitFromBias(t)
	for c := 0; c < features.ColorNB; c++ {
		for _, f := range activeFeatures(fs, pos, c) {
			t.ActivateFeature(acc.Perspective(c), f)
		}
	}
	return acc
}

// newTestNetwork fills a network of the given shape with small seeded
// parameters. Weights stay small enough that no stage can overflow even
// on dense boards.
func newTestNetwork(seed int64, cfg Config) *Network {
	rng := rand.New(rand.NewSource(seed))
	n := newNetwork(cfg)
	n.name = "test-net"

	for i := range n.Transformer.Weights {
		n.Transformer.Weights[i] = int16(rng.Intn(17) - 8)
	}
	for i := range n.Transformer.Biases {
		n.Transformer.Biases[i] = int16(rng.Intn(33) - 16)
	}

	if cfg.Arch == ArchSingleLayer {
		for b := range n.Single {
			s := &n.Single[b]
			for i := range s.Weights {
				s.Weights[i] = int8(rng.Intn(65) - 32)
			}
			s.Bias = int32(rng.Intn(2048) - 1024)
		}
		return n
	}

	for b := range n.Stacks {
		s := &n.Stacks[b]
		for i := range s.L1.Weights {
			s.L1.Weights[i] = int8(rng.Intn(65) - 32)
		}
		for i := range s.L1.Biases {
			s.L1.Biases[i] = int32(rng.Intn(129) - 64)
		}
		for i := range s.L2.Weights {
			s.L2.Weights[i] = int32(rng.Intn(65) - 32)
		}
		for i := range s.L2.Biases {
			s.L2.Biases[i] = int32(rng.Intn(2049) - 1024)
		}
		for i := range s.L3Weights {
			s.L3Weights[i] = int32(rng.Intn(65) - 32)
		}
		s.L3Bias = int32(rng.Intn(2049) - 1024)
	}
	return n
}

// testConfig is the stock pairwise shape the tests run with: small but
// dimensionally representative.
func testConfig() Config {
	return Config{
		Arch:       ArchPairwise,
		FeatureSet: features.NewKingBuckets(features.DefaultKingBuckets4, false),
		Hidden:     128,
		L2:         16,
		L3:         32,
		Output:     SingleOutputBucket{},
		SparseL1:   true,
	}
}
