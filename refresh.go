package nnue

import (
	"math/bits"

	"github.com/quietmove/nnue/features"
	"github.com/quietmove/nnue/simd"
)

// refreshEntry caches the last accumulator computed for one
// (perspective, king-bucket[, mirror]) slot together with the piece
// bitboards it was computed from. A later refresh in the same slot
// only applies the board diff against this snapshot.
type refreshEntry struct {
	acc       []int16
	bitboards [features.ColorNB][features.PieceTypeNB]uint64
}

// RefreshTable holds one entry per refresh slot and perspective. Each
// search worker owns its own table; there is no sharing.
type RefreshTable struct {
	entries [][features.ColorNB]refreshEntry
}

// NewRefreshTable allocates a table sized for the feature set, with
// every entry at the bias / empty-board state.
func NewRefreshTable(t *Transformer, fs features.Set) *RefreshTable {
	rt := &RefreshTable{
		entries: make([][features.ColorNB]refreshEntry, fs.RefreshTableSize()),
	}
	for i := range rt.entries {
		for c := 0; c < features.ColorNB; c++ {
			rt.entries[i][c].acc = make([]int16, t.HalfDimensions)
		}
	}
	rt.Reset(t)
	return rt
}

// Reset restores every entry to the bias with no pieces, the state a
// fresh search tree starts from.
func (rt *RefreshTable) Reset(t *Transformer) {
	for i := range rt.entries {
		for c := range rt.entries[i] {
			e := &rt.entries[i][c]
			simd.CopyInt16(e.acc, t.Biases)
			for color := range e.bitboards {
				for pt := range e.bitboards[color] {
					e.bitboards[color][pt] = 0
				}
			}
		}
	}
}

// Refresh brings the slot entry for perspective c up to date with pos
// by applying the bitboard diff, then copies the entry's accumulator
// into dst. Cost is proportional to the number of pieces that differ
// from the snapshot, not to the piece count of pos.
func (rt *RefreshTable) Refresh(t *Transformer, fs features.Set, pos Position, c int, dst []int16) {
	ksq := pos.KingSquare(c)
	e := &rt.entries[fs.RefreshSlot(c, ksq)][c]

	var removed, added [features.MaxActiveFeatures]int
	nr, na := 0, 0
	for color := 0; color < features.ColorNB; color++ {
		for pt := features.Pawn; pt <= features.King; pt++ {
			cur := pos.Bitboard(color, pt)
			old := e.bitboards[color][pt-1]
			pc := features.MakePiece(color, pt)
			for bb := old &^ cur; bb != 0; bb &= bb - 1 {
				removed[nr] = fs.Index(c, pc, bits.TrailingZeros64(bb), ksq)
				nr++
			}
			for bb := cur &^ old; bb != 0; bb &= bb - 1 {
				added[na] = fs.Index(c, pc, bits.TrailingZeros64(bb), ksq)
				na++
			}
			e.bitboards[color][pt-1] = cur
		}
	}

	t.ApplyDelta(e.acc, removed[:nr], added[:na])
	simd.CopyInt16(dst, e.acc)
}
