package nnue

import (
	"fmt"

	"github.com/quietmove/nnue/features"
	"github.com/quietmove/nnue/simd"
)

// MaxPly is the depth of the evaluator's make/unmake stack.
const MaxPly = 128

// ply is one stack frame: the accumulator for the position after the
// frame's move, plus what is needed to compute it lazily from below.
type ply struct {
	acc      *Accumulator
	md       MoveDescription
	computed [2]bool
	kingSq   [2]int
	refresh  [2]bool // the move into this frame crossed a refresh boundary
}

// Evaluator is the stateful per-worker façade: a network reference, a
// refresh table, a forward-pass scratch and a stack of accumulators
// kept in step with the caller's make/unmake. It is not safe for
// concurrent use; each worker owns one.
type Evaluator struct {
	net     *Network
	refresh *RefreshTable
	scratch *forwardScratch
	stack   [MaxPly + 1]ply
	top     int
}

// NewEvaluator builds an evaluator over a loaded network. Reset must
// run before the first Evaluate.
func NewEvaluator(net *Network) *Evaluator {
	e := &Evaluator{
		net:     net,
		refresh: NewRefreshTable(net.Transformer, net.Config.FeatureSet),
		scratch: newForwardScratch(net.Config),
	}
	for i := range e.stack {
		e.stack[i].acc = NewAccumulator(net.Config.Hidden)
	}
	return e
}

// Network returns the shared parameter set.
func (e *Evaluator) Network() *Network { return e.net }

// Reset rebinds the evaluator to a new root position, discarding the
// stack and restoring the refresh table to the bias state.
func (e *Evaluator) Reset(pos Position) {
	e.refresh.Reset(e.net.Transformer)
	e.top = 0
	p := &e.stack[0]
	p.kingSq[White] = pos.KingSquare(White)
	p.kingSq[Black] = pos.KingSquare(Black)
	p.refresh = [2]bool{}
	fs := e.net.Config.FeatureSet
	for c := 0; c < features.ColorNB; c++ {
		e.refresh.Refresh(e.net.Transformer, fs, pos, c, p.acc.Perspective(c))
		p.computed[c] = true
	}
}

// Push records a move without computing anything. The accumulator work
// is deferred to Evaluate, so lines that are made and unmade without an
// evaluation in between cost only this bookkeeping.
func (e *Evaluator) Push(md MoveDescription) {
	if e.top >= MaxPly {
		panic(fmt.Errorf("%w: push beyond ply %d", ErrInvariant, MaxPly))
	}
	parent := &e.stack[e.top]
	e.top++
	p := &e.stack[e.top]
	p.md = md
	p.computed = [2]bool{}
	p.kingSq = parent.kingSq
	p.refresh = [2]bool{}
	if features.TypeOf(md.Piece) == features.King {
		c := features.PieceColor(md.Piece)
		p.kingSq[c] = md.To
		p.refresh[c] = e.net.Config.FeatureSet.RefreshRequired(c, parent.kingSq[c], md.To)
	}
}

// Pop unwinds one Push. Any accumulator computed for the abandoned
// frame simply becomes garbage to overwrite later.
func (e *Evaluator) Pop() {
	if e.top == 0 {
		panic(fmt.Errorf("%w: pop at root", ErrInvariant))
	}
	e.top--
}

// Evaluate returns the score of pos from the side to move's point of
// view. pos must be the position the Push/Pop history arrived at.
func (e *Evaluator) Evaluate(pos Position) int32 {
	for c := 0; c < features.ColorNB; c++ {
		e.materialise(pos, c)
	}
	p := &e.stack[e.top]
	stm := pos.SideToMove()
	v := e.net.Evaluate(
		p.acc.Perspective(stm),
		p.acc.Perspective(stm^1),
		e.net.Config.Output.Select(pos),
		e.scratch,
	)
	return simd.Clamp(v, -(MateScore - 1), MateScore-1)
}

// materialise brings the top frame's perspective c accumulator up to
// date: either by a refresh-table rebuild when the king crossed a
// bucket boundary somewhere below, or by replaying the fused updates
// from the nearest computed ancestor.
func (e *Evaluator) materialise(pos Position, c int) {
	if e.stack[e.top].computed[c] {
		return
	}

	// Find the frame to start from. A refresh barrier between the
	// ancestor and the top makes incremental replay invalid for this
	// perspective; the bitboard diff against the cached slot entry is
	// cheaper anyway.
	start := e.top
	for start > 0 && !e.stack[start].computed[c] {
		if e.stack[start].refresh[c] {
			p := &e.stack[e.top]
			e.refresh.Refresh(e.net.Transformer, e.net.Config.FeatureSet, pos, c, p.acc.Perspective(c))
			p.computed[c] = true
			return
		}
		start--
	}

	for k := start + 1; k <= e.top; k++ {
		p := &e.stack[k]
		p.acc.CopyPerspectiveFrom(c, e.stack[k-1].acc)
		e.applyMove(c, p.kingSq[c], p.md, p.acc.Perspective(c))
		p.computed[c] = true
	}
}

// applyMove applies one move's fused column update to acc for
// perspective c. ksq is c's king square after the move; feature
// indices of a king mover use its destination bucket.
func (e *Evaluator) applyMove(c, ksq int, md MoveDescription, acc []int16) {
	t := e.net.Transformer
	fs := e.net.Config.FeatureSet
	idx := func(pc, sq int) int { return fs.Index(c, pc, sq, ksq) }

	switch md.Kind {
	case Quiet:
		t.SubAdd(acc, idx(md.Piece, md.From), idx(md.Piece, md.To))
	case Capture, EnPassant:
		t.SubSubAdd(acc,
			idx(md.Piece, md.From),
			idx(md.Captured, md.CaptureSquare),
			idx(md.Piece, md.To))
	case Castling:
		rook := features.MakePiece(features.PieceColor(md.Piece), features.Rook)
		t.SubSubAddAdd(acc,
			idx(md.Piece, md.From),
			idx(rook, md.RookFrom),
			idx(md.Piece, md.To),
			idx(rook, md.RookTo))
	case Promotion:
		t.SubAdd(acc, idx(md.Piece, md.From), idx(md.Promotion, md.To))
	case CapturePromotion:
		t.SubSubAdd(acc,
			idx(md.Piece, md.From),
			idx(md.Captured, md.CaptureSquare),
			idx(md.Promotion, md.To))
	default:
		panic(fmt.Errorf("%w: move kind %d", ErrInvariant, md.Kind))
	}
}
