// Package dragonpos adapts dragontoothmg boards to the evaluator's
// Position interface and derives move descriptions for incremental
// accumulator updates.
package dragonpos

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"

	"github.com/quietmove/nnue"
	"github.com/quietmove/nnue/features"
)

// Wrap views a dragontoothmg board as an evaluator Position. The board
// stays owned by the caller; Wrap copies nothing.
func Wrap(b *dragontoothmg.Board) Position {
	return Position{b}
}

// Position is a read-only view over a dragontoothmg board.
type Position struct {
	B *dragontoothmg.Board
}

func (p Position) SideToMove() int {
	if p.B.Wtomove {
		return nnue.White
	}
	return nnue.Black
}

func (p Position) Occupied() uint64 {
	return p.B.White.All | p.B.Black.All
}

func (p Position) Bitboard(color, pieceType int) uint64 {
	bb := &p.B.White
	if color == nnue.Black {
		bb = &p.B.Black
	}
	switch pieceType {
	case features.Pawn:
		return bb.Pawns
	case features.Knight:
		return bb.Knights
	case features.Bishop:
		return bb.Bishops
	case features.Rook:
		return bb.Rooks
	case features.Queen:
		return bb.Queens
	case features.King:
		return bb.Kings
	}
	return 0
}

func (p Position) KingSquare(color int) int {
	return bits.TrailingZeros64(p.Bitboard(color, features.King))
}

func (p Position) PieceAt(sq int) int {
	mask := uint64(1) << uint(sq)
	for color := 0; color < features.ColorNB; color++ {
		for pt := features.Pawn; pt <= features.King; pt++ {
			if p.Bitboard(color, pt)&mask != 0 {
				return features.MakePiece(color, pt)
			}
		}
	}
	return features.NoPiece
}

// pieceType converts a dragontoothmg piece to the features encoding.
// The two enumerations happen to agree; the switch pins that down.
func pieceType(pc dragontoothmg.Piece) int {
	switch pc {
	case dragontoothmg.Pawn:
		return features.Pawn
	case dragontoothmg.Knight:
		return features.Knight
	case dragontoothmg.Bishop:
		return features.Bishop
	case dragontoothmg.Rook:
		return features.Rook
	case dragontoothmg.Queen:
		return features.Queen
	case dragontoothmg.King:
		return features.King
	}
	return features.NoPieceType
}

// DescribeMove classifies m against the board it is about to be played
// on. Call before Apply; the classification reads the pre-move board.
func DescribeMove(b *dragontoothmg.Board, m dragontoothmg.Move) nnue.MoveDescription {
	pos := Wrap(b)
	us := pos.SideToMove()
	from := int(m.From())
	to := int(m.To())
	moving := pos.PieceAt(from)

	md := nnue.MoveDescription{
		Kind:  nnue.Quiet,
		Piece: moving,
		From:  from,
		To:    to,
	}

	captured := pos.PieceAt(to)
	if captured != features.NoPiece {
		md.Kind = nnue.Capture
		md.Captured = captured
		md.CaptureSquare = to
	}

	if features.TypeOf(moving) == features.Pawn {
		// A pawn landing diagonally on an empty square is en passant;
		// the victim stands behind the destination.
		if captured == features.NoPiece && from&7 != to&7 {
			md.Kind = nnue.EnPassant
			md.Captured = features.MakePiece(us^1, features.Pawn)
			if us == nnue.White {
				md.CaptureSquare = to - 8
			} else {
				md.CaptureSquare = to + 8
			}
		}
		if promo := m.Promote(); promo != dragontoothmg.Nothing {
			if md.Kind == nnue.Capture {
				md.Kind = nnue.CapturePromotion
			} else {
				md.Kind = nnue.Promotion
			}
			md.Promotion = features.MakePiece(us, pieceType(promo))
		}
		return md
	}

	// A king sliding two files is castling; rook squares follow from
	// the side castled to.
	if features.TypeOf(moving) == features.King && abs(from&7-to&7) == 2 {
		md.Kind = nnue.Castling
		rank := from &^ 7
		if to&7 == 6 {
			md.RookFrom = rank | 7
			md.RookTo = rank | 5
		} else {
			md.RookFrom = rank
			md.RookTo = rank | 3
		}
	}
	return md
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
