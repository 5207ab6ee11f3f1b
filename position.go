package nnue

import "github.com/quietmove/nnue/features"

// Color re-exports so callers do not need the features package for the
// basics.
const (
	White = features.White
	Black = features.Black
)

// Position is the board view the evaluator consumes. Implementations
// live outside this module (see dragonpos for one); every method is
// total.
type Position interface {
	// PieceAt returns the piece code on sq (features piece encoding,
	// color<<3|type) or features.NoPiece.
	PieceAt(sq int) int

	// KingSquare returns the king square of color.
	KingSquare(color int) int

	// SideToMove returns White or Black.
	SideToMove() int

	// Bitboard returns the occupancy of (color, pieceType).
	Bitboard(color, pieceType int) uint64

	// Occupied returns the full occupancy; its popcount feeds the
	// material output bucket.
	Occupied() uint64
}

// MoveKind classifies a state transition for incremental updates. Each
// kind maps to one fused accumulator update.
type MoveKind uint8

const (
	Quiet MoveKind = iota
	Capture
	EnPassant
	Castling
	Promotion
	CapturePromotion
)

// MoveDescription carries the per-move change set across Push. At most
// four weight columns change per perspective.
type MoveDescription struct {
	Kind  MoveKind
	Piece int // moving piece code
	From  int
	To    int

	// Capture / EnPassant / CapturePromotion
	Captured      int
	CaptureSquare int

	// Promotion / CapturePromotion: the piece code appearing on To.
	Promotion int

	// Castling
	RookFrom int
	RookTo   int
}

// ColorOccupancy returns the union of color's piece bitboards.
func ColorOccupancy(pos Position, color int) uint64 {
	var occ uint64
	for pt := features.Pawn; pt <= features.King; pt++ {
		occ |= pos.Bitboard(color, pt)
	}
	return occ
}

// NonPawnKing returns color's pieces that are neither pawns nor kings.
// The pawn and king sets are subsets of the occupancy, so the XOR below
// is exact; the parenthesisation is deliberate.
func NonPawnKing(pos Position, color int) uint64 {
	return ColorOccupancy(pos, color) ^
		(pos.Bitboard(color, features.Pawn) | pos.Bitboard(color, features.King))
}
