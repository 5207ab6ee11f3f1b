// Package features maps (perspective, piece, square, own king square)
// tuples to weight-column indices of the feature transformer. The three
// set variants differ only in king-bucket selection and horizontal
// mirroring; the index formula itself is shared.
package features

// Square constants. Squares are 0..63, a1 = 0, h8 = 63.
const (
	SquareNB = 64
	SQNone   = 64
)

// Color constants.
const (
	White = 0
	Black = 1

	ColorNB = 2
)

// Piece type constants.
const (
	NoPieceType = 0
	Pawn        = 1
	Knight      = 2
	Bishop      = 3
	Rook        = 4
	Queen       = 5
	King        = 6

	PieceTypeNB = 6
)

// Piece codes encode color and type as color<<3 | type.
const (
	NoPiece = 0

	WPawn   = 1
	WKnight = 2
	WBishop = 3
	WRook   = 4
	WQueen  = 5
	WKing   = 6

	BPawn   = 9
	BKnight = 10
	BBishop = 11
	BRook   = 12
	BQueen  = 13
	BKing   = 14
)

// MakePiece builds a piece code from color and type.
func MakePiece(color, pieceType int) int { return color<<3 | pieceType }

// PieceColor extracts the color from a piece code.
func PieceColor(pc int) int { return pc >> 3 }

// TypeOf extracts the piece type from a piece code.
func TypeOf(pc int) int { return pc & 7 }

// Per-bucket column strides. The merged-king scheme collapses both
// kings into one plane: 11 planes instead of 12.
const (
	StrideFull   = 12 * SquareNB // 768
	StrideMerged = 11 * SquareNB // 704
)

// MaxActiveFeatures is the most features simultaneously active for one
// perspective (32 pieces).
const MaxActiveFeatures = 32

// Set is the feature-index policy. Implementations are stateless;
// dispatch happens once at architecture-selection time and the hot path
// calls through a concrete value.
type Set interface {
	Name() string

	// BucketCount is the number of king buckets B.
	BucketCount() int

	// Dimensions is the total weight-column count: B times the stride.
	Dimensions() int

	// MergedKings reports whether kings share a single plane.
	MergedKings() bool

	// Bucket returns the king bucket for a perspective whose king
	// stands on ksq.
	Bucket(perspective, ksq int) int

	// RefreshRequired reports whether a king move from oldKsq to
	// newKsq invalidates the perspective's accumulator.
	RefreshRequired(perspective, oldKsq, newKsq int) bool

	// RefreshTableSize is the per-perspective entry count of the
	// refresh table: BucketCount, doubled for mirrored sets so mirror
	// and non-mirror entries coexist.
	RefreshTableSize() int

	// RefreshSlot returns the refresh-table entry index for a
	// perspective with its king on ksq.
	RefreshSlot(perspective, ksq int) int

	// Index returns the weight-column index for piece pc on square sq
	// seen from perspective with own king on ksq.
	Index(perspective, pc, sq, ksq int) int
}

// orient rank-flips a square for the black perspective.
func orient(perspective, sq int) int {
	return sq ^ (56 * perspective)
}

// columnIndex computes the shared part of the feature index once the
// policy has produced the bucket and the transformed square.
func columnIndex(merged bool, perspective, pc, sqRel, bucket int) int {
	sideRel := 0
	if PieceColor(pc) != perspective {
		sideRel = 1
	}
	if merged {
		plane := 10
		if TypeOf(pc) != King {
			plane = sideRel*5 + TypeOf(pc) - 1
		}
		return bucket*StrideMerged + plane*SquareNB + sqRel
	}
	plane := sideRel*6 + TypeOf(pc) - 1
	return bucket*StrideFull + plane*SquareNB + sqRel
}

func stride(merged bool) int {
	if merged {
		return StrideMerged
	}
	return StrideFull
}
