package features

import "testing"

// Square helpers for readable tests.
func sq(file, rank int) int { return rank*8 + file }

func TestOrient(t *testing.T) {
	if got := orient(White, sq(4, 0)); got != sq(4, 0) {
		t.Errorf("white e1 = %d", got)
	}
	if got := orient(Black, sq(4, 7)); got != sq(4, 0) {
		t.Errorf("black e8 = %d, want e1", got)
	}
	if got := orient(Black, sq(0, 0)); got != sq(0, 7) {
		t.Errorf("black a1 = %d, want a8", got)
	}
}

func TestSingleBucketIndex(t *testing.T) {
	fs := NewSingleBucket(false)
	if fs.Dimensions() != StrideFull {
		t.Fatalf("Dimensions = %d, want %d", fs.Dimensions(), StrideFull)
	}

	// Own pawn on a1 from white: plane 0, square 0.
	if got := fs.Index(White, WPawn, sq(0, 0), sq(4, 0)); got != 0 {
		t.Errorf("white own pawn a1 = %d, want 0", got)
	}
	// Enemy king on h8 from white: plane 11, square 63.
	if got := fs.Index(White, BKing, sq(7, 7), sq(4, 0)); got != 11*64+63 {
		t.Errorf("white enemy king h8 = %d, want %d", got, 11*64+63)
	}
	// Black's own pawn on a7 seen from black lands on a2 relative.
	if got := fs.Index(Black, BPawn, sq(0, 6), sq(4, 7)); got != sq(0, 1) {
		t.Errorf("black own pawn a7 = %d, want %d", got, sq(0, 1))
	}

	if fs.RefreshRequired(White, sq(4, 0), sq(0, 7)) {
		t.Error("single bucket must never refresh")
	}
}

func TestMergedKingsPlane(t *testing.T) {
	fs := NewSingleBucket(true)
	if fs.Dimensions() != StrideMerged {
		t.Fatalf("Dimensions = %d, want %d", fs.Dimensions(), StrideMerged)
	}

	// Both kings share plane 10 regardless of color.
	if got := fs.Index(White, WKing, sq(4, 0), sq(4, 0)); got != 10*64+sq(4, 0) {
		t.Errorf("own king = %d, want %d", got, 10*64+sq(4, 0))
	}
	if got := fs.Index(White, BKing, sq(4, 7), sq(4, 0)); got != 10*64+sq(4, 7) {
		t.Errorf("enemy king = %d, want %d", got, 10*64+sq(4, 7))
	}

	// Enemy pieces start at plane 5 instead of 6.
	if got := fs.Index(White, BPawn, sq(0, 6), sq(4, 0)); got != 5*64+sq(0, 6) {
		t.Errorf("enemy pawn = %d, want %d", got, 5*64+sq(0, 6))
	}
	// Own queen sits on plane 4 in both schemes.
	if got := fs.Index(White, WQueen, sq(3, 0), sq(4, 0)); got != 4*64+sq(3, 0) {
		t.Errorf("own queen = %d, want %d", got, 4*64+sq(3, 0))
	}
}

func TestKingBucketsSelection(t *testing.T) {
	fs := NewKingBuckets(DefaultKingBuckets32, false)
	if fs.BucketCount() != 32 {
		t.Fatalf("BucketCount = %d", fs.BucketCount())
	}
	if fs.Dimensions() != 32*StrideFull {
		t.Fatalf("Dimensions = %d", fs.Dimensions())
	}

	// a1 and h1 share bucket 0 (file-symmetric pairs).
	if fs.Bucket(White, sq(0, 0)) != fs.Bucket(White, sq(7, 0)) {
		t.Error("a1 and h1 should share a bucket")
	}
	// Black's bucket is read through the rank flip: king on e8 for
	// black equals king on e1 for white.
	if fs.Bucket(Black, sq(4, 7)) != fs.Bucket(White, sq(4, 0)) {
		t.Error("black e8 should mirror white e1")
	}

	// The bucket offsets whole strides.
	b := fs.Bucket(White, sq(6, 0)) // g1
	got := fs.Index(White, WPawn, sq(0, 1), sq(6, 0))
	want := b*StrideFull + sq(0, 1)
	if got != want {
		t.Errorf("index = %d, want %d", got, want)
	}

	if !fs.RefreshRequired(White, sq(4, 0), sq(6, 0)) {
		t.Error("e1 to g1 crosses buckets in the 32-bucket table")
	}
	if fs.RefreshRequired(White, sq(0, 0), sq(7, 0)) {
		t.Error("a1 to h1 stays in bucket 0")
	}
}

func TestKingBuckets4Coarse(t *testing.T) {
	fs := NewKingBuckets(DefaultKingBuckets4, false)
	if fs.BucketCount() != 4 {
		t.Fatalf("BucketCount = %d", fs.BucketCount())
	}
	// Everything past rank 3 collapses into one bucket.
	if fs.RefreshRequired(White, sq(3, 4), sq(4, 5)) {
		t.Error("central king moves should not refresh in the coarse table")
	}
}

func TestMirroredBucketsCanonicalise(t *testing.T) {
	fs := NewMirroredKingBuckets(DefaultMirroredHalf16, MirrorQueenside, false)
	if fs.BucketCount() != 16 {
		t.Fatalf("BucketCount = %d", fs.BucketCount())
	}
	if fs.RefreshTableSize() != 32 {
		t.Fatalf("RefreshTableSize = %d", fs.RefreshTableSize())
	}

	// d1 and e1 share a bucket through the file flip but differ in
	// mirror state, so a crossing still refreshes.
	if fs.Bucket(White, sq(3, 0)) != fs.Bucket(White, sq(4, 0)) {
		t.Error("d1 and e1 should canonicalise to the same bucket")
	}
	if fs.Mirrored(White, sq(3, 0)) {
		t.Error("d1 is canonical under queenside mirroring")
	}
	if !fs.Mirrored(White, sq(4, 0)) {
		t.Error("e1 is mirrored under queenside mirroring")
	}
	if !fs.RefreshRequired(White, sq(3, 0), sq(4, 0)) {
		t.Error("d1 to e1 flips the mirror state and must refresh")
	}
	if fs.RefreshSlot(White, sq(3, 0)) == fs.RefreshSlot(White, sq(4, 0)) {
		t.Error("mirror states need distinct refresh slots")
	}

	// With the king mirrored, a piece on file a indexes like file h.
	mirrored := fs.Index(White, WPawn, sq(0, 1), sq(4, 0))
	canonical := fs.Index(White, WPawn, sq(7, 1), sq(3, 0))
	if mirrored != canonical {
		t.Errorf("mirrored a2 = %d, canonical h2 = %d", mirrored, canonical)
	}
}

func TestPieceCodeHelpers(t *testing.T) {
	for color := 0; color < ColorNB; color++ {
		for pt := Pawn; pt <= King; pt++ {
			pc := MakePiece(color, pt)
			if PieceColor(pc) != color {
				t.Errorf("PieceColor(%d) = %d, want %d", pc, PieceColor(pc), color)
			}
			if TypeOf(pc) != pt {
				t.Errorf("TypeOf(%d) = %d, want %d", pc, TypeOf(pc), pt)
			}
		}
	}
	if MakePiece(Black, Pawn) != BPawn || MakePiece(White, King) != WKing {
		t.Error("piece code constants out of step with MakePiece")
	}
}
