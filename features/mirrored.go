package features

// MirrorSide selects which files hold the canonical king. Kings on the
// other half see the whole board file-flipped, which halves the bucket
// table without losing king-relative locality.
type MirrorSide int

const (
	// MirrorQueenside makes files a..d canonical.
	MirrorQueenside MirrorSide = iota
	// MirrorKingside makes files e..h canonical.
	MirrorKingside
)

// MirroredKingBuckets expands a 32-entry half-table to 64 squares by
// file symmetry. The refresh table is doubled so mirrored and
// non-mirrored entries coexist.
type MirroredKingBuckets struct {
	half    [SquareNB / 2]uint8
	side    MirrorSide
	buckets int
	merged  bool
}

// DefaultMirroredHalf16 is the stock 16-bucket half layout: one bucket
// per square on the back half-ranks, coarser towards the centre.
var DefaultMirroredHalf16 = [SquareNB / 2]uint8{
	0, 1, 2, 3,
	4, 5, 6, 7,
	8, 8, 9, 9,
	10, 10, 11, 11,
	12, 12, 12, 12,
	13, 13, 13, 13,
	14, 14, 14, 14,
	15, 15, 15, 15,
}

// NewMirroredKingBuckets builds the policy from a half-table of 32
// entries (8 ranks by 4 canonical files).
func NewMirroredKingBuckets(half [SquareNB / 2]uint8, side MirrorSide, mergedKings bool) MirroredKingBuckets {
	buckets := 0
	for _, b := range half {
		if int(b) >= buckets {
			buckets = int(b) + 1
		}
	}
	return MirroredKingBuckets{half: half, side: side, buckets: buckets, merged: mergedKings}
}

func (m MirroredKingBuckets) Name() string {
	if m.merged {
		return "MirroredKingBuckets(MergedKings)"
	}
	return "MirroredKingBuckets"
}

func (m MirroredKingBuckets) BucketCount() int      { return m.buckets }
func (m MirroredKingBuckets) Dimensions() int       { return m.buckets * stride(m.merged) }
func (m MirroredKingBuckets) MergedKings() bool     { return m.merged }
func (m MirroredKingBuckets) RefreshTableSize() int { return 2 * m.buckets }

// Mirrored reports whether the perspective's king sits on the
// non-canonical half, i.e. feature squares must be file-flipped.
func (m MirroredKingBuckets) Mirrored(perspective, ksq int) bool {
	file := orient(perspective, ksq) & 7
	if m.side == MirrorQueenside {
		return file >= 4
	}
	return file < 4
}

func (m MirroredKingBuckets) Bucket(perspective, ksq int) int {
	t := orient(perspective, ksq)
	file := t & 7
	if file > 3 {
		file = 7 - file
	}
	return int(m.half[(t>>3)*4+file])
}

func (m MirroredKingBuckets) RefreshSlot(perspective, ksq int) int {
	slot := 2 * m.Bucket(perspective, ksq)
	if m.Mirrored(perspective, ksq) {
		slot++
	}
	return slot
}

func (m MirroredKingBuckets) RefreshRequired(perspective, oldKsq, newKsq int) bool {
	return m.Bucket(perspective, oldKsq) != m.Bucket(perspective, newKsq) ||
		m.Mirrored(perspective, oldKsq) != m.Mirrored(perspective, newKsq)
}

func (m MirroredKingBuckets) Index(perspective, pc, sq, ksq int) int {
	sqRel := orient(perspective, sq)
	if m.Mirrored(perspective, ksq) {
		sqRel ^= 7
	}
	return columnIndex(m.merged, perspective, pc, sqRel, m.Bucket(perspective, ksq))
}
