package features

// KingBuckets selects the weight block from a 64-entry table indexed by
// the own king square (rank-flipped for black). Any king move that
// crosses a bucket boundary forces a refresh of that perspective.
type KingBuckets struct {
	table   [SquareNB]uint8
	buckets int
	merged  bool
}

// DefaultKingBuckets32 is the stock 32-bucket layout: fine-grained near
// the back rank where the king actually lives, file-symmetric pairs so
// related squares share a block.
var DefaultKingBuckets32 = [SquareNB]uint8{
	0, 1, 2, 3, 3, 2, 1, 0,
	4, 5, 6, 7, 7, 6, 5, 4,
	8, 9, 10, 11, 11, 10, 9, 8,
	12, 13, 14, 15, 15, 14, 13, 12,
	16, 17, 18, 19, 19, 18, 17, 16,
	20, 21, 22, 23, 23, 22, 21, 20,
	24, 25, 26, 27, 27, 26, 25, 24,
	28, 29, 30, 31, 31, 30, 29, 28,
}

// DefaultKingBuckets4 is a coarse 4-bucket layout keyed on which side
// of the board the king castled to and how far it has advanced.
var DefaultKingBuckets4 = [SquareNB]uint8{
	0, 0, 0, 1, 1, 1, 0, 0,
	2, 2, 2, 2, 2, 2, 2, 2,
	3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3,
}

// NewKingBuckets builds the policy from a 64-entry bucket table. The
// bucket count is the highest table value plus one.
func NewKingBuckets(table [SquareNB]uint8, mergedKings bool) KingBuckets {
	buckets := 0
	for _, b := range table {
		if int(b) >= buckets {
			buckets = int(b) + 1
		}
	}
	return KingBuckets{table: table, buckets: buckets, merged: mergedKings}
}

func (k KingBuckets) Name() string {
	if k.merged {
		return "KingBuckets(MergedKings)"
	}
	return "KingBuckets"
}

func (k KingBuckets) BucketCount() int      { return k.buckets }
func (k KingBuckets) Dimensions() int       { return k.buckets * stride(k.merged) }
func (k KingBuckets) MergedKings() bool     { return k.merged }
func (k KingBuckets) RefreshTableSize() int { return k.buckets }

func (k KingBuckets) Bucket(perspective, ksq int) int {
	return int(k.table[orient(perspective, ksq)])
}

func (k KingBuckets) RefreshSlot(perspective, ksq int) int {
	return k.Bucket(perspective, ksq)
}

func (k KingBuckets) RefreshRequired(perspective, oldKsq, newKsq int) bool {
	return k.Bucket(perspective, oldKsq) != k.Bucket(perspective, newKsq)
}

func (k KingBuckets) Index(perspective, pc, sq, ksq int) int {
	bucket := k.Bucket(perspective, ksq)
	return columnIndex(k.merged, perspective, pc, orient(perspective, sq), bucket)
}
