package features

// SingleBucket is the degenerate policy: one bucket, no mirroring,
// never refreshes. King moves update like any other piece move.
type SingleBucket struct {
	merged bool
}

// NewSingleBucket returns the single-bucket policy.
func NewSingleBucket(mergedKings bool) SingleBucket {
	return SingleBucket{merged: mergedKings}
}

func (s SingleBucket) Name() string {
	if s.merged {
		return "Single(MergedKings)"
	}
	return "Single"
}

func (s SingleBucket) BucketCount() int      { return 1 }
func (s SingleBucket) Dimensions() int       { return stride(s.merged) }
func (s SingleBucket) MergedKings() bool     { return s.merged }
func (s SingleBucket) RefreshTableSize() int { return 1 }

func (s SingleBucket) Bucket(perspective, ksq int) int      { return 0 }
func (s SingleBucket) RefreshSlot(perspective, ksq int) int { return 0 }

func (s SingleBucket) RefreshRequired(perspective, oldKsq, newKsq int) bool {
	return false
}

func (s SingleBucket) Index(perspective, pc, sq, ksq int) int {
	return columnIndex(s.merged, perspective, pc, orient(perspective, sq), 0)
}
