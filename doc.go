// Package nnue evaluates chess positions with quantised
// efficiently-updatable neural networks.
//
// The pipeline is a sparse int16 feature transformer feeding either a
// legacy single output layer or a pairwise multi-layer head, all in
// integer arithmetic. Accumulators update incrementally as moves are
// made and unmade; an Evaluator tracks the caller's search stack and
// materialises accumulator state lazily, falling back to a cached
// refresh table when a king crosses a bucket boundary.
//
// Parameters load from a versioned binary file, optionally
// zstd-compressed. Scores are bit-identical across the scalar and
// vectorised arithmetic backends.
package nnue
