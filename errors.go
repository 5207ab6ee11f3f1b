package nnue

import "errors"

// Error taxonomy for parameter loading. Runtime evaluation has no
// recoverable errors: once a network is loaded, Evaluate is a pure
// function of the accumulator state.
var (
	// ErrMalformed reports a structurally invalid parameter stream:
	// bad magic, unsupported version, an architecture id that does not
	// match the configured architecture, or inconsistent dimensions.
	ErrMalformed = errors.New("nnue: malformed parameter stream")

	// ErrTruncated reports EOF while weights or biases were still owed.
	ErrTruncated = errors.New("nnue: truncated parameter stream")

	// ErrInvariant reports a caller-side contract violation, such as
	// popping past the bottom of the accumulator stack or pushing past
	// its capacity. These are programming errors, not runtime
	// conditions.
	ErrInvariant = errors.New("nnue: invariant violated")
)
