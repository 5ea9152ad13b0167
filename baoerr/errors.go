// Package baoerr defines the error kinds shared by bao's encoder, decoder,
// and slice packages.
package baoerr

import "errors"

// Fatal error kinds for a streaming decode or slice operation. Once any of
// these occurs, the operation that produced it is poisoned: every
// subsequent call returns the same error without consuming further input.
var (
	// ErrHashMismatch means an authenticated node did not match its
	// expected hash.
	ErrHashMismatch = errors.New("bao: hash mismatch")

	// ErrTruncated means the encoded source ended before a required node
	// was fully read.
	ErrTruncated = errors.New("bao: truncated encoding")

	// ErrOverflow means an offset, length, or encoded-size computation
	// would exceed the range of a uint64.
	ErrOverflow = errors.New("bao: size overflow")

	// ErrInvalidRange means a seek target or a slice's (offset, length)
	// parameters could not be resolved against the encoding.
	ErrInvalidRange = errors.New("bao: invalid range")
)
