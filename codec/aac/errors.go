/*
NAME
  errors.go

DESCRIPTION
  errors.go defines the error taxonomy for the AAC-LD style encoder core:
  invalid configuration, input buffer size mismatches, unrecoverable
  internal invariant violations, and bitstream overflow.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package aac

import "fmt"

// InvalidConfig is returned when a Config is constructed, or re-validated,
// with a parameter outside its documented range.
type InvalidConfig struct {
	Message string
}

func (e *InvalidConfig) Error() string { return "invalid config: " + e.Message }

// BufferSizeMismatch is returned when a caller-supplied PCM buffer's length
// does not match what the Config requires: exactly N*channels for
// encode_frame, or a multiple of it for encode_buffer.
type BufferSizeMismatch struct {
	Expected int
	Actual   int
}

func (e *BufferSizeMismatch) Error() string {
	return fmt.Sprintf("buffer size mismatch: expected %d samples, got %d", e.Expected, e.Actual)
}

// EncodingFailed signals an unrecoverable internal invariant violation,
// e.g. a band index computed outside the Bark-band table. It is never
// raised for a rate-budget miss or for NaN/Inf input; both of those are
// absorbed without error (see Stats.BudgetMisses and the NaN sanitisation
// path in encoder.go).
type EncodingFailed struct {
	Message string
}

func (e *EncodingFailed) Error() string { return "encoding failed: " + e.Message }

// BitstreamError is returned by BitWriter when a write exceeds its bit-width
// limit or when a finished frame would overflow the 13-bit ADTS frame-length
// field.
type BitstreamError struct {
	Message string
}

func (e *BitstreamError) Error() string { return "bitstream error: " + e.Message }
