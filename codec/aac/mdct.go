/*
NAME
  mdct.go

DESCRIPTION
  mdct.go implements the windowed forward MDCT with 50%-overlap carry-over
  state used as the encoder's time-to-frequency analysis stage.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package aac

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// mdctTable holds a precomputed windowed-cosine analysis matrix shared
// read-only across all channels using the same frame size N. Row k, column
// n holds w[n]*cos(pi/N * (n+0.5+N/2) * (k+0.5)), for the 3N/2-sample
// concatenated block (overlap_state ++ channel_input); see the block-length
// note in DESIGN.md.
type mdctTable struct {
	n       int // frame size.
	blockLen int // len(overlap_state) + len(channel_input) = N/2 + N.
	table   *mat.Dense
}

// newMDCTTable builds the shared analysis matrix for frame size n.
func newMDCTTable(n int) *mdctTable {
	half := n / 2
	blockLen := half + n

	data := make([]float64, half*blockLen)
	for k := 0; k < half; k++ {
		for sampleIdx := 0; sampleIdx < blockLen; sampleIdx++ {
			w := math.Sin(math.Pi * (float64(sampleIdx) + 0.5) / float64(2*blockLen))
			c := math.Cos(math.Pi / float64(n) * (float64(sampleIdx) + 0.5 + float64(half)) * (float64(k) + 0.5))
			data[k*blockLen+sampleIdx] = w * c
		}
	}
	return &mdctTable{
		n:        n,
		blockLen: blockLen,
		table:    mat.NewDense(half, blockLen, data),
	}
}

// MDCT converts 50%-overlapping blocks of time-domain samples into
// frequency-domain coefficients. An MDCT instance owns one channel's
// overlap state and is not safe for concurrent use; an Encoder owns one
// MDCT per channel.
type MDCT struct {
	tbl     *mdctTable
	overlap []float64 // length N/2, the most recent N/2 input samples.
}

// newMDCT returns an MDCT sharing tbl, with zero-initialised overlap state
// of length n/2.
func newMDCT(tbl *mdctTable) *MDCT {
	return &MDCT{tbl: tbl, overlap: make([]float64, tbl.n/2)}
}

// Forward runs one frame through the MDCT: input must have length N. It
// returns a freshly-allocated length-N/2 coefficient slice and updates the
// MDCT's retained overlap state to the last N/2 samples of input.
//
// Input values outside [-1,1] are accepted unmodified; NaN/Inf values
// propagate into NaN coefficients, which the caller (FrameEncoder) is
// responsible for sanitising before this call, per spec.md §7.
func (m *MDCT) Forward(input []float64) []float64 {
	n := m.tbl.n
	half := n / 2
	if len(input) != n {
		panic("aac: MDCT.Forward called with wrong input length")
	}

	block := make([]float64, m.tbl.blockLen)
	copy(block, m.overlap)
	copy(block[half:], input)

	blockVec := mat.NewVecDense(len(block), block)
	var out mat.VecDense
	out.MulVec(m.tbl.table, blockVec)

	coeffs := make([]float64, half)
	for k := 0; k < half; k++ {
		coeffs[k] = out.AtVec(k)
	}

	copy(m.overlap, input[n-half:])

	return coeffs
}

// Reset zeroes the overlap state, as if the MDCT had just been constructed.
func (m *MDCT) Reset() {
	for i := range m.overlap {
		m.overlap[i] = 0
	}
}

// AlgorithmicDelaySamples returns N/2, the number of samples of latency
// introduced by the 50%-overlap analysis window.
func (m *MDCT) AlgorithmicDelaySamples() int { return m.tbl.n / 2 }
