/*
NAME
  quantizer.go

DESCRIPTION
  quantizer.go implements the rate-distortion loop: per-band scale-factor
  search against the psychoacoustic noise budget, the outer global-gain
  loop against the bit budget, a Huffman-cost proxy, and energy-proportional
  cross-channel bit allocation.

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

import (
	"math"
)

const (
	maxScaleFactor  = 60
	maxGlobalGain   = 255
	maxQuantMag     = 8191
	maxOuterIters   = 32
	budgetLow       = 0.85
	budgetHigh      = 1.00
	minChannelShare = 0.15

	// fixedSideInfoBits is the estimated bit cost, per channel per frame,
	// of fields the rate loop itself does not itemise (the 8-bit global
	// gain field; scale-factor overhead is itemised via sf_bits, and TNS
	// side info is taken off the channel budget by the Encoder before
	// allocation).
	fixedSideInfoBits = 8
)

// QuantResult holds one channel's quantizer output for one frame.
type QuantResult struct {
	GlobalGain    int
	ScaleFactors  []int
	Indices       []int
	BitsConsumed  int
	BudgetMissed  bool // true if the outer loop exhausted maxOuterIters still over budget.
}

// Quantizer runs the per-channel rate-distortion loop. It is stateless
// across frames and channels; spec.md §3 "one Quantizer (stateless per
// frame)".
type Quantizer struct{}

func newQuantizer() *Quantizer { return &Quantizer{} }

// dequantMagnitude inverts the 0.75-power quantization rule for coefficient
// magnitude reconstruction, given scale factor sf and global gain g.
func dequantMagnitude(q int, sf, g int) float64 {
	if q == 0 {
		return 0
	}
	mag := math.Pow(math.Abs(float64(q)), 4.0/3.0)
	return mag * math.Pow(2, -float64(sf-g)/4)
}

// quantizeOne applies the AAC non-uniform quantizer to one coefficient
// given scale factor sf and global gain g, clamped to +-maxQuantMag.
func quantizeOne(x float64, sf, g int) int {
	if x == 0 {
		return 0
	}
	mag := math.Abs(x) * math.Pow(2, float64(sf-g)/4)
	q := int(math.Floor(math.Pow(mag, 0.75) + 0.4054))
	if q > maxQuantMag {
		q = maxQuantMag
	}
	if x < 0 {
		q = -q
	}
	return q
}

// huffBits is the fixed Huffman-cost proxy from spec.md §4.E.
func huffBits(q int) int {
	a := q
	if a < 0 {
		a = -a
	}
	switch {
	case a == 0:
		return 0
	case a <= 1:
		return 2
	case a <= 3:
		return 4
	case a <= 7:
		return 6
	case a <= 15:
		return 8
	case a <= 31:
		return 10
	case a <= 63:
		return 13
	case a <= 127:
		return 16
	default:
		return 20
	}
}

// sfBits is the scale-factor differential cost from spec.md §4.E.
func sfBits(delta int) int {
	if delta < 0 {
		delta = -delta
	}
	return 3 + 2*int(math.Ceil(math.Log2(1+float64(delta))))
}

// bandNoisePower returns the sum, over bins [band.Lo,band.Hi), of
// (X[k]-dequant(q[k],sf,g))^2 for the coefficients currently quantized
// with scale factor sf and global gain g.
func bandNoisePower(coeffs []float64, band barkBand, sf, g int, indices []int) float64 {
	var noise float64
	for k := band.Lo; k < band.Hi; k++ {
		q := quantizeOne(coeffs[k], sf, g)
		indices[k] = q
		d := dequantMagnitude(q, sf, g)
		if coeffs[k] < 0 {
			d = -d
		}
		diff := coeffs[k] - d
		noise += diff * diff
	}
	return noise
}

// innerLoop runs the per-band scale-factor search (spec.md §4.E) for a
// fixed global gain g, returning scale factors and quantized indices.
func innerLoop(coeffs []float64, bands []barkBand, thresholds []float64, g int) ([]int, []int) {
	sf := make([]int, len(bands))
	indices := make([]int, len(coeffs))
	for b, band := range bands {
		s := 0
		for {
			noise := bandNoisePower(coeffs, band, s, g, indices)
			if noise <= thresholds[b] || s >= maxScaleFactor {
				break
			}
			s++
		}
		sf[b] = s
	}
	return sf, indices
}

// estimateBits computes the outer loop's bit estimate for one channel:
// Huffman-proxy coefficient cost, differential scale-factor cost and fixed
// side-info bits.
func estimateBits(indices []int, sf []int) int {
	bits := fixedSideInfoBits
	for _, q := range indices {
		bits += huffBits(q)
	}
	prev := 0
	for _, s := range sf {
		bits += sfBits(s - prev)
		prev = s
	}
	return bits
}

// QuantizeChannel runs the full rate-distortion loop for one channel:
// the inner per-band scale-factor search nested inside the outer
// global-gain search against bitBudget. It always returns a usable
// result; a budget miss after maxOuterIters is reported via
// QuantResult.BudgetMissed rather than an error, per spec.md §4.E/§7.
func (q *Quantizer) QuantizeChannel(coeffs []float64, thresholds []float64, bands []barkBand, bitBudget int) QuantResult {
	g := 0
	sf, indices := innerLoop(coeffs, bands, thresholds, g)
	bits := estimateBits(indices, sf)

	best := QuantResult{GlobalGain: g, ScaleFactors: sf, Indices: indices, BitsConsumed: bits}

	for iter := 0; iter < maxOuterIters; iter++ {
		lowWatermark := int(budgetLow * float64(bitBudget))
		highWatermark := int(budgetHigh * float64(bitBudget))

		if bits <= highWatermark && bits >= lowWatermark {
			best = QuantResult{GlobalGain: g, ScaleFactors: sf, Indices: indices, BitsConsumed: bits}
			return best
		}

		if bits > highWatermark {
			g++
		} else if bits < lowWatermark && g > 0 {
			g--
		} else {
			best = QuantResult{GlobalGain: g, ScaleFactors: sf, Indices: indices, BitsConsumed: bits}
			break
		}
		if g > maxGlobalGain {
			g = maxGlobalGain
		}
		if g < 0 {
			g = 0
		}

		sf, indices = innerLoop(coeffs, bands, thresholds, g)
		bits = estimateBits(indices, sf)
		best = QuantResult{GlobalGain: g, ScaleFactors: sf, Indices: indices, BitsConsumed: bits}
	}

	best.BudgetMissed = best.BitsConsumed > int(budgetHigh*float64(bitBudget))
	return best
}

// AllocateChannelBudgets splits totalBudget across channels in proportion
// to each channel's coefficient energy, with a floor of minChannelShare of
// the total for every channel, per spec.md §4.E/§2.
func AllocateChannelBudgets(energies []float64, totalBudget int) []int {
	n := len(energies)
	budgets := make([]int, n)
	if n == 0 {
		return budgets
	}
	if n == 1 {
		budgets[0] = totalBudget
		return budgets
	}

	floor := int(minChannelShare * float64(totalBudget))
	var total float64
	for _, e := range energies {
		total += e
	}

	remaining := totalBudget - floor*n
	if remaining < 0 {
		remaining = 0
	}
	assigned := 0
	for i, e := range energies {
		share := floor
		if total > 0 {
			share += int(float64(remaining) * e / total)
		} else {
			share += remaining / n
		}
		budgets[i] = share
		assigned += share
	}
	// Any leftover bits from integer rounding go to the first channel.
	if diff := totalBudget - assigned; diff != 0 {
		budgets[0] += diff
	}
	return budgets
}
