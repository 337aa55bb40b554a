/*
NAME
  tns.go

DESCRIPTION
  tns.go implements the optional temporal-noise-shaping pre-filter: an
  order-4 LPC analysis filter, derived via Levinson-Durbin over the
  log-magnitude spectrum, applied along increasing frequency bin.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

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

	"gonum.org/v1/gonum/floats"
)

const (
	tnsOrder            = 4
	tnsStartBandIndex   = 4
	tnsEnergyThreshold  = 1e-6 // fixed tonal-energy threshold above 2kHz, see spec.md §4.D.
	tnsTonalCeilingHz   = 2000
	tnsReflectionLimit  = 0.999 // clamp applied when reflecting an unstable pole inward.
	tnsCoeffQuantBits   = 4
	tnsCoeffQuantLevels = 1 << (tnsCoeffQuantBits - 1) // signed 4-bit: [-8,7].
)

// TNS applies the per-frame temporal-noise-shaping pre-filter. It is
// stateless across frames: spec.md §3 "one TNS (stateless per frame)".
type TNS struct{}

// TNSSideInfo carries the bitstream fields spec.md §4.D requires: the
// enable bit, filter order (3 bits), start band (4 bits) and the
// coefficients, quantized to tnsCoeffQuantBits bits each.
type TNSSideInfo struct {
	Enabled   bool
	Order     int
	StartBand int
	Coeffs    []int8 // quantized reflection coefficients, length Order when Enabled.
}

// newTNS returns a stateless TNS pre-filter.
func newTNS() *TNS { return &TNS{} }

// Apply runs the TNS pre-filter over coeffs (length N/2) given the Bark-band
// table, returning the (possibly unmodified) coefficients and the side
// information to serialise. When useTNS is false, or the tonal-energy gate
// in spec.md §4.D is not met, or Levinson-Durbin fails to produce a stable
// filter even after reflecting poles inward, TNS is skipped and the
// returned side info has Enabled=false.
func (t *TNS) Apply(coeffs []float64, bands []barkBand, useTNS bool) ([]float64, TNSSideInfo) {
	if !useTNS || len(bands) <= tnsStartBandIndex {
		return coeffs, TNSSideInfo{}
	}

	if !tonalGateOpen(coeffs, bands) {
		return coeffs, TNSSideInfo{}
	}

	lo := bands[tnsStartBandIndex].Lo
	hi := bands[len(bands)-1].Hi
	if hi-lo <= tnsOrder {
		return coeffs, TNSSideInfo{}
	}

	logMag := make([]float64, hi-lo)
	for i, k := lo, 0; i < hi; i, k = i+1, k+1 {
		logMag[k] = math.Log(math.Abs(coeffs[i]) + 1e-12)
	}

	a, reflect, ok := levinsonDurbin(logMag, tnsOrder)
	if !ok {
		return coeffs, TNSSideInfo{}
	}

	out := make([]float64, len(coeffs))
	copy(out, coeffs)
	filterInPlace(out, lo, hi, a)

	qcoeffs := make([]int8, tnsOrder)
	for i, r := range reflect {
		qcoeffs[i] = quantizeReflection(r)
	}

	return out, TNSSideInfo{
		Enabled:   true,
		Order:     tnsOrder,
		StartBand: tnsStartBandIndex,
		Coeffs:    qcoeffs,
	}
}

// tonalGateOpen reports whether any band centred above tnsTonalCeilingHz Hz
// has energy above tnsEnergyThreshold.
func tonalGateOpen(coeffs []float64, bands []barkBand) bool {
	for _, band := range bands {
		if band.Center < tnsTonalCeilingHz {
			continue
		}
		var e float64
		for k := band.Lo; k < band.Hi; k++ {
			e += coeffs[k] * coeffs[k]
		}
		if e > tnsEnergyThreshold {
			return true
		}
	}
	return false
}

// levinsonDurbin computes order-4 LPC coefficients a[1..order] (returned
// with a[0] omitted, i.e. len(a)==order) and the reflection coefficients
// for signal x via the autocorrelation method. Any reflection coefficient
// that leaves the unit circle is reflected back in to
// tnsReflectionLimit*sign, and ok is false only if the recursion
// degenerates (zero prediction error at order 0).
func levinsonDurbin(x []float64, order int) (a []float64, reflect []float64, ok bool) {
	r := make([]float64, order+1)
	for lag := 0; lag <= order; lag++ {
		if lag >= len(x) {
			break
		}
		r[lag] = floats.Dot(x[:len(x)-lag], x[lag:])
	}
	if r[0] == 0 {
		return nil, nil, false
	}

	aCur := make([]float64, order+1)
	err := r[0]
	reflect = make([]float64, order)

	for i := 1; i <= order; i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc -= aCur[j] * r[i-j]
		}
		k := acc / err
		if k <= -1 || k >= 1 {
			if k < 0 {
				k = -tnsReflectionLimit
			} else {
				k = tnsReflectionLimit
			}
		}
		reflect[i-1] = k

		aPrev := append([]float64(nil), aCur...)
		aCur[i] = k
		for j := 1; j < i; j++ {
			aCur[j] = aPrev[j] - k*aPrev[i-j]
		}
		err *= 1 - k*k
		if err <= 0 {
			return nil, nil, false
		}
	}

	return aCur[1 : order+1], reflect, true
}

// filterInPlace applies the LPC analysis (whitening) filter
// y[k] = x[k] - sum_i a[i]*x[k-i] along increasing k over [lo,hi), treating
// samples before lo as zero.
func filterInPlace(coeffs []float64, lo, hi int, a []float64) {
	x := make([]float64, hi-lo)
	copy(x, coeffs[lo:hi])
	for k := 0; k < len(x); k++ {
		y := x[k]
		for i := 1; i <= len(a); i++ {
			if k-i < 0 {
				continue
			}
			y -= a[i-1] * x[k-i]
		}
		coeffs[lo+k] = y
	}
}

// quantizeReflection maps a reflection coefficient in (-1,1) to a signed
// tnsCoeffQuantBits-bit value.
func quantizeReflection(r float64) int8 {
	q := int(math.Round(r * float64(tnsCoeffQuantLevels)))
	if q > tnsCoeffQuantLevels-1 {
		q = tnsCoeffQuantLevels - 1
	}
	if q < -tnsCoeffQuantLevels {
		q = -tnsCoeffQuantLevels
	}
	return int8(q)
}
