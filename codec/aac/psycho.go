/*
NAME
  psycho.go

DESCRIPTION
  psycho.go implements the psychoacoustic model: the Bark-band table, the
  basilar-membrane spreading function, spectral-flatness tonality
  classification and the per-band masking-threshold computation.

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
	"gonum.org/v1/gonum/stat"
)

// targetBarkBands is the nominal number of Bark bands B from spec.md §3
// ("B ≈ 24 up to Nyquist"). The table actually built may have fewer bands
// if the frame size leaves too few bins to fill all of them.
const targetBarkBands = 24

// athFloorScale calibrates the absolute-threshold-of-hearing curve (defined
// in dB SPL, an acoustic reference this encoder has no access to) against
// the linear MDCT-coefficient-energy scale produced by PCM normalised to
// [-1,1]. It is a fixed, small floor chosen so that near-silent input is
// still governed by the ATH curve's shape rather than by zero.
const athFloorScale = 1e-9

// barkBand describes one perceptual band: its bin range [Lo,Hi), its
// centre frequency in Hz and its position on the Bark scale.
type barkBand struct {
	Lo, Hi int
	Center float64
	Bark   float64
}

// psychoTables holds the per-sample-rate, per-frame-size tables built once
// at encoder construction and shared read-only across frames and channels.
type psychoTables struct {
	bands  []barkBand
	spread *mat.Dense // spread[b][b'] = linear contribution of band b' at band b.
	ath    []float64  // absolute threshold of hearing floor per band.
}

// barkScale converts a frequency in Hz to the Bark scale using the
// Zwicker-Terhardt arctangent approximation.
func barkScale(freqHz float64) float64 {
	return 13*math.Atan(0.00076*freqHz) + 3.5*math.Atan(math.Pow(freqHz/7500, 2))
}

// athDB approximates the absolute threshold of hearing in dB SPL at freqHz,
// using the standard Terhardt approximation (freqHz given in Hz here,
// converted to kHz internally).
func athDB(freqHz float64) float64 {
	fk := freqHz / 1000
	if fk < 0.02 {
		fk = 0.02 // avoid a blow-up at/below DC.
	}
	return 3.64*math.Pow(fk, -0.8) - 6.5*math.Exp(-0.6*math.Pow(fk-3.3, 2)) + 1e-3*math.Pow(fk, 4)
}

// newPsychoTables builds the Bark-band table, spreading matrix and ATH
// floor for a sample rate and frame size, dividing the Nyquist range into
// up to targetBarkBands bands of roughly equal Bark-scale width.
func newPsychoTables(sampleRate, frameSize int) *psychoTables {
	half := frameSize / 2
	nyquist := float64(sampleRate) / 2
	maxBark := barkScale(nyquist)

	binFreq := func(k int) float64 { return (float64(k) + 0.5) * float64(sampleRate) / float64(frameSize) }

	edges := make([]int, 0, targetBarkBands+1)
	edges = append(edges, 0)
	for i := 1; i < targetBarkBands; i++ {
		b := maxBark * float64(i) / float64(targetBarkBands)
		f := barkToHz(b)
		k := int(f * float64(frameSize) / float64(sampleRate))
		if k < 1 {
			k = 1
		}
		if k > half {
			k = half
		}
		edges = append(edges, k)
	}
	edges = append(edges, half)

	var bands []barkBand
	for i := 0; i < len(edges)-1; i++ {
		lo, hi := edges[i], edges[i+1]
		if hi <= lo {
			continue // degenerate band collapsed by rounding; drop it.
		}
		center := binFreq((lo + hi - 1) / 2)
		bands = append(bands, barkBand{Lo: lo, Hi: hi, Center: center, Bark: barkScale(center)})
	}
	if len(bands) == 0 {
		bands = []barkBand{{Lo: 0, Hi: half, Center: binFreq(half / 2), Bark: barkScale(binFreq(half / 2))}}
	}

	n := len(bands)
	spreadData := make([]float64, n*n)
	ath := make([]float64, n)
	for b := 0; b < n; b++ {
		for bp := 0; bp < n; bp++ {
			d := bands[b].Bark - bands[bp].Bark
			var db float64
			if d >= 0 {
				db = -10 * d
			} else {
				db = 27 * d
			}
			spreadData[b*n+bp] = math.Pow(10, db/10)
		}
		ath[b] = athFloorScale * math.Pow(10, athDB(bands[b].Center)/10)
	}

	return &psychoTables{
		bands:  bands,
		spread: mat.NewDense(n, n, spreadData),
		ath:    ath,
	}
}

// barkToHz inverts barkScale by bisection; barkScale has no closed-form
// inverse.
func barkToHz(bark float64) float64 {
	if bark <= 0 {
		return 0
	}
	lo, hi := 0.0, 30000.0
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if barkScale(mid) < bark {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// PsychoModel computes per-band masking thresholds from MDCT coefficient
// magnitudes. One PsychoModel is shared read-only across all channels of
// an Encoder; temporal smoothing state (the previous frame's thresholds)
// is kept per channel by the caller (FrameEncoder), not here, since each
// channel's history is independent.
type PsychoModel struct {
	tbl     *psychoTables
	quality float64
}

// newPsychoModel returns a PsychoModel over tbl, scaling thresholds by the
// given quality factor (spec.md §4.C step 8).
func newPsychoModel(tbl *psychoTables, quality float64) *PsychoModel {
	return &PsychoModel{tbl: tbl, quality: quality}
}

// Bands returns the shared, read-only Bark-band table.
func (p *PsychoModel) Bands() []barkBand { return p.tbl.bands }

// Thresholds computes T[b] for each band from coefficient magnitudes coeffs
// (length N/2) and the previous frame's thresholds prev (nil on the first
// frame, in which case temporal smoothing floors at 0).
func (p *PsychoModel) Thresholds(coeffs []float64, prev []float64) []float64 {
	bands := p.tbl.bands
	n := len(bands)

	energy := make([]float64, n)
	offset := make([]float64, n)
	for b, band := range bands {
		mags := make([]float64, 0, band.Hi-band.Lo)
		var e float64
		for k := band.Lo; k < band.Hi; k++ {
			m := math.Abs(coeffs[k])
			mags = append(mags, m)
			e += m * m
		}
		energy[b] = e

		mean := stat.Mean(mags, nil)
		var sfm float64
		if mean > 0 {
			gmean := stat.GeometricMean(mags, nil)
			sfm = gmean / mean
		}
		var alpha float64
		if sfm > 0 {
			alpha = -0.299*math.Log10(sfm) - 0.43
		}
		alpha = math.Max(0, math.Min(1, alpha))

		offset[b] = alpha*(14.5+float64(b)) + (1-alpha)*5.5
	}

	energyVec := mat.NewVecDense(n, energy)
	var spreadVec mat.VecDense
	spreadVec.MulVec(p.tbl.spread, energyVec)

	thresholds := make([]float64, n)
	for b := 0; b < n; b++ {
		s := spreadVec.AtVec(b)
		t0 := s * math.Pow(10, -offset[b]/10)

		var prevT float64
		if prev != nil && b < len(prev) {
			prevT = prev[b]
		}
		t := math.Max(p.tbl.ath[b], math.Max(t0, 0.3*prevT))
		t *= 1.5 - p.quality
		thresholds[b] = t
	}
	return thresholds
}
