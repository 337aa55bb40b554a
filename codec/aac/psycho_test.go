/*
NAME
  psycho_test.go

DESCRIPTION
  psycho_test.go contains tests for the Bark-band table and the
  psychoacoustic masking-threshold computation.

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
	"testing"
)

func TestNewPsychoTablesBandsCoverFullRange(t *testing.T) {
	tbl := newPsychoTables(48000, 480)
	if len(tbl.bands) == 0 {
		t.Fatal("no bands built")
	}
	if tbl.bands[0].Lo != 0 {
		t.Errorf("first band Lo = %d, want 0", tbl.bands[0].Lo)
	}
	half := 480 / 2
	if last := tbl.bands[len(tbl.bands)-1]; last.Hi != half {
		t.Errorf("last band Hi = %d, want %d", last.Hi, half)
	}
	for i := 1; i < len(tbl.bands); i++ {
		if tbl.bands[i].Lo != tbl.bands[i-1].Hi {
			t.Errorf("band %d Lo=%d does not follow band %d Hi=%d", i, tbl.bands[i].Lo, i-1, tbl.bands[i-1].Hi)
		}
	}
}

func TestBarkScaleMonotonic(t *testing.T) {
	prev := -1.0
	for f := 20.0; f < 20000; f *= 1.1 {
		b := barkScale(f)
		if b <= prev {
			t.Errorf("barkScale(%v) = %v, not increasing from previous %v", f, b, prev)
		}
		prev = b
	}
}

func TestBarkToHzInvertsBarkScale(t *testing.T) {
	for _, f := range []float64{100, 1000, 5000, 15000} {
		b := barkScale(f)
		got := barkToHz(b)
		if math.Abs(got-f) > f*0.02+1 {
			t.Errorf("barkToHz(barkScale(%v)) = %v, want close to %v", f, got, f)
		}
	}
}

func TestThresholdsFloorAtATH(t *testing.T) {
	const quality = 0.75
	tbl := newPsychoTables(48000, 480)
	p := newPsychoModel(tbl, quality)
	silence := make([]float64, 240)
	thresholds := p.Thresholds(silence, nil)
	for b, th := range thresholds {
		// The ATH floor is applied before the (1.5-quality) scaling.
		floor := tbl.ath[b] * (1.5 - quality)
		if th < floor {
			t.Errorf("band %d threshold %v below quality-scaled ATH floor %v", b, th, floor)
		}
	}
}

func TestThresholdsLoudSignalExceedATH(t *testing.T) {
	tbl := newPsychoTables(48000, 480)
	p := newPsychoModel(tbl, 0.0)
	coeffs := make([]float64, 240)
	for i := range coeffs {
		coeffs[i] = 10
	}
	thresholds := p.Thresholds(coeffs, nil)
	var aboveFloor bool
	for b, th := range thresholds {
		if th > tbl.ath[b]*2 {
			aboveFloor = true
		}
	}
	if !aboveFloor {
		t.Error("expected at least one band's threshold to rise well above its ATH floor for a loud signal")
	}
}

func TestThresholdsTemporalSmoothingFloor(t *testing.T) {
	const quality = 0.75
	tbl := newPsychoTables(48000, 480)
	p := newPsychoModel(tbl, quality)

	loud := make([]float64, 240)
	for i := range loud {
		loud[i] = 50
	}
	first := p.Thresholds(loud, nil)

	silence := make([]float64, 240)
	second := p.Thresholds(silence, first)

	for b := range second {
		// The 0.3*prev smoothing floor is applied before the
		// (1.5-quality) scaling.
		floor := 0.3 * first[b] * (1.5 - quality)
		if second[b] < floor-1e-9 {
			t.Errorf("band %d second-frame threshold %v below quality-scaled 0.3*prev floor %v", b, second[b], floor)
		}
	}
}

func TestThresholdsHigherQualityLowersThresholds(t *testing.T) {
	tbl := newPsychoTables(48000, 480)
	coeffs := make([]float64, 240)
	for i := range coeffs {
		coeffs[i] = 5
	}

	low := newPsychoModel(tbl, 0.0).Thresholds(coeffs, nil)
	high := newPsychoModel(tbl, 1.0).Thresholds(coeffs, nil)

	for b := range low {
		if high[b] > low[b] {
			t.Errorf("band %d: quality=1.0 threshold %v exceeds quality=0.0 threshold %v", b, high[b], low[b])
		}
	}
}
