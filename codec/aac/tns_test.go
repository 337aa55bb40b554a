/*
NAME
  tns_test.go

DESCRIPTION
  tns_test.go contains tests for the temporal-noise-shaping pre-filter.

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
	"testing"
)

func bandsFor(t *testing.T, sampleRate, frameSize int) []barkBand {
	t.Helper()
	return newPsychoTables(sampleRate, frameSize).bands
}

func TestTNSApplyDisabledReturnsInputUnchanged(t *testing.T) {
	bands := bandsFor(t, 48000, 480)
	coeffs := sineWave(240, 48000, 3000, 1)
	tns := newTNS()

	out, info := tns.Apply(coeffs, bands, false)
	if info.Enabled {
		t.Error("Enabled = true when useTNS was false")
	}
	for k := range coeffs {
		if out[k] != coeffs[k] {
			t.Fatalf("coefficient %d modified when TNS disabled", k)
		}
	}
}

func TestTNSApplySilenceGateClosed(t *testing.T) {
	bands := bandsFor(t, 48000, 480)
	coeffs := make([]float64, 240)
	tns := newTNS()

	_, info := tns.Apply(coeffs, bands, true)
	if info.Enabled {
		t.Error("Enabled = true for silent input, want gate closed")
	}
}

func TestTNSApplyTonalHighFrequencyEnables(t *testing.T) {
	bands := bandsFor(t, 48000, 480)
	// A strong tone above the 2kHz gate, concentrated in frequency, should
	// trip the tonal-energy gate and produce a stable order-4 filter.
	coeffs := make([]float64, 240)
	binFreq := func(k int) float64 { return (float64(k) + 0.5) * 48000 / 480 }
	for k := range coeffs {
		f := binFreq(k)
		if f > 3000 && f < 4000 {
			coeffs[k] = 1.0
		}
	}
	tns := newTNS()
	out, info := tns.Apply(coeffs, bands, true)
	if !info.Enabled {
		t.Fatal("Enabled = false for a strong high-frequency tone, want true")
	}
	if info.Order != tnsOrder {
		t.Errorf("Order = %d, want %d", info.Order, tnsOrder)
	}
	if len(info.Coeffs) != tnsOrder {
		t.Errorf("len(Coeffs) = %d, want %d", len(info.Coeffs), tnsOrder)
	}
	for _, c := range info.Coeffs {
		if c < -8 || c > 7 {
			t.Errorf("quantized reflection coefficient %d outside signed 4-bit range", c)
		}
	}
	for k, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("filtered coefficient %d = %v, want finite", k, v)
		}
	}
}

func TestQuantizeReflectionClampsToRange(t *testing.T) {
	if got := quantizeReflection(2.0); got != tnsCoeffQuantLevels-1 {
		t.Errorf("quantizeReflection(2.0) = %d, want %d", got, tnsCoeffQuantLevels-1)
	}
	if got := quantizeReflection(-2.0); got != -tnsCoeffQuantLevels {
		t.Errorf("quantizeReflection(-2.0) = %d, want %d", got, -tnsCoeffQuantLevels)
	}
	if got := quantizeReflection(0); got != 0 {
		t.Errorf("quantizeReflection(0) = %d, want 0", got)
	}
}

func TestLevinsonDurbinZeroEnergyFails(t *testing.T) {
	_, _, ok := levinsonDurbin(make([]float64, 16), 4)
	if ok {
		t.Error("expected ok=false for all-zero input")
	}
}

func TestLevinsonDurbinStableForRandomishSignal(t *testing.T) {
	x := make([]float64, 32)
	for i := range x {
		x[i] = math.Sin(float64(i)) + 0.3*math.Sin(float64(i)*3.1)
	}
	a, reflect, ok := levinsonDurbin(x, 4)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(a) != 4 {
		t.Errorf("len(a) = %d, want 4", len(a))
	}
	if len(reflect) != 4 {
		t.Errorf("len(reflect) = %d, want 4", len(reflect))
	}
	for i, r := range reflect {
		if r <= -1 || r >= 1 {
			t.Errorf("reflect[%d] = %v, want inside (-1,1)", i, r)
		}
	}
}
