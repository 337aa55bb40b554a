/*
NAME
  config_test.go

DESCRIPTION
  config_test.go contains tests for Config construction and validation.

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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewDefaults(t *testing.T) {
	c, err := New(DefaultSampleRate, DefaultChannels, DefaultBitrate)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if c.Quality != DefaultQuality {
		t.Errorf("Quality = %v, want %v", c.Quality, DefaultQuality)
	}
	if c.UseTNS != DefaultUseTNS {
		t.Errorf("UseTNS = %v, want %v", c.UseTNS, DefaultUseTNS)
	}
	if c.UsePNS != DefaultUsePNS {
		t.Errorf("UsePNS = %v, want %v", c.UsePNS, DefaultUsePNS)
	}
	if c.FrameSize() != 480 {
		t.Errorf("FrameSize() = %d, want 480", c.FrameSize())
	}
	if c.SampleRateIndex() != 4 {
		t.Errorf("SampleRateIndex() = %d, want 4", c.SampleRateIndex())
	}
}

func TestNewInvalid(t *testing.T) {
	cases := []struct {
		name              string
		rate, ch, bitrate int
	}{
		{"unsupported rate", 44000, 2, 128000},
		{"zero channels", 44100, 0, 128000},
		{"too many channels", 44100, 9, 128000},
		{"bitrate too low", 44100, 2, 1000},
		{"bitrate too high", 44100, 2, 1000000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.rate, c.ch, c.bitrate)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, ok := err.(*InvalidConfig); !ok {
				t.Errorf("error type = %T, want *InvalidConfig", err)
			}
		})
	}
}

func TestNewMinimalBitrateAccepted(t *testing.T) {
	// 7350Hz frame size 240, bitrate at the floor 8000 still yields a
	// comfortably large per-frame budget, so this exercises the minimum
	// accepted combination rather than the budget floor itself.
	c, err := New(7350, 1, 8000)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if c.BitBudget() < minHeaderBits {
		t.Errorf("BitBudget() = %d, below header minimum %d", c.BitBudget(), minHeaderBits)
	}
}

func TestAllSampleRatesAccepted(t *testing.T) {
	for _, e := range sampleRateTable {
		c, err := New(e.rate, 2, 128000)
		if err != nil {
			t.Errorf("rate %d: unexpected error: %v", e.rate, err)
			continue
		}
		if c.FrameSize()%2 != 0 {
			t.Errorf("rate %d: frame size %d is not even", e.rate, c.FrameSize())
		}
		if c.SampleRateIndex() != e.index {
			t.Errorf("rate %d: index = %d, want %d", e.rate, c.SampleRateIndex(), e.index)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	c, err := New(48000, 2, 128000)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	first := *c
	if err := c.validate(); err != nil {
		t.Fatalf("did not expect error on revalidate: %v", err)
	}
	if diff := cmp.Diff(first, *c, cmp.AllowUnexported(Config{})); diff != "" {
		t.Errorf("validate() mutated an already-valid Config (-want +got):\n%s", diff)
	}
}

func TestLoggerFallsBackToPackageLevel(t *testing.T) {
	c, err := New(48000, 2, 128000)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if c.logger() != nil {
		t.Errorf("logger() = %v, want nil with no Logger set and no package-level Log", c.logger())
	}

	dl := &dumbLogger{}
	c.Logger = dl
	if c.logger() != dl {
		t.Errorf("logger() did not return the Config's own Logger")
	}
}
