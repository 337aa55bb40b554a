/*
NAME
  config.go

DESCRIPTION
  config.go defines Config, the immutable (post-validation) parameter set
  for the AAC-LD style encoder core, along with the sample-rate table and
  derived frame-size lookup.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package aac implements the core of a low-delay perceptual audio encoder
// modelled on the MPEG-4 AAC-LD profile: windowed MDCT analysis, a
// psychoacoustic masking model, an optional TNS pre-filter, a
// rate-distortion quantizer loop and an ADTS-style bitstream packer.
//
// PCM file I/O, WAV parsing, CLI handling, audio gain/resample utilities,
// test-signal generation and benchmarking are deliberately out of scope;
// they are external collaborators that produce the PCM this package
// consumes and consume the byte frames this package produces.
package aac

import (
	"fmt"

	"github.com/ausocean/utils/logging"
)

// minHeaderBits is the fixed ADTS-style header size in bits (56 bits, see
// BitWriter.WriteADTSHeader), the minimum any per-frame bit budget must
// reach.
const minHeaderBits = 56

// sampleRateEntry pairs a supported sample rate with its ADTS
// sample-rate-index and derived per-channel frame size N.
type sampleRateEntry struct {
	rate      int
	index     uint8
	frameSize int
}

// sampleRateTable lists the 13 sample rates this encoder accepts. The ADTS
// sample-rate-index table nominally has 16 slots (indices 13-15 are
// reserved/escape in the MPEG-4 spec and carry no encoder-usable rate), so
// the configuration contract is deliberately narrowed to agree with it: a
// sample rate inside the nominal 8,000-96,000 Hz range but outside this set
// is rejected rather than silently mapped to an escape code (see DESIGN.md,
// Open Question decisions).
var sampleRateTable = []sampleRateEntry{
	{96000, 0, 512},
	{88200, 1, 512},
	{64000, 2, 512},
	{48000, 3, 480},
	{44100, 4, 480},
	{32000, 5, 320},
	{24000, 6, 240},
	{22050, 7, 220},
	{16000, 8, 240},
	{12000, 9, 240},
	{11025, 10, 240},
	{8000, 11, 240},
	{7350, 12, 240},
}

func lookupSampleRate(rate int) (sampleRateEntry, bool) {
	for _, e := range sampleRateTable {
		if e.rate == rate {
			return e, true
		}
	}
	return sampleRateEntry{}, false
}

// Config holds the validated, immutable-after-construction parameters for
// an Encoder. A Config is produced by New; Quality, UseTNS and UsePNS may
// be changed before the Config is passed to NewEncoder, which re-validates
// it. NewEncoder keeps its own copy, so changes made to a Config afterwards
// do not affect an existing Encoder.
type Config struct {
	// SampleRate is the PCM sample rate in Hz. Must be one of the 13 rates
	// in sampleRateTable.
	SampleRate int

	// Channels is the number of interleaved PCM channels, 1-8.
	Channels int

	// Bitrate is the target output bitrate in bits/second, 8,000-320,000.
	Bitrate int

	// Quality is a perceptual-slack factor in [0,1]; higher quality lowers
	// the noise ceiling computed by the psychoacoustic model.
	Quality float64

	// UseTNS enables the temporal-noise-shaping pre-filter.
	UseTNS bool

	// UsePNS is accepted for forward source compatibility but has no
	// defined behaviour in this encoder (see DESIGN.md, Open Question
	// decisions).
	UsePNS bool

	// Logger, if set, receives Debug-level diagnostics from the encoder.
	// Only rate-budget misses are logged; TNS skips and NaN sanitisation
	// are not. When nil, the package-level Log variable is used instead if
	// it is non-nil.
	Logger logging.Logger

	// frameSize is N, the derived number of PCM samples per channel per
	// frame.
	frameSize int

	// rateIndex is the ADTS sample-rate-index for SampleRate.
	rateIndex uint8
}

// Defaults matching the reference encoder configuration documented in
// spec.md §4.G.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultBitrate    = 128000
	DefaultQuality    = 0.75
	DefaultUseTNS     = true
	DefaultUsePNS     = false
)

// New validates sampleRate, channels and bitrate and returns a Config with
// default Quality, UseTNS and UsePNS, or an *InvalidConfig error. Callers
// that need non-default Quality/UseTNS/UsePNS should set those fields on
// the returned Config and call Validate() again.
func New(sampleRate, channels, bitrate int) (*Config, error) {
	c := &Config{
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
		Quality:    DefaultQuality,
		UseTNS:     DefaultUseTNS,
		UsePNS:     DefaultUsePNS,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks every field against its documented range, recomputes the
// derived frame size and sample-rate index, and reports the first
// violation found. validate is idempotent: calling it repeatedly with an
// unchanged Config always returns the same result and never mutates a
// previously-valid Config's public fields.
func (c *Config) validate() error {
	entry, ok := lookupSampleRate(c.SampleRate)
	if !ok {
		return &InvalidConfig{Message: fmt.Sprintf("unsupported sample rate %d Hz", c.SampleRate)}
	}
	if c.Channels < 1 || c.Channels > 8 {
		return &InvalidConfig{Message: fmt.Sprintf("channels %d out of range [1,8]", c.Channels)}
	}
	if c.Bitrate < 8000 || c.Bitrate > 320000 {
		return &InvalidConfig{Message: fmt.Sprintf("bitrate %d out of range [8000,320000]", c.Bitrate)}
	}
	if c.Quality < 0 || c.Quality > 1 {
		return &InvalidConfig{Message: fmt.Sprintf("quality %v out of range [0,1]", c.Quality)}
	}
	if entry.frameSize%2 != 0 {
		return &InvalidConfig{Message: fmt.Sprintf("derived frame size %d is not even", entry.frameSize)}
	}
	budget := c.bitsPerFrame(entry.frameSize)
	if budget < minHeaderBits {
		return &InvalidConfig{Message: fmt.Sprintf("bit budget %d below minimum header size %d", budget, minHeaderBits)}
	}

	c.frameSize = entry.frameSize
	c.rateIndex = entry.index
	return nil
}

// Validate re-runs the checks New performs, for a caller that has changed
// Quality, UseTNS or UsePNS after construction. It is idempotent.
func (c *Config) Validate() error { return c.validate() }

// bitsPerFrame computes B = bitrate * N / sample_rate, the total bit
// budget (header + side info + payload) for one frame across all
// channels.
func (c *Config) bitsPerFrame(n int) int {
	return c.Bitrate * n / c.SampleRate
}

// FrameSize returns N, the number of PCM samples per channel consumed by
// one call to encode_frame.
func (c *Config) FrameSize() int { return c.frameSize }

// SampleRateIndex returns the ADTS sample-rate-index for c.SampleRate.
func (c *Config) SampleRateIndex() uint8 { return c.rateIndex }

// BitBudget returns the total bits-per-frame budget B.
func (c *Config) BitBudget() int { return c.bitsPerFrame(c.frameSize) }

func (c *Config) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Log
}
