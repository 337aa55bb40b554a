/*
NAME
  stats.go

DESCRIPTION
  stats.go defines the running encoder statistics accumulated across
  frames: frame count, cumulative output bits, cumulative encode time,
  running SNR average and rate-budget misses.

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

import "time"

// Stats holds read-only running statistics for an Encoder. Callers obtain
// a copy via Encoder.Stats(); mutating the copy has no effect on the
// Encoder.
type Stats struct {
	FramesEncoded int
	TotalBits     int64
	EncodeTime    time.Duration
	AvgSNRDB      float64
	BudgetMisses  int
}

// update folds one frame's outcome into the running statistics: total
// bits and encode time accumulate, BudgetMisses counts rate-budget misses,
// and AvgSNRDB is updated as a running mean over frames encoded so far.
func (s *Stats) update(frameBits int, elapsed time.Duration, snrDB float64, budgetMissed bool) {
	s.FramesEncoded++
	s.TotalBits += int64(frameBits)
	s.EncodeTime += elapsed
	if budgetMissed {
		s.BudgetMisses++
	}
	s.AvgSNRDB += (snrDB - s.AvgSNRDB) / float64(s.FramesEncoded)
}

// reset zeroes all statistics.
func (s *Stats) reset() { *s = Stats{} }

// bitrateKbps returns the achieved output bitrate in kbps given the
// configured sample rate and frame size, or 0 if no frames have been
// encoded.
func (s *Stats) bitrateKbps(sampleRate, frameSize int) float64 {
	if s.FramesEncoded == 0 {
		return 0
	}
	totalSamples := float64(s.FramesEncoded * frameSize)
	seconds := totalSamples / float64(sampleRate)
	if seconds <= 0 {
		return 0
	}
	return float64(s.TotalBits) / seconds / 1000
}
