/*
NAME
  testutil_test.go

DESCRIPTION
  testutil_test.go provides shared test helpers for the aac package's
  tests: a no-op logging.Logger implementation, a sine-wave generator and
  a channel interleaver.

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

import "math"

// dumbLogger is a no-op logging.Logger for tests that need to supply a
// non-nil Logger without asserting on what gets logged.
type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

// sineWave returns n samples of a sine wave at freqHz sampled at
// sampleRate, amplitude amp.
func sineWave(n, sampleRate int, freqHz, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
	}
	return out
}

// interleave combines per-channel sample slices (all the same length) into
// one interleaved slice.
func interleave(channels [][]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]float64, 0, n*len(channels))
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			out = append(out, ch[i])
		}
	}
	return out
}
