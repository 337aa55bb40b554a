/*
NAME
  encoder.go

DESCRIPTION
  encoder.go implements Encoder (the FrameEncoder component), the orchestrator that drives the
  per-frame pipeline (MDCT, TNS, PsychoModel, Quantizer, BitWriter) across
  all configured channels and maintains running statistics.

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
	"time"

	"github.com/ausocean/utils/logging"
)

// Log is the package-level logger used when a Config has no Logger set.
// Embedding applications that want diagnostics from an Encoder constructed
// without a Config.Logger should assign this before encoding; it is
// nil-checked at every call site and is safe to leave unset.
var Log logging.Logger

// Encoder is the top-level entry point: it owns a Config, one MDCT per
// channel, a shared PsychoModel, a stateless TNS and Quantizer, and one
// reused BitWriter. It is single-threaded and synchronous: encode_frame
// never blocks, suspends or yields, and an Encoder instance must not be
// shared across goroutines without external locking (see spec.md §5).
type Encoder struct {
	cfg      Config
	mdctTbl  *mdctTable
	psychTbl *psychoTables
	mdcts    []*MDCT
	psycho   *PsychoModel
	tns      *TNS
	quant    *Quantizer
	bw       *BitWriter

	prevThresholds [][]float64 // per channel, nil until each channel's first frame.
	stats          Stats
}

// NewEncoder constructs an Encoder from a validated Config, precomputing
// the shared MDCT cosine table and psychoacoustic tables for cfg's sample
// rate and frame size, and allocating one MDCT (with zero overlap state)
// per channel.
func NewEncoder(cfg *Config) (*Encoder, error) {
	if cfg == nil {
		return nil, &InvalidConfig{Message: "nil config"}
	}
	c := *cfg
	if err := c.validate(); err != nil {
		return nil, err
	}

	mdctTbl := newMDCTTable(c.frameSize)
	psychTbl := newPsychoTables(c.SampleRate, c.frameSize)

	mdcts := make([]*MDCT, c.Channels)
	for i := range mdcts {
		mdcts[i] = newMDCT(mdctTbl)
	}

	return &Encoder{
		cfg:            c,
		mdctTbl:        mdctTbl,
		psychTbl:       psychTbl,
		mdcts:          mdcts,
		psycho:         newPsychoModel(psychTbl, c.Quality),
		tns:            newTNS(),
		quant:          newQuantizer(),
		bw:             NewBitWriter(),
		prevThresholds: make([][]float64, c.Channels),
	}, nil
}

// Config returns a copy of the Encoder's configuration.
func (e *Encoder) Config() Config { return e.cfg }

// Stats returns a copy of the Encoder's running statistics.
func (e *Encoder) Stats() Stats { return e.stats }

// ResetStats zeroes the running statistics without touching overlap or
// threshold-smoothing state.
func (e *Encoder) ResetStats() { e.stats.reset() }

// Reset zeroes overlap state and previous-threshold smoothing state for
// every channel, preserving Config and statistics. Calling Reset twice in
// a row is equivalent to calling it once.
func (e *Encoder) Reset() {
	for _, m := range e.mdcts {
		m.Reset()
	}
	for i := range e.prevThresholds {
		e.prevThresholds[i] = nil
	}
}

// FrameDurationMS returns the duration, in milliseconds, of audio consumed
// by one encode_frame call.
func (e *Encoder) FrameDurationMS() float64 {
	return 1000 * float64(e.cfg.frameSize) / float64(e.cfg.SampleRate)
}

// AlgorithmicDelaySamples returns N/2, the MDCT's analysis latency and this
// encoder's stated real-time latency.
func (e *Encoder) AlgorithmicDelaySamples() int { return e.cfg.frameSize / 2 }

// IsRealtimeCapable reports whether the algorithmic delay fits within
// maxLatencyMS.
func (e *Encoder) IsRealtimeCapable(maxLatencyMS float64) bool {
	delayMS := 1000 * float64(e.AlgorithmicDelaySamples()) / float64(e.cfg.SampleRate)
	return delayMS <= maxLatencyMS
}

// AchievedBitrateKbps returns the actual output bitrate in kbps averaged
// over all frames encoded so far, or 0 before the first frame.
func (e *Encoder) AchievedBitrateKbps() float64 {
	return e.stats.bitrateKbps(e.cfg.SampleRate, e.cfg.frameSize)
}

// EstimatedMemoryKB approximates the Encoder's steady-state memory
// footprint in KB: the shared MDCT and spreading tables plus per-channel
// overlap buffers. It is a rough accounting aid, not a precise allocator
// measurement.
func (e *Encoder) EstimatedMemoryKB() float64 {
	const bytesPerFloat = 8
	half := e.cfg.frameSize / 2
	mdctTableBytes := half * e.mdctTbl.blockLen * bytesPerFloat
	bandCount := len(e.psychTbl.bands)
	spreadBytes := bandCount * bandCount * bytesPerFloat
	overlapBytes := e.cfg.Channels * half * bytesPerFloat
	return float64(mdctTableBytes+spreadBytes+overlapBytes) / 1024
}

// RecommendedBufferSize returns the PCM sample count (N*channels) expected
// by one encode_frame call.
func (e *Encoder) RecommendedBufferSize() int {
	return e.cfg.frameSize * e.cfg.Channels
}

// channelConfiguration maps a channel count to the 3-bit ADTS
// channel-configuration field for the standard layouts spec.md §6 names
// (1=M, 2=L,R, 4=L,R,Ls,Rs, 6=L,R,C,LFE,Ls,Rs). Channel counts with no
// standard ADTS mapping (e.g. 8, which needs a program_config_element this
// encoder does not emit) report 0, the "see PCE" escape value.
func channelConfiguration(channels int) uint8 {
	if channels >= 1 && channels <= 7 {
		return uint8(channels)
	}
	return 0
}

// EncodeFrame consumes one frame of interleaved PCM (length N*channels)
// and returns the encoded byte frame: a 7-byte ADTS-style header followed
// by the coded payload, per spec.md §4.F.
func (e *Encoder) EncodeFrame(pcm []float64) ([]byte, error) {
	start := time.Now()

	n := e.cfg.frameSize
	channels := e.cfg.Channels
	expected := n * channels
	if len(pcm) != expected {
		return nil, &BufferSizeMismatch{Expected: expected, Actual: len(pcm)}
	}

	perChannel := deinterleave(pcm, n, channels)

	coeffs := make([][]float64, channels)
	for ch := 0; ch < channels; ch++ {
		coeffs[ch] = e.mdcts[ch].Forward(perChannel[ch])
	}

	tnsInfo := make([]TNSSideInfo, channels)
	for ch := 0; ch < channels; ch++ {
		filtered, info := e.tns.Apply(coeffs[ch], e.psycho.Bands(), e.cfg.UseTNS)
		coeffs[ch] = filtered
		tnsInfo[ch] = info
	}

	thresholds := make([][]float64, channels)
	for ch := 0; ch < channels; ch++ {
		thresholds[ch] = e.psycho.Thresholds(coeffs[ch], e.prevThresholds[ch])
		e.prevThresholds[ch] = thresholds[ch]
	}

	energies := make([]float64, channels)
	for ch := 0; ch < channels; ch++ {
		var sum float64
		for _, x := range coeffs[ch] {
			sum += x * x
		}
		energies[ch] = sum
	}
	chanBudget := e.cfg.BitBudget() - adtsHeaderBits
	// TNS side info is written outside the quantizer's bit estimate, so it
	// is taken off the budget before allocation.
	for _, info := range tnsInfo {
		chanBudget-- // enable bit.
		if info.Enabled {
			chanBudget -= 3 + 4 + tnsCoeffQuantBits*len(info.Coeffs)
		}
	}
	budgets := AllocateChannelBudgets(energies, chanBudget)

	results := make([]QuantResult, channels)
	budgetMissed := false
	for ch := 0; ch < channels; ch++ {
		results[ch] = e.quant.QuantizeChannel(coeffs[ch], thresholds[ch], e.psycho.Bands(), budgets[ch])
		if results[ch].BudgetMissed {
			budgetMissed = true
			if l := e.cfg.logger(); l != nil {
				l.Debug("aac: rate-budget miss", "channel", ch, "bits", results[ch].BitsConsumed, "budget", budgets[ch])
			}
		}
	}

	frame, err := e.serialize(results, tnsInfo)
	if err != nil {
		return nil, err
	}

	snrDB := averageSNR(coeffs, results, e.psycho.Bands())
	e.stats.update(len(frame)*8, time.Since(start), snrDB, budgetMissed)

	return frame, nil
}

// EncodeBuffer concatenates the outputs of encoding each successive N*channels
// chunk of pcm with encode_frame, in order. len(pcm) must be a multiple of
// N*channels. If a chunk fails, already-encoded bytes are returned along
// with the error, per spec.md §7's partial-failure convention.
func (e *Encoder) EncodeBuffer(pcm []float64) ([]byte, error) {
	chunk := e.cfg.frameSize * e.cfg.Channels
	if chunk == 0 || len(pcm)%chunk != 0 {
		return nil, &BufferSizeMismatch{Expected: chunk, Actual: len(pcm)}
	}

	var out []byte
	for off := 0; off < len(pcm); off += chunk {
		frame, err := e.EncodeFrame(pcm[off : off+chunk])
		if err != nil {
			return out, err
		}
		out = append(out, frame...)
	}
	return out, nil
}

// deinterleave splits interleaved PCM of length n*channels into channels
// slices of length n, sanitising NaN/Inf samples to 0 per spec.md §7.
func deinterleave(pcm []float64, n, channels int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, n)
	}
	for i, v := range pcm {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i%channels][i/channels] = v
	}
	return out
}

// serialize writes one frame's ADTS header and per-channel payload (global
// gain, TNS side info, differential scale factors, and Huffman-proxy-coded
// coefficient indices) using the Encoder's reused BitWriter. The body is
// written first so its byte length is known before the header's
// frame-length field is written, per spec.md §4.F step 7.
func (e *Encoder) serialize(results []QuantResult, tnsInfo []TNSSideInfo) ([]byte, error) {
	e.bw.Reset()
	for ch, r := range results {
		if err := writeChannelPayload(e.bw, r, tnsInfo[ch]); err != nil {
			return nil, err
		}
	}
	body, err := e.bw.Finish()
	if err != nil {
		return nil, err
	}

	frameLen := adtsHeaderBytes + len(body)
	if err := e.bw.WriteADTSHeader(frameLen, e.cfg.rateIndex, channelConfiguration(e.cfg.Channels)); err != nil {
		return nil, err
	}
	header, err := e.bw.Finish()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)
	return out, nil
}

// writeChannelPayload writes one channel's global gain, TNS side info,
// differential scale factors and coefficient indices.
func writeChannelPayload(bw *BitWriter, r QuantResult, tns TNSSideInfo) error {
	if err := bw.WriteBits(uint64(r.GlobalGain), 8); err != nil {
		return err
	}

	if err := bw.WriteBits(boolBit(tns.Enabled), 1); err != nil {
		return err
	}
	if tns.Enabled {
		if err := bw.WriteBits(uint64(tns.Order), 3); err != nil {
			return err
		}
		if err := bw.WriteBits(uint64(tns.StartBand), 4); err != nil {
			return err
		}
		for _, c := range tns.Coeffs {
			if err := bw.WriteBits(uint64(c)&0xF, 4); err != nil {
				return err
			}
		}
	}

	prev := 0
	for _, s := range r.ScaleFactors {
		delta := s - prev
		prev = s
		width := sfBits(delta)
		if err := bw.WriteBits(zigzag(delta), width); err != nil {
			return err
		}
	}

	for _, q := range r.Indices {
		width := huffBits(q)
		if width == 0 {
			continue
		}
		if err := bw.WriteBits(zigzag(q), width); err != nil {
			return err
		}
	}
	return nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// zigzag maps a signed int to an unsigned value with small magnitudes
// mapped to small codes, for packing into a fixed bit width.
func zigzag(v int) uint64 {
	if v >= 0 {
		return uint64(v) * 2
	}
	return uint64(-v)*2 - 1
}

// averageSNR computes 10*log10(sum(X^2)/sum((X-dequant)^2)) per channel and
// averages across channels, per spec.md §4.F step 8. A channel with zero
// reconstruction error (e.g. silence) contributes no SNR penalty and is
// excluded from the average to avoid a spurious +Inf.
func averageSNR(coeffs [][]float64, results []QuantResult, bands []barkBand) float64 {
	var total float64
	var count int
	for ch, x := range coeffs {
		r := results[ch]
		binBand := make([]int, len(x))
		for b, band := range bands {
			for k := band.Lo; k < band.Hi; k++ {
				binBand[k] = b
			}
		}

		var sigEnergy, noiseEnergy float64
		for k, v := range x {
			sigEnergy += v * v
			b := binBand[k]
			sf := 0
			if b < len(r.ScaleFactors) {
				sf = r.ScaleFactors[b]
			}
			d := dequantMagnitude(r.Indices[k], sf, r.GlobalGain)
			if v < 0 {
				d = -d
			}
			diff := v - d
			noiseEnergy += diff * diff
		}
		if noiseEnergy <= 0 || sigEnergy <= 0 {
			continue
		}
		total += 10 * math.Log10(sigEnergy/noiseEnergy)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
