/*
NAME
  bitwriter.go

DESCRIPTION
  bitwriter.go provides bit-granular output to a byte buffer and
  ADTS-style per-frame header emission.

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
	"bytes"
	"fmt"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

const (
	adtsSyncword    = 0xFFF
	adtsProfileLD   = 3 // AAC-LD, encoded as profile index 3 per spec.
	adtsHeaderBits  = 56
	adtsHeaderBytes = adtsHeaderBits / 8
	frameLengthMax  = 1<<13 - 1 // 13-bit field.
	bufferFullness  = 0x7FF     // 11-bit field, unused by a frame-synchronous encoder.
)

// BitWriter appends values bit-by-bit to an internal byte buffer. A
// BitWriter is reused across frames: Reset clears it for the next frame
// without reallocating its backing buffer.
type BitWriter struct {
	buf    *bytes.Buffer
	bw     *bitio.Writer
	bitPos int // bits written since the last Reset, for the monotonic-position invariant.
}

// NewBitWriter returns an empty BitWriter ready for Reset/WriteBits calls.
func NewBitWriter() *BitWriter {
	w := &BitWriter{buf: new(bytes.Buffer)}
	w.bw = bitio.NewWriter(w.buf)
	return w
}

// Reset clears the BitWriter's buffer and bit position, reusing its
// backing storage.
func (w *BitWriter) Reset() {
	w.buf.Reset()
	w.bw = bitio.NewWriter(w.buf)
	w.bitPos = 0
}

// WriteBits writes the low n bits of value, most-significant bit first.
// n must be in [1,32]; any other value is a BitstreamError.
func (w *BitWriter) WriteBits(value uint64, n int) error {
	if n < 1 || n > 32 {
		return &BitstreamError{Message: fmt.Sprintf("write width %d outside [1,32]", n)}
	}
	if err := w.bw.WriteBits(value, uint8(n)); err != nil {
		return &BitstreamError{Message: errors.Wrap(err, "bit write failed").Error()}
	}
	w.bitPos += n
	return nil
}

// AlignToByte pads the current position with zero bits up to the next byte
// boundary, returning the number of padding bits written.
func (w *BitWriter) AlignToByte() (int, error) {
	pad := (8 - w.bitPos%8) % 8
	if pad == 0 {
		return 0, nil
	}
	if err := w.WriteBits(0, pad); err != nil {
		return 0, err
	}
	return pad, nil
}

// BitPosition returns the number of bits written since the last Reset.
func (w *BitWriter) BitPosition() int { return w.bitPos }

// Finish byte-aligns the buffer, flushes it, and returns the accumulated
// bytes. The BitWriter is left empty, ready for the next frame via Reset.
func (w *BitWriter) Finish() ([]byte, error) {
	if _, err := w.AlignToByte(); err != nil {
		return nil, err
	}
	if err := w.bw.Close(); err != nil {
		return nil, &BitstreamError{Message: errors.Wrap(err, "flush failed").Error()}
	}
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	w.Reset()
	return out, nil
}

// WriteADTSHeader writes the fixed 56-bit ADTS-style frame header described
// in spec.md §4.A: sync word, version/layer/protection-absent flags, the
// AAC-LD profile code, sample-rate index, channel configuration and the
// total frame length (header + payload, in bytes). frameLen must fit the
// 13-bit frame-length field.
func (w *BitWriter) WriteADTSHeader(frameLen int, sampleRateIndex, channelConfig uint8) error {
	if frameLen > frameLengthMax {
		return &BitstreamError{Message: fmt.Sprintf("frame length %d exceeds 13-bit field capacity %d", frameLen, frameLengthMax)}
	}
	writes := []struct {
		value uint64
		bits  int
	}{
		{adtsSyncword, 12},         // syncword
		{0, 1},                     // MPEG version = 0 (MPEG-4)
		{0, 2},                     // layer = 0
		{1, 1},                     // protection absent = 1 (no CRC)
		{adtsProfileLD, 2},         // profile = AAC-LD
		{uint64(sampleRateIndex), 4},
		{0, 1},                     // private bit
		{uint64(channelConfig), 3}, // channel configuration
		{0, 4},                     // reserved
		{uint64(frameLen), 13},     // frame length (header + payload)
		{bufferFullness, 11},       // buffer fullness, unused
		{0, 2},                     // number of raw data blocks - 1
	}
	for _, wr := range writes {
		if err := w.WriteBits(wr.value, wr.bits); err != nil {
			return err
		}
	}
	return nil
}
