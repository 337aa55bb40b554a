/*
NAME
  adts.go

DESCRIPTION
  adts.go parses ADTS-style frame headers produced by WriteADTSHeader, for
  use in this package's own round-trip tests and by any downstream
  collaborator that wants to split a byte stream of frames back into
  individual frames without re-implementing the bit layout.

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
	"fmt"
	"io"
)

// ADTSHeader holds the parsed fields of one frame's ADTS-style header.
type ADTSHeader struct {
	MPEGVersion            uint8
	ProtectionAbsent       bool
	Profile                uint8
	SamplingFrequencyIndex uint8
	ChannelConfiguration   uint8
	FrameLength            uint16 // total frame length, header + payload, in bytes.
	RawDataBlocks          uint8
}

// ReadADTSFrame reads one ADTS-style frame (header plus payload) from r.
// It is the inverse of BitWriter.WriteADTSHeader followed by a byte-aligned
// payload, and assumes protection-absent (no trailing CRC), matching what
// this encoder always emits.
func ReadADTSFrame(r io.Reader) (*ADTSHeader, []byte, error) {
	buf := make([]byte, adtsHeaderBytes)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, io.EOF
		}
		return nil, nil, fmt.Errorf("failed to read ADTS header: %w", err)
	}
	if n < adtsHeaderBytes {
		return nil, nil, io.ErrUnexpectedEOF
	}

	sync := (uint16(buf[0]) << 4) | uint16((buf[1]&0xF0)>>4)
	if sync != adtsSyncword {
		return nil, nil, fmt.Errorf("syncword mismatch: expected 0x%X, got 0x%X", adtsSyncword, sync)
	}

	h := &ADTSHeader{}
	h.MPEGVersion = (buf[1] & 0x08) >> 3
	h.ProtectionAbsent = buf[1]&0x01 == 1
	h.Profile = (buf[2] & 0xC0) >> 6
	h.SamplingFrequencyIndex = (buf[2] & 0x3C) >> 2
	// Channel configuration (3 bits) straddles byte 2 and byte 3.
	h.ChannelConfiguration = ((buf[2] & 0x01) << 2) | ((buf[3] & 0xC0) >> 6)

	// Frame length (13 bits) straddles bytes 3, 4 and 5.
	frameLen := uint16(buf[3]&0x03) << 11
	frameLen |= uint16(buf[4]) << 3
	frameLen |= uint16((buf[5]&0xE0)>>5)
	h.FrameLength = frameLen

	h.RawDataBlocks = buf[6] & 0x03

	if int(h.FrameLength) < adtsHeaderBytes {
		return h, nil, fmt.Errorf("invalid frame length: %d bytes (less than header size %d)", h.FrameLength, adtsHeaderBytes)
	}
	payloadSize := int(h.FrameLength) - adtsHeaderBytes
	payload := make([]byte, payloadSize)
	if payloadSize > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return h, nil, fmt.Errorf("failed to read frame payload of size %d: %w", payloadSize, err)
		}
	}
	return h, payload, nil
}
