package xpipe

import (
	"encoding/binary"
	"hash/crc32"

	"xframe/averror"
	"xframe/xutil"
)

// Synthetic frame layout, big endian:
//
//	[0:8)   sequence number
//	[8:16)  producer timestamp, ms since epoch
//	[16:20) crc32 (IEEE) of the payload
//	[20:)   payload
const (
	seqOff       = 0
	stampOff     = 8
	crcOff       = 16
	FrameHeader  = 20
	MinFrameSize = FrameHeader + 1
)

// FillFunc writes frame number seq into frame. A negative code drops the
// frame and the buffer goes back to the packet channel.
type FillFunc func(seq uint64, frame []byte) averror.Code

// ProcessFunc consumes a filled frame.
type ProcessFunc func(frame []byte) averror.Code

// SyntheticFill stamps the header and fills the payload with a pattern
// derived from seq.
func SyntheticFill(seq uint64, frame []byte) averror.Code {
	if len(frame) < MinFrameSize {
		return averror.BufferTooSmall
	}
	payload := frame[FrameHeader:]
	for i := range payload {
		payload[i] = byte(seq) + byte(i)
	}
	binary.BigEndian.PutUint64(frame[seqOff:], seq)
	binary.BigEndian.PutUint64(frame[stampOff:], uint64(xutil.NowMillis()))
	binary.BigEndian.PutUint32(frame[crcOff:], crc32.ChecksumIEEE(payload))
	return 0
}

// VerifyFrame checks the payload checksum written by SyntheticFill.
func VerifyFrame(frame []byte) averror.Code {
	if len(frame) < MinFrameSize {
		return averror.BufferTooSmall
	}
	if binary.BigEndian.Uint32(frame[crcOff:]) != crc32.ChecksumIEEE(frame[FrameHeader:]) {
		return averror.InvalidData
	}
	return 0
}

func frameSeq(frame []byte) uint64 {
	return binary.BigEndian.Uint64(frame[seqOff:])
}

func frameStamp(frame []byte) int64 {
	return int64(binary.BigEndian.Uint64(frame[stampOff:]))
}
