package pcap

import (
	"encoding/binary"
	"errors"
)

const (
	// Magic identifies a microsecond-timestamp pcap file. The
	// nanosecond variant (0xa1b23c4d) is not supported.
	Magic = 0xa1b2c3d4

	HeaderSize       = 24
	RecordHeaderSize = 16
)

var ErrNotPcap = errors.New("not a recognized pcap capture file")

// Trailer word layout (little-endian 32-bit value at offset 20):
// bits 31..29 FCS length, bit 28 flag, bits 27..0 link-layer type.
const (
	trailerFCSShift = 29
	trailerFlagBit  = uint32(1) << 28
	trailerLinkMask = uint32(0x0FFFFFFF)
)

func unpackTrailer(v uint32) (fcsLen uint8, flag bool, linkType uint32) {
	return uint8(v >> trailerFCSShift), v&trailerFlagBit != 0, v & trailerLinkMask
}

func packTrailer(fcsLen uint8, flag bool, linkType uint32) uint32 {
	v := uint32(fcsLen&0x7) << trailerFCSShift
	if flag {
		v |= trailerFlagBit
	}
	return v | linkType&trailerLinkMask
}

// ParseHeader reads the pcap global header from the start of buf. It
// returns ErrNotPcap when buf is shorter than 24 bytes or the magic
// does not match; the caller treats that as "not our format", not as a
// corrupt file.
func ParseHeader(buf []byte) (Header, error) {
	var hdr Header
	if len(buf) < HeaderSize {
		return hdr, ErrNotPcap
	}
	hdr.Magic = binary.LittleEndian.Uint32(buf[0:4])
	if hdr.Magic != Magic {
		return hdr, ErrNotPcap
	}
	hdr.Major = binary.LittleEndian.Uint16(buf[4:6])
	hdr.Minor = binary.LittleEndian.Uint16(buf[6:8])
	hdr.Reserved1 = binary.LittleEndian.Uint32(buf[8:12])
	hdr.Reserved2 = binary.LittleEndian.Uint32(buf[12:16])
	hdr.SnapLen = binary.LittleEndian.Uint32(buf[16:20])
	hdr.FCSLen, hdr.FCSFlag, hdr.LinkType = unpackTrailer(binary.LittleEndian.Uint32(buf[20:24]))
	return hdr, nil
}

// EncodeHeader serializes hdr into its exact 24-byte form. For any
// header produced by ParseHeader the output is byte-identical to the
// input prefix.
func EncodeHeader(hdr Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], hdr.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], hdr.Major)
	binary.LittleEndian.PutUint16(buf[6:8], hdr.Minor)
	binary.LittleEndian.PutUint32(buf[8:12], hdr.Reserved1)
	binary.LittleEndian.PutUint32(buf[12:16], hdr.Reserved2)
	binary.LittleEndian.PutUint32(buf[16:20], hdr.SnapLen)
	binary.LittleEndian.PutUint32(buf[20:24], packTrailer(hdr.FCSLen, hdr.FCSFlag, hdr.LinkType))
	return buf
}
