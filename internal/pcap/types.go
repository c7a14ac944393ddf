package pcap

// Header is the 24-byte pcap global header. Reserved1 and Reserved2 are
// opaque and preserved verbatim across a parse/encode round trip.
type Header struct {
	Magic     uint32
	Major     uint16
	Minor     uint16
	Reserved1 uint32
	Reserved2 uint32
	SnapLen   uint32
	FCSLen    uint8
	FCSFlag   bool
	LinkType  uint32
}

// Record is one captured packet: a 16-byte record header followed by
// CapLen payload bytes. OrigLen is the packet's on-the-wire length
// before any capture-time truncation.
type Record struct {
	TsSec   uint32
	TsFrac  uint32
	CapLen  uint32
	OrigLen uint32
	Payload []byte
}

// Truncated reports whether the record stored fewer bytes than the
// packet originally had.
func (r Record) Truncated() bool {
	return r.CapLen < r.OrigLen
}

// EncodedLen is the serialized size of the record in bytes.
func (r Record) EncodedLen() int {
	return RecordHeaderSize + len(r.Payload)
}
