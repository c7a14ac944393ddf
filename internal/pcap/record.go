package pcap

import "encoding/binary"

// ParseRecords walks buf (the bytes following the global header) and
// returns every complete record in order. Parsing stops the moment
// fewer bytes remain than a full record header plus its declared
// payload requires; a capture may legitimately end mid-record when the
// file itself was cut short. The second return value is the number of
// unconsumed trailing bytes, zero for a cleanly terminated stream.
func ParseRecords(buf []byte) ([]Record, int) {
	var records []Record
	cursor := 0
	for {
		rest := buf[cursor:]
		if len(rest) < RecordHeaderSize {
			return records, len(rest)
		}
		capLen := binary.LittleEndian.Uint32(rest[8:12])
		if uint64(RecordHeaderSize)+uint64(capLen) > uint64(len(rest)) {
			return records, len(rest)
		}
		rec := Record{
			TsSec:   binary.LittleEndian.Uint32(rest[0:4]),
			TsFrac:  binary.LittleEndian.Uint32(rest[4:8]),
			CapLen:  capLen,
			OrigLen: binary.LittleEndian.Uint32(rest[12:16]),
			Payload: make([]byte, capLen),
		}
		copy(rec.Payload, rest[RecordHeaderSize:RecordHeaderSize+int(capLen)])
		records = append(records, rec)
		cursor += RecordHeaderSize + int(capLen)
	}
}

// EncodeRecord serializes a single record. The payload is written as
// stored; callers must keep len(Payload) equal to CapLen, which holds
// for every record produced by ParseRecords or the repair transform.
func EncodeRecord(rec Record) []byte {
	buf := make([]byte, RecordHeaderSize+len(rec.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], rec.TsSec)
	binary.LittleEndian.PutUint32(buf[4:8], rec.TsFrac)
	binary.LittleEndian.PutUint32(buf[8:12], rec.CapLen)
	binary.LittleEndian.PutUint32(buf[12:16], rec.OrigLen)
	copy(buf[RecordHeaderSize:], rec.Payload)
	return buf
}

// EncodeRecords concatenates the serialized form of every record in
// order. Appended to EncodeHeader this yields the complete output file
// image.
func EncodeRecords(records []Record) []byte {
	total := 0
	for _, rec := range records {
		total += rec.EncodedLen()
	}
	out := make([]byte, 0, total)
	for _, rec := range records {
		out = append(out, EncodeRecord(rec)...)
	}
	return out
}
