package pcap

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseRecords(t *testing.T) {
	want := []Record{
		{TsSec: 1, TsFrac: 2, CapLen: 3, OrigLen: 3, Payload: []byte{0x01, 0x02, 0x03}},
		{TsSec: 4, TsFrac: 5, CapLen: 0, OrigLen: 0, Payload: []byte{}},
		{TsSec: 6, TsFrac: 7, CapLen: 2, OrigLen: 9, Payload: []byte{0xAA, 0xBB}},
	}
	records, trailing := ParseRecords(EncodeRecords(want))
	if trailing != 0 {
		t.Fatalf("trailing = %d, want 0", trailing)
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("records = %+v, want %+v", records, want)
	}
}

func TestParseRecordsTermination(t *testing.T) {
	complete := EncodeRecord(Record{TsSec: 1, CapLen: 4, OrigLen: 4, Payload: []byte{1, 2, 3, 4}})

	tests := []struct {
		name         string
		buf          []byte
		wantRecords  int
		wantTrailing int
	}{
		{name: "empty", buf: nil, wantRecords: 0, wantTrailing: 0},
		{name: "partial header", buf: complete[:10], wantRecords: 0, wantTrailing: 10},
		{name: "payload cut short", buf: complete[:18], wantRecords: 0, wantTrailing: 18},
		{
			name:         "second record truncated",
			buf:          append(append([]byte{}, complete...), complete[:7]...),
			wantRecords:  1,
			wantTrailing: 7,
		},
		{
			// Declared caplen runs past the end of the buffer; the
			// stream terminates cleanly rather than reading out of
			// bounds.
			name: "caplen beyond buffer",
			buf: func() []byte {
				rec := EncodeRecord(Record{CapLen: 8, OrigLen: 8, Payload: make([]byte, 8)})
				return rec[:RecordHeaderSize+3]
			}(),
			wantRecords:  0,
			wantTrailing: RecordHeaderSize + 3,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records, trailing := ParseRecords(tc.buf)
			if len(records) != tc.wantRecords {
				t.Fatalf("records = %d, want %d", len(records), tc.wantRecords)
			}
			if trailing != tc.wantTrailing {
				t.Fatalf("trailing = %d, want %d", trailing, tc.wantTrailing)
			}
		})
	}
}

func TestEncodeRecordRoundTrip(t *testing.T) {
	in := Record{TsSec: 1000, TsFrac: 250_000, CapLen: 4, OrigLen: 4, Payload: []byte{0x01, 0x02, 0x03, 0x04}}
	records, trailing := ParseRecords(EncodeRecord(in))
	if trailing != 0 {
		t.Fatalf("trailing = %d, want 0", trailing)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if !reflect.DeepEqual(records[0], in) {
		t.Fatalf("record = %+v, want %+v", records[0], in)
	}
}

func TestEncodeRecordsConcatenation(t *testing.T) {
	a := Record{TsSec: 1, CapLen: 2, OrigLen: 2, Payload: []byte{0x10, 0x20}}
	b := Record{TsSec: 2, CapLen: 1, OrigLen: 1, Payload: []byte{0x30}}
	got := EncodeRecords([]Record{a, b})
	want := append(EncodeRecord(a), EncodeRecord(b)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("concatenation mismatch:\ngot =%x\nwant=%x", got, want)
	}
}
