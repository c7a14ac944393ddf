package repair

import (
	"errors"
	"fmt"
	"math"

	"github.com/genonullfree/dtrunc/internal/common"
	"github.com/genonullfree/dtrunc/internal/pcap"
)

var (
	// ErrInvalidLengths marks a record claiming to have stored more
	// bytes than the packet originally had. The file's internal
	// consistency is suspect at that point, so the whole run aborts.
	ErrInvalidLengths = errors.New("captured length is greater than original length")

	// ErrSizeOverflow marks an origlen that cannot be represented as
	// an allocation size on this platform.
	ErrSizeOverflow = errors.New("original length exceeds maximum allocation size")
)

// Options configures a repair run. Verbose only controls per-record
// progress logging; it has no effect on the transform or its output.
type Options struct {
	Verbose bool
}

// Summary reports what a repair run did. It is informational only:
// counters are derived from the records, never the other way around.
type Summary struct {
	Records     int   `json:"records"`
	Repaired    int   `json:"repaired"`
	InputBytes  int64 `json:"inputBytes"`
	OutputBytes int64 `json:"outputBytes"`
}

// Detruncate restores every truncated record to its declared original
// length by appending zero bytes, leaving complete records untouched.
// Order is preserved and each record's outcome depends only on its own
// lengths. Byte totals in the summary include the 24-byte global
// header, matching the on-disk file sizes.
func Detruncate(records []pcap.Record, opts Options) ([]pcap.Record, Summary, error) {
	out := make([]pcap.Record, 0, len(records))
	sum := Summary{
		Records:     len(records),
		InputBytes:  pcap.HeaderSize,
		OutputBytes: pcap.HeaderSize,
	}

	for n, rec := range records {
		sum.InputBytes += int64(rec.EncodedLen())

		switch {
		case rec.CapLen == rec.OrigLen:
			sum.OutputBytes += int64(rec.EncodedLen())
			out = append(out, rec)

		case rec.CapLen > rec.OrigLen:
			return nil, Summary{}, fmt.Errorf("record %d: %w (caplen=%d origlen=%d)",
				n+1, ErrInvalidLengths, rec.CapLen, rec.OrigLen)

		default:
			if uint64(rec.OrigLen) > uint64(math.MaxInt) {
				return nil, Summary{}, fmt.Errorf("record %d: %w (origlen=%d)",
					n+1, ErrSizeOverflow, rec.OrigLen)
			}
			if opts.Verbose {
				common.Logf("record %d: resizing from %d to %d", n+1, rec.CapLen, rec.OrigLen)
			}
			padded := make([]byte, rec.OrigLen)
			copy(padded, rec.Payload)
			rec.Payload = padded
			rec.CapLen = rec.OrigLen
			sum.OutputBytes += int64(rec.EncodedLen())
			sum.Repaired++
			out = append(out, rec)
		}
	}
	return out, sum, nil
}

// Repair is the whole-buffer composition: parse the global header,
// parse the record stream, detruncate, and re-encode. It returns either
// a complete output image or an error; no partial output exists.
func Repair(buf []byte, opts Options) ([]byte, Summary, error) {
	hdr, err := pcap.ParseHeader(buf)
	if err != nil {
		return nil, Summary{}, err
	}
	records, trailing := pcap.ParseRecords(buf[pcap.HeaderSize:])
	if trailing > 0 {
		common.Logf("warning: %d trailing bytes ignored after last complete record", trailing)
	}
	fixed, sum, err := Detruncate(records, opts)
	if err != nil {
		return nil, Summary{}, err
	}
	out := make([]byte, 0, sum.OutputBytes)
	out = append(out, pcap.EncodeHeader(hdr)...)
	out = append(out, pcap.EncodeRecords(fixed)...)
	return out, sum, nil
}
