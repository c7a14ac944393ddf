package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/genonullfree/dtrunc/internal/common"
	"github.com/genonullfree/dtrunc/internal/pcap"
	"github.com/genonullfree/dtrunc/internal/repair"
	"github.com/genonullfree/dtrunc/internal/report"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	if strings.HasPrefix(cmd, "-") {
		// Bare-flag invocation (dtrunc --input capture.pcap) is kept
		// as an alias for the fix command.
		fixCmd(os.Args[1:])
		return
	}
	switch cmd {
	case "fix":
		fixCmd(os.Args[2:])
	case "info":
		infoCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`dtrunc %s (built %s) <command> [options]

Commands:
  fix     --input <file.pcap> [--output <file>] [--verbose] [--report <report.json>] [--audit <audit.jsonl>] [--progress] [--metrics]
  info    --input <file.pcap>
  report  --summary <report.json> [--pdf <report.pdf>] [--qr <hash.png>]
`, version, buildDate)
}

func fixCmd(args []string) {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	input := fs.String("input", "", "input pcap file with truncated records")
	output := fs.String("output", "output.pcap", "output file for the repaired capture")
	verbose := fs.Bool("verbose", false, "per-record progress and size summary")
	reportPath := fs.String("report", "", "write a repair report JSON")
	auditPath := fs.String("audit", "", "append repaired records to a JSONL audit log")
	progressFlag := fs.Bool("progress", false, "display repair progress updates")
	metricsFlag := fs.Bool("metrics", false, "print repair throughput metrics")
	fs.Parse(args)

	if *input == "" {
		fmt.Println("required: --input")
		os.Exit(1)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		common.Fatalf("cannot open file %s: %v", *input, err)
	}
	fmt.Printf("Loading %s...\n", *input)

	if _, err := pcap.ParseHeader(data); err != nil {
		fmt.Printf("Error: %s cannot be loaded as a pcap file\n", *input)
		os.Exit(1)
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.SetTotalBytes(int64(len(data)))
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}

	out, sum, findings, err := runRepair(data, repair.Options{Verbose: *verbose}, metrics)
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		common.Fatalf("repair failed: %v", err)
	}

	fmt.Printf("Writing output to: %s\n", *output)
	if err := os.WriteFile(*output, out, 0o644); err != nil {
		common.Fatalf("cannot write output file %s: %v", *output, err)
	}

	if *verbose {
		fmt.Printf("Packets detruncated: %d of %d\n", sum.Repaired, sum.Records)
		fmt.Printf("Original filesize: %d New filesize: %d\n", sum.InputBytes, sum.OutputBytes)
	}

	if *auditPath != "" {
		if err := appendAudit(*auditPath, findings); err != nil {
			common.Fatalf("write audit log: %v", err)
		}
	}
	if *reportPath != "" {
		rep := report.Report{
			CreatedAt:    time.Now().UTC(),
			Input:        *input,
			Output:       *output,
			InputSha256:  common.Sha256OfBytes(data),
			OutputSha256: common.Sha256OfBytes(out),
			Summary:      sum,
			Findings:     findings,
		}
		if err := report.SaveJSON(rep, *reportPath); err != nil {
			common.Fatalf("write report: %v", err)
		}
	}
	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Printf("Metrics: duration=%s records=%d repairs=%d processed=%s throughput=%.2f MB/s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Records,
			snap.Repairs,
			common.FormatBytes(snap.Bytes),
			snap.ThroughputBytesPerSecond()/1_000_000,
		)
	}
}

// runRepair drives the individual repair stages so the caller can keep
// per-record findings and feed the throughput metrics. The output
// buffer is identical to what repair.Repair produces.
func runRepair(data []byte, opts repair.Options, metrics *common.Metrics) ([]byte, repair.Summary, []report.Finding, error) {
	hdr, err := pcap.ParseHeader(data)
	if err != nil {
		return nil, repair.Summary{}, nil, err
	}
	records, trailing := pcap.ParseRecords(data[pcap.HeaderSize:])
	if trailing > 0 {
		common.Logf("warning: %d trailing bytes ignored after last complete record", trailing)
	}

	var findings []report.Finding
	offset := int64(pcap.HeaderSize)
	for n, rec := range records {
		if metrics != nil {
			metrics.AddRecord(int64(rec.EncodedLen()))
		}
		if rec.Truncated() {
			if metrics != nil {
				metrics.IncRepair()
			}
			findings = append(findings, report.Finding{
				RecordIndex: n,
				Offset:      offset,
				CapLen:      rec.CapLen,
				OrigLen:     rec.OrigLen,
				PaddedBytes: rec.OrigLen - rec.CapLen,
			})
		}
		offset += int64(rec.EncodedLen())
	}

	fmt.Println("Detruncating pcap records...")
	fixed, sum, err := repair.Detruncate(records, opts)
	if err != nil {
		return nil, repair.Summary{}, nil, err
	}

	out := make([]byte, 0, sum.OutputBytes)
	out = append(out, pcap.EncodeHeader(hdr)...)
	out = append(out, pcap.EncodeRecords(fixed)...)
	return out, sum, findings, nil
}

func appendAudit(path string, findings []report.Finding) error {
	log := common.NewRepairLog(path)
	for _, f := range findings {
		entry := common.RepairEntry{
			RecordIndex: f.RecordIndex,
			Offset:      f.Offset,
			CapLen:      f.CapLen,
			OrigLen:     f.OrigLen,
			PaddedBytes: f.PaddedBytes,
		}
		if err := log.Append(entry); err != nil {
			return err
		}
	}
	return nil
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	input := fs.String("input", "", "input pcap file")
	fs.Parse(args)

	if *input == "" {
		fmt.Println("required: --input")
		os.Exit(1)
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		common.Fatalf("cannot open file %s: %v", *input, err)
	}
	hdr, err := pcap.ParseHeader(data)
	if err != nil {
		fmt.Printf("Error: %s cannot be loaded as a pcap file\n", *input)
		os.Exit(1)
	}
	records, trailing := pcap.ParseRecords(data[pcap.HeaderSize:])
	truncated := 0
	for _, rec := range records {
		if rec.Truncated() {
			truncated++
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "magic\t0x%08x\n", hdr.Magic)
	fmt.Fprintf(w, "version\t%d.%d\n", hdr.Major, hdr.Minor)
	fmt.Fprintf(w, "snaplen\t%d\n", hdr.SnapLen)
	fmt.Fprintf(w, "fcs length\t%d\n", hdr.FCSLen)
	fmt.Fprintf(w, "fcs flag\t%v\n", hdr.FCSFlag)
	fmt.Fprintf(w, "link type\t%d\n", hdr.LinkType)
	fmt.Fprintf(w, "records\t%d\n", len(records))
	fmt.Fprintf(w, "truncated\t%d\n", truncated)
	fmt.Fprintf(w, "file size\t%s\n", common.FormatBytes(int64(len(data))))
	if trailing > 0 {
		fmt.Fprintf(w, "trailing bytes\t%d\n", trailing)
	}
	w.Flush()
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	summary := fs.String("summary", "", "repair report JSON written by fix --report")
	pdfPath := fs.String("pdf", "", "render the report as PDF")
	qrPath := fs.String("qr", "", "write a QR code PNG of the output file hash")
	fs.Parse(args)

	if *summary == "" {
		fmt.Println("required: --summary")
		os.Exit(1)
	}
	if *pdfPath == "" && *qrPath == "" {
		fmt.Println("nothing to do: provide --pdf and/or --qr")
		os.Exit(1)
	}
	rep, err := report.LoadJSON(*summary)
	if err != nil {
		common.Fatalf("load report: %v", err)
	}
	if *pdfPath != "" {
		if err := report.SavePDF(rep, *pdfPath); err != nil {
			common.Fatalf("render pdf: %v", err)
		}
		fmt.Printf("Report PDF written to: %s\n", *pdfPath)
	}
	if *qrPath != "" {
		png, err := report.HashToQR(rep.OutputSha256, 256)
		if err != nil {
			common.Fatalf("encode qr: %v", err)
		}
		if err := os.WriteFile(*qrPath, png, 0o644); err != nil {
			common.Fatalf("write qr: %v", err)
		}
		fmt.Printf("QR code written to: %s\n", *qrPath)
	}
}
